package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/ghostkitchen/internal/cache"
	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/gateway"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/notify"
	"github.com/chrisdamba/ghostkitchen/internal/publisher"
	"github.com/chrisdamba/ghostkitchen/internal/repositories/memory"
	"github.com/chrisdamba/ghostkitchen/internal/session"
)

func defaultConfig(t *testing.T) *models.Config {
	t.Helper()
	cfg, err := models.LoadConfig("")
	require.NoError(t, err)
	return cfg
}

func TestNewWiresMemoryAndLogAdapters(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFake(time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC))

	a, err := New(context.Background(), defaultConfig(t), logger, clk)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &memory.RestaurantRepository{}, a.Repos.Restaurants)
	assert.IsType(t, &publisher.Log{}, a.Publisher)
	assert.IsType(t, &gateway.Log{}, a.Gateway)
	assert.IsType(t, &notify.Log{}, a.Notifier)
	assert.NotNil(t, a.Forecaster)
	assert.NotNil(t, a.Recommender)
	assert.NotNil(t, a.Orchestrator)
	assert.NotNil(t, a.Analytics)
	assert.NoError(t, a.Close())
}

func TestNewWiresServicesEndToEnd(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFake(time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC))
	a, err := New(context.Background(), defaultConfig(t), logger, clk)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, a.Repos.Restaurants.Create(ctx, &models.Restaurant{
		ID:                  "r1",
		Name:                "Test Kitchen",
		GhostKitchenEnabled: true,
		GhostKitchen:        models.GhostKitchenSettings{MaxOrders: 10, Platforms: []models.Platform{models.PlatformDoorDash}},
	}))

	res, err := a.Orchestrator.Enable(ctx, "r1", models.SessionOverrides{})
	require.NoError(t, err)
	assert.NoError(t, res.SideEffects)

	forecasts, err := a.Forecaster.ForecastDemand(ctx, "r1", clk.Now(), []int{18})
	require.NoError(t, err)
	require.Len(t, forecasts, 1)

	ids, err := a.ResolveRestaurants(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids)
	ids, err = a.ResolveRestaurants(ctx, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids)
}

func TestSessionStatusFromAnotherProcess(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFake(time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC))
	a, err := New(context.Background(), defaultConfig(t), logger, clk)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, a.Repos.Restaurants.Create(ctx, &models.Restaurant{
		ID:                  "r1",
		GhostKitchenEnabled: true,
		GhostKitchen:        models.GhostKitchenSettings{MaxOrders: 10, Platforms: []models.Platform{models.PlatformDoorDash}},
	}))

	view, err := a.SessionStatus(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, view.Status.Enabled)
	assert.Nil(t, view.OpenSession)

	res, err := a.Orchestrator.Enable(ctx, "r1", models.SessionOverrides{})
	require.NoError(t, err)
	_, err = a.Orchestrator.UpdateCurrentOrderCount(ctx, "r1", 2)
	require.NoError(t, err)

	view, err = a.SessionStatus(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, view.Status.Enabled)
	assert.Equal(t, 2, view.Status.Live.CurrentOrders)
	assert.Empty(t, view.LiveCounter)

	// Same store, its own live cache.
	other := *a
	other.Orchestrator = session.NewOrchestrator(a.Repos, cache.NewMemory(clk), a.Gateway, a.Publisher, clk, logger, 1)
	view, err = other.SessionStatus(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, view.Status.Enabled)
	require.NotNil(t, view.OpenSession)
	assert.Equal(t, res.Session.ID, view.OpenSession.ID)
	assert.NotEmpty(t, view.LiveCounter)
}

func TestNewFailsOnBadDatabaseURL(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Database.URL = "://not-a-url"
	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), clock.Real{})
	assert.Error(t, err)
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	NewLogger("nonsense", &buf).Debug("quiet")
	assert.Empty(t, buf.String())

	buf.Reset()
	NewLogger("DEBUG", &buf).Debug("loud")
	assert.Contains(t, buf.String(), "loud")
}
