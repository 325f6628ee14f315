package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/lucsky/cuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

// Runs against a disposable PostGIS database named by GHOSTKITCHEN_TEST_DATABASE_URL.
func testPool(t *testing.T) *testRepos {
	t.Helper()
	url := os.Getenv("GHOSTKITCHEN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GHOSTKITCHEN_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, url, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return &testRepos{
		Restaurants: NewRestaurantRepository(pool),
		Sessions:    NewSessionRepository(pool),
		Forecasts:   NewForecastRepository(pool),
	}
}

type testRepos struct {
	Restaurants *RestaurantRepository
	Sessions    *SessionRepository
	Forecasts   *ForecastRepository
}

func TestSessionRoundTripAndOpenUniqueness(t *testing.T) {
	repos := testPool(t)
	ctx := context.Background()

	restaurant := &models.Restaurant{
		ID:                  cuid.New(),
		Name:                "Test Kitchen",
		Location:            models.Location{Lat: 40.7, Lon: -74.0},
		GhostKitchenEnabled: true,
		GhostKitchen:        models.GhostKitchenSettings{MaxOrders: 10, Platforms: []models.Platform{models.PlatformDoorDash}},
	}
	require.NoError(t, repos.Restaurants.Create(ctx, restaurant))

	got, err := repos.Restaurants.GetByID(ctx, restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.GhostKitchen.MaxOrders)
	assert.InDelta(t, 40.7, got.Location.Lat, 1e-9)

	start := time.Now().UTC().Truncate(time.Second)
	session := &models.Session{
		ID:           cuid.New(),
		RestaurantID: restaurant.ID,
		Status:       models.SessionStatusActive,
		StartedAt:    start,
		Config:       models.SessionConfig{MaxOrders: 10},
		Platforms:    map[models.Platform]*models.PlatformStats{models.PlatformDoorDash: {}},
	}
	require.NoError(t, repos.Sessions.Create(ctx, session))

	dup := *session
	dup.ID = cuid.New()
	require.ErrorIs(t, repos.Sessions.Create(ctx, &dup), models.ErrInvalidState)

	open, err := repos.Sessions.GetOpen(ctx, restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, open.ID)

	_, err = repos.Sessions.GetByID(ctx, cuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	stale := *open
	ended := *open
	endedAt := start.Add(time.Hour)
	ended.Status = models.SessionStatusEnded
	ended.EndedAt = &endedAt
	ended.EndReason = models.EndReasonManual
	require.NoError(t, repos.Sessions.Update(ctx, &ended))

	require.ErrorIs(t, repos.Sessions.Update(ctx, &stale), models.ErrInvalidState)
	stored, err := repos.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusEnded, stored.Status)
	assert.Equal(t, models.EndReasonManual, stored.EndReason)

	missing := ended
	missing.ID = cuid.New()
	assert.ErrorIs(t, repos.Sessions.Update(ctx, &missing), models.ErrNotFound)
}

func TestForecastRecordActualMissing(t *testing.T) {
	repos := testPool(t)
	err := repos.Forecasts.RecordActual(context.Background(), cuid.New(), time.Now(), 12, 1, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
