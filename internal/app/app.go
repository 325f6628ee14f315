// Package app wires configuration into the services and their adapters.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/chrisdamba/ghostkitchen/internal/analytics"
	"github.com/chrisdamba/ghostkitchen/internal/cache"
	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/forecast"
	"github.com/chrisdamba/ghostkitchen/internal/gateway"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/notify"
	"github.com/chrisdamba/ghostkitchen/internal/producers"
	"github.com/chrisdamba/ghostkitchen/internal/publisher"
	"github.com/chrisdamba/ghostkitchen/internal/repositories"
	"github.com/chrisdamba/ghostkitchen/internal/repositories/memory"
	"github.com/chrisdamba/ghostkitchen/internal/repositories/postgres"
	"github.com/chrisdamba/ghostkitchen/internal/session"
	"github.com/chrisdamba/ghostkitchen/internal/signals"
	"github.com/chrisdamba/ghostkitchen/internal/staffing"
)

type App struct {
	Config       *models.Config
	Logger       *slog.Logger
	Clock        clock.Clock
	Repos        *repositories.Repositories
	Cache        cache.Cache
	Publisher    publisher.Publisher
	Gateway      gateway.PlatformGateway
	Notifier     notify.Notifier
	Events       *signals.StaticEvents
	Patterns     *forecast.PatternAggregator
	Forecaster   *forecast.Forecaster
	Recommender  *staffing.Recommender
	Orchestrator *session.Orchestrator
	Analytics    *analytics.Calculator

	closers []func() error
}

// New builds every service. A database URL selects Postgres, otherwise stores are in memory;
// kafka.enabled selects Kafka adapters, otherwise events and commands are logged.
func New(ctx context.Context, cfg *models.Config, logger *slog.Logger, clk clock.Clock) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Clock:  clk,
		Cache:  cache.NewMemory(clk),
		Events: signals.NewStaticEvents(),
	}

	if cfg.Database.URL != "" {
		pool, err := postgres.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		a.Repos = postgres.NewRepositories(pool)
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		logger.Info("using postgres repositories")
	} else {
		a.Repos = memory.NewRepositories()
		logger.Info("using in-memory repositories")
	}

	if cfg.Kafka.Enabled {
		producer, err := producers.NewSaramaProducer(cfg.Kafka, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, producer.Close)
		a.Publisher = publisher.NewKafka(producer, cfg.Kafka.EventsTopic)
		a.Gateway = gateway.NewKafka(producer, cfg.Kafka.GatewayTopic, clk)
		a.Notifier = notify.NewKafka(producer, cfg.Kafka.NotificationsTopic)
	} else {
		a.Publisher = publisher.NewLog(logger)
		a.Gateway = gateway.NewLog(logger)
		a.Notifier = notify.NewLog(logger)
	}

	weather := signals.SeasonalWeather{Seed: cfg.Simulation.Seed, Clock: clk}
	a.Patterns = forecast.NewPatternAggregator(a.Repos.Sessions, a.Repos.Orders, a.Cache, clk, logger,
		cfg.Cache.PatternTTL, cfg.Forecast.LookbackWeeks)
	a.Forecaster = forecast.NewForecaster(a.Patterns, a.Repos.Restaurants, a.Repos.Forecasts, weather, a.Events,
		clk, logger, cfg.Forecast.Parallelism)
	a.Recommender = staffing.NewRecommender(a.Forecaster, a.Repos, a.Notifier, clk, logger, cfg.Staffing)
	a.Orchestrator = session.NewOrchestrator(a.Repos, a.Cache, a.Gateway, a.Publisher, clk, logger, cfg.Forecast.Parallelism)
	a.Analytics = analytics.NewCalculator(a.Repos, clk, logger, cfg.Analytics)
	return a, nil
}

// Close releases the producer and the database pool, newest first.
func (a *App) Close() error {
	var result error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.closers = nil
	return result
}

// NewLogger builds a text logger at the named level; unknown names mean info.
func NewLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// ResolveRestaurants returns the given ids, or every stored restaurant when none are given.
func (a *App) ResolveRestaurants(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) > 0 {
		return ids, nil
	}
	all, err := a.Repos.Restaurants.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	out := make([]string, 0, len(all))
	for id := range all {
		out = append(out, id)
	}
	return out, nil
}

// SessionView is the status of a restaurant as seen from this process. The live counter lives in
// the process that opened the session, so Status reports disabled elsewhere; OpenSession then
// still shows what the store holds.
type SessionView struct {
	Status      *session.Status `json:"status"`
	OpenSession *models.Session `json:"open_session,omitempty"`
	LiveCounter string          `json:"live_counter,omitempty"`
}

const liveCounterElsewhere = "held by the process that enabled the session; not visible here"

func (a *App) SessionStatus(ctx context.Context, restaurantID string) (*SessionView, error) {
	status, err := a.Orchestrator.GetStatus(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	view := &SessionView{Status: status}
	if status.Enabled {
		view.OpenSession = status.Session
		return view, nil
	}
	open, err := a.Repos.Sessions.GetOpen(ctx, restaurantID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return view, nil
	case err != nil:
		return nil, fmt.Errorf("look up open session: %w", err)
	}
	view.OpenSession = open
	view.LiveCounter = liveCounterElsewhere
	return view, nil
}
