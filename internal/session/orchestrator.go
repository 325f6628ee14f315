// Package session owns the ghost kitchen session lifecycle: enable, pause, resume and end,
// plus the live order counter that drives capacity auto-disable.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/lucsky/cuid"

	"github.com/chrisdamba/ghostkitchen/internal/cache"
	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/gateway"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/publisher"
	"github.com/chrisdamba/ghostkitchen/internal/repositories"
)

var (
	ErrGhostKitchenDisabled = fmt.Errorf("ghost kitchen is disabled for this restaurant: %w", models.ErrInvalidState)
	ErrSessionAlreadyActive = fmt.Errorf("ghost kitchen session already active: %w", models.ErrInvalidState)
	ErrNoActiveSession      = fmt.Errorf("no active ghost kitchen session: %w", models.ErrInvalidState)
	ErrSessionNotPaused     = fmt.Errorf("ghost kitchen session is not paused: %w", models.ErrInvalidState)
	ErrNoOpenSession        = fmt.Errorf("no active or paused ghost kitchen session: %w", models.ErrInvalidState)
)

// TransitionResult carries the persisted session and any best-effort side effects that failed.
// A non-nil SideEffects never means the transition itself was rolled back.
type TransitionResult struct {
	Session     *models.Session
	SideEffects error
}

// Status is the consolidated view returned by GetStatus. Enabled is false when nothing is live.
type Status struct {
	Enabled     bool                `json:"enabled"`
	Session     *models.Session     `json:"session,omitempty"`
	Live        *models.LiveSession `json:"live,omitempty"`
	Utilization float64             `json:"utilization"`
}

type Orchestrator struct {
	restaurants repositories.RestaurantRepository
	sessions    repositories.SessionRepository
	cache       cache.Cache
	gateway     gateway.PlatformGateway
	publisher   publisher.Publisher
	clock       clock.Clock
	logger      *slog.Logger
	locks       *keyedMutex
	parallelism int
}

func NewOrchestrator(
	repos *repositories.Repositories,
	c cache.Cache,
	gw gateway.PlatformGateway,
	pub publisher.Publisher,
	clk clock.Clock,
	logger *slog.Logger,
	parallelism int,
) *Orchestrator {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Orchestrator{
		restaurants: repos.Restaurants,
		sessions:    repos.Sessions,
		cache:       c,
		gateway:     gw,
		publisher:   pub,
		clock:       clk,
		logger:      logger,
		locks:       newKeyedMutex(),
		parallelism: parallelism,
	}
}

func liveKey(restaurantID string) string {
	return "gk:live:" + restaurantID
}

// Enable opens a new session for the restaurant with its defaults merged under overrides.
func (o *Orchestrator) Enable(ctx context.Context, restaurantID string, overrides models.SessionOverrides) (*TransitionResult, error) {
	unlock := o.locks.Lock(restaurantID)
	defer unlock()

	restaurant, err := o.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("enable ghost kitchen: %w", err)
	}
	if !restaurant.GhostKitchenEnabled {
		return nil, fmt.Errorf("restaurant %s: %w", restaurantID, ErrGhostKitchenDisabled)
	}
	if open, err := o.sessions.GetOpen(ctx, restaurantID); err == nil {
		return nil, fmt.Errorf("restaurant %s has session %s: %w", restaurantID, open.ID, ErrSessionAlreadyActive)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("look up open session: %w", err)
	}

	cfg := snapshotConfig(restaurant.GhostKitchen, overrides)
	if cfg.MaxOrders <= 0 {
		return nil, fmt.Errorf("%w: max orders must be positive", models.ErrInvalidArgument)
	}
	if cfg.AutoDisableThreshold < 0 {
		return nil, fmt.Errorf("%w: auto-disable threshold must not be negative", models.ErrInvalidArgument)
	}

	now := o.clock.Now()
	session := &models.Session{
		ID:           cuid.New(),
		RestaurantID: restaurantID,
		Status:       models.SessionStatusActive,
		StartedAt:    now,
		Config:       cfg,
		Platforms:    make(map[models.Platform]*models.PlatformStats, len(cfg.Platforms)),
	}
	for _, p := range cfg.Platforms {
		session.Platforms[p] = &models.PlatformStats{}
	}
	switch {
	case overrides.ScheduledEndAt != nil:
		if !overrides.ScheduledEndAt.After(now) {
			return nil, fmt.Errorf("%w: scheduled end must be in the future", models.ErrInvalidArgument)
		}
		end := *overrides.ScheduledEndAt
		session.ScheduledEndAt = &end
	case overrides.Duration > 0:
		end := now.Add(overrides.Duration)
		session.ScheduledEndAt = &end
	}

	if err := o.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, models.ErrInvalidState) {
			return nil, fmt.Errorf("restaurant %s: %w", restaurantID, ErrSessionAlreadyActive)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	var sideEffects error
	o.collect(&sideEffects, session, "gateway start accepting",
		o.gateway.SetAcceptingOrders(ctx, restaurantID, true, cfg.Platforms))
	live := models.LiveSession{
		SessionID:            session.ID,
		RestaurantID:         restaurantID,
		MaxOrders:            cfg.MaxOrders,
		AutoDisableThreshold: cfg.AutoDisableThreshold,
	}
	o.collect(&sideEffects, session, "seed live entry", o.cache.Set(ctx, liveKey(restaurantID), live, 0))
	o.collect(&sideEffects, session, "publish "+models.EventSessionStarted,
		o.publish(ctx, session, models.EventSessionStarted, session.Config))

	o.logger.Info("ghost kitchen session started",
		"restaurant_id", restaurantID,
		"session_id", session.ID,
		"max_orders", cfg.MaxOrders,
		"platforms", cfg.Platforms,
	)
	return &TransitionResult{Session: session, SideEffects: sideEffects}, nil
}

// Pause stops order intake. A positive duration sets the auto-resume deadline.
func (o *Orchestrator) Pause(ctx context.Context, restaurantID string, duration time.Duration, reason string) (*TransitionResult, error) {
	unlock := o.locks.Lock(restaurantID)
	defer unlock()

	session, err := o.openSession(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Status != models.SessionStatusActive {
		return nil, fmt.Errorf("pause restaurant %s: %w", restaurantID, ErrNoActiveSession)
	}

	now := o.clock.Now()
	session.Status = models.SessionStatusPaused
	session.PausedAt = &now
	session.PauseReason = reason
	session.PauseEndTime = nil
	if duration > 0 {
		end := now.Add(duration)
		session.PauseEndTime = &end
	}
	if err := o.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("pause session %s: %w", session.ID, err)
	}

	var sideEffects error
	o.collect(&sideEffects, session, "gateway stop accepting",
		o.gateway.SetAcceptingOrders(ctx, restaurantID, false, session.Config.Platforms))
	o.collect(&sideEffects, session, "publish "+models.EventSessionPaused,
		o.publish(ctx, session, models.EventSessionPaused, map[string]any{
			"reason":         reason,
			"pause_end_time": session.PauseEndTime,
		}))

	o.logger.Info("ghost kitchen session paused", "restaurant_id", restaurantID, "session_id", session.ID, "duration", duration)
	return &TransitionResult{Session: session, SideEffects: sideEffects}, nil
}

// Resume reopens order intake on a paused session.
func (o *Orchestrator) Resume(ctx context.Context, restaurantID string) (*TransitionResult, error) {
	unlock := o.locks.Lock(restaurantID)
	defer unlock()

	session, err := o.openSession(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Status != models.SessionStatusPaused {
		return nil, fmt.Errorf("resume restaurant %s: %w", restaurantID, ErrSessionNotPaused)
	}
	return o.resumeLocked(ctx, session, false)
}

// CheckAutoResume resumes a paused session whose deadline has passed and reports whether it did.
func (o *Orchestrator) CheckAutoResume(ctx context.Context, restaurantID string) (bool, error) {
	unlock := o.locks.Lock(restaurantID)
	defer unlock()

	session, err := o.openSession(ctx, restaurantID)
	if err != nil || session == nil {
		return false, err
	}
	if session.Status != models.SessionStatusPaused || session.PauseEndTime == nil {
		return false, nil
	}
	if o.clock.Now().Before(*session.PauseEndTime) {
		return false, nil
	}
	if _, err := o.resumeLocked(ctx, session, true); err != nil {
		return false, err
	}
	return true, nil
}

func (o *Orchestrator) resumeLocked(ctx context.Context, session *models.Session, automatic bool) (*TransitionResult, error) {
	session.Status = models.SessionStatusActive
	session.PausedAt = nil
	session.PauseEndTime = nil
	session.PauseReason = ""
	if err := o.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("resume session %s: %w", session.ID, err)
	}

	var sideEffects error
	o.collect(&sideEffects, session, "gateway resume accepting",
		o.gateway.SetAcceptingOrders(ctx, session.RestaurantID, true, session.Config.Platforms))
	o.collect(&sideEffects, session, "publish "+models.EventSessionResumed,
		o.publish(ctx, session, models.EventSessionResumed, map[string]any{"automatic": automatic}))

	o.logger.Info("ghost kitchen session resumed", "restaurant_id", session.RestaurantID, "session_id", session.ID, "automatic", automatic)
	return &TransitionResult{Session: session, SideEffects: sideEffects}, nil
}

// Disable ends the open session. An empty reason is recorded as MANUAL.
func (o *Orchestrator) Disable(ctx context.Context, restaurantID string, reason models.EndReason) (*TransitionResult, error) {
	unlock := o.locks.Lock(restaurantID)
	defer unlock()

	session, err := o.openSession(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("disable restaurant %s: %w", restaurantID, ErrNoOpenSession)
	}
	if reason == "" {
		reason = models.EndReasonManual
	}
	return o.endLocked(ctx, session, reason)
}

// CheckScheduledEnd ends the open session once its scheduled end has passed and reports whether it did.
func (o *Orchestrator) CheckScheduledEnd(ctx context.Context, restaurantID string) (bool, error) {
	unlock := o.locks.Lock(restaurantID)
	defer unlock()

	session, err := o.openSession(ctx, restaurantID)
	if err != nil || session == nil {
		return false, err
	}
	if !o.scheduledEndReached(session) {
		return false, nil
	}
	if _, err := o.endLocked(ctx, session, models.EndReasonScheduled); err != nil {
		return false, err
	}
	return true, nil
}

func (o *Orchestrator) scheduledEndReached(session *models.Session) bool {
	return session.ScheduledEndAt != nil && !o.clock.Now().Before(*session.ScheduledEndAt)
}

// endLocked is the only path to ENDED. Callers hold the restaurant lock.
func (o *Orchestrator) endLocked(ctx context.Context, session *models.Session, reason models.EndReason) (*TransitionResult, error) {
	if !session.Status.IsOpen() {
		return nil, fmt.Errorf("end session %s: %w", session.ID, ErrNoOpenSession)
	}

	now := o.clock.Now()
	session.Status = models.SessionStatusEnded
	session.EndedAt = &now
	session.EndReason = reason
	session.PauseEndTime = nil
	session.AvgPrepTime = nil
	if session.TotalOrders > 0 {
		avg := float64(session.TotalPrepTime) / float64(session.TotalOrders)
		session.AvgPrepTime = &avg
	}
	if err := o.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("end session %s: %w", session.ID, err)
	}

	var sideEffects error
	o.collect(&sideEffects, session, "gateway stop accepting",
		o.gateway.SetAcceptingOrders(ctx, session.RestaurantID, false, session.Config.Platforms))
	o.collect(&sideEffects, session, "clear live entry", o.cache.Delete(ctx, liveKey(session.RestaurantID)))
	o.collect(&sideEffects, session, "publish "+models.EventSessionEnded,
		o.publish(ctx, session, models.EventSessionEnded, session.Stats(now)))

	o.logger.Info("ghost kitchen session ended",
		"restaurant_id", session.RestaurantID,
		"session_id", session.ID,
		"reason", reason,
		"total_orders", session.TotalOrders,
	)
	return &TransitionResult{Session: session, SideEffects: sideEffects}, nil
}

// GetStatus combines the live entry with the stored session. The stored session decides whether
// anything is open; the live entry supplies the current count.
func (o *Orchestrator) GetStatus(ctx context.Context, restaurantID string) (*Status, error) {
	var live models.LiveSession
	found, err := o.cache.Get(ctx, liveKey(restaurantID), &live)
	if err != nil {
		o.logger.Warn("live entry read failed", "restaurant_id", restaurantID, "err", err)
		found = false
	}
	if !found {
		return &Status{}, nil
	}

	session, err := o.openSession(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.ID != live.SessionID {
		return &Status{}, nil
	}
	return &Status{
		Enabled:     true,
		Session:     session,
		Live:        &live,
		Utilization: live.Utilization(),
	}, nil
}

// openSession returns the restaurant's ACTIVE or PAUSED session, or nil when there is none.
func (o *Orchestrator) openSession(ctx context.Context, restaurantID string) (*models.Session, error) {
	session, err := o.sessions.GetOpen(ctx, restaurantID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up open session for %s: %w", restaurantID, err)
	}
	return session, nil
}

func (o *Orchestrator) publish(ctx context.Context, session *models.Session, name string, data any) error {
	return o.publisher.Publish(ctx, models.RestaurantChannel(session.RestaurantID), models.Event{
		Name:         name,
		RestaurantID: session.RestaurantID,
		SessionID:    session.ID,
		Timestamp:    o.clock.Now(),
		Data:         data,
	})
}

// collect logs a failed side effect and appends it to dst.
func (o *Orchestrator) collect(dst *error, session *models.Session, what string, err error) {
	if err == nil {
		return
	}
	o.logger.Warn("ghost kitchen side effect failed",
		"restaurant_id", session.RestaurantID,
		"session_id", session.ID,
		"side_effect", what,
		"err", err,
	)
	*dst = multierror.Append(*dst, fmt.Errorf("%s: %w", what, err))
}

func snapshotConfig(defaults models.GhostKitchenSettings, overrides models.SessionOverrides) models.SessionConfig {
	cfg := models.SessionConfig{
		MaxOrders:            defaults.MaxOrders,
		Platforms:            append([]models.Platform(nil), defaults.Platforms...),
		AutoAccept:           defaults.AutoAccept,
		MinPrepTime:          defaults.MinPrepTime,
		PackagingCost:        defaults.PackagingCost,
		AutoDisableThreshold: defaults.AutoDisableThreshold,
	}
	if overrides.MaxOrders != nil {
		cfg.MaxOrders = *overrides.MaxOrders
	}
	if len(overrides.Platforms) > 0 {
		cfg.Platforms = append([]models.Platform(nil), overrides.Platforms...)
	}
	if overrides.AutoAccept != nil {
		cfg.AutoAccept = *overrides.AutoAccept
	}
	if overrides.MinPrepTime != nil {
		cfg.MinPrepTime = *overrides.MinPrepTime
	}
	if overrides.PackagingCost != nil {
		cfg.PackagingCost = *overrides.PackagingCost
	}
	if overrides.AutoDisableThreshold != nil {
		cfg.AutoDisableThreshold = *overrides.AutoDisableThreshold
	}
	if len(defaults.PlatformFees)+len(overrides.PlatformFees) > 0 {
		cfg.PlatformFees = make(map[models.Platform]models.PlatformFee, len(defaults.PlatformFees)+len(overrides.PlatformFees))
		for p, fee := range defaults.PlatformFees {
			cfg.PlatformFees[p] = fee
		}
		for p, fee := range overrides.PlatformFees {
			cfg.PlatformFees[p] = fee
		}
	}
	return cfg
}
