package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

// UpdateCurrentOrderCount moves the live counter by delta. Without an ACTIVE session nothing is
// touched and ErrNoActiveSession is returned. Increments that push utilization to the session's
// threshold end it with CAPACITY; any change past the scheduled end ends it with SCHEDULED.
func (o *Orchestrator) UpdateCurrentOrderCount(ctx context.Context, restaurantID string, delta int) (models.CapacityUpdate, error) {
	unlock := o.locks.Lock(restaurantID)
	defer unlock()

	session, err := o.openSession(ctx, restaurantID)
	if err != nil {
		return models.CapacityUpdate{}, err
	}
	if session == nil || session.Status != models.SessionStatusActive {
		return models.CapacityUpdate{}, fmt.Errorf("update order count for %s: %w", restaurantID, ErrNoActiveSession)
	}

	if o.scheduledEndReached(session) {
		if _, err := o.endLocked(ctx, session, models.EndReasonScheduled); err != nil {
			return models.CapacityUpdate{}, err
		}
		return models.CapacityUpdate{SessionID: session.ID, MaxOrders: session.Config.MaxOrders, AutoDisabled: true}, nil
	}

	live, err := o.liveEntry(ctx, session)
	if err != nil {
		return models.CapacityUpdate{}, err
	}
	live.CurrentOrders += delta
	if live.CurrentOrders < 0 {
		live.CurrentOrders = 0
	}
	utilization := live.Utilization()

	if live.CurrentOrders > session.PeakConcurrentOrders {
		session.PeakConcurrentOrders = live.CurrentOrders
		session.PeakUtilization = utilization
		if err := o.sessions.Update(ctx, session); err != nil {
			return models.CapacityUpdate{}, fmt.Errorf("record peak for session %s: %w", session.ID, err)
		}
	}
	if err := o.cache.Set(ctx, liveKey(restaurantID), live, 0); err != nil {
		return models.CapacityUpdate{}, fmt.Errorf("store live entry for %s: %w", restaurantID, err)
	}

	breach := delta > 0 && live.AutoDisableThreshold > 0 && utilization >= live.AutoDisableThreshold
	update := models.CapacityUpdate{
		SessionID:     session.ID,
		CurrentOrders: live.CurrentOrders,
		MaxOrders:     live.MaxOrders,
		Utilization:   utilization,
		AutoDisabled:  breach,
	}
	if err := o.publish(ctx, session, models.EventCapacityUpdate, update); err != nil {
		o.logger.Warn("capacity update publish failed", "restaurant_id", restaurantID, "session_id", session.ID, "err", err)
	}

	if breach {
		o.logger.Warn("capacity threshold reached, ending session",
			"restaurant_id", restaurantID,
			"session_id", session.ID,
			"utilization", utilization,
			"threshold", live.AutoDisableThreshold,
		)
		if _, err := o.endLocked(ctx, session, models.EndReasonCapacity); err != nil {
			return update, err
		}
	}
	return update, nil
}

// liveEntry reads the live counter, rebuilding it at zero when the cache lost it.
func (o *Orchestrator) liveEntry(ctx context.Context, session *models.Session) (models.LiveSession, error) {
	var live models.LiveSession
	found, err := o.cache.Get(ctx, liveKey(session.RestaurantID), &live)
	if err != nil {
		return live, fmt.Errorf("read live entry for %s: %w", session.RestaurantID, err)
	}
	if found && live.SessionID == session.ID {
		return live, nil
	}
	o.logger.Info("live entry missing, starting from zero", "restaurant_id", session.RestaurantID, "session_id", session.ID)
	return models.LiveSession{
		SessionID:            session.ID,
		RestaurantID:         session.RestaurantID,
		MaxOrders:            session.Config.MaxOrders,
		AutoDisableThreshold: session.Config.AutoDisableThreshold,
	}, nil
}

// RecordOrderCompleted folds a finished order into the session totals.
func (o *Orchestrator) RecordOrderCompleted(ctx context.Context, restaurantID string, order *models.Order) (models.SessionStats, error) {
	return o.recordOrder(ctx, restaurantID, order, func(session *models.Session, stats *models.PlatformStats) {
		prep := order.PrepSeconds()
		session.TotalOrders++
		session.TotalRevenue += order.TotalAmount
		session.TotalPrepTime += int64(prep)
		stats.Orders++
		stats.Revenue += order.TotalAmount
		if order.PrepStartedAt != nil && order.ReadyAt != nil {
			stats.PrepTimes = append(stats.PrepTimes, prep)
		}
	})
}

// RecordOrderCancelled counts a cancellation against the order's platform.
func (o *Orchestrator) RecordOrderCancelled(ctx context.Context, restaurantID string, order *models.Order) (models.SessionStats, error) {
	return o.recordOrder(ctx, restaurantID, order, func(_ *models.Session, stats *models.PlatformStats) {
		stats.Cancellations++
	})
}

func (o *Orchestrator) recordOrder(ctx context.Context, restaurantID string, order *models.Order, apply func(*models.Session, *models.PlatformStats)) (models.SessionStats, error) {
	if order == nil {
		return models.SessionStats{}, fmt.Errorf("%w: nil order", models.ErrInvalidArgument)
	}
	unlock := o.locks.Lock(restaurantID)
	defer unlock()

	session, err := o.openSession(ctx, restaurantID)
	if err != nil {
		return models.SessionStats{}, err
	}
	if session == nil {
		return models.SessionStats{}, fmt.Errorf("record order %s: %w", order.ID, ErrNoOpenSession)
	}
	if order.SessionID != "" && order.SessionID != session.ID {
		return models.SessionStats{}, fmt.Errorf("%w: order %s belongs to session %s, not %s",
			models.ErrInvalidArgument, order.ID, order.SessionID, session.ID)
	}

	if session.Platforms == nil {
		session.Platforms = make(map[models.Platform]*models.PlatformStats)
	}
	stats, ok := session.Platforms[order.Platform]
	if !ok {
		stats = &models.PlatformStats{}
		session.Platforms[order.Platform] = stats
	}
	apply(session, stats)
	if err := o.sessions.Update(ctx, session); err != nil {
		return models.SessionStats{}, fmt.Errorf("record order %s: %w", order.ID, err)
	}

	snapshot := session.Stats(o.clock.Now())
	if err := o.publish(ctx, session, models.EventStatsUpdate, snapshot); err != nil {
		o.logger.Warn("stats update publish failed", "restaurant_id", restaurantID, "session_id", session.ID, "err", err)
	}
	return snapshot, nil
}

// CheckSummary counts what one RunScheduledChecks sweep changed.
type CheckSummary struct {
	Checked int
	Resumed int
	Ended   int
}

// RunScheduledChecks applies auto-resume and scheduled end to every open session.
// Restaurants are checked in parallel; one failing restaurant does not stop the others.
func (o *Orchestrator) RunScheduledChecks(ctx context.Context) (CheckSummary, error) {
	open, err := o.sessions.ListOpen(ctx)
	if err != nil {
		return CheckSummary{}, fmt.Errorf("list open sessions: %w", err)
	}

	var (
		mu      sync.Mutex
		summary = CheckSummary{Checked: len(open)}
		errs    *multierror.Error
	)
	var g errgroup.Group
	g.SetLimit(o.parallelism)
	for _, s := range open {
		restaurantID := s.RestaurantID
		g.Go(func() error {
			resumed, err := o.CheckAutoResume(ctx, restaurantID)
			if err == nil {
				var ended bool
				ended, err = o.CheckScheduledEnd(ctx, restaurantID)
				mu.Lock()
				if ended {
					summary.Ended++
				}
				mu.Unlock()
			}
			mu.Lock()
			defer mu.Unlock()
			if resumed {
				summary.Resumed++
			}
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("restaurant %s: %w", restaurantID, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if summary.Resumed > 0 || summary.Ended > 0 {
		o.logger.Info("scheduled checks applied", "checked", summary.Checked, "resumed", summary.Resumed, "ended", summary.Ended)
	}
	return summary, errs.ErrorOrNil()
}
