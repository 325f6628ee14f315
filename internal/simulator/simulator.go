// Package simulator replays synthetic ghost kitchen days through the session orchestrator.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lucsky/cuid"
	"github.com/schollz/progressbar/v3"

	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/factories"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/repositories"
	"github.com/chrisdamba/ghostkitchen/internal/session"
)

const (
	simulatorActor  = "simulator"
	pauseReason     = "kitchen backlog"
	maxPickupWait   = 10
	minPickupWait   = 2
	shiftsPerSite   = 2
	cancelWaitLimit = 10
)

// SessionHook is called once for every session that ended during the run.
type SessionHook func(ctx context.Context, s *models.Session) error

type Option func(*Simulator)

// WithProgress renders a per-day progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(s *Simulator) { s.progress = w }
}

func WithSessionHook(hook SessionHook) Option {
	return func(s *Simulator) { s.hook = hook }
}

type Summary struct {
	Days             int                      `json:"days"`
	Restaurants      int                      `json:"restaurants"`
	EventsProcessed  int                      `json:"events_processed"`
	SessionsStarted  int                      `json:"sessions_started"`
	SessionsEnded    int                      `json:"sessions_ended"`
	Pauses           int                      `json:"pauses"`
	EndReasons       map[models.EndReason]int `json:"end_reasons"`
	OrdersReceived   int                      `json:"orders_received"`
	OrdersRejected   int                      `json:"orders_rejected"`
	OrdersCompleted  int                      `json:"orders_completed"`
	OrdersCancelled  int                      `json:"orders_cancelled"`
	OrdersUnrecorded int                      `json:"orders_unrecorded"`
}

type Simulator struct {
	cfg          models.SimulationConfig
	repos        *repositories.Repositories
	orchestrator *session.Orchestrator
	clock        *clock.Fake
	factory      *factories.Factory
	queue        *models.EventQueue
	logger       *slog.Logger
	progress     io.Writer
	hook         SessionHook

	restaurants []*models.Restaurant
	summary     Summary
}

// New builds a simulator. The orchestrator must read time from clk.
func New(
	cfg models.SimulationConfig,
	repos *repositories.Repositories,
	orchestrator *session.Orchestrator,
	clk *clock.Fake,
	logger *slog.Logger,
	opts ...Option,
) *Simulator {
	s := &Simulator{
		cfg:          cfg,
		repos:        repos,
		orchestrator: orchestrator,
		clock:        clk,
		factory:      factories.New(cfg.Seed),
		queue:        models.NewEventQueue(),
		logger:       logger,
		summary:      Summary{EndReasons: make(map[models.EndReason]int)},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restaurants returns the seeded restaurants.
func (s *Simulator) Restaurants() []*models.Restaurant {
	return s.restaurants
}

// Seed creates the configured restaurants and their crews.
func (s *Simulator) Seed(ctx context.Context) error {
	center := models.Location{Lat: s.cfg.CityLat, Lon: s.cfg.CityLon}
	restaurants := make([]*models.Restaurant, s.cfg.Restaurants)
	var workers []*models.WorkerProfile
	for i := range restaurants {
		restaurants[i] = s.factory.CreateRestaurant(s.cfg, center)
		workers = append(workers, s.factory.CreateWorkers(restaurants[i].ID, s.cfg.WorkersPerSite)...)
	}
	if err := s.repos.Restaurants.BulkCreate(ctx, restaurants); err != nil {
		return fmt.Errorf("failed to seed restaurants: %w", err)
	}
	if err := s.repos.Workers.BulkCreate(ctx, workers); err != nil {
		return fmt.Errorf("failed to seed workers: %w", err)
	}
	s.restaurants = restaurants
	s.logger.Info("seeded simulation", "restaurants", len(restaurants), "workers", len(workers))
	return nil
}

// Run replays every day in [StartDate, EndDate), one day at a time.
func (s *Simulator) Run(ctx context.Context) (*Summary, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if len(s.restaurants) == 0 {
		if err := s.Seed(ctx); err != nil {
			return nil, err
		}
	}

	first := startOfDay(s.cfg.StartDate)
	days := int(startOfDay(s.cfg.EndDate).Sub(first).Hours() / 24)
	if days < 1 {
		days = 1
	}
	s.summary.Days = days
	s.summary.Restaurants = len(s.restaurants)

	var bar *progressbar.ProgressBar
	if s.progress != nil {
		bar = progressbar.NewOptions(days,
			progressbar.OptionSetWriter(s.progress),
			progressbar.OptionSetDescription("simulating"),
			progressbar.OptionShowCount(),
		)
	}

	s.clock.Set(first)
	for i := 0; i < days; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day := first.AddDate(0, 0, i)
		if err := s.scheduleDay(ctx, day); err != nil {
			return nil, err
		}
		if err := s.drain(ctx); err != nil {
			return nil, err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := s.finish(ctx, first, first.AddDate(0, 0, days)); err != nil {
		return nil, err
	}
	s.logger.Info("simulation completed",
		"days", days,
		"events", s.summary.EventsProcessed,
		"sessions", s.summary.SessionsEnded,
		"orders", s.summary.OrdersReceived,
	)
	summary := s.summary
	return &summary, nil
}

func (s *Simulator) validate() error {
	c := s.cfg
	if c.OpenHour < 0 || c.CloseHour > 24 || c.OpenHour >= c.CloseHour {
		return fmt.Errorf("%w: simulation hours %d-%d", models.ErrInvalidArgument, c.OpenHour, c.CloseHour)
	}
	if c.SchedulerInterval <= 0 {
		return fmt.Errorf("%w: simulation scheduler_interval must be positive", models.ErrInvalidArgument)
	}
	if c.MaxOrders <= 0 {
		return fmt.Errorf("%w: simulation max_orders must be positive", models.ErrInvalidArgument)
	}
	return nil
}

func (s *Simulator) scheduleDay(ctx context.Context, day time.Time) error {
	open := day.Add(time.Duration(s.cfg.OpenHour) * time.Hour)
	closing := day.Add(time.Duration(s.cfg.CloseHour) * time.Hour)
	rng := s.factory.Rand()

	for _, r := range s.restaurants {
		if err := s.createShifts(ctx, r.ID, open, closing); err != nil {
			return err
		}
		s.enqueue(open, models.SimEventEnableSession, r.ID)
		if rng.Float64() < s.cfg.PauseRate {
			offset := time.Duration(rng.Int63n(int64(closing.Sub(open))))
			s.enqueue(open.Add(offset), models.SimEventPauseSession, r.ID)
		}
		for hour := open; hour.Before(closing); hour = hour.Add(time.Hour) {
			n := poisson(rng, s.cfg.OrdersPerHour*demandMultiplier(hour, s.cfg))
			for i := 0; i < n; i++ {
				at := hour.Add(time.Duration(rng.Int63n(int64(time.Hour))))
				s.enqueue(at, models.SimEventOrderArrival, r.ID)
			}
		}
		s.enqueue(closing.Add(s.cfg.SchedulerInterval), models.SimEventDisableSession, r.ID)
	}
	for t := open; !t.After(closing); t = t.Add(s.cfg.SchedulerInterval) {
		s.enqueue(t, models.SimEventSchedulerTick, nil)
	}
	return nil
}

// createShifts records the day's ghost kitchen shifts as already worked.
func (s *Simulator) createShifts(ctx context.Context, restaurantID string, start, end time.Time) error {
	workers, err := s.repos.Workers.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return fmt.Errorf("list workers for %s: %w", restaurantID, err)
	}
	created := 0
	for _, w := range workers {
		if created == shiftsPerSite {
			break
		}
		if !w.HasPosition(models.PositionDeliveryPack) {
			continue
		}
		shift := &models.Shift{
			ID:           cuid.New(),
			RestaurantID: restaurantID,
			WorkerID:     w.ID,
			Position:     models.PositionDeliveryPack,
			Type:         models.ShiftTypeGhostKitchen,
			Status:       models.ShiftStatusCompleted,
			Start:        start,
			End:          end,
			StatusHistory: []models.ShiftStatusChange{
				{To: models.ShiftStatusCompleted, ChangedBy: simulatorActor, Note: "simulated shift", At: end},
			},
		}
		if err := s.repos.Shifts.Create(ctx, shift); err != nil {
			return fmt.Errorf("create shift for %s: %w", w.ID, err)
		}
		created++
	}
	return nil
}

func (s *Simulator) enqueue(at time.Time, eventType string, data interface{}) {
	s.queue.Enqueue(&models.QueuedEvent{Time: at, Type: eventType, Data: data})
}

func (s *Simulator) drain(ctx context.Context) error {
	for {
		event := s.queue.Dequeue()
		if event == nil {
			return nil
		}
		if event.Time.After(s.clock.Now()) {
			s.clock.Set(event.Time)
		}
		if err := s.processEvent(ctx, event); err != nil {
			return fmt.Errorf("%s at %s: %w", event.Type, event.Time.Format(time.RFC3339), err)
		}
		s.summary.EventsProcessed++
	}
}

func (s *Simulator) processEvent(ctx context.Context, event *models.QueuedEvent) error {
	switch event.Type {
	case models.SimEventEnableSession:
		return s.enableSession(ctx, event.Data.(string))
	case models.SimEventPauseSession:
		return s.pauseSession(ctx, event.Data.(string))
	case models.SimEventOrderArrival:
		return s.orderArrival(ctx, event.Data.(string))
	case models.SimEventOrderReady:
		return s.orderReady(ctx, event.Data.(*models.Order))
	case models.SimEventOrderPickup:
		return s.orderDone(ctx, event.Data.(*models.Order), models.OrderStatusPickedUp)
	case models.SimEventOrderCancel:
		return s.orderDone(ctx, event.Data.(*models.Order), models.OrderStatusCancelled)
	case models.SimEventSchedulerTick:
		_, err := s.orchestrator.RunScheduledChecks(ctx)
		return ignoreState(err)
	case models.SimEventDisableSession:
		_, err := s.orchestrator.Disable(ctx, event.Data.(string), models.EndReasonManual)
		return ignoreState(err)
	default:
		return fmt.Errorf("unknown simulation event %q", event.Type)
	}
}

func (s *Simulator) closingTime(t time.Time) time.Time {
	return startOfDay(t).Add(time.Duration(s.cfg.CloseHour) * time.Hour)
}

func (s *Simulator) enableSession(ctx context.Context, restaurantID string) error {
	end := s.closingTime(s.clock.Now())
	if !end.After(s.clock.Now()) {
		return nil
	}
	_, err := s.orchestrator.Enable(ctx, restaurantID, models.SessionOverrides{ScheduledEndAt: &end})
	if errors.Is(err, session.ErrSessionAlreadyActive) {
		return nil
	}
	if err != nil {
		return err
	}
	s.summary.SessionsStarted++
	return nil
}

func (s *Simulator) pauseSession(ctx context.Context, restaurantID string) error {
	_, err := s.orchestrator.Pause(ctx, restaurantID, s.cfg.PauseDuration, pauseReason)
	if errors.Is(err, models.ErrInvalidState) {
		return nil
	}
	if err != nil {
		return err
	}
	s.summary.Pauses++
	return nil
}

func (s *Simulator) orderArrival(ctx context.Context, restaurantID string) error {
	now := s.clock.Now()
	update, err := s.orchestrator.UpdateCurrentOrderCount(ctx, restaurantID, 1)
	if errors.Is(err, session.ErrNoActiveSession) {
		s.summary.OrdersRejected++
		return nil
	}
	if err != nil {
		return err
	}
	if update.AutoDisabled && update.CurrentOrders == 0 {
		// scheduled end fired before the order was accepted
		s.summary.OrdersRejected++
		return nil
	}

	current, err := s.repos.Sessions.GetByID(ctx, update.SessionID)
	if err != nil {
		return err
	}
	order := s.factory.CreateOrder(current, now)
	if err := s.repos.Orders.Create(ctx, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	s.summary.OrdersReceived++

	rng := s.factory.Rand()
	if rng.Float64() < s.cfg.CancellationRate {
		wait := time.Duration(rng.Intn(cancelWaitLimit)+1) * time.Minute
		s.enqueue(now.Add(wait), models.SimEventOrderCancel, order)
	} else {
		prep := s.factory.PrepDuration(current, s.cfg.MinPrepTime, s.cfg.MaxPrepTime)
		s.enqueue(now.Add(prep), models.SimEventOrderReady, order)
	}

	if update.AutoDisabled && s.cfg.CapacityCooldown > 0 {
		if again := now.Add(s.cfg.CapacityCooldown); again.Before(s.closingTime(now)) {
			s.enqueue(again, models.SimEventEnableSession, restaurantID)
		}
	}
	return nil
}

func (s *Simulator) orderReady(ctx context.Context, order *models.Order) error {
	now := s.clock.Now()
	prepStart := order.ReceivedAt
	order.PrepStartedAt = &prepStart
	order.ReadyAt = &now
	order.Status = models.OrderStatusReady
	if err := s.repos.Orders.Update(ctx, order); err != nil {
		return fmt.Errorf("update order %s: %w", order.ID, err)
	}
	wait := time.Duration(s.factory.Rand().Intn(maxPickupWait-minPickupWait+1)+minPickupWait) * time.Minute
	s.enqueue(now.Add(wait), models.SimEventOrderPickup, order)
	return nil
}

// orderDone releases the order's capacity slot and folds it into its session's stats,
// as long as that session is still the restaurant's open one.
func (s *Simulator) orderDone(ctx context.Context, order *models.Order, status models.OrderStatus) error {
	now := s.clock.Now()
	order.Status = status
	if status == models.OrderStatusPickedUp {
		order.PickedUpAt = &now
		s.summary.OrdersCompleted++
	} else {
		s.summary.OrdersCancelled++
	}
	if err := s.repos.Orders.Update(ctx, order); err != nil {
		return fmt.Errorf("update order %s: %w", order.ID, err)
	}

	open, err := s.repos.Sessions.GetOpen(ctx, order.RestaurantID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && open.ID != order.SessionID) {
		s.summary.OrdersUnrecorded++
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.orchestrator.UpdateCurrentOrderCount(ctx, order.RestaurantID, -1); ignoreState(err) != nil {
		return err
	}
	if status == models.OrderStatusPickedUp {
		_, err = s.orchestrator.RecordOrderCompleted(ctx, order.RestaurantID, order)
	} else {
		_, err = s.orchestrator.RecordOrderCancelled(ctx, order.RestaurantID, order)
	}
	if errors.Is(err, models.ErrInvalidState) {
		s.summary.OrdersUnrecorded++
		return nil
	}
	return err
}

// finish closes anything still open and reports every ended session.
func (s *Simulator) finish(ctx context.Context, from, to time.Time) error {
	for _, r := range s.restaurants {
		if _, err := s.orchestrator.Disable(ctx, r.ID, models.EndReasonSystem); ignoreState(err) != nil {
			return err
		}
		ended, err := s.repos.Sessions.ListEnded(ctx, r.ID, from, to)
		if err != nil {
			return fmt.Errorf("list ended sessions for %s: %w", r.ID, err)
		}
		for _, sess := range ended {
			s.summary.SessionsEnded++
			s.summary.EndReasons[sess.EndReason]++
			if s.hook == nil {
				continue
			}
			if err := s.hook(ctx, sess); err != nil {
				return fmt.Errorf("session hook for %s: %w", sess.ID, err)
			}
		}
	}
	return nil
}

// ignoreState drops rejections that are expected while replaying, such as
// disabling a session the scheduler already ended.
func ignoreState(err error) error {
	if errors.Is(err, models.ErrInvalidState) {
		return nil
	}
	return err
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
