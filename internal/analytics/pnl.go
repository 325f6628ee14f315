// Package analytics computes per-session profit and loss, forecast comparisons and period reports.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/repositories"
)

var hundred = decimal.NewFromInt(100)

type Calculator struct {
	sessions repositories.SessionRepository
	orders   repositories.OrderRepository
	shifts   repositories.ShiftRepository
	workers  repositories.WorkerRepository
	clock    clock.Clock
	logger   *slog.Logger
	cfg      models.AnalyticsConfig
}

func NewCalculator(repos *repositories.Repositories, clk clock.Clock, logger *slog.Logger, cfg models.AnalyticsConfig) *Calculator {
	if len(cfg.PlatformFees) == 0 {
		cfg.PlatformFees = models.DefaultPlatformFees()
	}
	return &Calculator{
		sessions: repos.Sessions,
		orders:   repos.Orders,
		shifts:   repos.Shifts,
		workers:  repos.Workers,
		clock:    clk,
		logger:   logger,
		cfg:      cfg,
	}
}

// pnl is the exact decimal form of models.SessionPnL.
type pnl struct {
	completed  int
	revenue    decimal.Decimal
	fees       decimal.Decimal
	labor      decimal.Decimal
	laborHours decimal.Decimal
	supply     decimal.Decimal
	byPlatform map[models.Platform]*platformPnL
}

type platformPnL struct {
	orders  int
	revenue decimal.Decimal
	fees    decimal.Decimal
}

func (p pnl) costs() decimal.Decimal {
	return p.fees.Add(p.labor).Add(p.supply)
}

func (p pnl) net() decimal.Decimal {
	return p.revenue.Sub(p.costs())
}

// SessionPnL computes revenue, costs and margin for one session.
func (c *Calculator) SessionPnL(ctx context.Context, sessionID string) (*models.SessionPnL, error) {
	session, err := c.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session pnl: %w", err)
	}
	orders, err := c.orders.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list orders for session %s: %w", sessionID, err)
	}
	p, err := c.compute(ctx, session, orders, map[string]decimal.Decimal{}, nil)
	if err != nil {
		return nil, err
	}

	out := &models.SessionPnL{
		SessionID:       session.ID,
		RestaurantID:    session.RestaurantID,
		CompletedOrders: p.completed,
		Revenue:         money(p.revenue),
		PlatformFees:    money(p.fees),
		LaborCost:       money(p.labor),
		LaborHours:      money(p.laborHours),
		SupplyCost:      money(p.supply),
		GrossProfit:     money(p.revenue.Sub(p.fees)),
		NetProfit:       money(p.net()),
		Margin:          percent(p.net(), p.revenue),
		ByPlatform:      make(map[models.Platform]models.PlatformPnL, len(p.byPlatform)),
	}
	for platform, pp := range p.byPlatform {
		out.ByPlatform[platform] = models.PlatformPnL{
			Orders:  pp.orders,
			Revenue: money(pp.revenue),
			Fees:    money(pp.fees),
		}
	}
	return out, nil
}

// compute builds the session's decimal P&L. rates caches worker hourly rates across calls.
// With a non-nil charged set, shifts already in it are skipped and charged ones are added, so a
// shift spanning several sessions is costed once.
func (c *Calculator) compute(ctx context.Context, session *models.Session, orders []*models.Order, rates map[string]decimal.Decimal, charged map[string]bool) (pnl, error) {
	p := pnl{byPlatform: make(map[models.Platform]*platformPnL)}
	for _, o := range orders {
		if !o.Status.IsCompleted() {
			continue
		}
		amount := decimal.NewFromFloat(o.TotalAmount)
		fee := c.fee(session, o.Platform, amount)

		p.completed++
		p.revenue = p.revenue.Add(amount)
		p.fees = p.fees.Add(fee)

		pp, ok := p.byPlatform[o.Platform]
		if !ok {
			pp = &platformPnL{}
			p.byPlatform[o.Platform] = pp
		}
		pp.orders++
		pp.revenue = pp.revenue.Add(amount)
		pp.fees = pp.fees.Add(fee)
	}

	packaging := session.Config.PackagingCost
	if packaging <= 0 {
		packaging = c.cfg.DefaultPackagingCost
	}
	p.supply = decimal.NewFromFloat(packaging).Mul(decimal.NewFromInt(int64(p.completed)))

	start, end := session.Window(c.clock.Now())
	shifts, err := c.shifts.ListByRestaurant(ctx, session.RestaurantID, start, end)
	if err != nil {
		return p, fmt.Errorf("list shifts for session %s: %w", session.ID, err)
	}
	for _, s := range shifts {
		if s.Type != models.ShiftTypeGhostKitchen || s.Status != models.ShiftStatusCompleted || !s.Overlaps(start, end) {
			continue
		}
		if charged != nil {
			if charged[s.ID] {
				continue
			}
			charged[s.ID] = true
		}
		rate, err := c.hourlyRate(ctx, s.WorkerID, rates)
		if err != nil {
			return p, err
		}
		hours := decimal.NewFromFloat(s.Hours())
		p.laborHours = p.laborHours.Add(hours)
		p.labor = p.labor.Add(hours.Mul(rate))
	}
	return p, nil
}

// fee is amount x commission% + flat fee, preferring the session's override for the platform.
func (c *Calculator) fee(session *models.Session, platform models.Platform, amount decimal.Decimal) decimal.Decimal {
	schedule, ok := session.Config.PlatformFees[platform]
	if !ok {
		schedule = c.cfg.PlatformFees[platform]
	}
	commission := amount.Mul(decimal.NewFromFloat(schedule.CommissionPct)).Div(hundred)
	return commission.Add(decimal.NewFromFloat(schedule.FlatFee))
}

func (c *Calculator) hourlyRate(ctx context.Context, workerID string, rates map[string]decimal.Decimal) (decimal.Decimal, error) {
	fallback := decimal.NewFromFloat(c.cfg.DefaultHourlyRate)
	if workerID == "" {
		return fallback, nil
	}
	if rate, ok := rates[workerID]; ok {
		return rate, nil
	}
	rate := fallback
	worker, err := c.workers.GetByID(ctx, workerID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.logger.Debug("unknown worker on ghost kitchen shift, using default rate", "worker_id", workerID)
	case err != nil:
		return decimal.Zero, fmt.Errorf("look up worker %s: %w", workerID, err)
	case worker.HourlyRate > 0:
		rate = decimal.NewFromFloat(worker.HourlyRate)
	}
	rates[workerID] = rate
	return rate, nil
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// percent is part/whole x 100 rounded to 2 places, 0 when whole is zero.
func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Mul(hundred).Div(whole).Round(2).InexactFloat64()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
