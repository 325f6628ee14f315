package staffing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lucsky/cuid"

	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/notify"
)

// FindAvailableDeliveryWorkers ranks delivery-pack workers for [start, end): available first,
// then by reliability, highest first.
func (r *Recommender) FindAvailableDeliveryWorkers(ctx context.Context, restaurantID string, start, end time.Time) ([]models.WorkerAvailability, error) {
	workers, err := r.workers.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}

	var out []models.WorkerAvailability
	for _, w := range workers {
		if !w.HasPosition(models.PositionDeliveryPack) {
			continue
		}
		availability, err := r.availability(ctx, w, start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, availability)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsAvailable != out[j].IsAvailable {
			return out[i].IsAvailable
		}
		return out[i].Worker.ReliabilityScore > out[j].Worker.ReliabilityScore
	})
	return out, nil
}

func (r *Recommender) availability(ctx context.Context, w *models.WorkerProfile, start, end time.Time) (models.WorkerAvailability, error) {
	timeOff, err := r.timeOff.ListByWorker(ctx, w.ID, start, end)
	if err != nil {
		return models.WorkerAvailability{}, fmt.Errorf("list time off for %s: %w", w.ID, err)
	}
	for _, t := range timeOff {
		if t.Status == models.TimeOffStatusApproved {
			return models.WorkerAvailability{Worker: w, Note: "approved time off"}, nil
		}
	}

	shifts, err := r.shifts.ListByWorker(ctx, w.ID, start, end)
	if err != nil {
		return models.WorkerAvailability{}, fmt.Errorf("list shifts for %s: %w", w.ID, err)
	}
	for _, s := range shifts {
		if s.Status != models.ShiftStatusCancelled && s.Overlaps(start, end) {
			return models.WorkerAvailability{Worker: w, Note: fmt.Sprintf("already scheduled on shift %s", s.ID)}, nil
		}
	}

	a := models.WorkerAvailability{Worker: w, IsAvailable: true, WithinPreference: w.PrefersWindow(start, end)}
	if !a.WithinPreference {
		a.Note = "outside availability preference"
	}
	return a, nil
}

// AutoCreateGhostShifts creates the opportunity's delivery-pack shifts and, with autoAssign,
// gives each to the best-ranked worker still free.
func (r *Recommender) AutoCreateGhostShifts(ctx context.Context, opp models.Opportunity, autoAssign bool, actor string) ([]*models.Shift, error) {
	if opp.RecommendedStaff <= 0 {
		return nil, fmt.Errorf("%w: recommended staff must be positive", models.ErrInvalidArgument)
	}
	if opp.StartHour < 0 || opp.EndHour > 24 || opp.EndHour <= opp.StartHour {
		return nil, fmt.Errorf("%w: invalid opportunity hours %d-%d", models.ErrInvalidArgument, opp.StartHour, opp.EndHour)
	}
	start, end := opp.Window()
	now := r.clock.Now()

	shifts := make([]*models.Shift, 0, opp.RecommendedStaff)
	for i := 0; i < opp.RecommendedStaff; i++ {
		shift := &models.Shift{
			ID:           cuid.New(),
			RestaurantID: opp.RestaurantID,
			Position:     models.PositionDeliveryPack,
			Type:         models.ShiftTypeGhostKitchen,
			Status:       models.ShiftStatusScheduled,
			Start:        start,
			End:          end,
			Notes:        fmt.Sprintf("Ghost kitchen opportunity: %d predicted orders", opp.PredictedOrders),
		}
		shift.StatusHistory = []models.ShiftStatusChange{{
			To:        models.ShiftStatusScheduled,
			ChangedBy: actor,
			Note:      "created for ghost kitchen opportunity",
			At:        now,
		}}
		if err := r.shifts.Create(ctx, shift); err != nil {
			return shifts, fmt.Errorf("create shift: %w", err)
		}
		if autoAssign {
			if err := r.assignBest(ctx, shift, actor, now); err != nil {
				return shifts, err
			}
		}
		shifts = append(shifts, shift)
	}

	r.logger.Info("ghost kitchen shifts created",
		"restaurant_id", opp.RestaurantID,
		"count", len(shifts),
		"auto_assign", autoAssign,
	)
	return shifts, nil
}

func (r *Recommender) assignBest(ctx context.Context, shift *models.Shift, actor string, now time.Time) error {
	ranked, err := r.FindAvailableDeliveryWorkers(ctx, shift.RestaurantID, shift.Start, shift.End)
	if err != nil {
		return err
	}
	var chosen *models.WorkerProfile
	for _, a := range ranked {
		if a.IsAvailable {
			chosen = a.Worker
			break
		}
	}
	if chosen == nil {
		r.logger.Warn("no available worker for ghost kitchen shift", "restaurant_id", shift.RestaurantID, "shift_id", shift.ID)
		return nil
	}

	shift.WorkerID = chosen.ID
	shift.Status = models.ShiftStatusAssigned
	shift.StatusHistory = append(shift.StatusHistory, models.ShiftStatusChange{
		From:      models.ShiftStatusScheduled,
		To:        models.ShiftStatusAssigned,
		ChangedBy: actor,
		Note:      "auto-assigned to " + chosen.Name,
		At:        now,
	})
	if err := r.shifts.Update(ctx, shift); err != nil {
		return fmt.Errorf("assign shift %s: %w", shift.ID, err)
	}

	payload := map[string]any{
		"shift_id": shift.ID,
		"start":    shift.Start,
		"end":      shift.End,
	}
	if err := r.notifier.Send(ctx, chosen.ID, notify.TemplateShiftAssigned, payload); err != nil {
		r.logger.Warn("shift assignment notification failed", "worker_id", chosen.ID, "shift_id", shift.ID, "err", err)
	}
	return nil
}

// FindOpportunities returns windows of two or more consecutive hours whose predicted delivery
// orders reach the configured minimum.
func (r *Recommender) FindOpportunities(ctx context.Context, restaurantID string, date time.Time) ([]models.Opportunity, error) {
	forecasts, err := r.forecaster.ForecastDemand(ctx, restaurantID, date, nil)
	if err != nil {
		return nil, err
	}
	minOrders := r.cfg.OpportunityMinOrders
	if minOrders <= 0 {
		minOrders = 1
	}

	var out []models.Opportunity
	var run []models.HourlyForecast
	flush := func() {
		if len(run) >= 2 {
			out = append(out, r.opportunity(restaurantID, date, run))
		}
		run = nil
	}
	for _, fc := range forecasts {
		if fc.PredictedDelivery < minOrders {
			flush()
			continue
		}
		if len(run) > 0 && run[len(run)-1].Hour != fc.Hour-1 {
			flush()
		}
		run = append(run, fc)
	}
	flush()
	return out, nil
}

func (r *Recommender) opportunity(restaurantID string, date time.Time, run []models.HourlyForecast) models.Opportunity {
	opp := models.Opportunity{
		RestaurantID: restaurantID,
		Date:         startOfDay(date),
		StartHour:    run[0].Hour,
		EndHour:      run[len(run)-1].Hour + 1,
	}
	var confidence float64
	for _, fc := range run {
		opp.PredictedOrders += fc.PredictedDelivery
		if staff := r.DeliveryStaff(float64(fc.PredictedDelivery)); staff > opp.RecommendedStaff {
			opp.RecommendedStaff = staff
		}
		confidence += fc.Confidence
	}
	opp.Confidence = math.Round(confidence/float64(len(run))*100) / 100
	return opp
}
