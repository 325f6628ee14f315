// Package staffing turns delivery forecasts into staffing gaps, shift suggestions and ghost kitchen shifts.
package staffing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/notify"
	"github.com/chrisdamba/ghostkitchen/internal/repositories"
)

// DemandForecaster is the slice of forecast.Forecaster the recommender needs.
type DemandForecaster interface {
	ForecastDemand(ctx context.Context, restaurantID string, date time.Time, hours []int) ([]models.HourlyForecast, error)
}

type Recommender struct {
	forecaster DemandForecaster
	shifts     repositories.ShiftRepository
	workers    repositories.WorkerRepository
	timeOff    repositories.TimeOffRepository
	notifier   notify.Notifier
	clock      clock.Clock
	logger     *slog.Logger
	cfg        models.StaffingConfig
}

func NewRecommender(
	forecaster DemandForecaster,
	repos *repositories.Repositories,
	notifier notify.Notifier,
	clk clock.Clock,
	logger *slog.Logger,
	cfg models.StaffingConfig,
) *Recommender {
	return &Recommender{
		forecaster: forecaster,
		shifts:     repos.Shifts,
		workers:    repos.Workers,
		timeOff:    repos.TimeOff,
		notifier:   notifier,
		clock:      clk,
		logger:     logger,
		cfg:        cfg,
	}
}

// DeliveryStaff is the pack staff needed for orders in one hour, bounded below by station throughput.
func (r *Recommender) DeliveryStaff(orders float64) int {
	perStaff := orders / r.cfg.OrdersPerStaffHour
	stations := math.Min(r.cfg.PackStations, orders/r.cfg.OrdersPerStationHour)
	return int(math.Ceil(math.Max(perStaff, stations)))
}

func (r *Recommender) OptimalDeliveryStaff(orders float64) int {
	return r.DeliveryStaff(orders * (1 + r.cfg.OptimalBuffer))
}

func (r *Recommender) Servers(covers float64) int {
	return int(math.Ceil(covers / r.cfg.CoversPerServerHour))
}

// Recommend compares the day's forecast with scheduled shifts.
func (r *Recommender) Recommend(ctx context.Context, restaurantID string, date time.Time) (*models.StaffingRecommendation, error) {
	forecasts, err := r.forecaster.ForecastDemand(ctx, restaurantID, date, nil)
	if err != nil {
		return nil, err
	}
	dayStart := startOfDay(date)
	shifts, err := r.shifts.ListByRestaurant(ctx, restaurantID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}

	hours := make([]models.HourlyStaffing, 0, len(forecasts))
	for _, fc := range forecasts {
		hours = append(hours, r.hourlyStaffing(fc, dayStart, shifts))
	}

	rec := &models.StaffingRecommendation{
		RestaurantID:    restaurantID,
		Date:            dayStart,
		Hours:           hours,
		SuggestedShifts: r.suggestShifts(dayStart, hours),
		Adjustments:     r.adjustments(dayStart, hours, shifts),
	}
	r.logger.Debug("staffing recommendation built",
		"restaurant_id", restaurantID,
		"date", dayStart.Format("2006-01-02"),
		"suggested", len(rec.SuggestedShifts),
		"adjustments", len(rec.Adjustments),
	)
	return rec, nil
}

func (r *Recommender) hourlyStaffing(fc models.HourlyForecast, dayStart time.Time, shifts []*models.Shift) models.HourlyStaffing {
	hourStart := dayStart.Add(time.Duration(fc.Hour) * time.Hour)
	var delivery, dineIn int
	for _, s := range covering(shifts, hourStart) {
		switch s.Position {
		case models.PositionDeliveryPack:
			delivery++
		case models.PositionServer:
			dineIn++
		}
	}

	h := models.HourlyStaffing{
		Hour:                 fc.Hour,
		PredictedDelivery:    fc.PredictedDelivery,
		PredictedDineIn:      fc.PredictedDineIn,
		DeliveryStaffMinimum: r.DeliveryStaff(float64(fc.PredictedDelivery)),
		DeliveryStaffOptimal: r.OptimalDeliveryStaff(float64(fc.PredictedDelivery)),
		DineInStaff:          r.Servers(float64(fc.PredictedDineIn)),
		ScheduledDelivery:    delivery,
		ScheduledDineIn:      dineIn,
		ScheduledTotal:       delivery + dineIn,
	}
	h.RecommendedTotal = h.DeliveryStaffMinimum + h.DineInStaff
	h.DeliveryGap = h.DeliveryStaffMinimum - delivery
	h.DineInGap = h.DineInStaff - dineIn
	h.Gap = h.RecommendedTotal - h.ScheduledTotal
	return h
}

// covering returns the non-cancelled delivery-pack and server shifts active at t.
func covering(shifts []*models.Shift, t time.Time) []*models.Shift {
	var out []*models.Shift
	for _, s := range shifts {
		if s.Status == models.ShiftStatusCancelled {
			continue
		}
		if s.Position != models.PositionDeliveryPack && s.Position != models.PositionServer {
			continue
		}
		if s.Covers(t) {
			out = append(out, s)
		}
	}
	return out
}

// suggestShifts merges runs of at least two consecutive positive-gap hours into one shift each.
func (r *Recommender) suggestShifts(dayStart time.Time, hours []models.HourlyStaffing) []models.SuggestedShift {
	var out []models.SuggestedShift
	runStart := -1
	flush := func(end int) {
		if runStart >= 0 && end-runStart >= 2 {
			out = append(out, r.suggestion(dayStart, hours[runStart:end]))
		}
		runStart = -1
	}
	for i, h := range hours {
		contiguous := i == 0 || hours[i-1].Hour == h.Hour-1
		if h.Gap > 0 {
			if runStart >= 0 && !contiguous {
				flush(i)
			}
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
	}
	flush(len(hours))
	return out
}

func (r *Recommender) suggestion(dayStart time.Time, run []models.HourlyStaffing) models.SuggestedShift {
	var gap, deliveryGap, dineInGap float64
	for _, h := range run {
		gap += float64(h.Gap)
		deliveryGap += float64(h.DeliveryGap)
		dineInGap += float64(h.DineInGap)
	}
	n := float64(len(run))
	avgGap := gap / n

	position, shiftType := models.PositionDeliveryPack, models.ShiftTypeGhostKitchen
	if dineInGap/n > deliveryGap/n {
		position, shiftType = models.PositionServer, models.ShiftTypeRegular
	}
	priority := models.PriorityMedium
	if avgGap >= 2 {
		priority = models.PriorityHigh
	}

	first, last := run[0].Hour, run[len(run)-1].Hour
	endHour := last + 1
	if r.cfg.TrimClosingHour {
		endHour = last
	}
	staff := int(math.Round(avgGap))
	if staff < 1 {
		staff = 1
	}
	return models.SuggestedShift{
		Position:   position,
		Type:       shiftType,
		Start:      dayStart.Add(time.Duration(first) * time.Hour),
		End:        dayStart.Add(time.Duration(endHour) * time.Hour),
		StaffCount: staff,
		Priority:   priority,
		Reason:     fmt.Sprintf("Short %d staff on average between %02d:00 and %02d:00", int(math.Round(avgGap)), first, endHour),
	}
}

// adjustments proposes one REDUCE per shift for hours overstaffed by more than one.
func (r *Recommender) adjustments(dayStart time.Time, hours []models.HourlyStaffing, shifts []*models.Shift) []models.ShiftAdjustment {
	var out []models.ShiftAdjustment
	adjusted := make(map[string]bool)
	for _, h := range hours {
		if h.Gap >= -1 {
			continue
		}
		hourStart := dayStart.Add(time.Duration(h.Hour) * time.Hour)
		candidates := covering(shifts, hourStart)
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].End.After(candidates[j].End)
		})
		for _, s := range candidates {
			if adjusted[s.ID] {
				continue
			}
			newEnd := hourStart.Add(time.Hour)
			if !newEnd.Before(s.End) {
				newEnd = hourStart
			}
			if !newEnd.After(s.Start) {
				continue
			}
			adjusted[s.ID] = true
			out = append(out, models.ShiftAdjustment{
				ShiftID:    s.ID,
				WorkerID:   s.WorkerID,
				Type:       models.AdjustmentReduce,
				CurrentEnd: s.End,
				NewEnd:     newEnd,
				Reason:     fmt.Sprintf("Overstaffed by %d at %02d:00", -h.Gap, h.Hour),
			})
			break
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
