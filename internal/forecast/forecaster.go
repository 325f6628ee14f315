// Package forecast predicts hourly dine-in and delivery demand for a restaurant.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/lucsky/cuid"
	"golang.org/x/sync/errgroup"

	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/repositories"
	"github.com/chrisdamba/ghostkitchen/internal/signals"
)

const noDataConfidence = 0.3

type Forecaster struct {
	patterns    PatternSource
	restaurants repositories.RestaurantRepository
	records     repositories.ForecastRepository
	weather     signals.WeatherAdapter
	events      signals.EventSource
	clock       clock.Clock
	logger      *slog.Logger
	parallelism int
}

func NewForecaster(
	patterns PatternSource,
	restaurants repositories.RestaurantRepository,
	records repositories.ForecastRepository,
	weather signals.WeatherAdapter,
	events signals.EventSource,
	clk clock.Clock,
	logger *slog.Logger,
	parallelism int,
) *Forecaster {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Forecaster{
		patterns:    patterns,
		restaurants: restaurants,
		records:     records,
		weather:     weather,
		events:      events,
		clock:       clk,
		logger:      logger,
		parallelism: parallelism,
	}
}

// NormalizeHours sorts and de-duplicates hours, defaulting to the whole day.
func NormalizeHours(hours []int) ([]int, error) {
	if len(hours) == 0 {
		all := make([]int, 24)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	seen := make(map[int]bool, len(hours))
	out := make([]int, 0, len(hours))
	for _, h := range hours {
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("%w: hour %d outside 0..23", models.ErrInvalidArgument, h)
		}
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	sort.Ints(out)
	return out, nil
}

// ForecastDemand predicts each requested hour of date, in ascending hour order.
func (f *Forecaster) ForecastDemand(ctx context.Context, restaurantID string, date time.Time, hours []int) ([]models.HourlyForecast, error) {
	hours, err := NormalizeHours(hours)
	if err != nil {
		return nil, err
	}
	restaurant, err := f.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	pattern, err := f.patterns.Pattern(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("historical pattern for %s: %w", restaurantID, err)
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	conditions := f.weatherFor(ctx, restaurant, dayStart)
	events := append(f.eventsFor(ctx, restaurantID, dayStart), signals.HolidaysAround(dayStart)...)

	forecasts := make([]models.HourlyForecast, 0, len(hours))
	for _, h := range hours {
		hourStart := dayStart.Add(time.Duration(h) * time.Hour)
		slot, ok := pattern.Slot(dayStart.Weekday(), h)

		weather := signals.WeatherAdjustment(signals.ConditionAt(conditions, hourStart))
		event := signals.EventAdjustment(events, hourStart)

		fc := models.HourlyForecast{
			Hour:       h,
			Confidence: noDataConfidence,
			Weather:    weather,
			Event:      event,
		}
		if ok {
			fc.PredictedDelivery = adjusted(slot.AvgDelivery, weather.Delivery+event.Delivery)
			fc.PredictedDineIn = adjusted(slot.AvgDineIn, weather.DineIn+event.DineIn)
			fc.Confidence = Confidence(slot)
		}
		forecasts = append(forecasts, fc)
	}
	return forecasts, nil
}

func adjusted(baseline, adj float64) int {
	return int(math.Max(0, math.Round(baseline*(1+adj))))
}

// Confidence blends sample size with the slot's variability.
func Confidence(slot models.HourlyPattern) float64 {
	if slot.SampleCount == 0 {
		return noDataConfidence
	}
	avgStdDev := (slot.StdDevDelivery + slot.StdDevDineIn) / 2
	c := 0.6*math.Min(1, float64(slot.SampleCount)/10) + 0.4*math.Max(0, 1-avgStdDev/50)
	return math.Round(c*100) / 100
}

func (f *Forecaster) weatherFor(ctx context.Context, restaurant *models.Restaurant, dayStart time.Time) []models.WeatherCondition {
	if f.weather == nil {
		return nil
	}
	now := f.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, dayStart.Location())
	days := int(dayStart.Sub(today).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	conditions, err := f.weather.GetForecast(ctx, restaurant.Location.Lat, restaurant.Location.Lon, days)
	if err != nil {
		f.logger.Warn("weather unavailable, assuming cloudy", "restaurant_id", restaurant.ID, "err", err)
		return nil
	}
	return conditions
}

func (f *Forecaster) eventsFor(ctx context.Context, restaurantID string, dayStart time.Time) []models.LocalEvent {
	if f.events == nil {
		return nil
	}
	events, err := f.events.EventsOn(ctx, restaurantID, dayStart)
	if err != nil {
		f.logger.Warn("local events unavailable", "restaurant_id", restaurantID, "err", err)
		return nil
	}
	return events
}

// ForecastMany forecasts the whole day for several restaurants in parallel.
func (f *Forecaster) ForecastMany(ctx context.Context, restaurantIDs []string, date time.Time) (map[string][]models.HourlyForecast, error) {
	var mu sync.Mutex
	out := make(map[string][]models.HourlyForecast, len(restaurantIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)
	for _, id := range restaurantIDs {
		id := id
		g.Go(func() error {
			fc, err := f.ForecastDemand(gctx, id, date, nil)
			if err != nil {
				return fmt.Errorf("forecast %s: %w", id, err)
			}
			mu.Lock()
			out[id] = fc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// StoreForecast records predictions so they can later be scored against actuals.
func (f *Forecaster) StoreForecast(ctx context.Context, restaurantID string, date time.Time, forecasts []models.HourlyForecast) error {
	now := f.clock.Now()
	for _, fc := range forecasts {
		rec := &models.ForecastRecord{
			ID:                cuid.New(),
			RestaurantID:      restaurantID,
			Date:              repositories.DayKey(date),
			Hour:              fc.Hour,
			PredictedDineIn:   fc.PredictedDineIn,
			PredictedDelivery: fc.PredictedDelivery,
			Confidence:        fc.Confidence,
			CreatedAt:         now,
		}
		if err := f.records.Save(ctx, rec); err != nil {
			return fmt.Errorf("save forecast %s hour %d: %w", restaurantID, fc.Hour, err)
		}
	}
	return nil
}

func (f *Forecaster) RecordActual(ctx context.Context, restaurantID string, date time.Time, hour, dineIn, delivery int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour %d outside 0..23", models.ErrInvalidArgument, hour)
	}
	return f.records.RecordActual(ctx, restaurantID, date, hour, dineIn, delivery)
}
