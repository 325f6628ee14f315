package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

const defaultAccuracyDays = 30

// Accuracy scores stored forecasts against recorded actuals over the trailing days.
// Records whose actual is zero are left out of that channel's percentages.
func (f *Forecaster) Accuracy(ctx context.Context, restaurantID string, days int) (*models.ForecastAccuracy, error) {
	if days <= 0 {
		days = defaultAccuracyDays
	}
	since := f.clock.Now().AddDate(0, 0, -days)
	records, err := f.records.ListSince(ctx, restaurantID, since)
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}

	var dineIn, delivery errorStats
	sample := 0
	for _, rec := range records {
		if rec.ActualDineIn == nil && rec.ActualDelivery == nil {
			continue
		}
		sample++
		if rec.ActualDineIn != nil {
			dineIn.add(rec.PredictedDineIn, *rec.ActualDineIn)
		}
		if rec.ActualDelivery != nil {
			delivery.add(rec.PredictedDelivery, *rec.ActualDelivery)
		}
	}

	return &models.ForecastAccuracy{
		RestaurantID: restaurantID,
		WindowDays:   days,
		SampleSize:   sample,
		DineInMAPE:   dineIn.mape(),
		DeliveryMAPE: delivery.mape(),
		DineInBias:   dineIn.bias(),
		DeliveryBias: delivery.bias(),
	}, nil
}

type errorStats struct {
	n         int
	absPct    float64
	signedPct float64
}

func (s *errorStats) add(predicted, actual int) {
	if actual == 0 {
		return
	}
	pct := float64(predicted-actual) / float64(actual)
	s.n++
	s.absPct += math.Abs(pct)
	s.signedPct += pct
}

func (s errorStats) mape() float64 {
	if s.n == 0 {
		return 0
	}
	return round2(s.absPct / float64(s.n) * 100)
}

func (s errorStats) bias() float64 {
	if s.n == 0 {
		return 0
	}
	return round2(s.signedPct / float64(s.n) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
