package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/repositories"
)

type forecastKey struct {
	restaurantID string
	day          time.Time
	hour         int
}

type ForecastRepository struct {
	mu      sync.RWMutex
	records map[forecastKey]*models.ForecastRecord
}

func NewForecastRepository() *ForecastRepository {
	return &ForecastRepository{records: make(map[forecastKey]*models.ForecastRecord)}
}

func (r *ForecastRepository) Save(_ context.Context, record *models.ForecastRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := cloneRecord(record)
	c.Date = repositories.DayKey(record.Date)
	r.records[forecastKey{record.RestaurantID, c.Date, record.Hour}] = c
	return nil
}

func (r *ForecastRepository) RecordActual(_ context.Context, restaurantID string, date time.Time, hour, dineIn, delivery int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[forecastKey{restaurantID, repositories.DayKey(date), hour}]
	if !ok {
		return fmt.Errorf("forecast for %s %s hour %d: %w", restaurantID, date.Format("2006-01-02"), hour, models.ErrNotFound)
	}
	rec.ActualDineIn = &dineIn
	rec.ActualDelivery = &delivery
	return nil
}

func (r *ForecastRepository) ListSince(_ context.Context, restaurantID string, since time.Time) ([]*models.ForecastRecord, error) {
	since = repositories.DayKey(since)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.ForecastRecord
	for k, rec := range r.records {
		if k.restaurantID == restaurantID && !k.day.Before(since) {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].Hour < out[j].Hour
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func cloneRecord(rec *models.ForecastRecord) *models.ForecastRecord {
	c := *rec
	if rec.ActualDineIn != nil {
		v := *rec.ActualDineIn
		c.ActualDineIn = &v
	}
	if rec.ActualDelivery != nil {
		v := *rec.ActualDelivery
		c.ActualDelivery = &v
	}
	return &c
}
