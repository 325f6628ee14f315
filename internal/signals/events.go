package signals

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

// EventSource lists local events near a restaurant on a calendar day.
type EventSource interface {
	EventsOn(ctx context.Context, restaurantID string, date time.Time) ([]models.LocalEvent, error)
}

type eventImpact struct {
	dineIn, delivery float64
}

var eventImpacts = map[models.EventType]eventImpact{
	models.EventTypeSports:     {0.15, 0.25},
	models.EventTypeConcert:    {-0.10, 0.15},
	models.EventTypeFestival:   {0.20, -0.05},
	models.EventTypeConference: {0.10, 0.05},
	models.EventTypeCommunity:  {0.05, 0},
	models.EventTypeHoliday:    {-0.20, 0.30},
	models.EventTypeSuperBowl:  {-0.30, 0.60},
}

const (
	leadTime  = 2 * time.Hour
	trailTime = time.Hour

	maxDineInAdj   = 0.5
	minDineInAdj   = -0.5
	maxDeliveryAdj = 0.8
	minDeliveryAdj = -0.3
)

// InWindow reports whether hourStart lies within [start-2h, end+1h].
func InWindow(e models.LocalEvent, hourStart time.Time) bool {
	return !hourStart.Before(e.Start.Add(-leadTime)) && !hourStart.After(e.End.Add(trailTime))
}

// Impact is the event's (dine-in, delivery) contribution at hourStart.
func Impact(e models.LocalEvent, hourStart time.Time) (float64, float64) {
	if !InWindow(e, hourStart) {
		return 0, 0
	}
	impact, ok := eventImpacts[e.Type]
	if !ok {
		return 0, 0
	}
	scale := float64(e.Attendance) / 1000 * math.Max(0, 1-e.DistanceMiles/10)
	return scale * impact.dineIn, scale * impact.delivery
}

// EventAdjustment sums and clamps the impact of every event active at hourStart.
func EventAdjustment(events []models.LocalEvent, hourStart time.Time) models.EventAdjustment {
	var adj models.EventAdjustment
	for _, e := range events {
		if !InWindow(e, hourStart) {
			continue
		}
		dineIn, delivery := Impact(e, hourStart)
		if dineIn == 0 && delivery == 0 {
			continue
		}
		adj.DineIn += dineIn
		adj.Delivery += delivery
		adj.Events = append(adj.Events, e.Name)
	}
	adj.DineIn = clamp(adj.DineIn, minDineInAdj, maxDineInAdj)
	adj.Delivery = clamp(adj.Delivery, minDeliveryAdj, maxDeliveryAdj)
	return adj
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// StaticEvents serves events registered per restaurant.
type StaticEvents struct {
	mu     sync.RWMutex
	events map[string][]models.LocalEvent
}

func NewStaticEvents() *StaticEvents {
	return &StaticEvents{events: make(map[string][]models.LocalEvent)}
}

func (s *StaticEvents) Add(restaurantID string, events ...models.LocalEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[restaurantID] = append(s.events[restaurantID], events...)
}

// EventsOn returns events whose impact window touches the given day.
func (s *StaticEvents) EventsOn(_ context.Context, restaurantID string, date time.Time) ([]models.LocalEvent, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LocalEvent
	for _, e := range s.events[restaurantID] {
		if e.Start.Add(-leadTime).Before(dayEnd) && !e.End.Add(trailTime).Before(dayStart) {
			out = append(out, e)
		}
	}
	return out, nil
}
