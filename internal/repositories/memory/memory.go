// Package memory holds map-backed repositories used by tests and the simulate command.
package memory

import (
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/repositories"
)

// NewRepositories returns an empty in-memory store for every repository.
func NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Restaurants: NewRestaurantRepository(),
		Sessions:    NewSessionRepository(),
		Orders:      NewOrderRepository(),
		Shifts:      NewShiftRepository(),
		Workers:     NewWorkerRepository(),
		TimeOff:     NewTimeOffRepository(),
		Forecasts:   NewForecastRepository(),
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
