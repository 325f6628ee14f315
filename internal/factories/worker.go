package factories

import (
	"math"
	"time"

	"github.com/lucsky/cuid"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

// CreateWorkers staffs a restaurant; at least half of the crew can work delivery packing.
func (f *Factory) CreateWorkers(restaurantID string, n int) []*models.WorkerProfile {
	workers := make([]*models.WorkerProfile, n)
	packers := (n + 1) / 2
	for i := range workers {
		var positions []models.Position
		if i < packers {
			positions = append(positions, models.PositionDeliveryPack)
			if f.rng.Float64() < 0.3 {
				positions = append(positions, models.PositionServer)
			}
		} else if f.rng.Float64() < 0.6 {
			positions = append(positions, models.PositionServer)
		} else {
			positions = append(positions, models.PositionLineCook)
		}

		workers[i] = &models.WorkerProfile{
			ID:               cuid.New(),
			RestaurantID:     restaurantID,
			Name:             f.fake.Person().Name(),
			Positions:        positions,
			HourlyRate:       f.fake.Float64(2, 14, 24),
			ReliabilityScore: math.Round((0.6+f.rng.Float64()*0.4)*100) / 100,
			Availability:     f.availability(),
		}
	}
	return workers
}

func (f *Factory) availability() []models.AvailabilityWindow {
	var windows []models.AvailabilityWindow
	for day := time.Sunday; day <= time.Saturday; day++ {
		if f.rng.Float64() < 0.4 {
			continue
		}
		start := f.fake.IntBetween(9, 16)
		windows = append(windows, models.AvailabilityWindow{
			Weekday:   day,
			StartHour: start,
			EndHour:   start + f.fake.IntBetween(4, 7),
		})
	}
	return windows
}
