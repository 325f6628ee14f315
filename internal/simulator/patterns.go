package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

const fridayEveningFactor = 1.8

// weekdayPeakHours are the lunch and dinner rushes.
var weekdayPeakHours = map[int]bool{
	12: true, 13: true,
	19: true, 20: true,
}

func isPeakHour(hour int) bool {
	return weekdayPeakHours[hour]
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// demandMultiplier scales the base hourly order rate for the hour starting at t.
func demandMultiplier(t time.Time, cfg models.SimulationConfig) float64 {
	multiplier := 1.0
	if isWeekend(t) {
		multiplier *= cfg.WeekendFactor
	}
	if t.Weekday() == time.Friday && t.Hour() >= 18 {
		multiplier *= fridayEveningFactor
	}
	if isPeakHour(t.Hour()) {
		multiplier *= cfg.PeakHourFactor
	}
	return multiplier
}

// poisson draws an arrival count with mean lambda (Knuth).
func poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k, p := 0, 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}
