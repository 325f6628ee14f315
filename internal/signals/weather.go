// Package signals classifies external demand signals: weather, local events and US holidays.
package signals

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/models"
)

// WeatherAdapter returns hourly conditions for the next days around a location.
type WeatherAdapter interface {
	GetForecast(ctx context.Context, lat, lng float64, days int) ([]models.WeatherCondition, error)
}

var weatherAdjustments = map[models.WeatherBucket]models.WeatherAdjustment{
	models.WeatherExtreme:   {Bucket: models.WeatherExtreme, DineIn: -0.40, Delivery: 0.40},
	models.WeatherHeavyRain: {Bucket: models.WeatherHeavyRain, DineIn: -0.30, Delivery: 0.50},
	models.WeatherRain:      {Bucket: models.WeatherRain, DineIn: -0.20, Delivery: 0.30},
	models.WeatherSnow:      {Bucket: models.WeatherSnow, DineIn: -0.25, Delivery: 0.35},
	models.WeatherSunny:     {Bucket: models.WeatherSunny, DineIn: 0.10, Delivery: -0.10},
	models.WeatherCloudy:    {Bucket: models.WeatherCloudy},
}

// ClassifyWeather picks the first matching bucket in priority order.
func ClassifyWeather(c models.WeatherCondition) models.WeatherBucket {
	switch {
	case c.TemperatureC < 0 || c.TemperatureC > 40:
		return models.WeatherExtreme
	case c.PrecipitationPct > 50:
		return models.WeatherHeavyRain
	case c.PrecipitationPct > 20:
		return models.WeatherRain
	case c.SnowfallMM > 0:
		return models.WeatherSnow
	case c.CloudCoverPct < 30:
		return models.WeatherSunny
	default:
		return models.WeatherCloudy
	}
}

func AdjustmentFor(bucket models.WeatherBucket) models.WeatherAdjustment {
	if adj, ok := weatherAdjustments[bucket]; ok {
		return adj
	}
	return weatherAdjustments[models.WeatherCloudy]
}

// WeatherAdjustment classifies c, treating a nil reading as cloudy.
func WeatherAdjustment(c *models.WeatherCondition) models.WeatherAdjustment {
	if c == nil {
		return AdjustmentFor(models.WeatherCloudy)
	}
	return AdjustmentFor(ClassifyWeather(*c))
}

// ConditionAt finds the reading whose hour matches hourStart.
func ConditionAt(conditions []models.WeatherCondition, hourStart time.Time) *models.WeatherCondition {
	target := hourStart.Truncate(time.Hour)
	for i := range conditions {
		if conditions[i].Time.Truncate(time.Hour).Equal(target) {
			return &conditions[i]
		}
	}
	return nil
}

// StaticWeather serves a fixed list of readings regardless of location.
type StaticWeather struct {
	Conditions []models.WeatherCondition
}

func (s StaticWeather) GetForecast(_ context.Context, _, _ float64, _ int) ([]models.WeatherCondition, error) {
	return s.Conditions, nil
}

// SeasonalWeather generates plausible hourly readings from a seed for simulations.
// Readings start on Clock's current day when Clock is set, otherwise on Start.
type SeasonalWeather struct {
	Seed  int64
	Start time.Time
	Clock clock.Clock
}

func (s SeasonalWeather) GetForecast(_ context.Context, lat, _ float64, days int) ([]models.WeatherCondition, error) {
	if days <= 0 {
		days = 1
	}
	from := s.Start
	if s.Clock != nil {
		from = s.Clock.Now()
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	rng := rand.New(rand.NewSource(s.Seed + start.Unix()))
	out := make([]models.WeatherCondition, 0, days*24)
	for h := 0; h < days*24; h++ {
		t := start.Add(time.Duration(h) * time.Hour)
		season := math.Cos(2 * math.Pi * float64(t.YearDay()-200) / 365)
		daily := math.Sin(2 * math.Pi * float64(t.Hour()-9) / 24)
		temp := 12 + 12*season*sign(lat) + 5*daily + rng.NormFloat64()*2
		precip := math.Max(0, rng.NormFloat64()*20+10)
		snow := 0.0
		if temp < 1 && precip > 30 {
			snow = precip / 10
		}
		out = append(out, models.WeatherCondition{
			Time:             t,
			TemperatureC:     math.Round(temp*10) / 10,
			PrecipitationPct: math.Min(100, math.Round(precip)),
			CloudCoverPct:    math.Min(100, math.Max(0, precip*1.5+rng.Float64()*40)),
			SnowfallMM:       snow,
		})
	}
	return out, nil
}

func sign(lat float64) float64 {
	if lat < 0 {
		return -1
	}
	return 1
}
