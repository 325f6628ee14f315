package models

import "time"

// WeatherCondition is one hourly reading from a weather adapter.
type WeatherCondition struct {
	Time             time.Time `json:"time"`
	TemperatureC     float64   `json:"temperature_c"`
	PrecipitationPct float64   `json:"precipitation_pct"`
	CloudCoverPct    float64   `json:"cloud_cover_pct"`
	SnowfallMM       float64   `json:"snowfall_mm"`
}

type WeatherBucket string

const (
	WeatherExtreme   WeatherBucket = "extreme"
	WeatherHeavyRain WeatherBucket = "heavy_rain"
	WeatherRain      WeatherBucket = "rain"
	WeatherSnow      WeatherBucket = "snow"
	WeatherSunny     WeatherBucket = "sunny"
	WeatherCloudy    WeatherBucket = "cloudy"
)

type EventType string

const (
	EventTypeSports     EventType = "sports"
	EventTypeSuperBowl  EventType = "super_bowl"
	EventTypeConcert    EventType = "concert"
	EventTypeFestival   EventType = "festival"
	EventTypeConference EventType = "conference"
	EventTypeCommunity  EventType = "community"
	EventTypeHoliday    EventType = "holiday"
)

// LocalEvent is a normalized nearby event or computed holiday.
type LocalEvent struct {
	Name          string    `json:"name"`
	Type          EventType `json:"type"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Attendance    int       `json:"attendance"`
	DistanceMiles float64   `json:"distance_miles"`
}

type WeatherAdjustment struct {
	Bucket   WeatherBucket `json:"bucket"`
	DineIn   float64       `json:"dine_in"`
	Delivery float64       `json:"delivery"`
}

type EventAdjustment struct {
	DineIn   float64  `json:"dine_in"`
	Delivery float64  `json:"delivery"`
	Events   []string `json:"events,omitempty"`
}

type HourlyForecast struct {
	Hour              int               `json:"hour"`
	PredictedDineIn   int               `json:"predicted_dine_in"`
	PredictedDelivery int               `json:"predicted_delivery"`
	Confidence        float64           `json:"confidence"`
	Weather           WeatherAdjustment `json:"weather"`
	Event             EventAdjustment   `json:"event"`
}

// HourlyPattern is the historical average for one weekday/hour slot. SampleCount 0 means no data.
type HourlyPattern struct {
	AvgDelivery    float64 `json:"avg_delivery"`
	AvgDineIn      float64 `json:"avg_dine_in"`
	StdDevDelivery float64 `json:"std_dev_delivery"`
	StdDevDineIn   float64 `json:"std_dev_dine_in"`
	SampleCount    int     `json:"sample_count"`
}

type DayPattern struct {
	Hours [24]HourlyPattern `json:"hours"`
}

// HistoricalPattern holds a restaurant's patterns indexed by time.Weekday.
type HistoricalPattern struct {
	RestaurantID string        `json:"restaurant_id"`
	ComputedAt   time.Time     `json:"computed_at"`
	Days         [7]DayPattern `json:"days"`
}

func (p *HistoricalPattern) Slot(day time.Weekday, hour int) (HourlyPattern, bool) {
	if p == nil || hour < 0 || hour > 23 {
		return HourlyPattern{}, false
	}
	slot := p.Days[day].Hours[hour]
	return slot, slot.SampleCount > 0
}

// ForecastRecord is a stored prediction, later completed with the observed actuals.
type ForecastRecord struct {
	ID                string    `json:"id"`
	RestaurantID      string    `json:"restaurant_id"`
	Date              time.Time `json:"date"`
	Hour              int       `json:"hour"`
	PredictedDineIn   int       `json:"predicted_dine_in"`
	PredictedDelivery int       `json:"predicted_delivery"`
	Confidence        float64   `json:"confidence"`
	ActualDineIn      *int      `json:"actual_dine_in,omitempty"`
	ActualDelivery    *int      `json:"actual_delivery,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type ForecastAccuracy struct {
	RestaurantID string  `json:"restaurant_id"`
	WindowDays   int     `json:"window_days"`
	SampleSize   int     `json:"sample_size"`
	DineInMAPE   float64 `json:"dine_in_mape"`
	DeliveryMAPE float64 `json:"delivery_mape"`
	DineInBias   float64 `json:"dine_in_bias"`
	DeliveryBias float64 `json:"delivery_bias"`
}
