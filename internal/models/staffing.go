package models

import "time"

type HourlyStaffing struct {
	Hour                 int `json:"hour"`
	PredictedDelivery    int `json:"predicted_delivery"`
	PredictedDineIn      int `json:"predicted_dine_in"`
	DeliveryStaffMinimum int `json:"delivery_staff_minimum"`
	DeliveryStaffOptimal int `json:"delivery_staff_optimal"`
	DineInStaff          int `json:"dine_in_staff"`
	RecommendedTotal     int `json:"recommended_total"`
	ScheduledDelivery    int `json:"scheduled_delivery"`
	ScheduledDineIn      int `json:"scheduled_dine_in"`
	ScheduledTotal       int `json:"scheduled_total"`
	DeliveryGap          int `json:"delivery_gap"`
	DineInGap            int `json:"dine_in_gap"`
	Gap                  int `json:"gap"`
}

type SuggestedShift struct {
	Position   Position  `json:"position"`
	Type       ShiftType `json:"type"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	StaffCount int       `json:"staff_count"`
	Priority   Priority  `json:"priority"`
	Reason     string    `json:"reason"`
}

type ShiftAdjustment struct {
	ShiftID    string         `json:"shift_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Type       AdjustmentType `json:"type"`
	CurrentEnd time.Time      `json:"current_end"`
	NewEnd     time.Time      `json:"new_end"`
	Reason     string         `json:"reason"`
}

type StaffingRecommendation struct {
	RestaurantID    string            `json:"restaurant_id"`
	Date            time.Time         `json:"date"`
	Hours           []HourlyStaffing  `json:"hours"`
	SuggestedShifts []SuggestedShift  `json:"suggested_shifts"`
	Adjustments     []ShiftAdjustment `json:"adjustments"`
}

// Opportunity is a forecasted high-demand window offered to a manager for accept/decline.
type Opportunity struct {
	RestaurantID     string    `json:"restaurant_id"`
	Date             time.Time `json:"date"`
	StartHour        int       `json:"start_hour"`
	EndHour          int       `json:"end_hour"` // exclusive
	PredictedOrders  int       `json:"predicted_orders"`
	RecommendedStaff int       `json:"recommended_staff"`
	Confidence       float64   `json:"confidence"`
}

func (o Opportunity) Window() (time.Time, time.Time) {
	day := time.Date(o.Date.Year(), o.Date.Month(), o.Date.Day(), 0, 0, 0, 0, o.Date.Location())
	return day.Add(time.Duration(o.StartHour) * time.Hour), day.Add(time.Duration(o.EndHour) * time.Hour)
}

type WorkerAvailability struct {
	Worker           *WorkerProfile `json:"worker"`
	IsAvailable      bool           `json:"is_available"`
	WithinPreference bool           `json:"within_preference"`
	Note             string         `json:"note,omitempty"`
}
