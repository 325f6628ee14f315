package models

import "time"

type Order struct {
	ID            string      `json:"id"`
	SessionID     string      `json:"session_id"`
	RestaurantID  string      `json:"restaurant_id"`
	Platform      Platform    `json:"platform"`
	Status        OrderStatus `json:"status"`
	TotalAmount   float64     `json:"total_amount"`
	ReceivedAt    time.Time   `json:"received_at"`
	PrepStartedAt *time.Time  `json:"prep_started_at,omitempty"`
	ReadyAt       *time.Time  `json:"ready_at,omitempty"`
	PickedUpAt    *time.Time  `json:"picked_up_at,omitempty"`
}

// PrepSeconds is the time from prep start to ready, or 0 when either stamp is missing.
func (o *Order) PrepSeconds() int {
	if o.PrepStartedAt == nil || o.ReadyAt == nil || o.ReadyAt.Before(*o.PrepStartedAt) {
		return 0
	}
	return int(o.ReadyAt.Sub(*o.PrepStartedAt).Seconds())
}
