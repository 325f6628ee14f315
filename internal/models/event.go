package models

import (
	"fmt"
	"time"
)

// Event is a lifecycle, capacity or stats notification scoped to a restaurant channel.
type Event struct {
	Name         string    `json:"name"`
	RestaurantID string    `json:"restaurant_id"`
	SessionID    string    `json:"session_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Data         any       `json:"data,omitempty"`
}

type CapacityUpdate struct {
	SessionID     string  `json:"session_id"`
	CurrentOrders int     `json:"current_orders"`
	MaxOrders     int     `json:"max_orders"`
	Utilization   float64 `json:"utilization"`
	AutoDisabled  bool    `json:"auto_disabled"`
}

// RestaurantChannel names the publish channel for a restaurant.
func RestaurantChannel(restaurantID string) string {
	return fmt.Sprintf("restaurant:%s", restaurantID)
}
