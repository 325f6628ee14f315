package factories

import (
	"time"

	"github.com/lucsky/cuid"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

// CreateOrder builds a received order for one of the session's platforms.
func (f *Factory) CreateOrder(session *models.Session, receivedAt time.Time) *models.Order {
	platform := models.PlatformDirect
	if n := len(session.Config.Platforms); n > 0 {
		platform = session.Config.Platforms[f.rng.Intn(n)]
	}
	return &models.Order{
		ID:           cuid.New(),
		SessionID:    session.ID,
		RestaurantID: session.RestaurantID,
		Platform:     platform,
		Status:       models.OrderStatusReceived,
		TotalAmount:  f.fake.Float64(2, 12, 65),
		ReceivedAt:   receivedAt,
	}
}

// PrepDuration draws a prep time between min and max minutes, never below the session's minimum.
func (f *Factory) PrepDuration(session *models.Session, minMinutes, maxMinutes int) time.Duration {
	if session.Config.MinPrepTime > minMinutes {
		minMinutes = session.Config.MinPrepTime
	}
	if maxMinutes < minMinutes {
		maxMinutes = minMinutes
	}
	return time.Duration(f.fake.IntBetween(minMinutes, maxMinutes)) * time.Minute
}
