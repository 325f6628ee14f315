package factories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

var center = models.Location{Lat: 51.5074, Lon: -0.1278}

func simConfig() models.SimulationConfig {
	return models.SimulationConfig{MaxOrders: 12, MinPrepTime: 8, MaxPrepTime: 25, AutoDisablePct: 90}
}

func TestCreateRestaurant(t *testing.T) {
	f := New(7)
	r := f.CreateRestaurant(simConfig(), center)

	assert.NotEmpty(t, r.ID)
	assert.NotEmpty(t, r.Name)
	assert.True(t, r.GhostKitchenEnabled)
	assert.Equal(t, 12, r.GhostKitchen.MaxOrders)
	assert.Equal(t, 8, r.GhostKitchen.MinPrepTime)
	assert.Equal(t, 90.0, r.GhostKitchen.AutoDisableThreshold)
	assert.NotEmpty(t, r.GhostKitchen.Platforms)
	assert.GreaterOrEqual(t, r.GhostKitchen.PackagingCost, 0.35)
	assert.LessOrEqual(t, r.GhostKitchen.PackagingCost, 0.9)
	assert.Less(t, r.Location.DistanceMiles(center), 10.0)
	assert.NotEmpty(t, r.Cuisines)
}

func TestCreateWorkers(t *testing.T) {
	workers := New(7).CreateWorkers("r1", 5)
	require.Len(t, workers, 5)

	packers := 0
	for _, w := range workers {
		assert.Equal(t, "r1", w.RestaurantID)
		assert.NotEmpty(t, w.Positions)
		assert.GreaterOrEqual(t, w.HourlyRate, 14.0)
		assert.GreaterOrEqual(t, w.ReliabilityScore, 0.6)
		assert.LessOrEqual(t, w.ReliabilityScore, 1.0)
		for _, a := range w.Availability {
			assert.Less(t, a.StartHour, a.EndHour)
			assert.LessOrEqual(t, a.EndHour, 23)
		}
		if w.HasPosition(models.PositionDeliveryPack) {
			packers++
		}
	}
	assert.Equal(t, 3, packers)
}

func TestCreateOrder(t *testing.T) {
	f := New(7)
	session := &models.Session{
		ID:           "s1",
		RestaurantID: "r1",
		Config:       models.SessionConfig{Platforms: []models.Platform{models.PlatformUberEats}, MinPrepTime: 15},
	}
	at := time.Date(2024, 5, 7, 18, 0, 0, 0, time.UTC)

	o := f.CreateOrder(session, at)
	assert.Equal(t, "s1", o.SessionID)
	assert.Equal(t, models.PlatformUberEats, o.Platform)
	assert.Equal(t, models.OrderStatusReceived, o.Status)
	assert.Equal(t, at, o.ReceivedAt)
	assert.GreaterOrEqual(t, o.TotalAmount, 12.0)

	for i := 0; i < 20; i++ {
		d := f.PrepDuration(session, 8, 25)
		assert.GreaterOrEqual(t, d, 15*time.Minute)
		assert.LessOrEqual(t, d, 25*time.Minute)
	}
	assert.Equal(t, 30*time.Minute, f.PrepDuration(&models.Session{Config: models.SessionConfig{MinPrepTime: 30}}, 8, 25))

	empty := f.CreateOrder(&models.Session{ID: "s2"}, at)
	assert.Equal(t, models.PlatformDirect, empty.Platform)
}

func TestSameSeedSameRestaurantShape(t *testing.T) {
	a := New(99).CreateRestaurant(simConfig(), center)
	b := New(99).CreateRestaurant(simConfig(), center)
	assert.Equal(t, a.Name, b.Name)
	assert.Equal(t, a.GhostKitchen.Platforms, b.GhostKitchen.Platforms)
	assert.Equal(t, a.Location, b.Location)
}
