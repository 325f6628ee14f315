package forecast

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/ghostkitchen/internal/cache"
	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/repositories/memory"
)

func ordersAt(sessionID string, at time.Time, n int) []*models.Order {
	out := make([]*models.Order, n)
	for i := range out {
		out[i] = &models.Order{
			ID:         fmt.Sprintf("%s-%s-%d", sessionID, at.Format("0102T15"), i),
			SessionID:  sessionID,
			ReceivedAt: at.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestBuildPattern(t *testing.T) {
	week1 := tuesday.AddDate(0, 0, -7).Add(18 * time.Hour)
	week2 := tuesday.AddDate(0, 0, -14).Add(18 * time.Hour)
	orders := append(ordersAt("s1", week1, 3), ordersAt("s2", week2, 1)...)

	p := BuildPattern("r1", tuesday, orders)
	slot, ok := p.Slot(time.Tuesday, 18)
	require.True(t, ok)
	assert.Equal(t, 4, slot.SampleCount)
	assert.Equal(t, 4.0, slot.AvgDelivery)
	assert.InDelta(t, 1.0, slot.StdDevDelivery, 1e-9)
	assert.InDelta(t, 20.9, slot.AvgDineIn, 1e-9)
	assert.InDelta(t, 5.225, slot.StdDevDineIn, 1e-9)

	_, ok = p.Slot(time.Tuesday, 17)
	assert.False(t, ok)
}

func TestBuildPatternDividesBySampleGroups(t *testing.T) {
	p := BuildPattern("r1", tuesday, ordersAt("s1", tuesday.AddDate(0, 0, -7).Add(12*time.Hour), 10))
	slot, ok := p.Slot(time.Tuesday, 12)
	require.True(t, ok)
	assert.Equal(t, 5.0, slot.AvgDelivery)
	assert.Zero(t, slot.StdDevDelivery)
}

func TestEstimateDineInDampingFloor(t *testing.T) {
	assert.InDelta(t, 10.0, EstimateDineIn(12, 20), 1e-9)
	assert.InDelta(t, 30.0, EstimateDineIn(19, 0), 1e-9)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.3, Confidence(models.HourlyPattern{}))
	assert.Equal(t, 1.0, Confidence(models.HourlyPattern{SampleCount: 10}))
	assert.Equal(t, 0.3, Confidence(models.HourlyPattern{SampleCount: 5, StdDevDelivery: 60, StdDevDineIn: 60}))
}

type aggregatorFixture struct {
	clock *clock.Fake
	agg   *PatternAggregator
	repos struct {
		sessions *memory.SessionRepository
		orders   *memory.OrderRepository
	}
}

func newAggregator(t *testing.T) *aggregatorFixture {
	t.Helper()
	fx := &aggregatorFixture{clock: clock.NewFake(tuesday)}
	fx.repos.sessions = memory.NewSessionRepository()
	fx.repos.orders = memory.NewOrderRepository()
	fx.agg = NewPatternAggregator(fx.repos.sessions, fx.repos.orders, cache.NewMemory(fx.clock), fx.clock, discardLogger(), time.Hour, 8)
	return fx
}

func (fx *aggregatorFixture) addSession(t *testing.T, id string, at time.Time, orders int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, fx.repos.sessions.Create(ctx, &models.Session{ID: id, RestaurantID: "r1", Status: models.SessionStatusEnded, StartedAt: at}))
	require.NoError(t, fx.repos.orders.BulkCreate(ctx, ordersAt(id, at, orders)))
}

func TestAggregatorLookbackExcludesOldSessions(t *testing.T) {
	fx := newAggregator(t)
	fx.addSession(t, "recent", tuesday.AddDate(0, 0, -7).Add(18*time.Hour), 2)
	fx.addSession(t, "old", tuesday.AddDate(0, 0, -63).Add(18*time.Hour), 5)

	p, err := fx.agg.Compute(context.Background(), "r1")
	require.NoError(t, err)
	slot, _ := p.Slot(time.Tuesday, 18)
	assert.Equal(t, 2, slot.SampleCount)
}

func TestAggregatorServesStaleWhileRefreshing(t *testing.T) {
	fx := newAggregator(t)
	ctx := context.Background()
	fx.addSession(t, "s1", tuesday.AddDate(0, 0, -7).Add(18*time.Hour), 2)

	p, err := fx.agg.Pattern(ctx, "r1")
	require.NoError(t, err)
	slot, _ := p.Slot(time.Tuesday, 18)
	require.Equal(t, 2, slot.SampleCount)

	fx.addSession(t, "s2", tuesday.AddDate(0, 0, -14).Add(18*time.Hour), 3)

	p, err = fx.agg.Pattern(ctx, "r1")
	require.NoError(t, err)
	slot, _ = p.Slot(time.Tuesday, 18)
	assert.Equal(t, 2, slot.SampleCount, "fresh cache entry is reused")

	fx.clock.Advance(61 * time.Minute)
	p, err = fx.agg.Pattern(ctx, "r1")
	require.NoError(t, err)
	slot, _ = p.Slot(time.Tuesday, 18)
	assert.Equal(t, 2, slot.SampleCount, "stale entry is served immediately")

	assert.Eventually(t, func() bool {
		p, err := fx.agg.Pattern(ctx, "r1")
		if err != nil {
			return false
		}
		slot, _ := p.Slot(time.Tuesday, 18)
		return slot.SampleCount == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAggregatorColdStartAfterExpiry(t *testing.T) {
	fx := newAggregator(t)
	ctx := context.Background()
	fx.addSession(t, "s1", tuesday.AddDate(0, 0, -7).Add(18*time.Hour), 1)

	_, err := fx.agg.Pattern(ctx, "r1")
	require.NoError(t, err)

	fx.addSession(t, "s2", tuesday.AddDate(0, 0, -7).Add(19*time.Hour), 1)
	require.NoError(t, fx.agg.Invalidate(ctx, "r1"))

	p, err := fx.agg.Pattern(ctx, "r1")
	require.NoError(t, err)
	_, ok := p.Slot(time.Tuesday, 19)
	assert.True(t, ok)
}
