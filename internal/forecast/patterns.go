package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/chrisdamba/ghostkitchen/internal/cache"
	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/repositories"
)

const (
	dineInBaseCovers = 20.0
	ordersPerSample  = 8.0
)

// dineInHourMultiplier peaks at lunch (12) and dinner (19).
var dineInHourMultiplier = [24]float64{
	0.1, 0.05, 0.05, 0.05, 0.05, 0.1, 0.2, 0.4,
	0.5, 0.5, 0.6, 0.9, 1.0, 0.9, 0.6, 0.4,
	0.5, 0.8, 0.95, 1.0, 0.85, 0.6, 0.4, 0.2,
}

// PatternSource supplies the historical weekday/hour pattern of a restaurant.
type PatternSource interface {
	Pattern(ctx context.Context, restaurantID string) (*models.HistoricalPattern, error)
}

// PatternAggregator builds historical patterns from ended sessions and caches them.
type PatternAggregator struct {
	sessions      repositories.SessionRepository
	orders        repositories.OrderRepository
	cache         cache.Cache
	clock         clock.Clock
	logger        *slog.Logger
	ttl           time.Duration
	lookbackWeeks int

	group singleflight.Group
}

func NewPatternAggregator(
	sessions repositories.SessionRepository,
	orders repositories.OrderRepository,
	c cache.Cache,
	clk clock.Clock,
	logger *slog.Logger,
	ttl time.Duration,
	lookbackWeeks int,
) *PatternAggregator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if lookbackWeeks <= 0 {
		lookbackWeeks = 8
	}
	return &PatternAggregator{
		sessions:      sessions,
		orders:        orders,
		cache:         c,
		clock:         clk,
		logger:        logger,
		ttl:           ttl,
		lookbackWeeks: lookbackWeeks,
	}
}

func patternKey(restaurantID string) string {
	return "gk:pattern:" + restaurantID
}

// Pattern returns the cached pattern. A stale entry is served while one background
// recompute refreshes it; a missing entry is computed inline.
func (a *PatternAggregator) Pattern(ctx context.Context, restaurantID string) (*models.HistoricalPattern, error) {
	var cached models.HistoricalPattern
	found, err := a.cache.Get(ctx, patternKey(restaurantID), &cached)
	if err != nil {
		a.logger.Warn("pattern cache read failed", "restaurant_id", restaurantID, "err", err)
		found = false
	}
	if found {
		if a.clock.Now().Sub(cached.ComputedAt) >= a.ttl {
			bg := context.WithoutCancel(ctx)
			a.group.DoChan(restaurantID, func() (interface{}, error) {
				return a.refresh(bg, restaurantID)
			})
		}
		return &cached, nil
	}

	v, err, _ := a.group.Do(restaurantID, func() (interface{}, error) {
		return a.refresh(ctx, restaurantID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.HistoricalPattern), nil
}

// Invalidate drops the cached pattern so the next read recomputes it.
func (a *PatternAggregator) Invalidate(ctx context.Context, restaurantID string) error {
	return a.cache.Delete(ctx, patternKey(restaurantID))
}

func (a *PatternAggregator) refresh(ctx context.Context, restaurantID string) (*models.HistoricalPattern, error) {
	pattern, err := a.Compute(ctx, restaurantID)
	if err != nil {
		a.logger.Error("pattern recompute failed", "restaurant_id", restaurantID, "err", err)
		return nil, err
	}
	if err := a.cache.Set(ctx, patternKey(restaurantID), pattern, 2*a.ttl); err != nil {
		a.logger.Warn("pattern cache write failed", "restaurant_id", restaurantID, "err", err)
	}
	return pattern, nil
}

// Compute aggregates orders of ended sessions over the lookback window.
func (a *PatternAggregator) Compute(ctx context.Context, restaurantID string) (*models.HistoricalPattern, error) {
	now := a.clock.Now()
	from := now.AddDate(0, 0, -7*a.lookbackWeeks)

	sessions, err := a.sessions.ListEnded(ctx, restaurantID, from, now)
	if err != nil {
		return nil, fmt.Errorf("list ended sessions: %w", err)
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	orders, err := a.orders.ListBySessions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list session orders: %w", err)
	}

	return BuildPattern(restaurantID, now, orders), nil
}

// BuildPattern turns received orders into per weekday/hour averages.
func BuildPattern(restaurantID string, computedAt time.Time, orders []*models.Order) *models.HistoricalPattern {
	var counts [7][24]int
	var perDate [7][24]map[string]int

	for _, o := range orders {
		day, hour := o.ReceivedAt.Weekday(), o.ReceivedAt.Hour()
		counts[day][hour]++
		if perDate[day][hour] == nil {
			perDate[day][hour] = make(map[string]int)
		}
		perDate[day][hour][o.ReceivedAt.Format("2006-01-02")]++
	}

	pattern := &models.HistoricalPattern{RestaurantID: restaurantID, ComputedAt: computedAt}
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			n := counts[day][hour]
			if n == 0 {
				continue
			}
			avgDelivery := float64(n) / math.Max(1, math.Ceil(float64(n)/ordersPerSample))
			stdDelivery := populationStdDev(perDate[day][hour])
			avgDineIn := EstimateDineIn(hour, avgDelivery)
			stdDineIn := 0.0
			if avgDelivery > 0 {
				stdDineIn = avgDineIn * (stdDelivery / avgDelivery)
			}
			pattern.Days[day].Hours[hour] = models.HourlyPattern{
				AvgDelivery:    avgDelivery,
				AvgDineIn:      avgDineIn,
				StdDevDelivery: stdDelivery,
				StdDevDineIn:   stdDineIn,
				SampleCount:    n,
			}
		}
	}
	return pattern
}

// EstimateDineIn is the inverse-of-delivery covers heuristic.
func EstimateDineIn(hour int, avgDelivery float64) float64 {
	return dineInBaseCovers * dineInHourMultiplier[hour] * math.Max(0.5, 1.5-avgDelivery*0.1)
}

func populationStdDev(byDate map[string]int) float64 {
	if len(byDate) == 0 {
		return 0
	}
	var sum float64
	for _, c := range byDate {
		sum += float64(c)
	}
	mean := sum / float64(len(byDate))
	var sq float64
	for _, c := range byDate {
		d := float64(c) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(byDate)))
}
