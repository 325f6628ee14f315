package analytics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/repositories"
	"github.com/chrisdamba/ghostkitchen/internal/repositories/memory"
)

type fixture struct {
	repos *repositories.Repositories
	calc  *Calculator
}

func newFixture() *fixture {
	repos := memory.NewRepositories()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := models.AnalyticsConfig{
		DefaultHourlyRate:    15,
		DefaultPackagingCost: 0.5,
		PlatformFees:         models.DefaultPlatformFees(),
	}
	return &fixture{
		repos: repos,
		calc:  NewCalculator(repos, clock.NewFake(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)), logger, cfg),
	}
}

func (fx *fixture) session(t *testing.T, id string, startedAt time.Time, hours int, orders int, revenue float64, configure ...func(*models.Session)) *models.Session {
	t.Helper()
	ended := startedAt.Add(time.Duration(hours) * time.Hour)
	s := &models.Session{
		ID:           id,
		RestaurantID: "r1",
		Status:       models.SessionStatusEnded,
		StartedAt:    startedAt,
		EndedAt:      &ended,
		EndReason:    models.EndReasonManual,
		TotalOrders:  orders,
		TotalRevenue: revenue,
		Platforms:    map[models.Platform]*models.PlatformStats{},
	}
	for _, fn := range configure {
		fn(s)
	}
	require.NoError(t, fx.repos.Sessions.Create(context.Background(), s))
	return s
}

func (fx *fixture) order(t *testing.T, id, sessionID string, platform models.Platform, status models.OrderStatus, amount float64, at time.Time) {
	t.Helper()
	require.NoError(t, fx.repos.Orders.Create(context.Background(), &models.Order{
		ID: id, SessionID: sessionID, RestaurantID: "r1", Platform: platform, Status: status, TotalAmount: amount, ReceivedAt: at,
	}))
}

func (fx *fixture) shift(t *testing.T, id, workerID string, shiftType models.ShiftType, status models.ShiftStatus, from, to time.Time) {
	t.Helper()
	require.NoError(t, fx.repos.Shifts.Create(context.Background(), &models.Shift{
		ID: id, RestaurantID: "r1", WorkerID: workerID, Position: models.PositionDeliveryPack, Type: shiftType, Status: status, Start: from, End: to,
	}))
}

func TestSessionPnLWithoutOrders(t *testing.T) {
	fx := newFixture()
	fx.session(t, "s1", time.Date(2024, 5, 7, 17, 0, 0, 0, time.UTC), 4, 0, 0)

	p, err := fx.calc.SessionPnL(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.CompletedOrders)
	assert.Zero(t, p.Revenue)
	assert.Zero(t, p.PlatformFees)
	assert.Zero(t, p.SupplyCost)
	assert.Zero(t, p.Margin)
}

func TestSessionPnL(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	begin := time.Date(2024, 5, 7, 17, 0, 0, 0, time.UTC)
	fx.session(t, "s1", begin, 4, 3, 170, func(s *models.Session) {
		s.Config.PackagingCost = 0.75
		s.Config.PlatformFees = map[models.Platform]models.PlatformFee{models.PlatformDoorDash: {CommissionPct: 10}}
	})

	fx.order(t, "o1", "s1", models.PlatformDoorDash, models.OrderStatusCompleted, 100, begin)
	fx.order(t, "o2", "s1", models.PlatformUberEats, models.OrderStatusCompleted, 50, begin)
	fx.order(t, "o3", "s1", models.PlatformGrubhub, models.OrderStatusPickedUp, 20, begin)
	fx.order(t, "o4", "s1", models.PlatformDoorDash, models.OrderStatusCancelled, 40, begin)

	require.NoError(t, fx.repos.Workers.Create(ctx, &models.WorkerProfile{ID: "w1", RestaurantID: "r1", HourlyRate: 20}))
	fx.shift(t, "assigned", "w1", models.ShiftTypeGhostKitchen, models.ShiftStatusCompleted, begin, begin.Add(4*time.Hour))
	fx.shift(t, "open", "", models.ShiftTypeGhostKitchen, models.ShiftStatusCompleted, begin.Add(time.Hour), begin.Add(3*time.Hour))
	fx.shift(t, "regular", "w1", models.ShiftTypeRegular, models.ShiftStatusCompleted, begin, begin.Add(4*time.Hour))
	fx.shift(t, "not-worked", "w1", models.ShiftTypeGhostKitchen, models.ShiftStatusScheduled, begin, begin.Add(4*time.Hour))
	fx.shift(t, "morning", "w1", models.ShiftTypeGhostKitchen, models.ShiftStatusCompleted, begin.Add(-8*time.Hour), begin.Add(-5*time.Hour))

	p, err := fx.calc.SessionPnL(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.CompletedOrders)
	assert.Equal(t, 170.0, p.Revenue)
	assert.Equal(t, 29.3, p.PlatformFees)
	assert.Equal(t, 110.0, p.LaborCost)
	assert.Equal(t, 6.0, p.LaborHours)
	assert.Equal(t, 2.25, p.SupplyCost)
	assert.Equal(t, 140.7, p.GrossProfit)
	assert.Equal(t, 28.45, p.NetProfit)
	assert.Equal(t, 16.74, p.Margin)

	assert.Equal(t, models.PlatformPnL{Orders: 1, Revenue: 100, Fees: 10}, p.ByPlatform[models.PlatformDoorDash])
	assert.Equal(t, models.PlatformPnL{Orders: 1, Revenue: 20, Fees: 4.3}, p.ByPlatform[models.PlatformGrubhub])

	_, err = fx.calc.SessionPnL(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCompareToForecast(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	target := fx.session(t, "target", time.Date(2024, 5, 28, 18, 0, 0, 0, time.UTC), 3, 30, 600)
	fx.session(t, "hour-before", time.Date(2024, 5, 21, 17, 30, 0, 0, time.UTC), 3, 20, 400)
	fx.session(t, "hour-after", time.Date(2024, 5, 14, 19, 0, 0, 0, time.UTC), 3, 30, 500)
	fx.session(t, "too-late", time.Date(2024, 5, 7, 21, 0, 0, 0, time.UTC), 3, 90, 900)
	fx.session(t, "monday", time.Date(2024, 5, 20, 18, 0, 0, 0, time.UTC), 3, 90, 900)
	fx.session(t, "too-old", time.Date(2024, 2, 6, 18, 0, 0, 0, time.UTC), 3, 90, 900)

	cmp, err := fx.calc.CompareToForecast(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cmp.ComparableSessions)
	assert.Equal(t, models.SessionActuals{Orders: 30, Revenue: 600}, cmp.Actual)
	require.NotNil(t, cmp.Forecast)
	assert.Equal(t, models.SessionForecast{Orders: 25, Revenue: 450}, *cmp.Forecast)
	require.NotNil(t, cmp.Variance)
	assert.Equal(t, models.ForecastVariance{Orders: 5, OrdersPct: 20, Revenue: 150, RevenuePct: 33.33}, *cmp.Variance)
}

func TestCompareToForecastWithoutComparables(t *testing.T) {
	fx := newFixture()
	target := fx.session(t, "target", time.Date(2024, 5, 28, 18, 0, 0, 0, time.UTC), 3, 30, 600)

	cmp, err := fx.calc.CompareToForecast(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Zero(t, cmp.ComparableSessions)
	assert.Nil(t, cmp.Forecast)
	assert.Nil(t, cmp.Variance)
}

func TestCompareToForecastRejectsOpenSession(t *testing.T) {
	fx := newFixture()
	require.NoError(t, fx.repos.Sessions.Create(context.Background(), &models.Session{
		ID: "live", RestaurantID: "r1", Status: models.SessionStatusActive, StartedAt: time.Date(2024, 5, 28, 18, 0, 0, 0, time.UTC),
	}))
	_, err := fx.calc.CompareToForecast(context.Background(), "live")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

// seedWeek places four sessions in the week of Monday 2024-05-06, all on DIRECT at 20 per order.
func seedWeek(t *testing.T, fx *fixture) {
	t.Helper()
	perDay := map[time.Weekday]int{time.Monday: 1, time.Wednesday: 0, time.Thursday: 1, time.Saturday: 12}
	monday := time.Date(2024, 5, 6, 18, 0, 0, 0, time.UTC)
	for offset := 0; offset < 7; offset++ {
		day := monday.AddDate(0, 0, offset)
		n, ok := perDay[day.Weekday()]
		if !ok {
			continue
		}
		id := "s-" + day.Format("Mon")
		fx.session(t, id, day, 3, n, float64(n*20))
		for i := 0; i < n; i++ {
			fx.order(t, fmt.Sprintf("%s-%d", id, i), id, models.PlatformDirect, models.OrderStatusCompleted, 20, day.Add(time.Duration(i)*time.Minute))
		}
	}
}

func TestWeeklyReport(t *testing.T) {
	fx := newFixture()
	seedWeek(t, fx)

	report, err := fx.calc.WeeklyReport(context.Background(), "r1", time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "weekly", report.Period)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), report.Start)
	require.Len(t, report.Buckets, 7)
	assert.Equal(t, "Mon 2024-05-06", report.Buckets[0].Label)

	saturday := report.Buckets[5]
	assert.Equal(t, 1, saturday.Sessions)
	assert.Equal(t, 12, saturday.Orders)
	assert.Equal(t, 240.0, saturday.Revenue)
	assert.Equal(t, 6.0, saturday.Costs)
	assert.Equal(t, 234.0, saturday.NetProfit)
	assert.Zero(t, report.Buckets[1].Sessions)

	assert.Equal(t, 4, report.Totals.Sessions)
	assert.Equal(t, 14, report.Totals.Orders)
	assert.Equal(t, 280.0, report.Totals.Revenue)
	assert.Equal(t, 7.0, report.Totals.SupplyCost)
	assert.Equal(t, 273.0, report.Totals.NetProfit)
	assert.Equal(t, 97.5, report.Totals.Margin)
	assert.Equal(t, 3.5, report.Totals.AvgOrdersPerSession)

	require.NotNil(t, report.TopDay)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), report.TopDay.Start)

	require.Len(t, report.Recommendations, 3)
	assert.Contains(t, report.Recommendations[0], "Only 4 ghost kitchen sessions")
	assert.Contains(t, report.Recommendations[1], "average 3.5 orders")
	// Tuesday, Friday and Sunday had no session and do not count as low-order days.
	assert.Contains(t, report.Recommendations[2], "3 session days had fewer than 2 orders")
}

func TestReportChargesSharedShiftOnce(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	lunch := fx.session(t, "lunch", time.Date(2024, 5, 7, 11, 0, 0, 0, time.UTC), 3, 0, 0)
	dinner := fx.session(t, "dinner", time.Date(2024, 5, 7, 17, 0, 0, 0, time.UTC), 3, 0, 0)
	fx.shift(t, "all-day", "", models.ShiftTypeGhostKitchen, models.ShiftStatusCompleted,
		time.Date(2024, 5, 7, 11, 0, 0, 0, time.UTC), time.Date(2024, 5, 7, 22, 0, 0, 0, time.UTC))

	for _, id := range []string{lunch.ID, dinner.ID} {
		p, err := fx.calc.SessionPnL(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 165.0, p.LaborCost, id)
	}

	report, err := fx.calc.WeeklyReport(ctx, "r1", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 165.0, report.Totals.LaborCost)
	assert.Equal(t, -165.0, report.Totals.NetProfit)
	assert.Equal(t, 165.0, report.Buckets[1].Costs)
	assert.Equal(t, 2, report.Buckets[1].Sessions)
}

func TestMonthlyReport(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	seedWeek(t, fx)
	late := fx.session(t, "late-may", time.Date(2024, 5, 30, 18, 0, 0, 0, time.UTC), 4, 1, 20)
	fx.order(t, "late-1", late.ID, models.PlatformDoorDash, models.OrderStatusCompleted, 20, late.StartedAt)
	fx.shift(t, "late-shift", "", models.ShiftTypeGhostKitchen, models.ShiftStatusCompleted, late.StartedAt, late.StartedAt.Add(4*time.Hour))
	fx.session(t, "june", time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC), 3, 50, 1000)

	report, err := fx.calc.MonthlyReport(ctx, "r1", 2024, time.May, nil)
	require.NoError(t, err)
	assert.Equal(t, "monthly", report.Period)
	require.Len(t, report.Buckets, 5)
	assert.Equal(t, "Week 1", report.Buckets[0].Label)
	assert.Equal(t, time.Date(2024, 5, 29, 0, 0, 0, 0, time.UTC), report.Buckets[4].Start)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), report.Buckets[4].End)

	assert.Equal(t, 1, report.Buckets[0].Sessions, "Monday the 6th")
	assert.Equal(t, 3, report.Buckets[1].Sessions, "8th to 11th")
	assert.Equal(t, 1, report.Buckets[4].Sessions)
	assert.Equal(t, 5, report.Totals.Sessions)
	assert.Equal(t, 15, report.Totals.Orders)
	assert.Equal(t, 60.0, report.Totals.LaborCost)
	assert.Equal(t, 3.0, report.Totals.PlatformFees)

	for _, rec := range report.Recommendations {
		assert.NotContains(t, rec, "Only", "five sessions meet the minimum")
	}

	_, err = fx.calc.MonthlyReport(ctx, "r1", 2024, 13, time.UTC)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestReportsShareTheCallersLocation(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tokyo := time.FixedZone("JST", 9*60*60)
	// 23:30 UTC on April 30 is already May 1 in Tokyo.
	fx.session(t, "late", time.Date(2024, 4, 30, 23, 30, 0, 0, time.UTC), 2, 0, 0)

	monthly, err := fx.calc.MonthlyReport(ctx, "r1", 2024, time.May, tokyo)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, tokyo), monthly.Start)
	assert.Equal(t, 1, monthly.Buckets[0].Sessions)

	weekly, err := fx.calc.WeeklyReport(ctx, "r1", time.Date(2024, 4, 27, 0, 0, 0, 0, tokyo))
	require.NoError(t, err)
	assert.Equal(t, 1, weekly.Buckets[4].Sessions, "Wednesday May 1 in Tokyo")
	assert.Zero(t, weekly.Buckets[3].Sessions)

	utc, err := fx.calc.MonthlyReport(ctx, "r1", 2024, time.May, nil)
	require.NoError(t, err)
	assert.Zero(t, utc.Totals.Sessions)
}

func TestReportWithoutSessions(t *testing.T) {
	fx := newFixture()
	report, err := fx.calc.WeeklyReport(context.Background(), "r1", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, report.TopDay)
	assert.Zero(t, report.Totals.Margin)
	require.Len(t, report.Recommendations, 1)
	assert.Contains(t, report.Recommendations[0], "Only 0")
}
