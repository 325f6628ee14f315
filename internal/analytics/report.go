package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

const (
	minSessionsPerPeriod  = 5
	targetMarginPct       = 15.0
	minOrdersPerSession   = 10.0
	lowOrderDayThreshold  = 2
	maxLowOrderDays       = 2
	reportPeriodWeekly    = "weekly"
	reportPeriodMonthly   = "monthly"
	weeklyBucketLabel     = "Mon 2006-01-02"
	monthlyBucketLabelFmt = "Week %d"
)

type bucketRange struct {
	label      string
	start, end time.Time
}

// bucketTotals accumulates exact sums for one bucket or day.
type bucketTotals struct {
	sessions int
	orders   int
	revenue  decimal.Decimal
	costs    decimal.Decimal
	net      decimal.Decimal
}

func (b *bucketTotals) add(p pnl) {
	b.sessions++
	b.orders += p.completed
	b.revenue = b.revenue.Add(p.revenue)
	b.costs = b.costs.Add(p.costs())
	b.net = b.net.Add(p.net())
}

func (b *bucketTotals) bucket(r bucketRange) models.ReportBucket {
	return models.ReportBucket{
		Label:     r.label,
		Start:     r.start,
		End:       r.end,
		Sessions:  b.sessions,
		Orders:    b.orders,
		Revenue:   money(b.revenue),
		Costs:     money(b.costs),
		NetProfit: money(b.net),
	}
}

// WeeklyReport covers the seven days from weekStart's calendar day in weekStart's location,
// one bucket per day.
func (c *Calculator) WeeklyReport(ctx context.Context, restaurantID string, weekStart time.Time) (*models.Report, error) {
	start := startOfDay(weekStart)
	ranges := make([]bucketRange, 7)
	for i := range ranges {
		day := start.AddDate(0, 0, i)
		ranges[i] = bucketRange{label: day.Format(weeklyBucketLabel), start: day, end: day.AddDate(0, 0, 1)}
	}
	return c.report(ctx, restaurantID, reportPeriodWeekly, start, start.AddDate(0, 0, 7), ranges)
}

// MonthlyReport covers one calendar month in loc (UTC when nil) in seven-day buckets; the last
// bucket stops at month end.
func (c *Calculator) MonthlyReport(ctx context.Context, restaurantID string, year int, month time.Month, loc *time.Location) (*models.Report, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d", models.ErrInvalidArgument, month)
	}
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0)
	var ranges []bucketRange
	for from, week := start, 1; from.Before(end); from, week = from.AddDate(0, 0, 7), week+1 {
		to := from.AddDate(0, 0, 7)
		if to.After(end) {
			to = end
		}
		ranges = append(ranges, bucketRange{label: fmt.Sprintf(monthlyBucketLabelFmt, week), start: from, end: to})
	}
	return c.report(ctx, restaurantID, reportPeriodMonthly, start, end, ranges)
}

func (c *Calculator) report(ctx context.Context, restaurantID, period string, start, end time.Time, ranges []bucketRange) (*models.Report, error) {
	sessions, err := c.sessions.ListEnded(ctx, restaurantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list sessions for %s report: %w", period, err)
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	orders, err := c.orders.ListBySessions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s report: %w", period, err)
	}
	bySession := make(map[string][]*models.Order, len(sessions))
	for _, o := range orders {
		bySession[o.SessionID] = append(bySession[o.SessionID], o)
	}

	var (
		totals  bucketTotals
		fees    decimal.Decimal
		labor   decimal.Decimal
		supply  decimal.Decimal
		buckets = make([]bucketTotals, len(ranges))
		days    = make(map[time.Time]*bucketTotals)
		rates   = make(map[string]decimal.Decimal)
		charged = make(map[string]bool)
	)
	for _, s := range sessions {
		p, err := c.compute(ctx, s, bySession[s.ID], rates, charged)
		if err != nil {
			return nil, err
		}
		totals.add(p)
		fees = fees.Add(p.fees)
		labor = labor.Add(p.labor)
		supply = supply.Add(p.supply)

		for i, r := range ranges {
			if !s.StartedAt.Before(r.start) && s.StartedAt.Before(r.end) {
				buckets[i].add(p)
				break
			}
		}
		day := startOfDay(s.StartedAt.In(start.Location()))
		if days[day] == nil {
			days[day] = &bucketTotals{}
		}
		days[day].add(p)
	}

	report := &models.Report{
		RestaurantID: restaurantID,
		Period:       period,
		Start:        start,
		End:          end,
		Buckets:      make([]models.ReportBucket, len(ranges)),
		Totals: models.ReportTotals{
			Sessions:     totals.sessions,
			Orders:       totals.orders,
			Revenue:      money(totals.revenue),
			PlatformFees: money(fees),
			LaborCost:    money(labor),
			SupplyCost:   money(supply),
			NetProfit:    money(totals.net),
			Margin:       percent(totals.net, totals.revenue),
		},
	}
	if totals.sessions > 0 {
		report.Totals.AvgOrdersPerSession = money(decimal.NewFromInt(int64(totals.orders)).Div(decimal.NewFromInt(int64(totals.sessions))))
	}
	for i := range ranges {
		report.Buckets[i] = buckets[i].bucket(ranges[i])
	}
	report.TopDay = topDay(days)
	report.Recommendations = recommendations(report.Totals, days)

	c.logger.Debug("report built",
		"restaurant_id", restaurantID,
		"period", period,
		"sessions", totals.sessions,
		"orders", totals.orders,
	)
	return report, nil
}

// topDay is the calendar day with the highest revenue, earliest on ties, nil without revenue.
func topDay(days map[time.Time]*bucketTotals) *models.ReportBucket {
	var (
		best    time.Time
		bestRev decimal.Decimal
		found   bool
	)
	for day, t := range days {
		if !t.revenue.IsPositive() {
			continue
		}
		if !found || t.revenue.GreaterThan(bestRev) || (t.revenue.Equal(bestRev) && day.Before(best)) {
			best, bestRev, found = day, t.revenue, true
		}
	}
	if !found {
		return nil
	}
	b := days[best].bucket(bucketRange{label: best.Format(weeklyBucketLabel), start: best, end: best.AddDate(0, 0, 1)})
	return &b
}

// recommendations applies fixed thresholds to the period. Low-order days are counted among days
// that had a session; days without one are already covered by the session-count rule.
func recommendations(totals models.ReportTotals, days map[time.Time]*bucketTotals) []string {
	recs := []string{}
	if totals.Sessions < minSessionsPerPeriod {
		recs = append(recs, fmt.Sprintf(
			"Only %d ghost kitchen sessions this period; enable during more forecasted peaks to build volume.", totals.Sessions))
	}
	if totals.Sessions == 0 {
		return recs
	}
	if totals.Margin < targetMarginPct {
		recs = append(recs, fmt.Sprintf(
			"Margin of %.1f%% is below the %.0f%% target; review platform mix, packaging and ghost kitchen labor.", totals.Margin, targetMarginPct))
	}
	if totals.AvgOrdersPerSession < minOrdersPerSession {
		recs = append(recs, fmt.Sprintf(
			"Sessions average %.1f orders; shorten them or move them to higher-demand windows.", totals.AvgOrdersPerSession))
	}
	lowDays := 0
	for _, d := range days {
		if d.orders < lowOrderDayThreshold {
			lowDays++
		}
	}
	if lowDays > maxLowOrderDays {
		recs = append(recs, fmt.Sprintf(
			"%d session days had fewer than %d orders; skip ghost kitchen on those days.", lowDays, lowOrderDayThreshold))
	}
	return recs
}
