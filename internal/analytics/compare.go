package analytics

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

const comparableLookbackDays = 90

// CompareToForecast measures an ended session against the mean of comparable past sessions:
// same restaurant, same weekday, start hour within one hour, in the 90 days before it.
func (c *Calculator) CompareToForecast(ctx context.Context, sessionID string) (*models.ForecastComparison, error) {
	session, err := c.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("compare to forecast: %w", err)
	}
	if session.Status != models.SessionStatusEnded {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, session.Status, models.ErrInvalidState)
	}

	from := session.StartedAt.AddDate(0, 0, -comparableLookbackDays)
	history, err := c.sessions.ListEnded(ctx, session.RestaurantID, from, session.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("list comparable sessions: %w", err)
	}

	result := &models.ForecastComparison{
		SessionID: session.ID,
		Actual: models.SessionActuals{
			Orders:  session.TotalOrders,
			Revenue: session.TotalRevenue,
		},
	}

	var orders, revenue decimal.Decimal
	for _, s := range history {
		if !comparable(session, s) {
			continue
		}
		result.ComparableSessions++
		orders = orders.Add(decimal.NewFromInt(int64(s.TotalOrders)))
		revenue = revenue.Add(decimal.NewFromFloat(s.TotalRevenue))
	}
	if result.ComparableSessions == 0 {
		return result, nil
	}

	n := decimal.NewFromInt(int64(result.ComparableSessions))
	forecastOrders := orders.Div(n)
	forecastRevenue := revenue.Div(n)
	ordersDiff := decimal.NewFromInt(int64(session.TotalOrders)).Sub(forecastOrders)
	revenueDiff := decimal.NewFromFloat(session.TotalRevenue).Sub(forecastRevenue)

	result.Forecast = &models.SessionForecast{
		Orders:  money(forecastOrders),
		Revenue: money(forecastRevenue),
	}
	result.Variance = &models.ForecastVariance{
		Orders:     money(ordersDiff),
		OrdersPct:  percent(ordersDiff, forecastOrders),
		Revenue:    money(revenueDiff),
		RevenuePct: percent(revenueDiff, forecastRevenue),
	}
	return result, nil
}

func comparable(target, candidate *models.Session) bool {
	if candidate.ID == target.ID {
		return false
	}
	if candidate.StartedAt.Weekday() != target.StartedAt.Weekday() {
		return false
	}
	return math.Abs(float64(candidate.StartedAt.Hour()-target.StartedAt.Hour())) <= 1
}
