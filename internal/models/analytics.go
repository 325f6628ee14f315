package models

import "time"

type PlatformPnL struct {
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
	Fees    float64 `json:"fees"`
}

type SessionPnL struct {
	SessionID       string                   `json:"session_id"`
	RestaurantID    string                   `json:"restaurant_id"`
	CompletedOrders int                      `json:"completed_orders"`
	Revenue         float64                  `json:"revenue"`
	PlatformFees    float64                  `json:"platform_fees"`
	LaborCost       float64                  `json:"labor_cost"`
	LaborHours      float64                  `json:"labor_hours"`
	SupplyCost      float64                  `json:"supply_cost"`
	GrossProfit     float64                  `json:"gross_profit"`
	NetProfit       float64                  `json:"net_profit"`
	Margin          float64                  `json:"margin"`
	ByPlatform      map[Platform]PlatformPnL `json:"by_platform"`
}

type SessionActuals struct {
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type ForecastVariance struct {
	Orders     float64 `json:"orders"`
	OrdersPct  float64 `json:"orders_pct"`
	Revenue    float64 `json:"revenue"`
	RevenuePct float64 `json:"revenue_pct"`
}

type ForecastComparison struct {
	SessionID          string            `json:"session_id"`
	Actual             SessionActuals    `json:"actual"`
	Forecast           *SessionForecast  `json:"forecast,omitempty"`
	Variance           *ForecastVariance `json:"variance,omitempty"`
	ComparableSessions int               `json:"comparable_sessions"`
}

type SessionForecast struct {
	Orders  float64 `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type ReportBucket struct {
	Label     string    `json:"label"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Sessions  int       `json:"sessions"`
	Orders    int       `json:"orders"`
	Revenue   float64   `json:"revenue"`
	Costs     float64   `json:"costs"`
	NetProfit float64   `json:"net_profit"`
}

type ReportTotals struct {
	Sessions            int     `json:"sessions"`
	Orders              int     `json:"orders"`
	Revenue             float64 `json:"revenue"`
	PlatformFees        float64 `json:"platform_fees"`
	LaborCost           float64 `json:"labor_cost"`
	SupplyCost          float64 `json:"supply_cost"`
	NetProfit           float64 `json:"net_profit"`
	Margin              float64 `json:"margin"`
	AvgOrdersPerSession float64 `json:"avg_orders_per_session"`
}

type Report struct {
	RestaurantID    string         `json:"restaurant_id"`
	Period          string         `json:"period"` // "weekly" or "monthly"
	Start           time.Time      `json:"start"`
	End             time.Time      `json:"end"`
	Buckets         []ReportBucket `json:"buckets"`
	Totals          ReportTotals   `json:"totals"`
	TopDay          *ReportBucket  `json:"top_day,omitempty"`
	Recommendations []string       `json:"recommendations"`
}
