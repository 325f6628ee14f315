package models

import "time"

// SessionConfig is the settings snapshot taken when a session starts. It never changes afterwards.
type SessionConfig struct {
	MaxOrders            int                      `json:"max_orders"`
	Platforms            []Platform               `json:"platforms"`
	AutoAccept           bool                     `json:"auto_accept"`
	MinPrepTime          int                      `json:"min_prep_time"`
	PackagingCost        float64                  `json:"packaging_cost"`
	AutoDisableThreshold float64                  `json:"auto_disable_threshold"`
	PlatformFees         map[Platform]PlatformFee `json:"platform_fees,omitempty"`
}

// SessionOverrides are caller-supplied values merged over the restaurant defaults on enable.
type SessionOverrides struct {
	MaxOrders            *int
	Platforms            []Platform
	AutoAccept           *bool
	MinPrepTime          *int
	PackagingCost        *float64
	AutoDisableThreshold *float64
	PlatformFees         map[Platform]PlatformFee
	ScheduledEndAt       *time.Time
	Duration             time.Duration
}

type PlatformStats struct {
	Orders        int     `json:"orders"`
	Revenue       float64 `json:"revenue"`
	PrepTimes     []int   `json:"prep_times"` // seconds
	Cancellations int     `json:"cancellations"`
}

type Session struct {
	ID             string        `json:"id"`
	RestaurantID   string        `json:"restaurant_id"`
	Status         SessionStatus `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
	PausedAt       *time.Time    `json:"paused_at,omitempty"`
	PauseEndTime   *time.Time    `json:"pause_end_time,omitempty"`
	PauseReason    string        `json:"pause_reason,omitempty"`
	ScheduledEndAt *time.Time    `json:"scheduled_end_at,omitempty"`
	EndReason      EndReason     `json:"end_reason,omitempty"`
	Config         SessionConfig `json:"config"`

	TotalOrders          int                         `json:"total_orders"`
	TotalRevenue         float64                     `json:"total_revenue"`
	TotalPrepTime        int64                       `json:"total_prep_time"` // seconds
	AvgPrepTime          *float64                    `json:"avg_prep_time,omitempty"`
	PeakConcurrentOrders int                         `json:"peak_concurrent_orders"`
	PeakUtilization      float64                     `json:"peak_utilization"`
	Platforms            map[Platform]*PlatformStats `json:"platforms"`
}

// Clone returns a deep copy so stored sessions are never shared between callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.EndedAt = cloneTime(s.EndedAt)
	c.PausedAt = cloneTime(s.PausedAt)
	c.PauseEndTime = cloneTime(s.PauseEndTime)
	c.ScheduledEndAt = cloneTime(s.ScheduledEndAt)
	if s.AvgPrepTime != nil {
		v := *s.AvgPrepTime
		c.AvgPrepTime = &v
	}
	c.Config.Platforms = append([]Platform(nil), s.Config.Platforms...)
	if s.Config.PlatformFees != nil {
		c.Config.PlatformFees = make(map[Platform]PlatformFee, len(s.Config.PlatformFees))
		for k, v := range s.Config.PlatformFees {
			c.Config.PlatformFees[k] = v
		}
	}
	c.Platforms = make(map[Platform]*PlatformStats, len(s.Platforms))
	for k, v := range s.Platforms {
		stats := *v
		stats.PrepTimes = append([]int(nil), v.PrepTimes...)
		c.Platforms[k] = &stats
	}
	return &c
}

// Window returns the session's operating interval, using now for sessions still open.
func (s *Session) Window(now time.Time) (time.Time, time.Time) {
	if s.EndedAt != nil {
		return s.StartedAt, *s.EndedAt
	}
	return s.StartedAt, now
}

// SessionStats is the counters snapshot attached to stats and end events.
type SessionStats struct {
	SessionID            string                      `json:"session_id"`
	TotalOrders          int                         `json:"total_orders"`
	TotalRevenue         float64                     `json:"total_revenue"`
	AvgPrepTime          *float64                    `json:"avg_prep_time,omitempty"`
	PeakConcurrentOrders int                         `json:"peak_concurrent_orders"`
	PeakUtilization      float64                     `json:"peak_utilization"`
	EndReason            EndReason                   `json:"end_reason,omitempty"`
	Duration             time.Duration               `json:"duration"`
	Platforms            map[Platform]*PlatformStats `json:"platforms"`
}

func (s *Session) Stats(now time.Time) SessionStats {
	start, end := s.Window(now)
	c := s.Clone()
	return SessionStats{
		SessionID:            s.ID,
		TotalOrders:          s.TotalOrders,
		TotalRevenue:         s.TotalRevenue,
		AvgPrepTime:          c.AvgPrepTime,
		PeakConcurrentOrders: s.PeakConcurrentOrders,
		PeakUtilization:      s.PeakUtilization,
		EndReason:            s.EndReason,
		Duration:             end.Sub(start),
		Platforms:            c.Platforms,
	}
}

// LiveSession is the per-restaurant capacity entry kept in the cache while a session is open.
type LiveSession struct {
	SessionID            string  `json:"session_id"`
	RestaurantID         string  `json:"restaurant_id"`
	MaxOrders            int     `json:"max_orders"`
	CurrentOrders        int     `json:"current_orders"`
	AutoDisableThreshold float64 `json:"auto_disable_threshold"`
}

// Utilization is currentOrders / maxOrders as a percentage.
func (l LiveSession) Utilization() float64 {
	if l.MaxOrders <= 0 {
		return 0
	}
	return float64(l.CurrentOrders) * 100 / float64(l.MaxOrders)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
