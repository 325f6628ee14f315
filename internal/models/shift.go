package models

import "time"

// ShiftStatusChange is one entry of a shift's audit trail.
type ShiftStatusChange struct {
	From      ShiftStatus `json:"from,omitempty"`
	To        ShiftStatus `json:"to"`
	ChangedBy string      `json:"changed_by"`
	Note      string      `json:"note"`
	At        time.Time   `json:"at"`
}

type Shift struct {
	ID            string              `json:"id"`
	RestaurantID  string              `json:"restaurant_id"`
	WorkerID      string              `json:"worker_id,omitempty"`
	Position      Position            `json:"position"`
	Type          ShiftType           `json:"type"`
	Status        ShiftStatus         `json:"status"`
	Start         time.Time           `json:"start"`
	End           time.Time           `json:"end"`
	Notes         string              `json:"notes,omitempty"`
	StatusHistory []ShiftStatusChange `json:"status_history"`
}

// Covers reports whether t falls within [Start, End).
func (s *Shift) Covers(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// Overlaps reports whether the shift intersects [start, end).
func (s *Shift) Overlaps(start, end time.Time) bool {
	return s.Start.Before(end) && start.Before(s.End)
}

func (s *Shift) Hours() float64 {
	return s.End.Sub(s.Start).Hours()
}

// AvailabilityWindow is a worker's stated preference for a weekday, hours [StartHour, EndHour).
type AvailabilityWindow struct {
	Weekday   time.Weekday `json:"weekday"`
	StartHour int          `json:"start_hour"`
	EndHour   int          `json:"end_hour"`
}

type WorkerProfile struct {
	ID               string               `json:"id"`
	RestaurantID     string               `json:"restaurant_id"`
	Name             string               `json:"name"`
	Positions        []Position           `json:"positions"`
	HourlyRate       float64              `json:"hourly_rate"`
	ReliabilityScore float64              `json:"reliability_score"`
	Availability     []AvailabilityWindow `json:"availability"`
}

func (w *WorkerProfile) HasPosition(p Position) bool {
	for _, pos := range w.Positions {
		if pos == p {
			return true
		}
	}
	return false
}

// PrefersWindow reports whether [start, end) sits inside one of the worker's availability windows.
func (w *WorkerProfile) PrefersWindow(start, end time.Time) bool {
	for _, a := range w.Availability {
		if a.Weekday != start.Weekday() {
			continue
		}
		dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		from := dayStart.Add(time.Duration(a.StartHour) * time.Hour)
		to := dayStart.Add(time.Duration(a.EndHour) * time.Hour)
		if !start.Before(from) && !end.After(to) {
			return true
		}
	}
	return false
}

type TimeOff struct {
	ID       string        `json:"id"`
	WorkerID string        `json:"worker_id"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Status   TimeOffStatus `json:"status"`
	Reason   string        `json:"reason,omitempty"`
}
