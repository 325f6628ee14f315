package signals

import (
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

const holidayAttendance = 1000

// HolidaysAround returns the holidays of date and of the days either side, whose lead and trail
// windows can reach into date.
func HolidaysAround(date time.Time) []models.LocalEvent {
	out := Holidays(date.AddDate(0, 0, -1))
	out = append(out, Holidays(date)...)
	return append(out, Holidays(date.AddDate(0, 0, 1))...)
}

// Holidays returns the computed US holidays falling on date, in date's location.
func Holidays(date time.Time) []models.LocalEvent {
	loc := date.Location()
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }
	wholeDay := func(name string) models.LocalEvent {
		return holiday(name, models.EventTypeHoliday, day, day.Add(24*time.Hour))
	}

	var out []models.LocalEvent
	switch {
	case m == time.January && d == 1:
		out = append(out, wholeDay("New Year's Day"))
	case m == time.July && d == 4:
		out = append(out, wholeDay("Independence Day"))
	case m == time.December && d == 25:
		out = append(out, wholeDay("Christmas Day"))
	case m == time.December && d == 31:
		out = append(out, holiday("New Year's Eve", models.EventTypeHoliday, at(17), at(23)))
	}
	if day.Equal(Thanksgiving(y, loc)) {
		out = append(out, wholeDay("Thanksgiving"))
	}
	if day.Equal(SuperBowlSunday(y, loc)) {
		out = append(out, holiday("Super Bowl Sunday", models.EventTypeSuperBowl, at(18), at(22)))
	}
	return out
}

// Thanksgiving is the fourth Thursday of November.
func Thanksgiving(year int, loc *time.Location) time.Time {
	return nthWeekday(year, time.November, time.Thursday, 4, loc)
}

// SuperBowlSunday is the first Sunday of February.
func SuperBowlSunday(year int, loc *time.Location) time.Time {
	return nthWeekday(year, time.February, time.Sunday, 1, loc)
}

func nthWeekday(year int, month time.Month, weekday time.Weekday, n int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

func holiday(name string, t models.EventType, start, end time.Time) models.LocalEvent {
	return models.LocalEvent{
		Name:       name,
		Type:       t,
		Start:      start,
		End:        end,
		Attendance: holidayAttendance,
	}
}
