package timecalc

import (
	"fmt"
	"math"
	"time"
)

// FormatClock formats a time as HH:MM, the clock format stored on records.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

// DayString formats a time as the ISO date stored on records.
func DayString(t time.Time) string {
	return t.Format("2006-01-02")
}

// RoundMinutes converts a duration to whole minutes, rounding half up.
func RoundMinutes(d time.Duration) int {
	return int(math.Round(float64(d.Milliseconds()) / 60000))
}

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatMinutes formats whole minutes the same way as FormatDuration.
func FormatMinutes(minutes int) string {
	return FormatDuration(int64(minutes) * 60)
}

// FormatDurationHHMMSS formats seconds as HH:MM:SS.
func FormatDurationHHMMSS(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	// Go's weekday: Sunday=0, Monday=1, ..., Saturday=6
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // treat Sunday as 7 (ISO)
	}
	monday := t.AddDate(0, 0, -(wd - 1))
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
	sunday := monday.AddDate(0, 0, 6)
	sunday = time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 23, 59, 59, 0, t.Location())
	return monday, sunday
}

// WeekDays returns the seven ISO dates of the week containing t, Monday first.
func WeekDays(t time.Time) []string {
	monday, _ := WeekRange(t)
	days := make([]string, 7)
	for i := range days {
		days[i] = DayString(monday.AddDate(0, 0, i))
	}
	return days
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
