// Package calendar holds the Tuesday-anchored week arithmetic used by slot
// allocation, voting windows and winner jobs. Functions are pure and keep the
// location of their input.
package calendar

import "time"

// Anchor is the weekday a challenge week starts on.
const Anchor = time.Tuesday

// Week is the length of one challenge period.
const Week = 7 * 24 * time.Hour

// Display layouts used by presentation views.
const (
	DateLayout = "02 January 2006"
	TimeLayout = "03:04 PM"
	DayLayout  = "2006-01-02"
)

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// At returns the calendar day of t at hour:minute.
func At(t time.Time, hour, minute int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, t.Location())
}

func daysUntil(from, to time.Weekday) int {
	return (int(to) - int(from) + 7) % 7
}

// WeekStart returns Tuesday 00:00 on or before t.
func WeekStart(t time.Time) time.Time {
	back := daysUntil(Anchor, t.Weekday())
	return StartOfDay(t).AddDate(0, 0, -back)
}

// WeekRange returns [WeekStart(t), WeekStart(t)+7d).
func WeekRange(t time.Time) (time.Time, time.Time) {
	start := WeekStart(t)
	return start, start.AddDate(0, 0, 7)
}

// NextSlot returns the first Tuesday hour:minute at or after ref.
// A reference later than that week's Tuesday slot moves to the following week.
func NextSlot(ref time.Time, hour, minute int) time.Time {
	slot := At(ref, hour, minute).AddDate(0, 0, daysUntil(ref.Weekday(), Anchor))
	if ref.After(slot) {
		slot = slot.AddDate(0, 0, 7)
	}
	return slot
}

// TargetTuesday returns the Tuesday on or after t's calendar day at
// hour:minute. Unlike NextSlot it keeps Tuesday for the whole day.
func TargetTuesday(t time.Time, hour, minute int) time.Time {
	return At(t, hour, minute).AddDate(0, 0, daysUntil(t.Weekday(), Anchor))
}

// VotingEnd returns 23:59:59 of the first Sunday strictly after date.
func VotingEnd(date time.Time) time.Time {
	ahead := daysUntil(date.Weekday(), time.Sunday)
	if ahead == 0 {
		ahead = 7
	}
	y, m, d := date.AddDate(0, 0, ahead).Date()
	return time.Date(y, m, d, 23, 59, 59, 0, date.Location())
}

// InVotingWindow reports whether now is within [date, VotingEnd(date)].
// It returns -1 when voting has not opened yet, 1 when it has closed and 0
// inside the window.
func InVotingWindow(date, now time.Time) int {
	switch {
	case now.Before(date):
		return -1
	case now.After(VotingEnd(date)):
		return 1
	default:
		return 0
	}
}

// ClosedWeekStart returns the start of the most recent week whose voting
// window has fully closed as of now. Run on Monday 00:00 it yields the
// Tuesday six days earlier.
func ClosedWeekStart(now time.Time) time.Time {
	return WeekStart(now.AddDate(0, 0, -6))
}

// MonthRange returns [first of month 00:00, first of next month 00:00).
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// WeekStartsIn returns the week starts (Tuesdays 00:00) that fall in month.
func WeekStartsIn(year int, month time.Month, loc *time.Location) []time.Time {
	from, to := MonthRange(year, month, loc)
	var weeks []time.Time
	for w := from.AddDate(0, 0, daysUntil(from.Weekday(), Anchor)); w.Before(to); w = w.AddDate(0, 0, 7) {
		weeks = append(weeks, w)
	}
	return weeks
}

// PreviousMonth returns the month before now's.
func PreviousMonth(now time.Time) (int, time.Month) {
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}

// Period holds the derived ISO week, month and year of a date.
type Period struct {
	Week  int
	Month int
	Year  int
}

// PeriodOf derives the period markers stored on presentations and votes.
func PeriodOf(t time.Time) Period {
	_, week := t.ISOWeek()
	return Period{Week: week, Month: int(t.Month()), Year: t.Year()}
}
