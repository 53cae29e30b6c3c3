package domain

import (
	"fmt"
	"time"
)

// ErrInvalidWeek is returned when a week number falls outside its ISO year.
var ErrInvalidWeek = fmt.Errorf("%w: invalid ISO week", ErrValidation)

// Week is an ISO-8601 week of a year.
type Week struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// WeekOf returns the ISO week containing t (evaluated in UTC).
func WeekOf(t time.Time) Week {
	year, week := t.UTC().ISOWeek()
	return Week{Year: year, Week: week}
}

// NewWeek validates and returns the given ISO week.
func NewWeek(year, week int) (Week, error) {
	w := Week{Year: year, Week: week}
	if err := w.Validate(); err != nil {
		return Week{}, err
	}
	return w, nil
}

// WeeksInYear returns 52 or 53, the number of ISO weeks in year.
func WeeksInYear(year int) int {
	// December 28th always falls in the last ISO week of its year.
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

// Validate checks that the week number exists in the ISO year.
func (w Week) Validate() error {
	if w.Year < 1 || w.Week < 1 || w.Week > WeeksInYear(w.Year) {
		return fmt.Errorf("%w: %d-W%02d", ErrInvalidWeek, w.Year, w.Week)
	}
	return nil
}

// Start returns Monday 00:00 UTC of the week.
func (w Week) Start() time.Time {
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	firstMonday := jan4.AddDate(0, 0, -offset)
	return firstMonday.AddDate(0, 0, (w.Week-1)*7)
}

// End returns the exclusive end of the week (the following Monday 00:00 UTC).
func (w Week) End() time.Time {
	return w.Start().AddDate(0, 0, 7)
}

// Month is the calendar month of the week's start date.
func (w Week) Month() time.Month {
	return w.Start().Month()
}

// String renders the week as "2024-W07".
func (w Week) String() string {
	return fmt.Sprintf("%d-W%02d", w.Year, w.Week)
}
