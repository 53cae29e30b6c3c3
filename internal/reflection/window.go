package reflection

import (
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
)

// Window is the polling window that opens at the weekly submission instant
// (Weekday at Hour:00 UTC) and stays open for Length.
type Window struct {
	Weekday time.Weekday
	Hour    int
	Length  time.Duration
}

// NewWindow builds a Window from a weekday name such as "sunday".
func NewWindow(weekday string, hour int, length time.Duration) (Window, error) {
	wd, err := ParseWeekday(weekday)
	if err != nil {
		return Window{}, err
	}
	if hour < 0 || hour > 23 {
		return Window{}, fmt.Errorf("submit hour %d out of range", hour)
	}
	if length <= 0 {
		return Window{}, fmt.Errorf("poll window must be positive")
	}
	return Window{Weekday: wd, Hour: hour, Length: length}, nil
}

// CronSpec is the five-field cron expression that fires at each submission
// instant.
func (w Window) CronSpec() string {
	return fmt.Sprintf("0 %d * * %d", w.Hour, int(w.Weekday))
}

// ParseWeekday parses an English weekday name, case-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}

// LastScheduled returns the most recent submission instant at or before now.
func (w Window) LastScheduled(now time.Time) time.Time {
	now = now.UTC()
	daysBack := (int(now.Weekday()) - int(w.Weekday) + 7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day(), w.Hour, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysBack)
	if candidate.After(now) {
		candidate = candidate.AddDate(0, 0, -7)
	}
	return candidate
}

// IsEligibleToRun reports whether now falls inside the polling window that
// follows the most recent submission instant.
func (w Window) IsEligibleToRun(now time.Time) bool {
	last := w.LastScheduled(now)
	return now.UTC().Sub(last) < w.Length
}

// TargetWeek is the ISO week reflected on by the submission scheduled at or
// before now: the latest week whose Sunday has been reached.
func (w Window) TargetWeek(now time.Time) domain.Week {
	return CompletedWeek(w.LastScheduled(now))
}

// CompletedWeek returns the week containing t if t falls on its Sunday, and
// the previous week otherwise.
func CompletedWeek(t time.Time) domain.Week {
	t = t.UTC()
	if t.Weekday() == time.Sunday {
		return domain.WeekOf(t)
	}
	return domain.WeekOf(t.AddDate(0, 0, -7))
}
