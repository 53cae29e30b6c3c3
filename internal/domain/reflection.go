package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Common validation errors for ReflectionRecord
var (
	ErrEmptyReflectionUserID = fmt.Errorf("%w: reflection user ID cannot be empty", ErrValidation)
	ErrInvalidReflectionID   = fmt.Errorf("%w: invalid reflection ID", ErrValidation)
	ErrEmptyReflectionText   = fmt.Errorf("%w: reflection summary cannot be empty", ErrValidation)
	ErrNegativeIncomplete    = fmt.Errorf("%w: incomplete count cannot be negative", ErrValidation)
)

// ReflectionRecord is the generated weekly reflection for one user and week.
type ReflectionRecord struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Year            int            `json:"year"`
	Week            int            `json:"week"`
	Month           int            `json:"month"`
	CompletedTodos  []TodoSnapshot `json:"completed_todos"`
	IncompleteCount int            `json:"incomplete_count"`
	Summary         string         `json:"summary"`
	GeneratedAt     time.Time      `json:"generated_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ReflectionID derives the deterministic record ID "userId_year_week".
// The same inputs always map to the same ID, which makes ingestion idempotent.
func ReflectionID(userID string, w Week) string {
	return fmt.Sprintf("%s_%d_%d", userID, w.Year, w.Week)
}

// ParseReflectionID splits an ID produced by ReflectionID. The user ID may
// itself contain underscores, so the year and week are taken from the right.
func ParseReflectionID(id string) (string, Week, error) {
	weekSep := strings.LastIndex(id, "_")
	if weekSep <= 0 {
		return "", Week{}, fmt.Errorf("%w: %q", ErrInvalidReflectionID, id)
	}
	yearSep := strings.LastIndex(id[:weekSep], "_")
	if yearSep <= 0 {
		return "", Week{}, fmt.Errorf("%w: %q", ErrInvalidReflectionID, id)
	}

	year, err := strconv.Atoi(id[yearSep+1 : weekSep])
	if err != nil {
		return "", Week{}, fmt.Errorf("%w: %q: bad year", ErrInvalidReflectionID, id)
	}
	week, err := strconv.Atoi(id[weekSep+1:])
	if err != nil {
		return "", Week{}, fmt.Errorf("%w: %q: bad week", ErrInvalidReflectionID, id)
	}

	w, err := NewWeek(year, week)
	if err != nil {
		return "", Week{}, fmt.Errorf("%w: %q: %v", ErrInvalidReflectionID, id, err)
	}

	return id[:yearSep], w, nil
}

// NewReflectionRecord builds the record for a user's week from a freshly read
// activity snapshot and the generated summary.
func NewReflectionRecord(activity *WeeklyActivity, summary string, now time.Time) (*ReflectionRecord, error) {
	if activity == nil || activity.UserID == "" {
		return nil, ErrEmptyReflectionUserID
	}

	now = now.UTC()
	record := &ReflectionRecord{
		ID:              ReflectionID(activity.UserID, activity.Week),
		UserID:          activity.UserID,
		Year:            activity.Week.Year,
		Week:            activity.Week.Week,
		Month:           int(activity.Week.Month()),
		CompletedTodos:  activity.Completed,
		IncompleteCount: activity.IncompleteCount,
		Summary:         strings.TrimSpace(summary),
		GeneratedAt:     now,
		UpdatedAt:       now,
	}

	if record.CompletedTodos == nil {
		record.CompletedTodos = []TodoSnapshot{}
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// Validate checks if the record has valid data.
func (r *ReflectionRecord) Validate() error {
	if r.UserID == "" {
		return ErrEmptyReflectionUserID
	}

	if r.ID != ReflectionID(r.UserID, Week{Year: r.Year, Week: r.Week}) {
		return ErrInvalidReflectionID
	}

	if r.Summary == "" {
		return ErrEmptyReflectionText
	}

	if r.IncompleteCount < 0 {
		return ErrNegativeIncomplete
	}

	return nil
}
