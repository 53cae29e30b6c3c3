package domain

import "time"

// TodoSnapshot is a point-in-time copy of a completed todo, stored alongside
// the reflection so later edits to the todo do not change the record.
type TodoSnapshot struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Notes       string    `json:"notes,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// WeeklyActivity is one user's todo activity for one ISO week.
type WeeklyActivity struct {
	UserID          string
	Week            Week
	Completed       []TodoSnapshot
	IncompleteCount int
}

// HasCompleted reports whether the user completed anything that week.
func (a *WeeklyActivity) HasCompleted() bool {
	return a != nil && len(a.Completed) > 0
}
