package sweep

import (
	"time"

	"triage/internal/matcher"
)

// Task is a task row joined with its thread. Participants are decoded into
// Subject when the row is read.
type Task struct {
	ID       string
	ThreadID string
	Subject  matcher.Subject
}

type Result struct {
	Scanned  int           `json:"scanned"`
	Deleted  int           `json:"deleted"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}
