package domain

import "time"

// ReportHistory is an immutable audit entry for a report status transition.
type ReportHistory struct {
	ID          string
	ReportID    string
	ChangedByID *string
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
