package domain

import "time"

// Case is an administrator-promoted report assigned to a verified partner.
type Case struct {
	ID              string
	ReportID        string
	AssigneeID      string
	Status          ReportStatus
	StatusUpdate    *string
	LastContactDate *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResolvedAt      *time.Time
}

// IsResolved reports whether the case reached its terminal state.
func (c *Case) IsResolved() bool {
	return c.Status == ReportStatusResolved
}
