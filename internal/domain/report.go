package domain

import "time"

// ReportStatus enumerates lifecycle states for reports and cases.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusResolved   ReportStatus = "resolved"
)

// ReportCategory classifies the violation.
type ReportCategory string

const (
	CategoryHumanRights      ReportCategory = "HR"
	CategoryGenderViolence   ReportCategory = "GV"
	CategoryDomesticViolence ReportCategory = "DV"
	CategoryWhistleblowing   ReportCategory = "WL"
	CategoryOther            ReportCategory = "OT"
)

// Valid reports whether the category is known.
func (c ReportCategory) Valid() bool {
	switch c {
	case CategoryHumanRights, CategoryGenderViolence, CategoryDomesticViolence, CategoryWhistleblowing, CategoryOther:
		return true
	}
	return false
}

// Report is a submitted account of a violation.
type Report struct {
	ID               string
	ReporterID       *string
	Title            string
	Description      string
	Category         ReportCategory
	IncidentLocation *string
	IncidentDate     *time.Time
	ContactEmail     *string
	ContactPhone     *string
	Status           ReportStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsAnonymous reports whether the report has no registered reporter.
func (r *Report) IsAnonymous() bool {
	return r.ReporterID == nil
}
