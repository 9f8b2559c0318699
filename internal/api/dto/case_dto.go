package dto

import (
	"time"

	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/service"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// CreateCaseRequest payload.
type CreateCaseRequest struct {
	ReportID   string `json:"report_id"`
	AssigneeID string `json:"assignee_id"`
}

// UpdateCaseRequest payload. Absent fields are left unchanged.
type UpdateCaseRequest struct {
	StatusUpdate    *string `json:"status_update"`
	LastContactDate *string `json:"last_contact_date"`
}

// CaseResponse representation.
type CaseResponse struct {
	ID              string              `json:"id"`
	ReportID        string              `json:"report_id"`
	AssigneeID      string              `json:"assignee_id"`
	Status          domain.ReportStatus `json:"status"`
	StatusUpdate    *string             `json:"status_update,omitempty"`
	LastContactDate *string             `json:"last_contact_date,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	ResolvedAt      *time.Time          `json:"resolved_at,omitempty"`
}

// AssignedCaseResponse is one row of the partner dashboard.
type AssignedCaseResponse struct {
	Case   CaseResponse       `json:"case"`
	Report AssignedCaseReport `json:"report"`
}

// AssignedCaseReport is the slice of the report a partner sees.
type AssignedCaseReport struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.ReportCategory `json:"category"`
	Status      domain.ReportStatus   `json:"status"`
}

// NewCaseResponse maps a case; nil stays nil.
func NewCaseResponse(c *domain.Case) *CaseResponse {
	if c == nil {
		return nil
	}
	return &CaseResponse{
		ID:              c.ID,
		ReportID:        c.ReportID,
		AssigneeID:      c.AssigneeID,
		Status:          c.Status,
		StatusUpdate:    c.StatusUpdate,
		LastContactDate: FormatDate(c.LastContactDate),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		ResolvedAt:      c.ResolvedAt,
	}
}

// NewAssignedCaseResponses maps the partner dashboard.
func NewAssignedCaseResponses(items []service.AssignedCase) []AssignedCaseResponse {
	out := make([]AssignedCaseResponse, 0, len(items))
	for i := range items {
		out = append(out, AssignedCaseResponse{
			Case: *NewCaseResponse(&items[i].Case),
			Report: AssignedCaseReport{
				ID:          items[i].Report.ID,
				Title:       items[i].Report.Title,
				Description: items[i].Report.Description,
				Category:    items[i].Report.Category,
				Status:      items[i].Report.Status,
			},
		})
	}
	return out
}

// FormatDate renders an optional date.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(DateLayout)
	return &formatted
}

// ParseDate parses an optional YYYY-MM-DD value; empty means nil.
func ParseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
