package events

import (
	"time"

	"github.com/rightsplace/rightsplace/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportSubmitted  EventType = "report_submitted"
	EventEvidenceAttached EventType = "evidence_attached"
	EventReportDeleted    EventType = "report_deleted"
	EventCaseCreated      EventType = "case_created"
	EventCaseResolved     EventType = "case_resolved"
	EventCaseUpdated      EventType = "case_updated"
	EventPartnerVerified  EventType = "partner_verified"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type      domain.SubjectType `json:"type,omitempty"`
	UserID    *string            `json:"user_id,omitempty"`
	ProfileID *string            `json:"profile_id,omitempty"`
}

// ActorFrom converts a service caller; a nil caller yields an anonymous actor.
func ActorFrom(actor *domain.Actor) Actor {
	if actor == nil || actor.User == nil {
		return Actor{}
	}
	out := Actor{Type: domain.SubjectTypeUser, UserID: actor.UserID()}
	if actor.IsAdmin() {
		out.Type = domain.SubjectTypeAdmin
	}
	if actor.Profile != nil {
		id := actor.Profile.ID
		out.ProfileID = &id
	}
	return out
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ReportID  string      `json:"report_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReportSubmittedPayload payload.
type ReportSubmittedPayload struct {
	Category      domain.ReportCategory `json:"category"`
	Anonymous     bool                  `json:"anonymous"`
	EvidenceCount int                   `json:"evidence_count"`
	SkippedCount  int                   `json:"skipped_count"`
}

// EvidenceAttachedPayload payload.
type EvidenceAttachedPayload struct {
	Stored  int `json:"stored"`
	Skipped int `json:"skipped"`
}

// CaseStatusPayload is used for case creation and resolution.
type CaseStatusPayload struct {
	CaseID     string              `json:"case_id"`
	AssigneeID string              `json:"assignee_id"`
	OldStatus  domain.ReportStatus `json:"old_status"`
	NewStatus  domain.ReportStatus `json:"new_status"`
}

// PartnerVerifiedPayload payload.
type PartnerVerifiedPayload struct {
	ProfileID       string             `json:"profile_id"`
	Role            domain.ProfileRole `json:"role"`
	AlreadyVerified bool               `json:"already_verified"`
}
