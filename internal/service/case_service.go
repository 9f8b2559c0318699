package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/events"
	"github.com/rightsplace/rightsplace/internal/observability"
	"github.com/rightsplace/rightsplace/internal/repository"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

// CaseService is the only place report status changes after submission.
type CaseService struct {
	cases    repository.CaseRepository
	reports  repository.ReportRepository
	profiles repository.ProfileRepository
	history  repository.ReportHistoryRepository
	metrics  *observability.Metrics
	logger   *zap.Logger
	events   publisher
}

// CaseDependencies bundles collaborators for the case service.
type CaseDependencies struct {
	CaseRepo    repository.CaseRepository
	ReportRepo  repository.ReportRepository
	ProfileRepo repository.ProfileRepository
	HistoryRepo repository.ReportHistoryRepository
	Metrics     *observability.Metrics
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// CaseNotesInput updates the follow-up fields of a case.
type CaseNotesInput struct {
	StatusUpdate    *string
	LastContactDate *time.Time
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	logger := nopLogger(deps.Logger)
	return &CaseService{
		cases:    deps.CaseRepo,
		reports:  deps.ReportRepo,
		profiles: deps.ProfileRepo,
		history:  deps.HistoryRepo,
		metrics:  deps.Metrics,
		logger:   logger,
		events:   publisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// CreateCase promotes a pending report into a case assigned to a verified partner.
func (s *CaseService) CreateCase(ctx context.Context, actor *domain.Actor, reportID, assigneeID string) (*domain.Case, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, notFoundOr(err, "report", map[string]any{"report_id": reportID})
	}
	// A report that already has a case conflicts whoever the new assignee is.
	// CreateForReport repeats the check atomically for concurrent admins.
	if _, err := s.cases.GetByReportID(ctx, report.ID); err == nil {
		return nil, apperrors.NewConflict("report already has a case", map[string]any{"report_id": reportID})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if report.Status != domain.ReportStatusPending {
		return nil, apperrors.NewConflict("report is not pending", map[string]any{"report_id": reportID})
	}
	if err := validID(assigneeID); err != nil {
		return nil, apperrors.NewNotFound("assignee", map[string]any{"assignee_id": assigneeID})
	}
	assignee, err := s.profiles.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, notFoundOr(err, "assignee", map[string]any{"assignee_id": assigneeID})
	}
	if !assignee.IsVerifiedPartner() {
		return nil, apperrors.NewForbidden()
	}

	c := &domain.Case{ReportID: report.ID, AssigneeID: assignee.ID}
	if err := s.cases.CreateForReport(ctx, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrCaseExists):
			return nil, apperrors.NewConflict("report already has a case", map[string]any{"report_id": reportID})
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, apperrors.NewConflict("report is not pending", map[string]any{"report_id": reportID})
		}
		return nil, notFoundOr(err, "report", map[string]any{"report_id": reportID})
	}

	s.recordTransition(ctx, actor, c, domain.ReportStatusPending, domain.ReportStatusInProgress)
	s.events.publish(ctx, events.Event{
		Type:     events.EventCaseCreated,
		ReportID: c.ReportID,
		Actor:    events.ActorFrom(actor),
		Payload: events.CaseStatusPayload{
			CaseID:     c.ID,
			AssigneeID: c.AssigneeID,
			OldStatus:  domain.ReportStatusPending,
			NewStatus:  domain.ReportStatusInProgress,
		},
	})
	return c, nil
}

// ResolveCase moves the case and its report to resolved.
func (s *CaseService) ResolveCase(ctx context.Context, actor *domain.Actor, caseID string) (*domain.Case, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	c, err := s.cases.Resolve(ctx, caseID)
	if err != nil {
		if errors.Is(err, repository.ErrCaseResolved) {
			return nil, apperrors.NewConflict("case already resolved", map[string]any{"case_id": caseID})
		}
		return nil, notFoundOr(err, "case", map[string]any{"case_id": caseID})
	}

	s.recordTransition(ctx, actor, c, domain.ReportStatusInProgress, domain.ReportStatusResolved)
	s.events.publish(ctx, events.Event{
		Type:     events.EventCaseResolved,
		ReportID: c.ReportID,
		Actor:    events.ActorFrom(actor),
		Payload: events.CaseStatusPayload{
			CaseID:     c.ID,
			AssigneeID: c.AssigneeID,
			OldStatus:  domain.ReportStatusInProgress,
			NewStatus:  domain.ReportStatusResolved,
		},
	})
	return c, nil
}

// UpdateCaseNotes changes follow-up notes without touching status.
func (s *CaseService) UpdateCaseNotes(ctx context.Context, actor *domain.Actor, caseID string, input CaseNotesInput) (*domain.Case, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, notFoundOr(err, "case", map[string]any{"case_id": caseID})
	}

	if input.StatusUpdate != nil {
		note := strings.TrimSpace(*input.StatusUpdate)
		if note == "" {
			c.StatusUpdate = nil
		} else {
			c.StatusUpdate = &note
		}
	}
	if input.LastContactDate != nil {
		if input.LastContactDate.After(time.Now()) {
			return nil, apperrors.NewFieldError("last_contact_date", "Last contact date cannot be in the future.")
		}
		c.LastContactDate = input.LastContactDate
	}

	if err := s.cases.UpdateNotes(ctx, c); err != nil {
		return nil, notFoundOr(err, "case", map[string]any{"case_id": caseID})
	}
	s.events.publish(ctx, events.Event{
		Type:     events.EventCaseUpdated,
		ReportID: c.ReportID,
		Actor:    events.ActorFrom(actor),
		Payload:  map[string]any{"case_id": c.ID},
	})
	return c, nil
}

// GetCase returns one case for administrators.
func (s *CaseService) GetCase(ctx context.Context, actor *domain.Actor, caseID string) (*domain.Case, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, notFoundOr(err, "case", map[string]any{"case_id": caseID})
	}
	return c, nil
}

// recordTransition writes the history row. The transition itself already
// committed, so a failure here is logged rather than returned.
func (s *CaseService) recordTransition(ctx context.Context, actor *domain.Actor, c *domain.Case, from, to domain.ReportStatus) {
	s.metrics.CaseTransition(string(to))
	if err := recordStatusChange(ctx, s.history, actor, c.ReportID, from, to, map[string]any{"case_id": c.ID}); err != nil {
		s.logger.Warn("failed to record status change",
			zap.String("report_id", c.ReportID),
			zap.String("status", string(to)),
			zap.Error(err))
	}
}
