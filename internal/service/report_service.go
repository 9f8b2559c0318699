package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/events"
	"github.com/rightsplace/rightsplace/internal/observability"
	"github.com/rightsplace/rightsplace/internal/repository"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

const (
	maxTitleLength    = 200
	maxLocationLength = 255
	maxPhoneLength    = 20
)

// ReportService owns the report lifecycle up to case creation.
type ReportService struct {
	reports  repository.ReportRepository
	cases    repository.CaseRepository
	history  repository.ReportHistoryRepository
	evidence *EvidenceService
	metrics  *observability.Metrics
	logger   *zap.Logger
	events   publisher
	now      func() time.Time
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	ReportRepo      repository.ReportRepository
	CaseRepo        repository.CaseRepository
	HistoryRepo     repository.ReportHistoryRepository
	EvidenceService *EvidenceService
	Metrics         *observability.Metrics
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
}

// ReportSubmission carries the form fields of a new report.
type ReportSubmission struct {
	Title            string
	Description      string
	Category         domain.ReportCategory
	IncidentLocation *string
	IncidentDate     *time.Time
	ContactEmail     *string
	ContactPhone     *string
}

// SubmissionResult is returned by SubmitReport.
type SubmissionResult struct {
	Report   *domain.Report
	Evidence []domain.Evidence
	Skipped  []SkippedFile
	Warnings []string
}

// AdminReportFilter describes admin listing filters.
type AdminReportFilter struct {
	Statuses    []domain.ReportStatus
	Categories  []domain.ReportCategory
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ReportSummary is a report annotated with its case, if any.
type ReportSummary struct {
	Report domain.Report
	Case   *domain.Case
}

// ReportDetail is the admin view of one report.
type ReportDetail struct {
	Report   *domain.Report
	Evidence []domain.Evidence
	Case     *domain.Case
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	logger := nopLogger(deps.Logger)
	return &ReportService{
		reports:  deps.ReportRepo,
		cases:    deps.CaseRepo,
		history:  deps.HistoryRepo,
		evidence: deps.EvidenceService,
		metrics:  deps.Metrics,
		logger:   logger,
		events:   publisher{dispatcher: deps.Dispatcher, logger: logger},
		now:      time.Now,
	}
}

// SubmitReport creates a pending report and stores its evidence. A nil actor, or
// one without a profile, files the report anonymously.
func (s *ReportService) SubmitReport(ctx context.Context, actor *domain.Actor, input ReportSubmission, files []EvidenceFile) (*SubmissionResult, error) {
	input = normalizeSubmission(input)
	if err := s.validateSubmission(input).Err(); err != nil {
		return nil, err
	}

	report := &domain.Report{
		Title:            input.Title,
		Description:      input.Description,
		Category:         input.Category,
		IncidentLocation: input.IncidentLocation,
		IncidentDate:     input.IncidentDate,
		ContactEmail:     input.ContactEmail,
		ContactPhone:     input.ContactPhone,
		Status:           domain.ReportStatusPending,
	}
	if actor != nil && actor.Profile != nil {
		profileID := actor.Profile.ID
		report.ReporterID = &profileID
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, apperrors.MapError(err)
	}

	attached, err := s.evidence.attach(ctx, report.ID, files)
	if err != nil {
		s.rollbackSubmission(ctx, report.ID)
		return nil, err
	}

	if err := s.history.Create(ctx, &domain.ReportHistory{
		ReportID:    report.ID,
		ChangedByID: actor.UserID(),
		OldValue:    map[string]any{"status": nil},
		NewValue:    map[string]any{"status": report.Status},
	}); err != nil {
		s.logger.Warn("failed to record report creation", zap.String("report_id", report.ID), zap.Error(err))
	}

	s.metrics.ReportSubmitted(report.IsAnonymous())
	s.events.publish(ctx, events.Event{
		Type:     events.EventReportSubmitted,
		ReportID: report.ID,
		Actor:    events.ActorFrom(actor),
		Payload: events.ReportSubmittedPayload{
			Category:      report.Category,
			Anonymous:     report.IsAnonymous(),
			EvidenceCount: len(attached.Stored),
			SkippedCount:  len(attached.Skipped),
		},
	})

	return &SubmissionResult{
		Report:   report,
		Evidence: attached.Stored,
		Skipped:  attached.Skipped,
		Warnings: attached.Warnings,
	}, nil
}

func (s *ReportService) rollbackSubmission(ctx context.Context, reportID string) {
	// Detached so a cancelled request still cleans up.
	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.evidence.DeleteForReport(cleanupCtx, reportID); err != nil {
		s.logger.Warn("failed to clean evidence after failed submission", zap.String("report_id", reportID), zap.Error(err))
	}
	if err := s.reports.Delete(cleanupCtx, reportID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Error("failed to roll back report", zap.String("report_id", reportID), zap.Error(err))
	}
}

// GetReportsForReporter returns the profile's reports, newest first.
func (s *ReportService) GetReportsForReporter(ctx context.Context, profileID string) ([]domain.Report, error) {
	reports, err := s.reports.ListByReporter(ctx, profileID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reports, nil
}

// ListReports returns reports for administrators with their case annotation.
func (s *ReportService) ListReports(ctx context.Context, actor *domain.Actor, filter AdminReportFilter) ([]ReportSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	reports, err := s.reports.ListWithFilter(ctx, repository.ReportFilter{
		Statuses:    filter.Statuses,
		Categories:  filter.Categories,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return annotateWithCases(ctx, s.cases, reports)
}

// GetReport returns one report with evidence and case.
func (s *ReportService) GetReport(ctx context.Context, actor *domain.Actor, reportID string) (*ReportDetail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, notFoundOr(err, "report", map[string]any{"report_id": reportID})
	}
	evidence, err := s.evidence.ListForReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	detail := &ReportDetail{Report: report, Evidence: evidence}
	c, err := s.cases.GetByReportID(ctx, reportID)
	switch {
	case err == nil:
		detail.Case = c
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, apperrors.MapError(err)
	}
	return detail, nil
}

// DeleteReport removes the report, its blobs, evidence rows, case and history.
func (s *ReportService) DeleteReport(ctx context.Context, actor *domain.Actor, reportID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		return notFoundOr(err, "report", map[string]any{"report_id": reportID})
	}
	if err := s.evidence.DeleteForReport(ctx, reportID); err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, reportID); err != nil {
		return notFoundOr(err, "report", map[string]any{"report_id": reportID})
	}
	s.events.publish(ctx, events.Event{
		Type:     events.EventReportDeleted,
		ReportID: reportID,
		Actor:    events.ActorFrom(actor),
	})
	return nil
}

// History lists the status transitions of a report, oldest first.
func (s *ReportService) History(ctx context.Context, actor *domain.Actor, reportID string) ([]domain.ReportHistory, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		return nil, notFoundOr(err, "report", map[string]any{"report_id": reportID})
	}
	entries, err := s.history.ListByReport(ctx, reportID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func annotateWithCases(ctx context.Context, cases repository.CaseRepository, reports []domain.Report) ([]ReportSummary, error) {
	ids := make([]string, len(reports))
	for i, report := range reports {
		ids[i] = report.ID
	}
	linked, err := cases.ListByReports(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byReport := make(map[string]domain.Case, len(linked))
	for _, c := range linked {
		byReport[c.ReportID] = c
	}

	summaries := make([]ReportSummary, len(reports))
	for i, report := range reports {
		summaries[i] = ReportSummary{Report: report}
		if c, ok := byReport[report.ID]; ok {
			c := c
			summaries[i].Case = &c
		}
	}
	return summaries, nil
}

func normalizeSubmission(input ReportSubmission) ReportSubmission {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = domain.ReportCategory(strings.ToUpper(strings.TrimSpace(string(input.Category))))
	if input.Category == "" {
		input.Category = domain.CategoryOther
	}
	input.IncidentLocation = trimOptional(input.IncidentLocation)
	input.ContactEmail = trimOptional(input.ContactEmail)
	input.ContactPhone = trimOptional(input.ContactPhone)
	return input
}

func (s *ReportService) validateSubmission(input ReportSubmission) apperrors.FieldErrors {
	fields := apperrors.FieldErrors{}
	if input.Description == "" {
		fields.Add("description", "This field is required.")
	}
	if utf8.RuneCountInString(input.Title) > maxTitleLength {
		fields.Add("title", "Ensure this value has at most 200 characters.")
	}
	if !input.Category.Valid() {
		fields.Add("category", "Select a valid choice.")
	}
	if input.IncidentLocation != nil && utf8.RuneCountInString(*input.IncidentLocation) > maxLocationLength {
		fields.Add("incident_location", "Ensure this value has at most 255 characters.")
	}
	if input.IncidentDate != nil && input.IncidentDate.After(s.now()) {
		fields.Add("incident_date", "Incident date cannot be in the future.")
	}
	if input.ContactEmail != nil && !validEmail(*input.ContactEmail) {
		fields.Add("contact_email", "Enter a valid email address.")
	}
	if input.ContactPhone != nil && utf8.RuneCountInString(*input.ContactPhone) > maxPhoneLength {
		fields.Add("contact_phone", "Ensure this value has at most 20 characters.")
	}
	return fields
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
