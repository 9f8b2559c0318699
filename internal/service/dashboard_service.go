package service

import (
	"context"

	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/repository"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

// DashboardService serves read-only projections for reporters and partners.
type DashboardService struct {
	reports repository.ReportRepository
	cases   repository.CaseRepository
}

// DashboardDependencies bundles repositories for the dashboard service.
type DashboardDependencies struct {
	ReportRepo repository.ReportRepository
	CaseRepo   repository.CaseRepository
}

// AssignedCase is a case with the report fields a partner needs.
type AssignedCase struct {
	Case   domain.Case
	Report domain.Report
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	return &DashboardService{reports: deps.ReportRepo, cases: deps.CaseRepo}
}

// ReporterDashboard lists every report of the profile with its case.
func (s *DashboardService) ReporterDashboard(ctx context.Context, profileID string) ([]ReportSummary, error) {
	reports, err := s.reports.ListByReporter(ctx, profileID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return annotateWithCases(ctx, s.cases, reports)
}

// ReporterCases is ReporterDashboard restricted to reports that became cases.
func (s *DashboardService) ReporterCases(ctx context.Context, profileID string) ([]ReportSummary, error) {
	all, err := s.ReporterDashboard(ctx, profileID)
	if err != nil {
		return nil, err
	}
	withCase := make([]ReportSummary, 0, len(all))
	for _, summary := range all {
		if summary.Case != nil {
			withCase = append(withCase, summary)
		}
	}
	return withCase, nil
}

// AssignedCasesDashboard lists cases assigned to the calling partner.
func (s *DashboardService) AssignedCasesDashboard(ctx context.Context, actor *domain.Actor) ([]AssignedCase, error) {
	if actor == nil || actor.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.Profile.IsVerifiedPartner() {
		return nil, apperrors.NewForbidden()
	}

	cases, err := s.cases.ListByAssignee(ctx, actor.Profile.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	result := make([]AssignedCase, 0, len(cases))
	for _, c := range cases {
		report, err := s.reports.GetByID(ctx, c.ReportID)
		if err != nil {
			return nil, notFoundOr(err, "report", map[string]any{"report_id": c.ReportID})
		}
		result = append(result, AssignedCase{Case: c, Report: *report})
	}
	return result, nil
}
