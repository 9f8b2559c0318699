package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/repository"
)

type caseRepo struct{ s *Store }

func (r caseRepo) CreateForReport(_ context.Context, c *domain.Case) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	report, ok := r.s.reports[c.ReportID]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, existing := range r.s.cases {
		if existing.ReportID == c.ReportID {
			return repository.ErrCaseExists
		}
	}
	if report.Status != domain.ReportStatusPending {
		return repository.ErrInvalidTransition
	}
	c.ID = uuid.NewString()
	c.Status = domain.ReportStatusInProgress
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	r.s.cases[c.ID] = *c

	report.Status = domain.ReportStatusInProgress
	report.UpdatedAt = c.CreatedAt
	r.s.reports[report.ID] = report
	return nil
}

func (r caseRepo) Resolve(_ context.Context, caseID string) (*domain.Case, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cases[caseID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if c.IsResolved() {
		return nil, repository.ErrCaseResolved
	}
	now := r.s.now()
	c.Status = domain.ReportStatusResolved
	c.ResolvedAt = &now
	c.UpdatedAt = now
	r.s.cases[c.ID] = c

	if report, ok := r.s.reports[c.ReportID]; ok {
		report.Status = domain.ReportStatusResolved
		report.UpdatedAt = now
		r.s.reports[report.ID] = report
	}
	return &c, nil
}

func (r caseRepo) UpdateNotes(_ context.Context, c *domain.Case) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.cases[c.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.StatusUpdate = c.StatusUpdate
	stored.LastContactDate = c.LastContactDate
	stored.UpdatedAt = r.s.now()
	r.s.cases[c.ID] = stored
	c.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r caseRepo) GetByID(_ context.Context, id string) (*domain.Case, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.cases[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r caseRepo) GetByReportID(_ context.Context, reportID string) (*domain.Case, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.cases {
		if c.ReportID == reportID {
			found := c
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r caseRepo) ListByAssignee(_ context.Context, assigneeID string) ([]domain.Case, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Case
	for _, c := range r.s.cases {
		if c.AssigneeID == assigneeID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r caseRepo) ListByReports(_ context.Context, reportIDs []string) ([]domain.Case, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(reportIDs))
	for _, id := range reportIDs {
		wanted[id] = struct{}{}
	}
	var result []domain.Case
	for _, c := range r.s.cases {
		if _, ok := wanted[c.ReportID]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}
