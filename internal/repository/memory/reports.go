package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/repository"
)

type reportRepo struct{ s *Store }

func (r reportRepo) Create(_ context.Context, report *domain.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	report.ID = uuid.NewString()
	report.CreatedAt = r.s.now()
	report.UpdatedAt = report.CreatedAt
	r.s.reports[report.ID] = *report
	return nil
}

func (r reportRepo) GetByID(_ context.Context, id string) (*domain.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	report, ok := r.s.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &report, nil
}

func (r reportRepo) ListByReporter(ctx context.Context, reporterID string) ([]domain.Report, error) {
	return r.list(repository.ReportFilter{ReporterID: &reporterID}, false), nil
}

func (r reportRepo) ListWithFilter(_ context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	return r.list(filter, true), nil
}

func (r reportRepo) list(filter repository.ReportFilter, page bool) []domain.Report {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	search := ""
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}
	var result []domain.Report
	for _, report := range r.s.reports {
		if filter.ReporterID != nil && (report.ReporterID == nil || *report.ReporterID != *filter.ReporterID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, report.Status) {
			continue
		}
		if len(filter.Categories) > 0 && !containsCategory(filter.Categories, report.Category) {
			continue
		}
		if filter.CreatedFrom != nil && report.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && report.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(report.Title), search) &&
			!strings.Contains(strings.ToLower(report.Description), search) {
			continue
		}
		result = append(result, report)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if !page {
		return result
	}
	return paginate(result, filter.Limit, filter.Offset, 20)
}

// Delete cascades to evidence, case and history rows like the SQL foreign keys.
func (r reportRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reports[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.reports, id)
	for evID, ev := range r.s.evidence {
		if ev.ReportID == id {
			delete(r.s.evidence, evID)
		}
	}
	for caseID, c := range r.s.cases {
		if c.ReportID == id {
			delete(r.s.cases, caseID)
		}
	}
	kept := r.s.history[:0]
	for _, entry := range r.s.history {
		if entry.ReportID != id {
			kept = append(kept, entry)
		}
	}
	r.s.history = kept
	return nil
}

func containsStatus(statuses []domain.ReportStatus, status domain.ReportStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func containsCategory(categories []domain.ReportCategory, category domain.ReportCategory) bool {
	for _, candidate := range categories {
		if candidate == category {
			return true
		}
	}
	return false
}

type evidenceRepo struct{ s *Store }

func (r evidenceRepo) CreateWithinLimit(_ context.Context, evidence *domain.Evidence, limit int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reports[evidence.ReportID]; !ok {
		return pgx.ErrNoRows
	}
	if r.s.countEvidence(evidence.ReportID) >= limit {
		return repository.ErrEvidenceLimit
	}
	evidence.ID = uuid.NewString()
	evidence.UploadedAt = r.s.now()
	r.s.evidence[evidence.ID] = *evidence
	return nil
}

func (r evidenceRepo) ListByReport(_ context.Context, reportID string) ([]domain.Evidence, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Evidence
	for _, ev := range r.s.evidence {
		if ev.ReportID == reportID {
			result = append(result, ev)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UploadedAt.Before(result[j].UploadedAt) })
	return result, nil
}

func (r evidenceRepo) CountByReport(_ context.Context, reportID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.countEvidence(reportID), nil
}

func (s *Store) countEvidence(reportID string) int {
	count := 0
	for _, ev := range s.evidence {
		if ev.ReportID == reportID {
			count++
		}
	}
	return count
}

type historyRepo struct{ s *Store }

func (r historyRepo) Create(_ context.Context, history *domain.ReportHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	history.ID = uuid.NewString()
	history.CreatedAt = r.s.now()
	r.s.history = append(r.s.history, *history)
	return nil
}

func (r historyRepo) ListByReport(_ context.Context, reportID string) ([]domain.ReportHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.ReportHistory
	for _, entry := range r.s.history {
		if entry.ReportID == reportID {
			result = append(result, entry)
		}
	}
	return result, nil
}
