package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rightsplace/rightsplace/internal/domain"
)

// ReportHistoryRepository stores status transition entries.
type ReportHistoryRepository interface {
	Create(ctx context.Context, history *domain.ReportHistory) error
	ListByReport(ctx context.Context, reportID string) ([]domain.ReportHistory, error)
}

type reportHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewReportHistoryRepository builds repository.
func NewReportHistoryRepository(pool *pgxpool.Pool) ReportHistoryRepository {
	return &reportHistoryRepository{pool: pool}
}

func (r *reportHistoryRepository) Create(ctx context.Context, history *domain.ReportHistory) error {
	const query = `
        INSERT INTO report_history (report_id, changed_by_id, old_value, new_value)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		history.ReportID,
		history.ChangedByID,
		history.OldValue,
		history.NewValue,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *reportHistoryRepository) ListByReport(ctx context.Context, reportID string) ([]domain.ReportHistory, error) {
	const query = `
        SELECT id, report_id, changed_by_id, old_value, new_value, created_at
        FROM report_history WHERE report_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ReportHistory
	for rows.Next() {
		var history domain.ReportHistory
		if err := rows.Scan(
			&history.ID,
			&history.ReportID,
			&history.ChangedByID,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
