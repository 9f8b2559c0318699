package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rightsplace/rightsplace/internal/domain"
)

// EvidenceRepository persists evidence metadata.
type EvidenceRepository interface {
	// CreateWithinLimit inserts the row only while the report holds fewer than limit items.
	CreateWithinLimit(ctx context.Context, evidence *domain.Evidence, limit int) error
	ListByReport(ctx context.Context, reportID string) ([]domain.Evidence, error)
	CountByReport(ctx context.Context, reportID string) (int, error)
}

type evidenceRepository struct {
	pool *pgxpool.Pool
}

// NewEvidenceRepository constructs repository.
func NewEvidenceRepository(pool *pgxpool.Pool) EvidenceRepository {
	return &evidenceRepository{pool: pool}
}

func (r *evidenceRepository) CreateWithinLimit(ctx context.Context, evidence *domain.Evidence, limit int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Serialises concurrent attachments to the same report.
		var reportID string
		if err := tx.QueryRow(ctx, `SELECT id FROM reports WHERE id=$1 FOR UPDATE`, evidence.ReportID).Scan(&reportID); err != nil {
			return err
		}
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM evidence WHERE report_id=$1`, reportID).Scan(&count); err != nil {
			return err
		}
		if count >= limit {
			return ErrEvidenceLimit
		}
		const insert = `
            INSERT INTO evidence (report_id, storage_key, file_name, content_type, size_bytes, caption)
            VALUES ($1,$2,$3,$4,$5,$6)
            RETURNING id, uploaded_at`
		return tx.QueryRow(ctx, insert,
			evidence.ReportID,
			evidence.StorageKey,
			evidence.FileName,
			evidence.ContentType,
			evidence.SizeBytes,
			evidence.Caption,
		).Scan(&evidence.ID, &evidence.UploadedAt)
	})
}

func (r *evidenceRepository) ListByReport(ctx context.Context, reportID string) ([]domain.Evidence, error) {
	const query = `
        SELECT id, report_id, storage_key, file_name, content_type, size_bytes, caption, uploaded_at
        FROM evidence WHERE report_id=$1 ORDER BY uploaded_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Evidence
	for rows.Next() {
		var evidence domain.Evidence
		if err := rows.Scan(
			&evidence.ID,
			&evidence.ReportID,
			&evidence.StorageKey,
			&evidence.FileName,
			&evidence.ContentType,
			&evidence.SizeBytes,
			&evidence.Caption,
			&evidence.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, evidence)
	}
	return result, rows.Err()
}

func (r *evidenceRepository) CountByReport(ctx context.Context, reportID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM evidence WHERE report_id=$1`, reportID).Scan(&count)
	return count, err
}
