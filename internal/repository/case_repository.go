package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rightsplace/rightsplace/internal/domain"
)

// CaseRepository persists cases and drives the linked report status.
type CaseRepository interface {
	// CreateForReport inserts the case and moves the report to in_progress atomically.
	CreateForReport(ctx context.Context, c *domain.Case) error
	// Resolve marks case and report resolved atomically.
	Resolve(ctx context.Context, caseID string) (*domain.Case, error)
	UpdateNotes(ctx context.Context, c *domain.Case) error
	GetByID(ctx context.Context, id string) (*domain.Case, error)
	GetByReportID(ctx context.Context, reportID string) (*domain.Case, error)
	ListByAssignee(ctx context.Context, assigneeID string) ([]domain.Case, error)
	ListByReports(ctx context.Context, reportIDs []string) ([]domain.Case, error)
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository constructs repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

const selectCaseColumns = `
        SELECT id, report_id, assignee_profile_id, status, status_update, last_contact_date,
               created_at, updated_at, resolved_at
        FROM cases`

func (r *caseRepository) CreateForReport(ctx context.Context, c *domain.Case) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var status domain.ReportStatus
		if err := tx.QueryRow(ctx, `SELECT status FROM reports WHERE id=$1 FOR UPDATE`, c.ReportID).Scan(&status); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM cases WHERE report_id=$1)`, c.ReportID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrCaseExists
		}
		if status != domain.ReportStatusPending {
			return ErrInvalidTransition
		}

		c.Status = domain.ReportStatusInProgress
		const insert = `
            INSERT INTO cases (report_id, assignee_profile_id, status, status_update, last_contact_date)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insert,
			c.ReportID,
			c.AssigneeID,
			c.Status,
			c.StatusUpdate,
			c.LastContactDate,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE reports SET status=$1, updated_at=NOW() WHERE id=$2`, domain.ReportStatusInProgress, c.ReportID)
		return err
	})
	if isUniqueViolation(err) {
		return ErrCaseExists
	}
	return err
}

func (r *caseRepository) Resolve(ctx context.Context, caseID string) (*domain.Case, error) {
	var resolved *domain.Case
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := scanCase(tx.QueryRow(ctx, selectCaseColumns+` WHERE id=$1 FOR UPDATE`, caseID))
		if err != nil {
			return err
		}
		if c.IsResolved() {
			return ErrCaseResolved
		}
		now := time.Now().UTC()
		c.Status = domain.ReportStatusResolved
		c.ResolvedAt = &now
		if err := tx.QueryRow(ctx,
			`UPDATE cases SET status=$1, resolved_at=$2, updated_at=NOW() WHERE id=$3 RETURNING updated_at`,
			c.Status, c.ResolvedAt, c.ID,
		).Scan(&c.UpdatedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE reports SET status=$1, updated_at=NOW() WHERE id=$2`, domain.ReportStatusResolved, c.ReportID); err != nil {
			return err
		}
		resolved = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func (r *caseRepository) UpdateNotes(ctx context.Context, c *domain.Case) error {
	const query = `
        UPDATE cases SET status_update=$1, last_contact_date=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, c.StatusUpdate, c.LastContactDate, c.ID).Scan(&c.UpdatedAt)
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	return scanCase(r.pool.QueryRow(ctx, selectCaseColumns+` WHERE id=$1`, id))
}

func (r *caseRepository) GetByReportID(ctx context.Context, reportID string) (*domain.Case, error) {
	return scanCase(r.pool.QueryRow(ctx, selectCaseColumns+` WHERE report_id=$1`, reportID))
}

func (r *caseRepository) ListByAssignee(ctx context.Context, assigneeID string) ([]domain.Case, error) {
	rows, err := r.pool.Query(ctx, selectCaseColumns+` WHERE assignee_profile_id=$1 ORDER BY created_at DESC`, assigneeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func (r *caseRepository) ListByReports(ctx context.Context, reportIDs []string) ([]domain.Case, error) {
	if len(reportIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, selectCaseColumns+` WHERE report_id = ANY($1)`, reportIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func scanCase(row pgx.Row) (*domain.Case, error) {
	var c domain.Case
	if err := row.Scan(
		&c.ID,
		&c.ReportID,
		&c.AssigneeID,
		&c.Status,
		&c.StatusUpdate,
		&c.LastContactDate,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCases(rows pgx.Rows) ([]domain.Case, error) {
	var result []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}
