package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rightsplace/rightsplace/internal/domain"
)

// ProfileRepository handles persistence for user profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.UserProfile) error
	GetByID(ctx context.Context, id string) (*domain.UserProfile, error)
	GetByUserID(ctx context.Context, userID string) (*domain.UserProfile, error)
	SetVerified(ctx context.Context, id string, verified bool) error
	List(ctx context.Context, filter ProfileFilter) ([]domain.UserProfile, error)
}

// ProfileFilter defines query params for profile listing.
type ProfileFilter struct {
	Roles    []domain.ProfileRole
	Verified *bool
	Limit    int
	Offset   int
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository instantiates the repository.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const selectProfileColumns = `
        SELECT id, user_id, role, is_verified, organization_name, phone_number, email, location,
               wants_contact, enrolment_number, specialization, city, state, rc_number, created_at
        FROM user_profiles`

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertProfile(ctx context.Context, q rowQuerier, profile *domain.UserProfile) error {
	const query = `
        INSERT INTO user_profiles (user_id, role, is_verified, organization_name, phone_number, email, location,
                                   wants_contact, enrolment_number, specialization, city, state, rc_number)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		profile.UserID,
		profile.Role,
		profile.IsVerified,
		profile.OrganizationName,
		profile.PhoneNumber,
		profile.Email,
		profile.Location,
		profile.WantsContact,
		profile.EnrolmentNumber,
		profile.Specialization,
		profile.City,
		profile.State,
		profile.RCNumber,
	).Scan(&profile.ID, &profile.CreatedAt)
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.UserProfile) error {
	err := insertProfile(ctx, r.pool, profile)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	return scanProfile(r.pool.QueryRow(ctx, selectProfileColumns+` WHERE id=$1`, id))
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return scanProfile(r.pool.QueryRow(ctx, selectProfileColumns+` WHERE user_id=$1`, userID))
}

func (r *profileRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE user_profiles SET is_verified=$1 WHERE id=$2`, verified, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *profileRepository) List(ctx context.Context, filter ProfileFilter) ([]domain.UserProfile, error) {
	query := selectProfileColumns
	args := []any{}
	clauses := []string{}

	if len(filter.Roles) > 0 {
		placeholders := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			args = append(args, role)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("role IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		clauses = append(clauses, fmt.Sprintf("is_verified=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UserProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *profile)
	}
	return result, rows.Err()
}

func scanProfile(row pgx.Row) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Role,
		&profile.IsVerified,
		&profile.OrganizationName,
		&profile.PhoneNumber,
		&profile.Email,
		&profile.Location,
		&profile.WantsContact,
		&profile.EnrolmentNumber,
		&profile.Specialization,
		&profile.City,
		&profile.State,
		&profile.RCNumber,
		&profile.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}
