package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups one implementation of every repository.
type Repositories struct {
	Users    UserRepository
	Profiles ProfileRepository
	Reports  ReportRepository
	Evidence EvidenceRepository
	Cases    CaseRepository
	History  ReportHistoryRepository
}

// NewPostgresRepositories builds the pgx-backed set.
func NewPostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:    NewUserRepository(pool),
		Profiles: NewProfileRepository(pool),
		Reports:  NewReportRepository(pool),
		Evidence: NewEvidenceRepository(pool),
		Cases:    NewCaseRepository(pool),
		History:  NewReportHistoryRepository(pool),
	}
}
