// Package memory provides process-local repository implementations used when
// no Postgres DSN is configured and in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/repository"
)

// Store holds every aggregate behind a single lock so multi-row operations stay atomic.
type Store struct {
	mu       sync.RWMutex
	last     time.Time
	users    map[string]domain.User
	profiles map[string]domain.UserProfile
	reports  map[string]domain.Report
	evidence map[string]domain.Evidence
	cases    map[string]domain.Case
	history  []domain.ReportHistory
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		profiles: make(map[string]domain.UserProfile),
		reports:  make(map[string]domain.Report),
		evidence: make(map[string]domain.Evidence),
		cases:    make(map[string]domain.Case),
	}
}

// now returns strictly increasing timestamps so orderings are deterministic. Callers hold mu.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// Repositories returns the full set backed by this store.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:    s.Users(),
		Profiles: s.Profiles(),
		Reports:  s.Reports(),
		Evidence: s.Evidence(),
		Cases:    s.Cases(),
		History:  s.History(),
	}
}

func (s *Store) Users() repository.UserRepository            { return userRepo{s} }
func (s *Store) Profiles() repository.ProfileRepository      { return profileRepo{s} }
func (s *Store) Reports() repository.ReportRepository        { return reportRepo{s} }
func (s *Store) Evidence() repository.EvidenceRepository     { return evidenceRepo{s} }
func (s *Store) Cases() repository.CaseRepository            { return caseRepo{s} }
func (s *Store) History() repository.ReportHistoryRepository { return historyRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertUser(user)
}

func (s *Store) insertUser(user *domain.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	return nil
}

func (r userRepo) CreateWithProfile(_ context.Context, user *domain.User, profile *domain.UserProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.insertUser(user); err != nil {
		return err
	}
	profile.UserID = user.ID
	r.s.insertProfile(profile)
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *domain.User
	for _, user := range r.s.users {
		if user.Email == "" || !strings.EqualFold(user.Email, email) {
			continue
		}
		if found == nil || user.CreatedAt.Before(found.CreatedAt) {
			u := user
			found = &u
		}
	}
	if found == nil {
		return nil, pgx.ErrNoRows
	}
	return found, nil
}

type profileRepo struct{ s *Store }

func (s *Store) insertProfile(profile *domain.UserProfile) {
	profile.ID = uuid.NewString()
	profile.CreatedAt = s.now()
	s.profiles[profile.ID] = *profile
}

func (r profileRepo) Create(_ context.Context, profile *domain.UserProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.profiles {
		if existing.UserID == profile.UserID {
			return repository.ErrDuplicate
		}
	}
	r.s.insertProfile(profile)
	return nil
}

func (r profileRepo) GetByID(_ context.Context, id string) (*domain.UserProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	profile, ok := r.s.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &profile, nil
}

func (r profileRepo) GetByUserID(_ context.Context, userID string) (*domain.UserProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, profile := range r.s.profiles {
		if profile.UserID == userID {
			p := profile
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r profileRepo) SetVerified(_ context.Context, id string, verified bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	profile, ok := r.s.profiles[id]
	if !ok {
		return pgx.ErrNoRows
	}
	profile.IsVerified = verified
	r.s.profiles[id] = profile
	return nil
}

func (r profileRepo) List(_ context.Context, filter repository.ProfileFilter) ([]domain.UserProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.UserProfile
	for _, profile := range r.s.profiles {
		if len(filter.Roles) > 0 && !containsRole(filter.Roles, profile.Role) {
			continue
		}
		if filter.Verified != nil && profile.IsVerified != *filter.Verified {
			continue
		}
		result = append(result, profile)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return paginate(result, filter.Limit, filter.Offset, 500), nil
}

func containsRole(roles []domain.ProfileRole, role domain.ProfileRole) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset, def int) []T {
	if limit <= 0 {
		limit = def
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
