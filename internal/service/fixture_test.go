package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rightsplace/rightsplace/internal/config"
	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/events"
	"github.com/rightsplace/rightsplace/internal/observability"
	"github.com/rightsplace/rightsplace/internal/repository"
	"github.com/rightsplace/rightsplace/internal/repository/memory"
	"github.com/rightsplace/rightsplace/internal/storage"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

const mb = 1 << 20

type fixture struct {
	repos        repository.Repositories
	blobs        *storage.LocalStore
	dispatcher   events.Dispatcher
	mu           sync.Mutex
	published    []events.Event
	auth         *AuthService
	evidence     *EvidenceService
	reports      *ReportService
	cases        *CaseService
	verification *VerificationService
	dashboard    *DashboardService
	admin        *domain.Actor
}

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxFiles:        20,
		MaxFileSizeMB:   100,
		EvidenceField:   "evidence_files",
		AllowedPrefixes: []string{"image/", "video/", "audio/"},
		AllowedTypes:    []string{"application/pdf", "text/plain"},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithBlobs(t, nil)
}

func newFixtureWithBlobs(t *testing.T, blobs storage.BlobStore) *fixture {
	t.Helper()
	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	if blobs == nil {
		blobs = local
	}

	f := &fixture{
		repos:      memory.NewStore().Repositories(),
		blobs:      local,
		dispatcher: events.NewInMemoryDispatcher(),
	}
	for _, eventType := range []events.EventType{
		events.EventReportSubmitted, events.EventEvidenceAttached, events.EventReportDeleted,
		events.EventCaseCreated, events.EventCaseResolved, events.EventCaseUpdated, events.EventPartnerVerified,
	} {
		f.dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.published = append(f.published, e)
			return nil
		})
	}

	metrics := observability.NewMetrics()
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}}
	f.auth = NewAuthService(cfg, AuthDependencies{UserRepo: f.repos.Users, ProfileRepo: f.repos.Profiles})
	f.evidence = NewEvidenceService(EvidenceDependencies{
		EvidenceRepo: f.repos.Evidence,
		ReportRepo:   f.repos.Reports,
		Blobs:        blobs,
		Upload:       testUploadConfig(),
		Metrics:      metrics,
		Dispatcher:   f.dispatcher,
	})
	f.reports = NewReportService(ReportDependencies{
		ReportRepo:      f.repos.Reports,
		CaseRepo:        f.repos.Cases,
		HistoryRepo:     f.repos.History,
		EvidenceService: f.evidence,
		Metrics:         metrics,
		Dispatcher:      f.dispatcher,
	})
	f.cases = NewCaseService(CaseDependencies{
		CaseRepo:    f.repos.Cases,
		ReportRepo:  f.repos.Reports,
		ProfileRepo: f.repos.Profiles,
		HistoryRepo: f.repos.History,
		Metrics:     metrics,
		Dispatcher:  f.dispatcher,
	})
	f.verification = NewVerificationService(VerificationDependencies{
		ProfileRepo: f.repos.Profiles,
		Dispatcher:  f.dispatcher,
	})
	f.dashboard = NewDashboardService(DashboardDependencies{ReportRepo: f.repos.Reports, CaseRepo: f.repos.Cases})

	admin := &domain.User{Username: "admin", IsAdmin: true}
	require.NoError(t, f.repos.Users.Create(context.Background(), admin))
	f.admin = &domain.Actor{User: admin}
	return f
}

func (f *fixture) member(t *testing.T, username string, role domain.ProfileRole, verified bool) *domain.Actor {
	t.Helper()
	user := &domain.User{Username: username}
	profile := &domain.UserProfile{Role: role}
	require.NoError(t, f.repos.Users.CreateWithProfile(context.Background(), user, profile))
	if verified {
		require.NoError(t, f.repos.Profiles.SetVerified(context.Background(), profile.ID, true))
		profile.IsVerified = true
	}
	return &domain.Actor{User: user, Profile: profile}
}

func (f *fixture) submit(t *testing.T, actor *domain.Actor, description string, files ...EvidenceFile) *SubmissionResult {
	t.Helper()
	result, err := f.reports.SubmitReport(context.Background(), actor, ReportSubmission{Description: description}, files)
	require.NoError(t, err)
	return result
}

func (f *fixture) reportStatus(t *testing.T, reportID string) domain.ReportStatus {
	t.Helper()
	report, err := f.repos.Reports.GetByID(context.Background(), reportID)
	require.NoError(t, err)
	return report.Status
}

func memFile(name, contentType string, size int) EvidenceFile {
	data := bytes.Repeat([]byte{'x'}, size)
	return EvidenceFile{
		FileName:    name,
		ContentType: contentType,
		Size:        int64(size),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// hugeFile declares a size without backing data; opening it fails the test.
func hugeFile(t *testing.T, name string, size int64) EvidenceFile {
	return EvidenceFile{
		FileName:    name,
		ContentType: "video/mp4",
		Size:        size,
		Open: func() (io.ReadCloser, error) {
			t.Errorf("%s should never be read", name)
			return nil, errors.New("unexpected open")
		},
	}
}

func smallFiles(n int) []EvidenceFile {
	files := make([]EvidenceFile, n)
	for i := range files {
		files[i] = memFile(fmt.Sprintf("photo-%02d.jpg", i), "image/jpeg", 128)
	}
	return files
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func fieldErrors(t *testing.T, err error) apperrors.FieldErrors {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Fields
}

type failingBlobStore struct {
	puts    int
	failOn  int
	deleted []string
	storage.BlobStore
}

func (s *failingBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	s.puts++
	if s.puts == s.failOn {
		return errors.New("disk full")
	}
	return s.BlobStore.Put(ctx, key, body, size, contentType)
}

func (s *failingBlobStore) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return s.BlobStore.Delete(ctx, key)
}
