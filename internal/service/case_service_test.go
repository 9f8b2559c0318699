package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rightsplace/rightsplace/internal/domain"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

func TestCaseLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ngo := f.member(t, "ngo", domain.RoleNGO, true)
	report := f.submit(t, nil, "Children kept out of school")

	created, err := f.cases.CreateCase(ctx, f.admin, report.Report.ID, ngo.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusInProgress, created.Status)
	assert.Equal(t, ngo.Profile.ID, created.AssigneeID)
	assert.Equal(t, domain.ReportStatusInProgress, f.reportStatus(t, report.Report.ID))

	resolved, err := f.cases.ResolveCase(ctx, f.admin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, domain.ReportStatusResolved, f.reportStatus(t, report.Report.ID))

	_, err = f.cases.ResolveCase(ctx, f.admin, created.ID)
	requireCode(t, err, "CONFLICT")
	assert.Equal(t, domain.ReportStatusResolved, f.reportStatus(t, report.Report.ID))

	history, err := f.reports.History(ctx, f.admin, report.Report.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.ReportStatusPending, history[1].OldValue["status"])
	assert.Equal(t, domain.ReportStatusInProgress, history[1].NewValue["status"])
	assert.Equal(t, domain.ReportStatusResolved, history[2].NewValue["status"])
	require.NotNil(t, history[2].ChangedByID)
	assert.Equal(t, f.admin.User.ID, *history[2].ChangedByID)
}

func TestCreateCaseTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lawyer := f.member(t, "lawyer", domain.RoleLawyer, true)
	other := f.member(t, "other-lawyer", domain.RoleLawyer, true)
	report := f.submit(t, nil, "Torture in custody")

	_, err := f.cases.CreateCase(ctx, f.admin, report.Report.ID, lawyer.Profile.ID)
	require.NoError(t, err)
	_, err = f.cases.CreateCase(ctx, f.admin, report.Report.ID, other.Profile.ID)
	requireCode(t, err, "CONFLICT")

	c, err := f.repos.Cases.GetByReportID(ctx, report.Report.ID)
	require.NoError(t, err)
	assert.Equal(t, lawyer.Profile.ID, c.AssigneeID)
}

func TestCreateCaseTwiceConflictsWhateverTheAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lawyer := f.member(t, "lawyer", domain.RoleLawyer, true)
	unverified := f.member(t, "pending-ngo", domain.RoleNGO, false)
	report := f.submit(t, nil, "Eviction without notice")

	_, err := f.cases.CreateCase(ctx, f.admin, report.Report.ID, lawyer.Profile.ID)
	require.NoError(t, err)

	_, err = f.cases.CreateCase(ctx, f.admin, report.Report.ID, unverified.Profile.ID)
	requireCode(t, err, "CONFLICT")
	_, err = f.cases.CreateCase(ctx, f.admin, report.Report.ID, "missing-profile")
	requireCode(t, err, "CONFLICT")
	_, err = f.cases.CreateCase(ctx, f.admin, report.Report.ID, "00000000-0000-0000-0000-000000000000")
	requireCode(t, err, "CONFLICT")
	assert.Equal(t, domain.ReportStatusInProgress, f.reportStatus(t, report.Report.ID))
}

func TestCreateCaseAfterResolveConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lawyer := f.member(t, "lawyer", domain.RoleLawyer, true)
	report := f.submit(t, nil, "Closed matter")
	created, err := f.cases.CreateCase(ctx, f.admin, report.Report.ID, lawyer.Profile.ID)
	require.NoError(t, err)
	_, err = f.cases.ResolveCase(ctx, f.admin, created.ID)
	require.NoError(t, err)

	_, err = f.cases.CreateCase(ctx, f.admin, report.Report.ID, lawyer.Profile.ID)
	requireCode(t, err, "CONFLICT")
	assert.Equal(t, domain.ReportStatusResolved, f.reportStatus(t, report.Report.ID))
}

func TestCreateCaseConcurrentAdminsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	lawyer := f.member(t, "lawyer", domain.RoleLawyer, true)
	report := f.submit(t, nil, "Race")

	const attempts = 12
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.cases.CreateCase(context.Background(), f.admin, report.Report.ID, lawyer.Profile.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.HasCode(err, "CONFLICT"), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestCreateCaseRejectsIneligibleAssignees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unverified := f.member(t, "new-ngo", domain.RoleNGO, false)
	reporter := f.member(t, "reporter", domain.RoleReporter, false)
	report := f.submit(t, nil, "Needs a partner")

	_, err := f.cases.CreateCase(ctx, f.admin, report.Report.ID, unverified.Profile.ID)
	requireCode(t, err, "FORBIDDEN")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "access denied", domainErr.Message)
	assert.Equal(t, domain.ReportStatusPending, f.reportStatus(t, report.Report.ID))

	_, err = f.cases.CreateCase(ctx, f.admin, report.Report.ID, reporter.Profile.ID)
	requireCode(t, err, "FORBIDDEN")

	_, err = f.repos.Cases.GetByReportID(ctx, report.Report.ID)
	assert.Error(t, err)
}

func TestCreateCaseNotFoundAndPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lawyer := f.member(t, "lawyer", domain.RoleLawyer, true)
	report := f.submit(t, nil, "Something")

	_, err := f.cases.CreateCase(ctx, f.admin, "00000000-0000-0000-0000-000000000000", lawyer.Profile.ID)
	requireCode(t, err, "NOT_FOUND")
	_, err = f.cases.CreateCase(ctx, f.admin, report.Report.ID, "nobody")
	requireCode(t, err, "NOT_FOUND")
	_, err = f.cases.CreateCase(ctx, lawyer, report.Report.ID, lawyer.Profile.ID)
	requireCode(t, err, "FORBIDDEN")
	_, err = f.cases.CreateCase(ctx, nil, report.Report.ID, lawyer.Profile.ID)
	requireCode(t, err, "UNAUTHORIZED")
	_, err = f.cases.ResolveCase(ctx, f.admin, "missing")
	requireCode(t, err, "NOT_FOUND")

	assert.Equal(t, domain.ReportStatusPending, f.reportStatus(t, report.Report.ID))
}

func TestUpdateCaseNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lawyer := f.member(t, "lawyer", domain.RoleLawyer, true)
	report := f.submit(t, nil, "Follow-up needed")
	created, err := f.cases.CreateCase(ctx, f.admin, report.Report.ID, lawyer.Profile.ID)
	require.NoError(t, err)

	note := "  Met the family, filing next week  "
	contacted := time.Now().Add(-24 * time.Hour)
	updated, err := f.cases.UpdateCaseNotes(ctx, f.admin, created.ID, CaseNotesInput{StatusUpdate: &note, LastContactDate: &contacted})
	require.NoError(t, err)
	require.NotNil(t, updated.StatusUpdate)
	assert.Equal(t, "Met the family, filing next week", *updated.StatusUpdate)
	assert.Equal(t, domain.ReportStatusInProgress, updated.Status)

	fetched, err := f.cases.GetCase(ctx, f.admin, created.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.LastContactDate)
	assert.True(t, fetched.LastContactDate.Equal(contacted))

	future := time.Now().Add(72 * time.Hour)
	_, err = f.cases.UpdateCaseNotes(ctx, f.admin, created.ID, CaseNotesInput{LastContactDate: &future})
	requireCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, []string{"last_contact_date"}, fieldErrors(t, err).Names())

	_, err = f.cases.UpdateCaseNotes(ctx, lawyer, created.ID, CaseNotesInput{StatusUpdate: &note})
	requireCode(t, err, "FORBIDDEN")
}
