package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rightsplace/rightsplace/internal/config"
	"github.com/rightsplace/rightsplace/internal/domain"
)

func partnerAccount(username string) AccountFields {
	return AccountFields{
		Username:  username,
		Password:  "correct horse battery",
		FirstName: "Ngozi",
		LastName:  "Okafor",
		Email:     username + "@example.org",
		Phone:     "+2348000000000",
	}
}

func TestRegisterReporterWithoutContact(t *testing.T) {
	f := newFixture(t)

	session, err := f.auth.Register(context.Background(), &ReporterRegistration{
		AccountFields: AccountFields{Username: "quiet", Password: "longenough"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	require.NotNil(t, session.Profile)
	assert.Equal(t, domain.RoleReporter, session.Profile.Role)
	assert.False(t, session.Profile.IsVerified)
	assert.Equal(t, domain.SubjectTypeUser, session.Token.Subject)

	claims, err := f.auth.TokenManager().ParseToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.SubjectID)
}

func TestRegisterValidationByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, &ReporterRegistration{
		AccountFields: AccountFields{Username: "contactme", Password: "longenough"},
		WantsContact:  true,
	})
	requireCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, []string{"email", "first_name", "last_name", "phone_number"}, fieldErrors(t, err).Names())

	account := partnerAccount("lawyer")
	account.Email = ""
	_, err = f.auth.Register(ctx, &LawyerRegistration{AccountFields: account})
	requireCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, []string{"email", "enrolment_number"}, fieldErrors(t, err).Names())

	_, err = f.auth.Register(ctx, &NGORegistration{AccountFields: partnerAccount("ngo")})
	requireCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, []string{"organization_name", "rc_number"}, fieldErrors(t, err).Names())

	_, err = f.auth.Register(ctx, &ReporterRegistration{AccountFields: AccountFields{Username: "short", Password: "123"}})
	requireCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, []string{"password"}, fieldErrors(t, err).Names())

	_, err = f.auth.Register(ctx, nil)
	requireCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, []string{"role"}, fieldErrors(t, err).Names())
}

func TestRegisterPartnersStartUnverified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lawyer, err := f.auth.Register(ctx, &LawyerRegistration{
		AccountFields:   partnerAccount("adebayo"),
		EnrolmentNumber: "SCN/123/2019",
		Specialization:  "Human rights",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLawyer, lawyer.Profile.Role)
	assert.False(t, lawyer.Profile.IsVerified)
	require.NotNil(t, lawyer.Profile.EnrolmentNumber)

	ngo, err := f.auth.Register(ctx, &NGORegistration{
		AccountFields:    partnerAccount("justice-ngo"),
		OrganizationName: "Justice Now",
		RCNumber:         "RC-998877",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNGO, ngo.Profile.Role)
	require.NotNil(t, ngo.Profile.OrganizationName)
	assert.Equal(t, "Justice Now", *ngo.Profile.OrganizationName)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := &ReporterRegistration{AccountFields: AccountFields{Username: "taken", Password: "longenough"}}
	_, err := f.auth.Register(ctx, reg)
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, &ReporterRegistration{AccountFields: AccountFields{Username: "taken", Password: "longenough"}})
	requireCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, []string{"username"}, fieldErrors(t, err).Names())
}

func TestLoginByUsernameOrEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, &LawyerRegistration{AccountFields: partnerAccount("chioma"), EnrolmentNumber: "SCN/1"})
	require.NoError(t, err)

	byName, err := f.auth.Login(ctx, "chioma", "correct horse battery")
	require.NoError(t, err)
	require.NotNil(t, byName.Profile)
	assert.Equal(t, domain.RoleLawyer, byName.Profile.Role)

	byEmail, err := f.auth.Login(ctx, "CHIOMA@example.org", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, byName.User.ID, byEmail.User.ID)

	_, err = f.auth.Login(ctx, "chioma", "wrong password")
	requireCode(t, err, "UNAUTHORIZED")
	_, err = f.auth.Login(ctx, "nobody", "whatever")
	requireCode(t, err, "UNAUTHORIZED")
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, err := f.auth.Register(ctx, &ReporterRegistration{AccountFields: AccountFields{Username: "changer", Password: "first-password"}})
	require.NoError(t, err)
	actor := &domain.Actor{User: session.User, Profile: session.Profile}

	err = f.auth.ChangePassword(ctx, actor, "wrong", "second-password")
	requireCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, []string{"current_password"}, fieldErrors(t, err).Names())

	require.NoError(t, f.auth.ChangePassword(ctx, actor, "first-password", "second-password"))
	_, err = f.auth.Login(ctx, "changer", "first-password")
	requireCode(t, err, "UNAUTHORIZED")
	_, err = f.auth.Login(ctx, "changer", "second-password")
	require.NoError(t, err)

	requireCode(t, f.auth.ChangePassword(ctx, nil, "a", "b"), "UNAUTHORIZED")
}

func TestBootstrapAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := config.BootstrapConfig{Enabled: true, Username: "root", Email: "root@example.org", Password: "bootstrap-pass"}

	require.NoError(t, f.auth.BootstrapAdmin(ctx, cfg))
	require.NoError(t, f.auth.BootstrapAdmin(ctx, cfg))

	session, err := f.auth.Login(ctx, "root", "bootstrap-pass")
	require.NoError(t, err)
	assert.True(t, session.User.IsAdmin)
	assert.Nil(t, session.Profile)
	assert.Equal(t, domain.SubjectTypeAdmin, session.Token.Subject)

	_, err = f.auth.Register(ctx, &ReporterRegistration{AccountFields: AccountFields{Username: "promote-me", Password: "longenough"}})
	require.NoError(t, err)
	require.NoError(t, f.auth.BootstrapAdmin(ctx, config.BootstrapConfig{Enabled: true, Username: "promote-me", Password: "ignored-pass"}))
	promoted, err := f.repos.Users.GetByUsername(ctx, "promote-me")
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)

	require.NoError(t, f.auth.BootstrapAdmin(ctx, config.BootstrapConfig{}))
	assert.Error(t, f.auth.BootstrapAdmin(ctx, config.BootstrapConfig{Enabled: true}))
}
