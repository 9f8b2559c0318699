package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rightsplace/rightsplace/internal/auth"
	"github.com/rightsplace/rightsplace/internal/config"
	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/repository"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 150
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	profiles   repository.ProfileRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	ProfileRepo repository.ProfileRepository
	Logger      *zap.Logger
}

// AccountFields are shared by every registration form.
type AccountFields struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Registration is one of ReporterRegistration, LawyerRegistration or NGORegistration.
type Registration interface {
	Role() domain.ProfileRole
	account() *AccountFields
	validate(fields apperrors.FieldErrors)
	profile() *domain.UserProfile
}

// ReporterRegistration registers a reporter. Contact details are only required
// when the reporter opts into follow-up contact.
type ReporterRegistration struct {
	AccountFields
	WantsContact bool
	Location     string
}

// LawyerRegistration registers a lawyer awaiting verification.
type LawyerRegistration struct {
	AccountFields
	EnrolmentNumber string
	Specialization  string
	City            string
	State           string
}

// NGORegistration registers an NGO representative awaiting verification.
type NGORegistration struct {
	AccountFields
	OrganizationName string
	RCNumber         string
	City             string
	State            string
}

func (r *ReporterRegistration) Role() domain.ProfileRole { return domain.RoleReporter }
func (r *LawyerRegistration) Role() domain.ProfileRole   { return domain.RoleLawyer }
func (r *NGORegistration) Role() domain.ProfileRole      { return domain.RoleNGO }

func (r *ReporterRegistration) account() *AccountFields { return &r.AccountFields }
func (r *LawyerRegistration) account() *AccountFields   { return &r.AccountFields }
func (r *NGORegistration) account() *AccountFields      { return &r.AccountFields }

func (r *ReporterRegistration) validate(fields apperrors.FieldErrors) {
	if !r.WantsContact {
		return
	}
	requireField(fields, "first_name", r.FirstName)
	requireField(fields, "last_name", r.LastName)
	requireField(fields, "email", r.Email)
	requireField(fields, "phone_number", r.Phone)
}

func (r *LawyerRegistration) validate(fields apperrors.FieldErrors) {
	requirePartnerContact(fields, &r.AccountFields)
	requireField(fields, "enrolment_number", r.EnrolmentNumber)
}

func (r *NGORegistration) validate(fields apperrors.FieldErrors) {
	requirePartnerContact(fields, &r.AccountFields)
	requireField(fields, "organization_name", r.OrganizationName)
	requireField(fields, "rc_number", r.RCNumber)
}

func (r *ReporterRegistration) profile() *domain.UserProfile {
	return &domain.UserProfile{
		Role:         domain.RoleReporter,
		Email:        optional(r.Email),
		PhoneNumber:  optional(r.Phone),
		Location:     optional(r.Location),
		WantsContact: r.WantsContact,
	}
}

func (r *LawyerRegistration) profile() *domain.UserProfile {
	return &domain.UserProfile{
		Role:            domain.RoleLawyer,
		Email:           optional(r.Email),
		PhoneNumber:     optional(r.Phone),
		EnrolmentNumber: optional(r.EnrolmentNumber),
		Specialization:  optional(r.Specialization),
		City:            optional(r.City),
		State:           optional(r.State),
	}
}

func (r *NGORegistration) profile() *domain.UserProfile {
	return &domain.UserProfile{
		Role:             domain.RoleNGO,
		Email:            optional(r.Email),
		PhoneNumber:      optional(r.Phone),
		OrganizationName: optional(r.OrganizationName),
		RCNumber:         optional(r.RCNumber),
		City:             optional(r.City),
		State:            optional(r.State),
	}
}

// Session is the outcome of a successful registration or login.
type Session struct {
	User        *domain.User
	Profile     *domain.UserProfile
	AccessToken string
	Token       *domain.Token
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		profiles:   deps.ProfileRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     nopLogger(deps.Logger),
	}
}

// Register creates the account and its role profile in one step. New lawyers
// and NGOs always start unverified.
func (s *AuthService) Register(ctx context.Context, reg Registration) (*Session, error) {
	if reg == nil {
		return nil, apperrors.NewFieldError("role", "Select a valid choice.")
	}
	account := reg.account()
	normalizeAccount(account)

	fields := apperrors.FieldErrors{}
	validateAccount(fields, account)
	reg.validate(fields)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByUsername(ctx, account.Username); err == nil {
		return nil, apperrors.NewFieldError("username", "A user with that username already exists.")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(account.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     account.Username,
		Email:        account.Email,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		PasswordHash: hash,
	}
	profile := reg.profile()
	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewFieldError("username", "A user with that username already exists.")
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("account registered",
		zap.String("user_id", user.ID),
		zap.String("profile_id", profile.ID),
		zap.String("role", string(profile.Role)))
	return s.issue(user, profile)
}

// Login accepts a username or an email address as identifier.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, invalidCredentials()
	}

	user, err := s.users.GetByUsername(ctx, identifier)
	if errors.Is(err, pgx.ErrNoRows) && strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invalidCredentials()
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, invalidCredentials()
	}

	profile, err := s.profiles.GetByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	return s.issue(user, profile)
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.Actor, currentPassword, newPassword string) error {
	if actor == nil || actor.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if len(newPassword) < minPasswordLength {
		return apperrors.NewFieldError("new_password", "This password is too short. It must contain at least 8 characters.")
	}
	user, err := s.users.GetByID(ctx, actor.User.ID)
	if err != nil {
		return notFoundOr(err, "user", nil)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewFieldError("current_password", "Your current password was entered incorrectly.")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// BootstrapAdmin creates the configured administrator once. An existing
// account with the same username is promoted instead of duplicated.
func (s *AuthService) BootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) error {
	if !cfg.Enabled {
		return nil
	}
	username := strings.TrimSpace(cfg.Username)
	if username == "" || cfg.Password == "" {
		return errors.New("BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD are required")
	}

	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.IsAdmin {
			s.logger.Info("bootstrap admin already present", zap.String("username", username))
			return nil
		}
		existing.IsAdmin = true
		if err := s.users.Update(ctx, existing); err != nil {
			return err
		}
		s.logger.Info("bootstrap admin promoted", zap.String("username", username))
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	hash, err := auth.HashPassword(cfg.Password, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.User{
		Username:     username,
		Email:        strings.TrimSpace(cfg.Email),
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("username", username))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User, profile *domain.UserProfile) (*Session, error) {
	subject := domain.SubjectTypeUser
	if user.IsAdmin {
		subject = domain.SubjectTypeAdmin
	}
	token, signed, err := s.tokenMgr.GenerateToken(user.ID, subject)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Profile: profile, AccessToken: signed, Token: token}, nil
}

func invalidCredentials() error {
	return apperrors.NewUnauthorized("Invalid username/email or password.")
}

func normalizeAccount(account *AccountFields) {
	account.Username = strings.TrimSpace(account.Username)
	account.FirstName = strings.TrimSpace(account.FirstName)
	account.LastName = strings.TrimSpace(account.LastName)
	account.Email = strings.TrimSpace(account.Email)
	account.Phone = strings.TrimSpace(account.Phone)
}

func validateAccount(fields apperrors.FieldErrors, account *AccountFields) {
	switch {
	case account.Username == "":
		fields.Add("username", "This field is required.")
	case utf8.RuneCountInString(account.Username) > maxUsernameLength:
		fields.Add("username", "Ensure this value has at most 150 characters.")
	case strings.ContainsAny(account.Username, " \t\n"):
		fields.Add("username", "Enter a valid username.")
	}
	if len(account.Password) < minPasswordLength {
		fields.Add("password", "This password is too short. It must contain at least 8 characters.")
	}
	if account.Email != "" && !validEmail(account.Email) {
		fields.Add("email", "Enter a valid email address.")
	}
	if utf8.RuneCountInString(account.Phone) > maxPhoneLength {
		fields.Add("phone_number", "Ensure this value has at most 20 characters.")
	}
}

// requirePartnerContact applies the rule that lawyers and NGOs give a name, email and phone.
func requirePartnerContact(fields apperrors.FieldErrors, account *AccountFields) {
	requireField(fields, "first_name", account.FirstName)
	requireField(fields, "last_name", account.LastName)
	requireField(fields, "email", account.Email)
	requireField(fields, "phone_number", account.Phone)
}

func requireField(fields apperrors.FieldErrors, name, value string) {
	if strings.TrimSpace(value) == "" {
		if _, exists := fields[name]; !exists {
			fields.Add(name, "This field is required.")
		}
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
