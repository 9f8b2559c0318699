package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/repository"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	User        *domain.User
	Profile     *domain.UserProfile
}

// Actor converts the principal for service calls.
func (p *Principal) Actor() *domain.Actor {
	if p == nil {
		return nil
	}
	return &domain.Actor{User: p.User, Profile: p.Profile}
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	users    repository.UserRepository
	profiles repository.ProfileRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, profiles repository.ProfileRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, profiles: profiles}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}
	if err := m.authenticate(c, authHeader); err != nil {
		return err
	}
	return c.Next()
}

// Optional loads a principal when a bearer token is present and lets
// anonymous requests through. An invalid token is still rejected.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Next()
	}
	if err := m.authenticate(c, authHeader); err != nil {
		return err
	}
	return c.Next()
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx, authHeader string) error {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}

	principal := &Principal{SubjectType: claims.Subject, User: user}
	switch claims.Subject {
	case domain.SubjectTypeAdmin:
		// The flag may have been revoked since the token was issued.
		if !user.IsAdmin {
			return apperrors.NewUnauthorized("invalid token")
		}
	case domain.SubjectTypeUser:
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	profile, err := m.profiles.GetByUserID(c.UserContext(), user.ID)
	switch {
	case err == nil:
		principal.Profile = profile
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, principal)
	return nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
