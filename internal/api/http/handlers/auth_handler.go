package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rightsplace/rightsplace/internal/api/dto"
	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/service"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

// AuthHandler handles registration, login and account endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.service.Register(c.UserContext(), registrationFrom(req))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, authResponse(session), nil)
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.service.Login(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		return err
	}
	return ok(c, authResponse(session))
}

// ChangePassword POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.ChangePassword(c.UserContext(), principal.Actor(), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "password updated"})
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{
		"user":    dto.NewUserResponse(principal.User),
		"profile": dto.NewProfileResponse(principal.Profile),
	})
}

// registrationFrom picks the registration variant by role; an unknown role
// yields nil, which the service rejects as a field error.
func registrationFrom(req dto.RegisterRequest) service.Registration {
	account := service.AccountFields{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.PhoneNumber,
	}
	switch domain.ProfileRole(strings.ToLower(strings.TrimSpace(string(req.Role)))) {
	case domain.RoleReporter, "":
		return &service.ReporterRegistration{
			AccountFields: account,
			WantsContact:  req.WantsContact,
			Location:      req.Location,
		}
	case domain.RoleLawyer:
		return &service.LawyerRegistration{
			AccountFields:   account,
			EnrolmentNumber: req.EnrolmentNumber,
			Specialization:  req.Specialization,
			City:            req.City,
			State:           req.State,
		}
	case domain.RoleNGO:
		return &service.NGORegistration{
			AccountFields:    account,
			OrganizationName: req.OrganizationName,
			RCNumber:         req.RCNumber,
			City:             req.City,
			State:            req.State,
		}
	}
	return nil
}

func authResponse(session *service.Session) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     session.AccessToken,
		TokenType: "Bearer",
		ExpiresAt: session.Token.ExpiresAt,
		User:      dto.NewUserResponse(session.User),
		Profile:   dto.NewProfileResponse(session.Profile),
	}
}
