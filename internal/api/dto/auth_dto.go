package dto

import (
	"time"

	"github.com/rightsplace/rightsplace/internal/domain"
)

// RegisterRequest is the role-discriminated registration payload. Only the
// fields of the selected role are read.
type RegisterRequest struct {
	Role             domain.ProfileRole `json:"role" form:"role"`
	Username         string             `json:"username" form:"username"`
	Password         string             `json:"password" form:"password"`
	FirstName        string             `json:"first_name" form:"first_name"`
	LastName         string             `json:"last_name" form:"last_name"`
	Email            string             `json:"email" form:"email"`
	PhoneNumber      string             `json:"phone_number" form:"phone_number"`
	WantsContact     bool               `json:"wants_contact" form:"wants_contact"`
	Location         string             `json:"location" form:"location"`
	EnrolmentNumber  string             `json:"enrolment_number" form:"enrolment_number"`
	Specialization   string             `json:"specialization" form:"specialization"`
	City             string             `json:"city" form:"city"`
	State            string             `json:"state" form:"state"`
	OrganizationName string             `json:"organization_name" form:"organization_name"`
	RCNumber         string             `json:"rc_number" form:"rc_number"`
}

// LoginRequest accepts a username or an email as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
	Password   string `json:"password" form:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string           `json:"token"`
	TokenType string           `json:"token_type"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      UserResponse     `json:"user"`
	Profile   *ProfileResponse `json:"profile,omitempty"`
}

// UserResponse exposes the account without credentials.
type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
}

// ProfileResponse is the owner/admin view of a profile.
type ProfileResponse struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	Role             domain.ProfileRole `json:"role"`
	IsVerified       bool               `json:"is_verified"`
	VerifiedStatus   string             `json:"verified_status"`
	OrganizationName *string            `json:"organization_name,omitempty"`
	PhoneNumber      *string            `json:"phone_number,omitempty"`
	Email            *string            `json:"email,omitempty"`
	Location         *string            `json:"location,omitempty"`
	WantsContact     bool               `json:"wants_contact"`
	EnrolmentNumber  *string            `json:"enrolment_number,omitempty"`
	Specialization   *string            `json:"specialization,omitempty"`
	City             *string            `json:"city,omitempty"`
	State            *string            `json:"state,omitempty"`
	RCNumber         *string            `json:"rc_number,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// PartnerResponse is the public listing entry of a verified partner.
type PartnerResponse struct {
	ID               string             `json:"id"`
	Role             domain.ProfileRole `json:"role"`
	OrganizationName *string            `json:"organization_name,omitempty"`
	Specialization   *string            `json:"specialization,omitempty"`
	City             *string            `json:"city,omitempty"`
	State            *string            `json:"state,omitempty"`
	Email            *string            `json:"email,omitempty"`
	PhoneNumber      *string            `json:"phone_number,omitempty"`
}

// NewUserResponse maps a user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsAdmin:   user.IsAdmin,
	}
}

// NewProfileResponse maps a profile; nil stays nil.
func NewProfileResponse(profile *domain.UserProfile) *ProfileResponse {
	if profile == nil {
		return nil
	}
	return &ProfileResponse{
		ID:               profile.ID,
		UserID:           profile.UserID,
		Role:             profile.Role,
		IsVerified:       profile.IsVerified,
		VerifiedStatus:   profile.VerifiedStatus(),
		OrganizationName: profile.OrganizationName,
		PhoneNumber:      profile.PhoneNumber,
		Email:            profile.Email,
		Location:         profile.Location,
		WantsContact:     profile.WantsContact,
		EnrolmentNumber:  profile.EnrolmentNumber,
		Specialization:   profile.Specialization,
		City:             profile.City,
		State:            profile.State,
		RCNumber:         profile.RCNumber,
		CreatedAt:        profile.CreatedAt,
	}
}

// NewPartnerResponse maps a verified partner for the listing.
func NewPartnerResponse(profile domain.UserProfile) PartnerResponse {
	return PartnerResponse{
		ID:               profile.ID,
		Role:             profile.Role,
		OrganizationName: profile.OrganizationName,
		Specialization:   profile.Specialization,
		City:             profile.City,
		State:            profile.State,
		Email:            profile.Email,
		PhoneNumber:      profile.PhoneNumber,
	}
}
