package domain

import "time"

// ProfileRole enumerates the kinds of registered participants.
type ProfileRole string

const (
	RoleReporter ProfileRole = "reporter"
	RoleLawyer   ProfileRole = "lawyer"
	RoleNGO      ProfileRole = "ngo"
)

// Valid reports whether the role is one of the known values.
func (r ProfileRole) Valid() bool {
	switch r {
	case RoleReporter, RoleLawyer, RoleNGO:
		return true
	}
	return false
}

// IsPartner reports whether the role can be verified and assigned cases.
func (r ProfileRole) IsPartner() bool {
	return r == RoleLawyer || r == RoleNGO
}

// UserProfile extends a User with role and contact details.
type UserProfile struct {
	ID               string
	UserID           string
	Role             ProfileRole
	IsVerified       bool
	OrganizationName *string
	PhoneNumber      *string
	Email            *string
	Location         *string
	WantsContact     bool
	EnrolmentNumber  *string
	Specialization   *string
	City             *string
	State            *string
	RCNumber         *string
	CreatedAt        time.Time
}

// IsVerifiedPartner reports whether the profile may hold cases.
func (p *UserProfile) IsVerifiedPartner() bool {
	return p != nil && p.Role.IsPartner() && p.IsVerified
}

// VerifiedStatus returns a human-readable verification label.
func (p *UserProfile) VerifiedStatus() string {
	if p.IsVerified {
		return "Verified"
	}
	return "Unverified"
}
