package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's platform role.
type Role string

const (
	// RolePlatformAdmin may operate unscoped across all tenants.
	RolePlatformAdmin Role = "platform_admin"
	RoleOrgAdmin      Role = "org_admin"
	RoleStaff         Role = "staff"
)

// User represents a platform user. Phone-only users (OTP login) have an empty
// email and no password hash.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone,omitempty"`
	Password       string     `json:"-"`
	FullName       string     `json:"full_name"`
	Role           Role       `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone,omitempty"`
	FullName       string     `json:"full_name"`
	Role           Role       `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:             u.ID,
		Email:          u.Email,
		Phone:          u.Phone,
		FullName:       u.FullName,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		CreatedAt:      u.CreatedAt,
	}
}
