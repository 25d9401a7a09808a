package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// User statuses
const (
	UserActive    = "active"
	UserInactive  = "inactive"
	UserSuspended = "suspended"
)

// User represents the account. Email is unique within a tenant.
type User struct {
	Base
	TenantID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_users_tenant_email" json:"tenant_id"`
	Email               string     `gorm:"size:255;not null;uniqueIndex:idx_users_tenant_email;index" json:"email"`
	PasswordHash        string     `gorm:"size:255;not null" json:"-"`
	FirstName           string     `gorm:"size:100" json:"first_name"`
	LastName            string     `gorm:"size:100" json:"last_name"`
	Role                string     `gorm:"size:20;default:user" json:"role"`
	Status              string     `gorm:"size:20;default:active" json:"status"`
	LanguagePreference  string     `gorm:"size:10;default:en" json:"language_preference"`
	Timezone            string     `gorm:"size:50;default:UTC" json:"timezone"`
	LastLogin           *time.Time `json:"last_login"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	MFAEnabled          bool       `gorm:"default:false" json:"mfa_enabled"`
	EmailVerifiedAt     *time.Time `json:"email_verified_at"`
}

// IsLocked returns true if the account is currently locked.
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}

// IsActive reports whether the user may sign in.
func (u *User) IsActive() bool {
	return u.Status == "" || u.Status == UserActive
}

// EmailVerified reports whether the user confirmed their email address.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// IsAdmin reports whether the user administers the tenant.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ValidRole reports whether role is assignable.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// ValidUserStatus reports whether status is assignable.
func ValidUserStatus(status string) bool {
	switch status {
	case UserActive, UserInactive, UserSuspended:
		return true
	}
	return false
}
