package domain

import "time"

// Role is the coarse authorization level of a user. OWNER outranks ADMIN,
// which outranks USER.
type Role string

const (
	RoleOwner Role = "OWNER"
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// AccountStatus tracks the lifecycle state of an account. Only ACTIVE
// accounts may authenticate.
type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusPending   AccountStatus = "PENDING"
	StatusSuspended AccountStatus = "SUSPENDED"
	StatusInactive  AccountStatus = "INACTIVE"
)

type User struct {
	ID            string
	Email         string
	PasswordHash  string // argon2 encoded
	Role          Role
	Status        AccountStatus
	IsActive      bool
	EmailVerified bool
	MFAEnabled    *time.Time // timestamp when MFA was enabled (nullable)
	MFASecret     *string    // TOTP secret (nullable, base32 encoded)
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanAuthenticate reports whether the account is in a state that permits
// sign-in at all. Suspended and inactive accounts are refused before any
// credential check result is revealed.
func (u User) CanAuthenticate() bool {
	return u.IsActive && u.Status != StatusSuspended && u.Status != StatusInactive
}

// CanAssignRole reports whether actor may set target's role to newRole.
// Only an OWNER may mint another OWNER, and nobody reassigns their own role
// through the admin paths.
func CanAssignRole(actor, target User, newRole Role) bool {
	if !newRole.Valid() {
		return false
	}
	if actor.ID == target.ID {
		return false
	}
	if newRole == RoleOwner && actor.Role != RoleOwner {
		return false
	}
	if target.Role == RoleOwner && actor.Role != RoleOwner {
		return false
	}
	return actor.Role == RoleOwner || actor.Role == RoleAdmin
}

// CanDeactivate reports whether actor may deactivate or delete target.
// Self-service deactivation goes through a different path; the admin path
// refuses it, and a non-owner can never touch an OWNER account.
func CanDeactivate(actor, target User) bool {
	if actor.ID == target.ID {
		return false
	}
	if target.Role == RoleOwner && actor.Role != RoleOwner {
		return false
	}
	return actor.Role == RoleOwner || actor.Role == RoleAdmin
}
