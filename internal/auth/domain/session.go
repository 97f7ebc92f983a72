package domain

import "time"

// Session is one authenticated device/browser session. Created at sign-in,
// touched on activity, invalidated on expiry, explicit revoke, or sign-out.
type Session struct {
	ID           string
	UserID       string
	ExpiresAt    time.Time
	LastAccessAt time.Time
	Active       bool
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}

// Valid reports whether the session may still back requests at the given
// instant.
func (s Session) Valid(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}

// AuthContext is the per-request bundle of the authenticated user and the
// session their token is bound to. It lives for one request and is never
// persisted.
type AuthContext struct {
	User    User
	Session Session
}
