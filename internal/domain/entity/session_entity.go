package entity

import "time"

// SessionProvider identifies which credential path created a session.
type SessionProvider string

const (
	SessionProviderLocal     SessionProvider = "LOCAL"
	SessionProviderMicrosoft SessionProvider = "MICROSOFT"
)

// Session binds a refresh token to an employee with explicit revocation state.
// Rows are never hard-deleted; revocation keeps them for audit.
type Session struct {
	ID           int64
	EmployeeID   int64
	SessionToken string
	Provider     SessionProvider
	DeviceInfo   *string
	IPAddress    *string
	UserAgent    *string
	IsActive     bool
	CreatedAt    time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
}

// Usable reports whether the session can still be redeemed: active, not
// revoked, not past its expiry. All three conditions are required.
func (s *Session) Usable(now time.Time) bool {
	return s.IsActive && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
