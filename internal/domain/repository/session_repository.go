package repository

import (
	"context"

	"github.com/ems-platform/auth-service/internal/domain/entity"
)

// SessionRepository persists refresh-token sessions. "Active" always means
// is_active AND revoked_at IS NULL AND expires_at in the future.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error

	// FindActiveByToken returns the usable session owning the given refresh
	// token, or domainErrors.ErrNotFound. Revoked, expired and never-issued
	// tokens are indistinguishable to callers.
	FindActiveByToken(ctx context.Context, token string) (*entity.Session, error)

	// FindActiveByID is the same filter keyed by session id; logout only has
	// the id embedded in the access token.
	FindActiveByID(ctx context.Context, id int64) (*entity.Session, error)

	// Revoke marks a session inactive and records the revocation time.
	// Revoking an already-revoked session is a no-op.
	Revoke(ctx context.Context, id int64) error

	// RevokeAllForEmployee bulk-revokes every active session of an employee
	// and returns how many rows changed.
	RevokeAllForEmployee(ctx context.Context, employeeID int64) (int64, error)

	// FindActiveByEmployee lists the employee's usable sessions, newest first.
	FindActiveByEmployee(ctx context.Context, employeeID int64) ([]*entity.Session, error)

	// CleanupExpired revokes sessions whose expiry has passed while still
	// marked active, returning the number swept.
	CleanupExpired(ctx context.Context) (int64, error)
}
