package repository

import (
	"context"
	"time"

	"github.com/ems-platform/auth-service/internal/domain/entity"
)

// VerificationCodeRepository persists one-time codes. A code is "valid" while
// its expiry is in the future; marking a code used forces the expiry to now,
// so used codes stay on record but never validate again.
type VerificationCodeRepository interface {
	Create(ctx context.Context, code *entity.VerificationCode) error

	// FindActive returns the unexpired code for (employee, type), if any.
	// Its presence is what rate-limits repeated OTP requests.
	FindActive(ctx context.Context, employeeID int64, codeType entity.VerificationType) (*entity.VerificationCode, error)

	// FindValid returns the row matching code value, type and employee that
	// has not yet expired, or domainErrors.ErrNotFound.
	FindValid(ctx context.Context, employeeID int64, code string, codeType entity.VerificationType) (*entity.VerificationCode, error)

	// MarkUsed expires the code in place.
	MarkUsed(ctx context.Context, id int64) error

	// CleanupExpired deletes rows that expired before olderThan, returning
	// the number removed. Recently used codes stay on record for audit.
	CleanupExpired(ctx context.Context, olderThan time.Time) (int64, error)
}
