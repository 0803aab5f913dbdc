package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ems-platform/auth-service/internal/domain/entity"
	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
	"github.com/ems-platform/auth-service/internal/domain/repository"
)

type pgxVerificationCodeRepository struct {
	pool *pgxpool.Pool
}

// NewPgxVerificationCodeRepository creates a new instance of pgxVerificationCodeRepository.
func NewPgxVerificationCodeRepository(pool *pgxpool.Pool) repository.VerificationCodeRepository {
	return &pgxVerificationCodeRepository{pool: pool}
}

const verificationCodeColumns = `id, employee_id, code, type, expires_at, created_at`

func scanVerificationCode(row pgx.Row) (*entity.VerificationCode, error) {
	c := &entity.VerificationCode{}
	err := row.Scan(&c.ID, &c.EmployeeID, &c.Code, &c.Type, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan verification code: %w", err)
	}
	return c, nil
}

func (r *pgxVerificationCodeRepository) Create(ctx context.Context, code *entity.VerificationCode) error {
	query := `
		INSERT INTO verification_codes (employee_id, code, type, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		code.EmployeeID, code.Code, code.Type, code.ExpiresAt, code.CreatedAt,
	).Scan(&code.ID)
	if err != nil {
		return fmt.Errorf("failed to create verification code: %w", err)
	}
	return nil
}

func (r *pgxVerificationCodeRepository) FindActive(ctx context.Context, employeeID int64, codeType entity.VerificationType) (*entity.VerificationCode, error) {
	query := `
		SELECT ` + verificationCodeColumns + `
		FROM verification_codes
		WHERE employee_id = $1 AND type = $2 AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1`
	return scanVerificationCode(querier(ctx, r.pool).QueryRow(ctx, query, employeeID, codeType))
}

func (r *pgxVerificationCodeRepository) FindValid(ctx context.Context, employeeID int64, code string, codeType entity.VerificationType) (*entity.VerificationCode, error) {
	query := `
		SELECT ` + verificationCodeColumns + `
		FROM verification_codes
		WHERE employee_id = $1 AND code = $2 AND type = $3 AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1`
	return scanVerificationCode(querier(ctx, r.pool).QueryRow(ctx, query, employeeID, code, codeType))
}

func (r *pgxVerificationCodeRepository) MarkUsed(ctx context.Context, id int64) error {
	// Consuming a code means expiring it in place.
	query := `UPDATE verification_codes SET expires_at = NOW() WHERE id = $1`
	commandTag, err := querier(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark verification code used: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *pgxVerificationCodeRepository) CleanupExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM verification_codes WHERE expires_at < $1`
	commandTag, err := querier(ctx, r.pool).Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired verification codes: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

var _ repository.VerificationCodeRepository = (*pgxVerificationCodeRepository)(nil)
