package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ems-platform/auth-service/internal/domain/entity"
	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
	"github.com/ems-platform/auth-service/internal/domain/repository"
)

type pgxSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPgxSessionRepository creates a new instance of pgxSessionRepository.
func NewPgxSessionRepository(pool *pgxpool.Pool) repository.SessionRepository {
	return &pgxSessionRepository{pool: pool}
}

const sessionColumns = `id, employee_id, session_token, provider, device_info, ip_address, user_agent, is_active, created_at, expires_at, revoked_at`

// activeSessionFilter is the single definition of "usable": active, not
// revoked, not expired. Every active-lookup shares it.
const activeSessionFilter = `is_active AND revoked_at IS NULL AND expires_at > NOW()`

func scanSession(row pgx.Row) (*entity.Session, error) {
	s := &entity.Session{}
	err := row.Scan(
		&s.ID, &s.EmployeeID, &s.SessionToken, &s.Provider, &s.DeviceInfo,
		&s.IPAddress, &s.UserAgent, &s.IsActive, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return s, nil
}

func (r *pgxSessionRepository) Create(ctx context.Context, session *entity.Session) error {
	query := `
		INSERT INTO employee_sessions (employee_id, session_token, provider, device_info, ip_address, user_agent, is_active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		session.EmployeeID, session.SessionToken, session.Provider, session.DeviceInfo,
		session.IPAddress, session.UserAgent, session.IsActive, session.CreatedAt, session.ExpiresAt,
	).Scan(&session.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: session token already exists", domainErrors.ErrConflict)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *pgxSessionRepository) FindActiveByToken(ctx context.Context, token string) (*entity.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM employee_sessions WHERE session_token = $1 AND ` + activeSessionFilter
	return scanSession(querier(ctx, r.pool).QueryRow(ctx, query, token))
}

func (r *pgxSessionRepository) FindActiveByID(ctx context.Context, id int64) (*entity.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM employee_sessions WHERE id = $1 AND ` + activeSessionFilter
	return scanSession(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *pgxSessionRepository) Revoke(ctx context.Context, id int64) error {
	// Only rows still active are touched, so revoking twice is a no-op.
	query := `UPDATE employee_sessions SET is_active = FALSE, revoked_at = NOW() WHERE id = $1 AND is_active`
	if _, err := querier(ctx, r.pool).Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (r *pgxSessionRepository) RevokeAllForEmployee(ctx context.Context, employeeID int64) (int64, error) {
	query := `UPDATE employee_sessions SET is_active = FALSE, revoked_at = NOW() WHERE employee_id = $1 AND is_active`
	commandTag, err := querier(ctx, r.pool).Exec(ctx, query, employeeID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions for employee: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

func (r *pgxSessionRepository) FindActiveByEmployee(ctx context.Context, employeeID int64) ([]*entity.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM employee_sessions
		WHERE employee_id = $1 AND ` + activeSessionFilter + `
		ORDER BY created_at DESC`

	rows, err := querier(ctx, r.pool).Query(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find sessions by employee: %w", err)
	}
	defer rows.Close()

	var sessions []*entity.Session
	for rows.Next() {
		s := &entity.Session{}
		if err := rows.Scan(
			&s.ID, &s.EmployeeID, &s.SessionToken, &s.Provider, &s.DeviceInfo,
			&s.IPAddress, &s.UserAgent, &s.IsActive, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session during list: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating sessions: %w", err)
	}
	return sessions, nil
}

func (r *pgxSessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	// Soft sweep: expired rows are revoked, never deleted.
	query := `UPDATE employee_sessions SET is_active = FALSE, revoked_at = NOW() WHERE expires_at < NOW() AND is_active`
	commandTag, err := querier(ctx, r.pool).Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

var _ repository.SessionRepository = (*pgxSessionRepository)(nil)
