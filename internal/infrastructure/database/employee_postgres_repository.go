package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ems-platform/auth-service/internal/domain/entity"
	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
	"github.com/ems-platform/auth-service/internal/domain/repository"
)

type pgxEmployeeRepository struct {
	pool *pgxpool.Pool
}

// NewPgxEmployeeRepository creates a new instance of pgxEmployeeRepository.
func NewPgxEmployeeRepository(pool *pgxpool.Pool) repository.EmployeeRepository {
	return &pgxEmployeeRepository{pool: pool}
}

const employeeColumns = `id, email, full_name, current_position, hashed_password, status, created_at, updated_at`

func scanEmployee(row pgx.Row) (*entity.Employee, error) {
	e := &entity.Employee{}
	err := row.Scan(
		&e.ID, &e.Email, &e.FullName, &e.CurrentPosition,
		&e.HashedPassword, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to scan employee: %w", err)
	}
	return e, nil
}

func (r *pgxEmployeeRepository) FindByID(ctx context.Context, id int64) (*entity.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	return scanEmployee(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *pgxEmployeeRepository) FindByEmail(ctx context.Context, email string) (*entity.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE LOWER(email) = LOWER($1)`
	return scanEmployee(querier(ctx, r.pool).QueryRow(ctx, query, email))
}

func (r *pgxEmployeeRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	query := `UPDATE employees SET hashed_password = $2, updated_at = NOW() WHERE id = $1`
	commandTag, err := querier(ctx, r.pool).Exec(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.ErrEmployeeNotFound
	}
	return nil
}

var _ repository.EmployeeRepository = (*pgxEmployeeRepository)(nil)
