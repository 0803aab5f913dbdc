package repository

import (
	"context"

	"github.com/ems-platform/auth-service/internal/domain/entity"
)

// EmployeeRepository exposes the slice of the employees table this service
// needs: identity lookup and password updates. Everything else about employee
// records belongs to the EMS backend proper.
type EmployeeRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Employee, error)
	FindByEmail(ctx context.Context, email string) (*entity.Employee, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}
