package entity

import "time"

// EmployeeStatus mirrors the status enum of the employees table, which is
// owned by the wider EMS system. This service only reads it.
type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "ACTIVE"
	EmployeeStatusInactive EmployeeStatus = "INACTIVE"
)

// Employee is the identity record behind every authentication flow. The row is
// created by employee onboarding; this service mutates only HashedPassword.
type Employee struct {
	ID              int64
	Email           string
	FullName        string
	CurrentPosition *string
	HashedPassword  *string
	Status          EmployeeStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanAuthenticate reports whether a login attempt may proceed against this
// record at all. Password verification is a separate step.
func (e *Employee) CanAuthenticate() bool {
	return e.Status == EmployeeStatusActive
}
