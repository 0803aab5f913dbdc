package entity

import "time"

// VerificationType scopes a one-time code to the action it confirms.
type VerificationType string

const (
	VerificationTypeChangePassword VerificationType = "CHANGE_PASSWORD"
)

// VerificationCode is a short-lived one-time code bound to an employee and a
// purpose. Consumption is modelled as forcing ExpiresAt into the past, so the
// row stays queryable for audit but can never pass a validity check again.
type VerificationCode struct {
	ID         int64
	EmployeeID int64
	Code       string
	Type       VerificationType
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
