package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ems-platform/auth-service/internal/domain/entity"
	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
	"github.com/ems-platform/auth-service/internal/events"
	"github.com/ems-platform/auth-service/internal/utils/metrics"
	"github.com/ems-platform/auth-service/internal/utils/random"
)

// VerifyOldPasswordAndSendOTP re-confirms the caller's current password and,
// when it checks out, issues a one-time code to their mailbox. A wrong
// password is a soft negative (Valid=false, nil error) so the UI can tell it
// apart from a system failure.
//
// The OTP row and the mail dispatch share one transaction: if the mail cannot
// be handed off, the row is rolled back and the user may retry immediately.
func (s *AuthService) VerifyOldPasswordAndSendOTP(ctx context.Context, employeeID int64, oldPassword string) (*OTPResult, error) {
	employee, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee.HashedPassword == nil || *employee.HashedPassword == "" {
		return nil, domainErrors.ErrNoPasswordSet
	}

	match, err := s.passwords.CheckPasswordHash(oldPassword, *employee.HashedPassword)
	if err != nil {
		return nil, fmt.Errorf("password verification failed: %w", err)
	}
	if !match {
		return &OTPResult{Valid: false, OTPSent: false}, nil
	}

	// One unexpired code per (employee, purpose). Its mere existence is the
	// rate limit.
	if _, err := s.codes.FindActive(ctx, employeeID, entity.VerificationTypeChangePassword); err == nil {
		return nil, domainErrors.ErrOTPRateLimit
	} else if !domainErrors.IsNotFound(err) {
		return nil, err
	}

	otpCode, err := random.GenerateRandomDigits(s.otpLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	now := time.Now()
	code := &entity.VerificationCode{
		EmployeeID: employeeID,
		Code:       otpCode,
		Type:       entity.VerificationTypeChangePassword,
		ExpiresAt:  now.Add(s.otpTTL),
		CreatedAt:  now,
	}

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.codes.Create(txCtx, code); err != nil {
			return err
		}
		if err := s.mail.SendOTPEmail(txCtx, employee.Email, employee.FullName, otpCode); err != nil {
			return fmt.Errorf("failed to send verification code: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OTPIssuedTotal.Inc()
	s.logger.Info("verification code issued", zap.Int64("employee_id", employeeID))
	return &OTPResult{Valid: true, OTPSent: true, ExpiresIn: s.otpTTL}, nil
}

// VerifyOTP checks and CONSUMES a one-time code. It must not be called as a
// speculative check: success burns the code.
func (s *AuthService) VerifyOTP(ctx context.Context, employeeID int64, code string, codeType entity.VerificationType) error {
	row, err := s.codes.FindValid(ctx, employeeID, code, codeType)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			return domainErrors.ErrInvalidOTP
		}
		return err
	}
	if err := s.codes.MarkUsed(ctx, row.ID); err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}
	return nil
}

// ChangePassword updates the credential after OTP confirmation and revokes
// every session of the employee. OTP burn, password update and session
// revocation run in one transaction, so a failure after the burn un-burns the
// code instead of locking the user out.
func (s *AuthService) ChangePassword(ctx context.Context, employeeID int64, otpCode, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return domainErrors.ErrPasswordMismatch
	}

	var revoked int64
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.VerifyOTP(txCtx, employeeID, otpCode, entity.VerificationTypeChangePassword); err != nil {
			return err
		}

		employee, err := s.employees.FindByID(txCtx, employeeID)
		if err != nil {
			return err
		}

		if employee.HashedPassword != nil && *employee.HashedPassword != "" {
			same, err := s.passwords.CheckPasswordHash(newPassword, *employee.HashedPassword)
			if err != nil {
				return fmt.Errorf("password verification failed: %w", err)
			}
			if same {
				return domainErrors.ErrSamePassword
			}
		}

		hash, err := s.passwords.HashPassword(newPassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		if err := s.employees.UpdatePasswordHash(txCtx, employeeID, hash); err != nil {
			return err
		}

		revoked, err = s.sessions.RevokeAllForEmployee(txCtx, employeeID)
		return err
	})
	if err != nil {
		return err
	}

	s.publish(events.TypePasswordChanged, employeeID, events.PasswordChangedEvent{EmployeeID: employeeID})
	s.publish(events.TypeAllSessionsRevoked, employeeID, events.SessionEvent{
		EmployeeID: employeeID,
		Revoked:    revoked,
	})
	s.logger.Info("password changed, sessions revoked",
		zap.Int64("employee_id", employeeID),
		zap.Int64("revoked_sessions", revoked))
	return nil
}
