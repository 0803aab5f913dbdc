package service

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ems-platform/auth-service/internal/domain/entity"
	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
	"github.com/ems-platform/auth-service/internal/events"
)

// --- VerifyOldPasswordAndSendOTP ---

func (s *AuthServiceTestSuite) TestVerifyOldPassword_SuccessSendsOTP() {
	ctx := context.Background()
	employee := s.activeEmployee()

	s.mockEmployeeRepo.On("FindByID", ctx, int64(42)).Return(employee, nil).Once()
	s.mockPasswords.On("CheckPasswordHash", "Secret123", *employee.HashedPassword).Return(true, nil).Once()
	s.mockCodeRepo.On("FindActive", ctx, int64(42), entity.VerificationTypeChangePassword).
		Return(nil, domainErrors.ErrNotFound).Once()

	var created *entity.VerificationCode
	s.mockCodeRepo.On("Create", ctx, mock.AnythingOfType("*entity.VerificationCode")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*entity.VerificationCode) }).
		Return(nil).Once()
	s.mockMail.On("SendOTPEmail", ctx, "ada@example.com", "Ada Lovelace", mock.AnythingOfType("string")).Return(nil).Once()

	result, err := s.authService.VerifyOldPasswordAndSendOTP(ctx, 42, "Secret123")

	s.Require().NoError(err)
	s.True(result.Valid)
	s.True(result.OTPSent)
	s.Equal(5*time.Minute, result.ExpiresIn)
	s.Require().NotNil(created)
	s.Len(created.Code, 6)
	s.Equal(entity.VerificationTypeChangePassword, created.Type)
	s.WithinDuration(time.Now().Add(5*time.Minute), created.ExpiresAt, 5*time.Second)
}

func (s *AuthServiceTestSuite) TestVerifyOldPassword_WrongPasswordIsSoftNegative() {
	ctx := context.Background()
	employee := s.activeEmployee()

	s.mockEmployeeRepo.On("FindByID", ctx, int64(42)).Return(employee, nil).Once()
	s.mockPasswords.On("CheckPasswordHash", "wrong", *employee.HashedPassword).Return(false, nil).Once()

	result, err := s.authService.VerifyOldPasswordAndSendOTP(ctx, 42, "wrong")

	s.Require().NoError(err)
	s.False(result.Valid)
	s.False(result.OTPSent)
	s.mockCodeRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
	s.mockMail.AssertNotCalled(s.T(), "SendOTPEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *AuthServiceTestSuite) TestVerifyOldPassword_ActiveOTPRateLimits() {
	ctx := context.Background()
	employee := s.activeEmployee()
	existing := &entity.VerificationCode{ID: 3, EmployeeID: 42, Code: "111222", ExpiresAt: time.Now().Add(time.Minute)}

	s.mockEmployeeRepo.On("FindByID", ctx, int64(42)).Return(employee, nil).Once()
	s.mockPasswords.On("CheckPasswordHash", "Secret123", *employee.HashedPassword).Return(true, nil).Once()
	s.mockCodeRepo.On("FindActive", ctx, int64(42), entity.VerificationTypeChangePassword).Return(existing, nil).Once()

	_, err := s.authService.VerifyOldPasswordAndSendOTP(ctx, 42, "Secret123")

	s.ErrorIs(err, domainErrors.ErrOTPRateLimit)
	s.mockCodeRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *AuthServiceTestSuite) TestVerifyOldPassword_MailFailureRollsBack() {
	ctx := context.Background()
	employee := s.activeEmployee()
	mailErr := errors.New("graph unavailable")

	s.mockEmployeeRepo.On("FindByID", ctx, int64(42)).Return(employee, nil).Once()
	s.mockPasswords.On("CheckPasswordHash", "Secret123", *employee.HashedPassword).Return(true, nil).Once()
	s.mockCodeRepo.On("FindActive", ctx, int64(42), entity.VerificationTypeChangePassword).
		Return(nil, domainErrors.ErrNotFound).Once()
	s.mockCodeRepo.On("Create", ctx, mock.AnythingOfType("*entity.VerificationCode")).Return(nil).Once()
	s.mockMail.On("SendOTPEmail", ctx, "ada@example.com", "Ada Lovelace", mock.AnythingOfType("string")).
		Return(mailErr).Once()

	_, err := s.authService.VerifyOldPasswordAndSendOTP(ctx, 42, "Secret123")

	// The transactor propagates the send failure, which rolls back the OTP row.
	s.ErrorIs(err, mailErr)
}

func (s *AuthServiceTestSuite) TestVerifyOldPassword_UnknownEmployee() {
	ctx := context.Background()

	s.mockEmployeeRepo.On("FindByID", ctx, int64(99)).Return(nil, domainErrors.ErrEmployeeNotFound).Once()

	_, err := s.authService.VerifyOldPasswordAndSendOTP(ctx, 99, "Secret123")

	s.ErrorIs(err, domainErrors.ErrEmployeeNotFound)
}

// --- VerifyOTP ---

func (s *AuthServiceTestSuite) TestVerifyOTP_BurnsCode() {
	ctx := context.Background()
	code := &entity.VerificationCode{ID: 3, EmployeeID: 9, Code: "000111"}

	s.mockCodeRepo.On("FindValid", ctx, int64(9), "000111", entity.VerificationTypeChangePassword).Return(code, nil).Once()
	s.mockCodeRepo.On("MarkUsed", ctx, int64(3)).Return(nil).Once()

	err := s.authService.VerifyOTP(ctx, 9, "000111", entity.VerificationTypeChangePassword)

	s.Require().NoError(err)
	s.mockCodeRepo.AssertExpectations(s.T())
}

func (s *AuthServiceTestSuite) TestVerifyOTP_InvalidCode() {
	ctx := context.Background()

	s.mockCodeRepo.On("FindValid", ctx, int64(9), "999999", entity.VerificationTypeChangePassword).
		Return(nil, domainErrors.ErrNotFound).Once()

	err := s.authService.VerifyOTP(ctx, 9, "999999", entity.VerificationTypeChangePassword)

	s.ErrorIs(err, domainErrors.ErrInvalidOTP)
	s.mockCodeRepo.AssertNotCalled(s.T(), "MarkUsed", mock.Anything, mock.Anything)
}

// --- ChangePassword ---

func (s *AuthServiceTestSuite) TestChangePassword_Success() {
	ctx := context.Background()
	employee := s.activeEmployee()
	code := &entity.VerificationCode{ID: 3, EmployeeID: 42, Code: "123456"}

	s.mockCodeRepo.On("FindValid", ctx, int64(42), "123456", entity.VerificationTypeChangePassword).Return(code, nil).Once()
	s.mockCodeRepo.On("MarkUsed", ctx, int64(3)).Return(nil).Once()
	s.mockEmployeeRepo.On("FindByID", ctx, int64(42)).Return(employee, nil).Once()
	s.mockPasswords.On("CheckPasswordHash", "NewSecret456", *employee.HashedPassword).Return(false, nil).Once()
	s.mockPasswords.On("HashPassword", "NewSecret456").Return("$argon2id$new-hash", nil).Once()
	s.mockEmployeeRepo.On("UpdatePasswordHash", ctx, int64(42), "$argon2id$new-hash").Return(nil).Once()
	s.mockSessionRepo.On("RevokeAllForEmployee", ctx, int64(42)).Return(int64(2), nil).Once()

	err := s.authService.ChangePassword(ctx, 42, "123456", "NewSecret456", "NewSecret456")

	s.Require().NoError(err)
	s.Contains(s.publisher.published(), events.TypePasswordChanged)
	s.Contains(s.publisher.published(), events.TypeAllSessionsRevoked)
	s.mockSessionRepo.AssertExpectations(s.T())
}

func (s *AuthServiceTestSuite) TestChangePassword_ConfirmationMismatch() {
	err := s.authService.ChangePassword(context.Background(), 42, "123456", "one", "two")

	s.ErrorIs(err, domainErrors.ErrPasswordMismatch)
	s.mockCodeRepo.AssertNotCalled(s.T(), "FindValid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *AuthServiceTestSuite) TestChangePassword_InvalidOTP() {
	ctx := context.Background()

	s.mockCodeRepo.On("FindValid", ctx, int64(42), "000000", entity.VerificationTypeChangePassword).
		Return(nil, domainErrors.ErrNotFound).Once()

	err := s.authService.ChangePassword(ctx, 42, "000000", "NewSecret456", "NewSecret456")

	s.ErrorIs(err, domainErrors.ErrInvalidOTP)
	s.mockEmployeeRepo.AssertNotCalled(s.T(), "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
}

func (s *AuthServiceTestSuite) TestChangePassword_SamePasswordRejected() {
	ctx := context.Background()
	employee := s.activeEmployee()
	code := &entity.VerificationCode{ID: 3, EmployeeID: 42, Code: "123456"}

	s.mockCodeRepo.On("FindValid", ctx, int64(42), "123456", entity.VerificationTypeChangePassword).Return(code, nil).Once()
	s.mockCodeRepo.On("MarkUsed", ctx, int64(3)).Return(nil).Once()
	s.mockEmployeeRepo.On("FindByID", ctx, int64(42)).Return(employee, nil).Once()
	s.mockPasswords.On("CheckPasswordHash", "Secret123", *employee.HashedPassword).Return(true, nil).Once()

	err := s.authService.ChangePassword(ctx, 42, "123456", "Secret123", "Secret123")

	s.ErrorIs(err, domainErrors.ErrSamePassword)
	s.mockSessionRepo.AssertNotCalled(s.T(), "RevokeAllForEmployee", mock.Anything, mock.Anything)
}

func (s *AuthServiceTestSuite) TestChangePassword_RevocationFailurePropagates() {
	ctx := context.Background()
	employee := s.activeEmployee()
	code := &entity.VerificationCode{ID: 3, EmployeeID: 42, Code: "123456"}
	dbErr := errors.New("connection reset")

	s.mockCodeRepo.On("FindValid", ctx, int64(42), "123456", entity.VerificationTypeChangePassword).Return(code, nil).Once()
	s.mockCodeRepo.On("MarkUsed", ctx, int64(3)).Return(nil).Once()
	s.mockEmployeeRepo.On("FindByID", ctx, int64(42)).Return(employee, nil).Once()
	s.mockPasswords.On("CheckPasswordHash", "NewSecret456", *employee.HashedPassword).Return(false, nil).Once()
	s.mockPasswords.On("HashPassword", "NewSecret456").Return("$argon2id$new-hash", nil).Once()
	s.mockEmployeeRepo.On("UpdatePasswordHash", ctx, int64(42), "$argon2id$new-hash").Return(nil).Once()
	s.mockSessionRepo.On("RevokeAllForEmployee", ctx, int64(42)).Return(int64(0), dbErr).Once()

	err := s.authService.ChangePassword(ctx, 42, "123456", "NewSecret456", "NewSecret456")

	s.ErrorIs(err, dbErr)
	s.NotContains(s.publisher.published(), events.TypePasswordChanged)
}
