package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ems-platform/auth-service/internal/domain/entity"
	domainService "github.com/ems-platform/auth-service/internal/domain/service"
)

type MockEmployeeRepository struct{ mock.Mock }

func (m *MockEmployeeRepository) FindByID(ctx context.Context, id int64) (*entity.Employee, error) {
	args := m.Called(ctx, id)
	if emp, ok := args.Get(0).(*entity.Employee); ok {
		return emp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmployeeRepository) FindByEmail(ctx context.Context, email string) (*entity.Employee, error) {
	args := m.Called(ctx, email)
	if emp, ok := args.Get(0).(*entity.Employee); ok {
		return emp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmployeeRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

type MockSessionRepository struct{ mock.Mock }

func (m *MockSessionRepository) Create(ctx context.Context, session *entity.Session) error {
	args := m.Called(ctx, session)
	if args.Error(0) == nil && session.ID == 0 {
		session.ID = 1
	}
	return args.Error(0)
}

func (m *MockSessionRepository) FindActiveByToken(ctx context.Context, token string) (*entity.Session, error) {
	args := m.Called(ctx, token)
	if s, ok := args.Get(0).(*entity.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionRepository) FindActiveByID(ctx context.Context, id int64) (*entity.Session, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*entity.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionRepository) Revoke(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSessionRepository) RevokeAllForEmployee(ctx context.Context, employeeID int64) (int64, error) {
	args := m.Called(ctx, employeeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) FindActiveByEmployee(ctx context.Context, employeeID int64) ([]*entity.Session, error) {
	args := m.Called(ctx, employeeID)
	if sessions, ok := args.Get(0).([]*entity.Session); ok {
		return sessions, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockVerificationCodeRepository struct{ mock.Mock }

func (m *MockVerificationCodeRepository) Create(ctx context.Context, code *entity.VerificationCode) error {
	args := m.Called(ctx, code)
	if args.Error(0) == nil && code.ID == 0 {
		code.ID = 1
	}
	return args.Error(0)
}

func (m *MockVerificationCodeRepository) FindActive(ctx context.Context, employeeID int64, codeType entity.VerificationType) (*entity.VerificationCode, error) {
	args := m.Called(ctx, employeeID, codeType)
	if c, ok := args.Get(0).(*entity.VerificationCode); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVerificationCodeRepository) FindValid(ctx context.Context, employeeID int64, code string, codeType entity.VerificationType) (*entity.VerificationCode, error) {
	args := m.Called(ctx, employeeID, code, codeType)
	if c, ok := args.Get(0).(*entity.VerificationCode); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVerificationCodeRepository) MarkUsed(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockVerificationCodeRepository) CleanupExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type MockTokenService struct{ mock.Mock }

func (m *MockTokenService) IssueAccessToken(employeeID int64, email string, sessionID int64) (domainService.IssuedToken, error) {
	args := m.Called(employeeID, email, sessionID)
	return args.Get(0).(domainService.IssuedToken), args.Error(1)
}

func (m *MockTokenService) IssueRefreshToken(employeeID int64, email string) (domainService.IssuedToken, error) {
	args := m.Called(employeeID, email)
	return args.Get(0).(domainService.IssuedToken), args.Error(1)
}

func (m *MockTokenService) Verify(token string, expected domainService.TokenType) (*domainService.Claims, error) {
	args := m.Called(token, expected)
	if claims, ok := args.Get(0).(*domainService.Claims); ok {
		return claims, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenService) AccessTokenTTL() time.Duration {
	return m.Called().Get(0).(time.Duration)
}

type MockPasswordService struct{ mock.Mock }

func (m *MockPasswordService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordService) CheckPasswordHash(password, encodedHash string) (bool, error) {
	args := m.Called(password, encodedHash)
	return args.Bool(0), args.Error(1)
}

type MockMailService struct{ mock.Mock }

func (m *MockMailService) SendOTPEmail(ctx context.Context, recipient, fullName, otpCode string) error {
	return m.Called(ctx, recipient, fullName, otpCode).Error(0)
}

type MockOAuthProvider struct{ mock.Mock }

func (m *MockOAuthProvider) AuthURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*domainService.OAuthUserInfo, error) {
	args := m.Called(ctx, code)
	if info, ok := args.Get(0).(*domainService.OAuthUserInfo); ok {
		return info, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRateLimiter struct{ mock.Mock }

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

// stubTransactor runs the function directly; repositories are mocked, so
// there is no real transaction to manage.
type stubTransactor struct{}

func (stubTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
