package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ems-platform/auth-service/internal/config"
	"github.com/ems-platform/auth-service/internal/domain/entity"
	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
	"github.com/ems-platform/auth-service/internal/domain/repository"
	domainService "github.com/ems-platform/auth-service/internal/domain/service"
	"github.com/ems-platform/auth-service/internal/events"
	"github.com/ems-platform/auth-service/internal/utils/metrics"
)

// Transactor runs a function inside a single database transaction. Repository
// calls made with the derived context join that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RequestMeta is the client metadata captured on login for session audit.
type RequestMeta struct {
	DeviceInfo *string
	IPAddress  *string
	UserAgent  *string
}

// LoginInput carries the credentials of a password login attempt. IdentityKey
// is an employee id (digits) or an email address.
type LoginInput struct {
	IdentityKey string
	Password    string
	RememberMe  bool
	Meta        RequestMeta
}

// IdentitySummary is the minimal employee view returned with issued tokens.
type IdentitySummary struct {
	ID              int64   `json:"id"`
	Email           string  `json:"email"`
	FullName        string  `json:"full_name"`
	CurrentPosition *string `json:"current_position,omitempty"`
}

// LoginResult is the payload of a successful login or OAuth callback.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	SessionID    int64
	Employee     IdentitySummary
}

// RenewResult is the payload of a successful token refresh.
type RenewResult struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// OTPResult reports the outcome of the password pre-check. Valid=false is a
// soft negative, not an error: the caller distinguishes a wrong password from
// a system failure.
type OTPResult struct {
	Valid     bool
	OTPSent   bool
	ExpiresIn time.Duration
}

// IntrospectionResult is the payload of an access-token introspection.
type IntrospectionResult struct {
	Valid      bool
	EmployeeID int64
	Email      string
	ExpiresAt  time.Time
}

// AuthService orchestrates the authentication lifecycle: password and OAuth
// login, token renewal, logout, and the OTP-gated password change flow.
type AuthService struct {
	employees repository.EmployeeRepository
	sessions  repository.SessionRepository
	codes     repository.VerificationCodeRepository

	tokens    domainService.TokenService
	passwords domainService.PasswordService
	mail      domainService.MailService
	oauth     domainService.OAuthProvider
	limiter   domainService.RateLimiter

	tx        Transactor
	publisher events.Publisher
	logger    *zap.Logger

	refreshTokenTTL time.Duration
	shortSessionTTL time.Duration
	otpLength       int
	otpTTL          time.Duration
	loginLimit      config.RateLimitRule
}

// AuthServiceDeps bundles the collaborators of AuthService.
type AuthServiceDeps struct {
	Employees repository.EmployeeRepository
	Sessions  repository.SessionRepository
	Codes     repository.VerificationCodeRepository
	Tokens    domainService.TokenService
	Passwords domainService.PasswordService
	Mail      domainService.MailService
	OAuth     domainService.OAuthProvider
	Limiter   domainService.RateLimiter
	Tx        Transactor
	Publisher events.Publisher
	Logger    *zap.Logger
}

// NewAuthService creates the authentication service.
func NewAuthService(deps AuthServiceDeps, jwtCfg config.JWTConfig, otpCfg config.OTPConfig, loginLimit config.RateLimitRule) *AuthService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &AuthService{
		employees:       deps.Employees,
		sessions:        deps.Sessions,
		codes:           deps.Codes,
		tokens:          deps.Tokens,
		passwords:       deps.Passwords,
		mail:            deps.Mail,
		oauth:           deps.OAuth,
		limiter:         deps.Limiter,
		tx:              deps.Tx,
		publisher:       publisher,
		logger:          deps.Logger,
		refreshTokenTTL: jwtCfg.RefreshTokenTTL,
		shortSessionTTL: jwtCfg.ShortSessionTTL,
		otpLength:       otpCfg.Length,
		otpTTL:          otpCfg.TTL,
		loginLimit:      loginLimit,
	}
}

// Login authenticates an employee by id or email and password, creating a new
// session. Sibling sessions on other devices are left untouched.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if err := s.checkLoginRate(ctx, input.IdentityKey, input.Meta.IPAddress); err != nil {
		return nil, err
	}

	employee, err := s.resolveIdentity(ctx, input.IdentityKey)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		if domainErrors.IsNotFound(err) {
			// Missing identities and inactive ones are indistinguishable
			// to the caller.
			return nil, domainErrors.ErrAccountInactive
		}
		return nil, err
	}

	if !employee.CanAuthenticate() {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, domainErrors.ErrAccountInactive
	}
	if employee.HashedPassword == nil || *employee.HashedPassword == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, domainErrors.ErrNoPasswordSet
	}

	match, err := s.passwords.CheckPasswordHash(input.Password, *employee.HashedPassword)
	if err != nil {
		return nil, fmt.Errorf("password verification failed: %w", err)
	}
	if !match {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		s.logger.Info("login rejected: wrong password", zap.Int64("employee_id", employee.ID))
		return nil, domainErrors.ErrInvalidCredentials
	}

	sessionTTL := s.refreshTokenTTL
	if !input.RememberMe {
		sessionTTL = s.shortSessionTTL
	}

	result, err := s.openSession(ctx, employee, entity.SessionProviderLocal, sessionTTL, input.Meta)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.logger.Info("login succeeded",
		zap.Int64("employee_id", employee.ID),
		zap.Int64("session_id", result.SessionID))
	return result, nil
}

// OAuthAuthURL builds the identity provider's authorization redirect.
func (s *AuthService) OAuthAuthURL(state string) (string, error) {
	if s.oauth == nil {
		return "", domainErrors.ErrInvalidRequest
	}
	return s.oauth.AuthURL(state), nil
}

// OAuthLogin redeems an authorization code and opens a session for the local
// employee matching the provider-verified email. No auto-provisioning: an
// unknown email fails.
func (s *AuthService) OAuthLogin(ctx context.Context, code string, meta RequestMeta) (*LoginResult, error) {
	if s.oauth == nil {
		return nil, domainErrors.ErrInvalidRequest
	}

	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	employee, err := s.employees.FindByEmail(ctx, info.Email)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		if domainErrors.IsNotFound(err) {
			return nil, domainErrors.ErrEmployeeNotFound
		}
		return nil, err
	}
	if !employee.CanAuthenticate() {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, domainErrors.ErrAccountInactive
	}

	result, err := s.openSession(ctx, employee, entity.SessionProviderMicrosoft, s.refreshTokenTTL, meta)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.logger.Info("oauth login succeeded",
		zap.Int64("employee_id", employee.ID),
		zap.Int64("session_id", result.SessionID))
	return result, nil
}

// openSession issues a refresh token, persists the session it names, and
// issues the first access token bound to the new session id.
func (s *AuthService) openSession(ctx context.Context, employee *entity.Employee, provider entity.SessionProvider, sessionTTL time.Duration, meta RequestMeta) (*LoginResult, error) {
	refresh, err := s.tokens.IssueRefreshToken(employee.ID, employee.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(sessionTTL)
	// The session row is the authority on lifetime: the refresh JWT may carry
	// a later exp, but the store's active filter cuts it off at expiresAt.
	if refresh.ExpiresAt.Before(expiresAt) {
		expiresAt = refresh.ExpiresAt
	}

	session := &entity.Session{
		EmployeeID:   employee.ID,
		SessionToken: refresh.Token,
		Provider:     provider,
		DeviceInfo:   meta.DeviceInfo,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		IsActive:     true,
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	access, err := s.tokens.IssueAccessToken(employee.ID, employee.Email, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.publish(events.TypeSessionCreated, employee.ID, events.SessionEvent{
		SessionID:  session.ID,
		EmployeeID: employee.ID,
		Provider:   string(provider),
	})

	return &LoginResult{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresAt:    access.ExpiresAt,
		SessionID:    session.ID,
		Employee: IdentitySummary{
			ID:              employee.ID,
			Email:           employee.Email,
			FullName:        employee.FullName,
			CurrentPosition: employee.CurrentPosition,
		},
	}, nil
}

// RenewToken exchanges a refresh token for a fresh access token. The session
// behind the refresh token must still be usable; no new session is created.
func (s *AuthService) RenewToken(ctx context.Context, refreshToken string) (*RenewResult, error) {
	claims, err := s.tokens.Verify(refreshToken, domainService.TokenTypeRefresh)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	session, err := s.sessions.FindActiveByToken(ctx, refreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		if domainErrors.IsNotFound(err) {
			// Revoked, expired and never-issued all look the same here.
			return nil, domainErrors.ErrInvalidSession
		}
		return nil, err
	}

	employee, err := s.employees.FindByID(ctx, session.EmployeeID)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		if domainErrors.IsNotFound(err) {
			return nil, domainErrors.ErrInvalidSession
		}
		return nil, err
	}
	if !employee.CanAuthenticate() {
		// The account was deactivated after the session was opened; close it.
		if revokeErr := s.sessions.Revoke(ctx, session.ID); revokeErr != nil {
			s.logger.Error("failed to revoke session of inactive account",
				zap.Int64("session_id", session.ID), zap.Error(revokeErr))
		}
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return nil, domainErrors.ErrAccountInactive
	}

	access, err := s.tokens.IssueAccessToken(session.EmployeeID, claims.Email, session.ID)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	return &RenewResult{
		AccessToken: access.Token,
		ExpiresIn:   s.tokens.AccessTokenTTL(),
	}, nil
}

// Logout revokes the session embedded in the caller's access token. Sibling
// sessions on other devices stay open.
func (s *AuthService) Logout(ctx context.Context, sessionID int64) error {
	session, err := s.sessions.FindActiveByID(ctx, sessionID)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			return domainErrors.ErrInvalidSession
		}
		return err
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.publish(events.TypeSessionRevoked, session.EmployeeID, events.SessionEvent{
		SessionID:  session.ID,
		EmployeeID: session.EmployeeID,
	})
	s.logger.Info("logout", zap.Int64("session_id", session.ID),
		zap.Int64("employee_id", session.EmployeeID))
	return nil
}

// Introspect re-validates an already-verified access token against the current
// employee record, so deactivated accounts fail even with an unexpired token.
func (s *AuthService) Introspect(ctx context.Context, claims *domainService.Claims) (*IntrospectionResult, error) {
	employee, err := s.employees.FindByID(ctx, claims.EmployeeID)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			return nil, domainErrors.ErrInvalidToken
		}
		return nil, err
	}
	if !employee.CanAuthenticate() {
		return nil, domainErrors.ErrAccountInactive
	}

	return &IntrospectionResult{
		Valid:      true,
		EmployeeID: employee.ID,
		Email:      employee.Email,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

// ListSessions returns the caller's usable sessions, newest first.
func (s *AuthService) ListSessions(ctx context.Context, employeeID int64) ([]*entity.Session, error) {
	return s.sessions.FindActiveByEmployee(ctx, employeeID)
}

// resolveIdentity looks an employee up by numeric id or email.
func (s *AuthService) resolveIdentity(ctx context.Context, identityKey string) (*entity.Employee, error) {
	key := strings.TrimSpace(identityKey)
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		return s.employees.FindByID(ctx, id)
	}
	return s.employees.FindByEmail(ctx, key)
}

func (s *AuthService) checkLoginRate(ctx context.Context, identityKey string, ip *string) error {
	if s.limiter == nil || !s.loginLimit.Enabled {
		return nil
	}
	addr := ""
	if ip != nil {
		addr = *ip
	}
	key := fmt.Sprintf("login:%s:%s", strings.ToLower(strings.TrimSpace(identityKey)), addr)
	allowed, err := s.limiter.Allow(ctx, key, s.loginLimit.Limit, s.loginLimit.Window)
	if err != nil {
		return fmt.Errorf("rate limiter failed: %w", err)
	}
	if !allowed {
		metrics.LoginAttemptsTotal.WithLabelValues("rate_limited").Inc()
		return domainErrors.ErrRateLimitExceeded
	}
	return nil
}

// publish emits a lifecycle event without letting a broker failure surface to
// the caller.
func (s *AuthService) publish(eventType string, employeeID int64, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, eventType, strconv.FormatInt(employeeID, 10), payload); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", eventType), zap.Error(err))
	}
}
