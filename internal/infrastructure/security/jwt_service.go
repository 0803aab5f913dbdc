package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ems-platform/auth-service/internal/config"
	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
	"github.com/ems-platform/auth-service/internal/domain/service"
)

// jwtService signs and verifies HS256 tokens. It holds no per-request state
// and is safe for concurrent use.
type jwtService struct {
	secret          []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewJWTService creates the token codec from configuration.
func NewJWTService(cfg config.JWTConfig) service.TokenService {
	return &jwtService{
		secret:          []byte(cfg.SecretKey),
		issuer:          cfg.Issuer,
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
	}
}

func (s *jwtService) IssueAccessToken(employeeID int64, email string, sessionID int64) (service.IssuedToken, error) {
	return s.sign(service.Claims{
		EmployeeID: employeeID,
		Email:      email,
		TokenType:  service.TokenTypeAccess,
		SessionID:  sessionID,
	}, s.accessTokenTTL)
}

func (s *jwtService) IssueRefreshToken(employeeID int64, email string) (service.IssuedToken, error) {
	return s.sign(service.Claims{
		EmployeeID: employeeID,
		Email:      email,
		TokenType:  service.TokenTypeRefresh,
	}, s.refreshTokenTTL)
}

func (s *jwtService) sign(claims service.Claims, ttl time.Duration) (service.IssuedToken, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return service.IssuedToken{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return service.IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *jwtService) Verify(tokenString string, expected service.TokenType) (*service.Claims, error) {
	claims := &service.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainErrors.ErrExpiredToken
		}
		return nil, domainErrors.ErrInvalidToken
	}
	if !token.Valid {
		return nil, domainErrors.ErrInvalidToken
	}
	if claims.TokenType != expected {
		return nil, domainErrors.ErrTokenTypeMismatch
	}
	return claims, nil
}

func (s *jwtService) AccessTokenTTL() time.Duration {
	return s.accessTokenTTL
}
