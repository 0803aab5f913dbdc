package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType discriminates access from refresh tokens. A token of one type is
// never accepted where the other is expected.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the signed claim-set carried by both token types. SessionID is
// populated on access tokens only.
type Claims struct {
	EmployeeID int64     `json:"employee_id"`
	Email      string    `json:"email"`
	TokenType  TokenType `json:"type"`
	SessionID  int64     `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// IssuedToken is the result of signing a claim-set.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenService is the stateless token codec: it signs and verifies time-boxed
// claim-sets without any I/O, so access-token checks cost no store lookup.
type TokenService interface {
	// IssueAccessToken signs an access token embedding the employee identity
	// and the owning session id.
	IssueAccessToken(employeeID int64, email string, sessionID int64) (IssuedToken, error)

	// IssueRefreshToken signs a refresh token bound to the employee identity.
	IssueRefreshToken(employeeID int64, email string) (IssuedToken, error)

	// Verify decodes the token, checks the signature and expiry, and rejects
	// tokens whose embedded type differs from expected.
	Verify(token string, expected TokenType) (*Claims, error)

	// AccessTokenTTL reports the configured access-token lifetime.
	AccessTokenTTL() time.Duration
}
