package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
	"github.com/ems-platform/auth-service/internal/domain/service"
)

// Gin context keys populated by the gate for downstream handlers.
const (
	ContextEmployeeIDKey = "employeeID"
	ContextEmailKey      = "email"
	ContextSessionIDKey  = "sessionID"
	ContextClaimsKey     = "claims"

	authHeaderKey  = "Authorization"
	authTypeBearer = "bearer"
)

// AuthMiddleware is the authentication gate: it extracts the bearer token,
// verifies it as an access token, and attaches the caller's identity to the
// request context. It never refreshes tokens; expired access tokens are
// rejected and the client must hit the refresh endpoint.
func AuthMiddleware(tokens service.TokenService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractBearerToken(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		claims, err := tokens.Verify(tokenString, service.TokenTypeAccess)
		if err != nil {
			logger.Debug("access token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			abortUnauthorized(c, err)
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextEmployeeIDKey, claims.EmployeeID)
		c.Set(ContextEmailKey, claims.Email)
		c.Set(ContextSessionIDKey, claims.SessionID)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader(authHeaderKey)
	if header == "" {
		return "", domainErrors.ErrMissingToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || strings.ToLower(parts[0]) != authTypeBearer {
		return "", domainErrors.ErrInvalidToken
	}
	return parts[1], nil
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":        domainErrors.Code(err),
			"message":     err.Error(),
			"http_status": http.StatusUnauthorized,
		},
	})
}

// EmployeeID reads the authenticated employee id set by the gate.
func EmployeeID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextEmployeeIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// SessionID reads the authenticated session id set by the gate.
func SessionID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextSessionIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// Claims reads the full verified claim-set set by the gate.
func Claims(c *gin.Context) (*service.Claims, bool) {
	v, ok := c.Get(ContextClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*service.Claims)
	return claims, ok
}
