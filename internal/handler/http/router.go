package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ems-platform/auth-service/internal/domain/service"
	"github.com/ems-platform/auth-service/internal/handler/http/middleware"
)

// RouterDeps bundles what the router wires together.
type RouterDeps struct {
	AuthHandler *AuthHandler
	Tokens      service.TokenService
	Logger      *zap.Logger
	APIPrefix   string
	// ReadinessCheck reports whether backing stores are reachable. nil means
	// readiness always succeeds.
	ReadinessCheck func(ctx context.Context) error
	Environment    string
}

// NewRouter builds the gin engine: ambient middleware, health endpoints, and
// the auth API under the configured prefix. Protected routes sit behind the
// authentication gate; public ones are grouped outside it.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(deps.Logger),
		middleware.LoggingMiddleware(deps.Logger),
		middleware.MetricsMiddleware(),
		middleware.CORSMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readiness", func(c *gin.Context) {
		if deps.ReadinessCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.ReadinessCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group(deps.APIPrefix + "/auth")
	{
		auth.POST("/login", deps.AuthHandler.Login)
		auth.POST("/refresh", deps.AuthHandler.Refresh)
		auth.GET("/login/microsoft", deps.AuthHandler.MicrosoftLogin)
		auth.POST("/microsoft/callback", deps.AuthHandler.MicrosoftCallback)

		protected := auth.Group("", middleware.AuthMiddleware(deps.Tokens, deps.Logger))
		{
			protected.DELETE("/logout", deps.AuthHandler.Logout)
			protected.POST("/verify", deps.AuthHandler.Verify)
			protected.GET("/sessions", deps.AuthHandler.Sessions)
			protected.POST("/verify-old-password", deps.AuthHandler.VerifyOldPassword)
			protected.POST("/change-password", deps.AuthHandler.ChangePassword)
		}
	}

	return router
}
