package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
	"github.com/ems-platform/auth-service/internal/handler/http/middleware"
	"github.com/ems-platform/auth-service/internal/service"
	"github.com/ems-platform/auth-service/internal/utils/ip"
	"github.com/ems-platform/auth-service/internal/utils/random"
)

const oauthStateCookie = "oauth_state"

// AuthHandler exposes the authentication lifecycle over HTTP.
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewAuthHandler creates the handler.
func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type loginRequest struct {
	IdentityKey string `json:"identity_key" binding:"required"`
	Password    string `json:"password" binding:"required"`
	RememberMe  bool   `json:"remember_me"`
}

type loginResponse struct {
	AccessToken  string                  `json:"access_token"`
	RefreshToken string                  `json:"refresh_token"`
	TokenType    string                  `json:"token_type"`
	ExpiresAt    time.Time               `json:"expires_at"`
	SessionID    int64                   `json:"session_id"`
	Employee     service.IdentitySummary `json:"employee"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, domainErrors.NewAppError(
			domainErrors.ErrInvalidRequest, "identity_key and password are required",
			http.StatusBadRequest, "VALIDATION_ERROR"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		IdentityKey: req.IdentityKey,
		Password:    req.Password,
		RememberMe:  req.RememberMe,
		Meta:        requestMeta(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, newLoginResponse(result))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, domainErrors.NewAppError(
			domainErrors.ErrInvalidRequest, "refresh_token is required",
			http.StatusBadRequest, "VALIDATION_ERROR"))
		return
	}

	result, err := h.auth.RenewToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": result.AccessToken,
		"token_type":   "bearer",
		"expires_in":   int64(result.ExpiresIn.Seconds()),
	})
}

// Logout handles DELETE /auth/logout. The session id comes from the verified
// access token, so only the caller's own session can be closed.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok || sessionID == 0 {
		respondError(c, h.logger, domainErrors.ErrInvalidToken)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), sessionID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Verify handles POST /auth/verify: access-token introspection that also
// re-checks the employee record.
func (h *AuthHandler) Verify(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		respondError(c, h.logger, domainErrors.ErrInvalidToken)
		return
	}

	result, err := h.auth.Introspect(c.Request.Context(), claims)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":       result.Valid,
		"employee_id": result.EmployeeID,
		"email":       result.Email,
		"expires_at":  result.ExpiresAt,
	})
}

type sessionView struct {
	ID         int64     `json:"id"`
	Provider   string    `json:"provider"`
	DeviceInfo *string   `json:"device_info,omitempty"`
	IPAddress  *string   `json:"ip_address,omitempty"`
	UserAgent  *string   `json:"user_agent,omitempty"`
	Current    bool      `json:"current"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Sessions handles GET /auth/sessions: the caller's active sessions.
func (h *AuthHandler) Sessions(c *gin.Context) {
	employeeID, ok := middleware.EmployeeID(c)
	if !ok {
		respondError(c, h.logger, domainErrors.ErrInvalidToken)
		return
	}
	currentSessionID, _ := middleware.SessionID(c)

	sessions, err := h.auth.ListSessions(c.Request.Context(), employeeID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:         s.ID,
			Provider:   string(s.Provider),
			DeviceInfo: s.DeviceInfo,
			IPAddress:  s.IPAddress,
			UserAgent:  s.UserAgent,
			Current:    s.ID == currentSessionID,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

type verifyOldPasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
}

// VerifyOldPassword handles POST /auth/verify-old-password: the first step of
// the password-change flow. A wrong password is a 200 with valid=false.
func (h *AuthHandler) VerifyOldPassword(c *gin.Context) {
	employeeID, ok := middleware.EmployeeID(c)
	if !ok {
		respondError(c, h.logger, domainErrors.ErrInvalidToken)
		return
	}

	var req verifyOldPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, domainErrors.NewAppError(
			domainErrors.ErrInvalidRequest, "old_password is required",
			http.StatusBadRequest, "VALIDATION_ERROR"))
		return
	}

	result, err := h.auth.VerifyOldPasswordAndSendOTP(c.Request.Context(), employeeID, req.OldPassword)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "verification code sent"
	if !result.Valid {
		message = "old password is incorrect"
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":              result.Valid,
		"otp_sent":           result.OTPSent,
		"expires_in_seconds": int64(result.ExpiresIn.Seconds()),
		"message":            message,
	})
}

type changePasswordRequest struct {
	OTPCode         string `json:"otp_code" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// ChangePassword handles POST /auth/change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	employeeID, ok := middleware.EmployeeID(c)
	if !ok {
		respondError(c, h.logger, domainErrors.ErrInvalidToken)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, domainErrors.NewAppError(
			domainErrors.ErrInvalidRequest, "otp_code, new_password and confirm_password are required; passwords must be at least 8 characters",
			http.StatusBadRequest, "VALIDATION_ERROR"))
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), employeeID, req.OTPCode, req.NewPassword, req.ConfirmPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"employee_id": employeeID,
		"message":     "password changed, please log in again",
	})
}

// MicrosoftLogin handles GET /auth/login/microsoft: redirect to the identity
// provider with a fresh anti-forgery state bound to a short-lived cookie.
func (h *AuthHandler) MicrosoftLogin(c *gin.Context) {
	state, err := random.GenerateSecureToken(24)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	url, err := h.auth.OAuthAuthURL(state)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.SetCookie(oauthStateCookie, state, int((5 * time.Minute).Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, url)
}

type oauthCallbackRequest struct {
	Code  string `json:"code" binding:"required"`
	State string `json:"state" binding:"required"`
}

// MicrosoftCallback handles POST /auth/microsoft/callback.
func (h *AuthHandler) MicrosoftCallback(c *gin.Context) {
	var req oauthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, domainErrors.NewAppError(
			domainErrors.ErrInvalidRequest, "code and state are required",
			http.StatusBadRequest, "VALIDATION_ERROR"))
		return
	}

	expectedState, err := c.Cookie(oauthStateCookie)
	if err != nil || expectedState == "" || expectedState != req.State {
		respondError(c, h.logger, domainErrors.NewAppError(
			domainErrors.ErrInvalidCredentials, "state mismatch",
			http.StatusUnauthorized, "INVALID_CREDENTIALS"))
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)

	result, err := h.auth.OAuthLogin(c.Request.Context(), req.Code, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, newLoginResponse(result))
}

func newLoginResponse(result *service.LoginResult) loginResponse {
	return loginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "bearer",
		ExpiresAt:    result.ExpiresAt,
		SessionID:    result.SessionID,
		Employee:     result.Employee,
	}
}

func requestMeta(c *gin.Context) service.RequestMeta {
	meta := service.RequestMeta{}
	if addr := ip.ClientIP(c.Request); addr != "" {
		meta.IPAddress = &addr
	}
	if ua := c.Request.UserAgent(); ua != "" {
		meta.UserAgent = &ua
	}
	if device := c.GetHeader("X-Device-Info"); device != "" {
		meta.DeviceInfo = &device
	}
	return meta
}
