package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/parohia/parohia/internal/auth"
	"github.com/parohia/parohia/internal/middleware"
	"github.com/parohia/parohia/pkg/errors"
	"github.com/parohia/parohia/pkg/metrics"
	"github.com/parohia/parohia/pkg/response"
)

// AuthHandler manages authentication flows (login/logout).
type AuthHandler struct {
	authenticator *iauth.Authenticator
	sessions      *iauth.SessionService
}

func NewAuthHandler(authenticator *iauth.Authenticator, sessions *iauth.SessionService) *AuthHandler {
	return &AuthHandler{authenticator: authenticator, sessions: sessions}
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type tokenResponse struct {
	SessionToken string `json:"session_token"`
	AccessToken  string `json:"access_token"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.authenticator.Authenticate(c.Request.Context(), iauth.AuthenticateInput{
		Identifier: strings.TrimSpace(req.Identifier),
		Password:   req.Password,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		// Normalise auth errors to 401
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	pair, _, err := h.sessions.Create(c.Request.Context(), user.ID, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	payload := gin.H{
		"tokens": tokenResponse{SessionToken: pair.SessionToken, AccessToken: pair.AccessToken},
		"user": gin.H{
			"id":          user.ID,
			"username":    user.Username,
			"email":       user.Email,
			"first_name":  user.FirstName,
			"last_name":   user.LastName,
			"is_active":   user.IsActive,
			"legacy_role": user.LegacyRole,
		},
	}

	response.Success(c, http.StatusOK, payload)
}

type logoutRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.sessions.Revoke(c.Request.Context(), strings.TrimSpace(req.SessionToken)); err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// POST /api/auth/logout-all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeAllForUser(c.Request.Context(), userID); err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}
