package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parohia/parohia/internal/authz"
	"github.com/parohia/parohia/internal/middleware"
	"github.com/parohia/parohia/internal/services"
	"github.com/parohia/parohia/pkg/errors"
	"github.com/parohia/parohia/pkg/logger"
	"github.com/parohia/parohia/pkg/metrics"
	"github.com/parohia/parohia/pkg/response"
)

// AuthzHandler exposes permission decisions over HTTP.
type AuthzHandler struct {
	resolver *authz.Resolver
	audit    *services.AuditService
}

func NewAuthzHandler(resolver *authz.Resolver, audit *services.AuditService) *AuthzHandler {
	return &AuthzHandler{resolver: resolver, audit: audit}
}

type checkRequest struct {
	Action       string `json:"action" validate:"required"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	ParishID     string `json:"parish_id"`
}

type checkResponse struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason"`
	Permission string `json:"permission"`
}

// POST /api/authz/check evaluates a decision for the authenticated user.
func (h *AuthzHandler) Check(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req checkRequest
	if !bindAndValidate(c, &req) {
		return
	}

	decision, err := h.resolver.Decide(c.Request.Context(), authz.Request{
		UserID:       userID,
		Action:       req.Action,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		ParishID:     req.ParishID,
	})
	if err != nil {
		metrics.PermissionDecisions.WithLabelValues("STORE_ERROR", "error").Inc()
		response.Error(c, errors.ErrAuthzUnavailable)
		return
	}

	result := "deny"
	if decision.Allowed {
		result = "allow"
	}
	metrics.PermissionDecisions.WithLabelValues(string(decision.Reason), result).Inc()
	h.recordDecision(c, userID, req, decision, result)

	response.Success(c, http.StatusOK, checkResponse{
		Allowed:    decision.Allowed,
		Reason:     string(decision.Reason),
		Permission: decision.Permission,
	})
}

// recordDecision persists the outcome to the audit trail. Audit failures must
// not fail the check itself.
func (h *AuthzHandler) recordDecision(c *gin.Context, userID string, req checkRequest, decision authz.Decision, result string) {
	if h.audit == nil {
		return
	}

	entry := services.AuditEntry{
		UserID:    &userID,
		Action:    req.Action,
		Resource:  req.ResourceType,
		ParishID:  req.ParishID,
		Result:    result,
		Reason:    string(decision.Reason),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if req.ResourceID != "" {
		entry.Metadata = map[string]any{"resource_id": req.ResourceID}
	}

	if err := h.audit.Log(c.Request.Context(), entry); err != nil {
		logger.WithModule("authz").Warn("audit decision", zap.Error(err))
	}
}
