package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parohia/parohia/internal/authz"
	"github.com/parohia/parohia/pkg/errors"
	"github.com/parohia/parohia/pkg/logger"
	"github.com/parohia/parohia/pkg/metrics"
	"github.com/parohia/parohia/pkg/response"
)

// ParishHeader names the request header carrying the parish scope for a call.
const ParishHeader = "X-Parish-ID"

// RequireDecision evaluates the named action for the authenticated user and
// aborts with 403 when denied. Store failures surface as 503-class errors
// rather than denials so callers can retry.
func RequireDecision(resolver *authz.Resolver, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUserIDKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		userID, _ := v.(string)

		decision, err := resolver.Decide(c.Request.Context(), authz.Request{
			UserID:   userID,
			Action:   action,
			ParishID: strings.TrimSpace(c.GetHeader(ParishHeader)),
		})
		if err != nil {
			metrics.PermissionDecisions.WithLabelValues("STORE_ERROR", "error").Inc()
			logger.WithModule("authz").Error("decision failed",
				zap.String("action", action),
				zap.Error(err),
			)
			response.Error(c, errors.ErrAuthzUnavailable)
			c.Abort()
			return
		}

		if !decision.Allowed {
			metrics.PermissionDecisions.WithLabelValues(string(decision.Reason), "deny").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.PermissionDecisions.WithLabelValues(string(decision.Reason), "allow").Inc()
		c.Next()
	}
}
