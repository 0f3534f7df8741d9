package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parohia/parohia/internal/services"
	"github.com/parohia/parohia/pkg/response"
)

// AuditHandler exposes read access to the audit trail.
type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	opts := services.AuditListOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 50),
		Filters:  auditFiltersFromQuery(c),
	}

	logs, total, err := h.audit.List(c.Request.Context(), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := response.NewPageMeta(opts.Page, opts.PageSize, int(total))
	response.SuccessWithMeta(c, http.StatusOK, logs, meta)
}

// GET /api/audit/export
func (h *AuditHandler) Export(c *gin.Context) {
	logs, err := h.audit.Export(c.Request.Context(), auditFiltersFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, logs)
}

func auditFiltersFromQuery(c *gin.Context) services.AuditFilters {
	filters := services.AuditFilters{
		UserID:   strings.TrimSpace(c.Query("user_id")),
		Action:   strings.TrimSpace(c.Query("action")),
		Result:   strings.TrimSpace(c.Query("result")),
		Reason:   strings.TrimSpace(c.Query("reason")),
		Resource: strings.TrimSpace(c.Query("resource")),
		ParishID: strings.TrimSpace(c.Query("parish_id")),
	}

	if since := strings.TrimSpace(c.Query("since")); since != "" {
		if parsed, err := time.Parse(time.RFC3339, since); err == nil {
			filters.Since = &parsed
		}
	}
	if until := strings.TrimSpace(c.Query("until")); until != "" {
		if parsed, err := time.Parse(time.RFC3339, until); err == nil {
			filters.Until = &parsed
		}
	}

	return filters
}
