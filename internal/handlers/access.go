package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parohia/parohia/internal/middleware"
	"github.com/parohia/parohia/internal/models"
	"github.com/parohia/parohia/internal/services"
	"github.com/parohia/parohia/pkg/response"
)

// AccessHandler exposes override, membership, and record ACL endpoints.
type AccessHandler struct {
	access *services.AccessService
}

func NewAccessHandler(access *services.AccessService) *AccessHandler {
	return &AccessHandler{access: access}
}

type setOverrideRequest struct {
	Permission string `json:"permission" validate:"required,permission_name"`
	Granted    *bool  `json:"granted" validate:"required"`
}

// PUT /api/users/:id/overrides
func (h *AccessHandler) SetOverride(c *gin.Context) {
	var req setOverrideRequest
	if !bindAndValidate(c, &req) {
		return
	}

	override, err := h.access.SetOverride(c.Request.Context(), c.Param("id"), req.Permission, *req.Granted)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, override)
}

// DELETE /api/users/:id/overrides/:permission
func (h *AccessHandler) ClearOverride(c *gin.Context) {
	if err := h.access.ClearOverride(c.Request.Context(), c.Param("id"), c.Param("permission")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"cleared": true})
}

// GET /api/users/:id/overrides
func (h *AccessHandler) ListOverrides(c *gin.Context) {
	overrides, err := h.access.ListOverrides(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, overrides)
}

type upsertMembershipRequest struct {
	ParishID    string `json:"parish_id" validate:"required"`
	AccessLevel string `json:"access_level" validate:"required,oneof=full readonly limited"`
	IsPrimary   bool   `json:"is_primary"`
}

// PUT /api/users/:id/memberships
func (h *AccessHandler) UpsertMembership(c *gin.Context) {
	var req upsertMembershipRequest
	if !bindAndValidate(c, &req) {
		return
	}

	membership, err := h.access.UpsertMembership(c.Request.Context(), services.MembershipInput{
		UserID:      c.Param("id"),
		ParishID:    req.ParishID,
		AccessLevel: models.AccessLevel(req.AccessLevel),
		IsPrimary:   req.IsPrimary,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, membership)
}

// DELETE /api/users/:id/memberships/:parishId
func (h *AccessHandler) RemoveMembership(c *gin.Context) {
	if err := h.access.RemoveMembership(c.Request.Context(), c.Param("id"), c.Param("parishId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// GET /api/users/:id/memberships
func (h *AccessHandler) ListMemberships(c *gin.Context) {
	memberships, err := h.access.ListMemberships(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, memberships)
}

type setRecordAccessRequest struct {
	ResourceType string `json:"resource_type" validate:"required"`
	ResourceID   string `json:"resource_id" validate:"required"`
	Granted      *bool  `json:"granted" validate:"required"`
}

// PUT /api/users/:id/records
func (h *AccessHandler) SetRecordAccess(c *gin.Context) {
	var req setRecordAccessRequest
	if !bindAndValidate(c, &req) {
		return
	}

	entry, err := h.access.SetRecordAccess(c.Request.Context(), services.RecordAccessInput{
		UserID:       c.Param("id"),
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Granted:      *req.Granted,
		GrantedByID:  c.GetString(middleware.CtxUserIDKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, entry)
}

// DELETE /api/users/:id/records/:resourceType/:resourceId
func (h *AccessHandler) ClearRecordAccess(c *gin.Context) {
	err := h.access.ClearRecordAccess(c.Request.Context(),
		c.Param("id"), c.Param("resourceType"), c.Param("resourceId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"cleared": true})
}

// GET /api/users/:id/records
func (h *AccessHandler) ListRecordAccess(c *gin.Context) {
	entries, err := h.access.ListRecordAccess(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, entries)
}
