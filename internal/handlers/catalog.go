package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parohia/parohia/internal/authz"
	"github.com/parohia/parohia/pkg/response"
)

// CatalogHandler lists the deployment permission catalog.
type CatalogHandler struct {
	catalog *authz.Catalog
}

func NewCatalogHandler(catalog *authz.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type permissionInfo struct {
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
	System      bool   `json:"system"`
	Mutating    bool   `json:"mutating"`
}

// GET /api/permissions
func (h *CatalogHandler) List(c *gin.Context) {
	defs := h.catalog.Definitions()

	out := make([]permissionInfo, 0, len(defs))
	for _, def := range defs {
		name := def.Name()
		out = append(out, permissionInfo{
			Name:        name,
			Resource:    def.Resource,
			Action:      def.Action,
			Description: def.Description,
			System:      def.System,
			Mutating:    h.catalog.IsMutating(name),
		})
	}

	response.Success(c, http.StatusOK, out)
}
