// File: internal/location/handler.go
package location

import (
	"agromarket_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler serves read-only location reference endpoints.
type Handler struct {
	repo   Repository
	logger *zap.Logger
}

// NewHandler creates a new location handler.
func NewHandler(repo Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes sets up public location routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/departments", h.listDepartments)
	router.GET("/municipalities", h.listMunicipalities)
}

func (h *Handler) listDepartments(c *gin.Context) {
	departments, err := h.repo.ListDepartments(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp := make([]DepartmentResponse, 0, len(departments))
	for i := range departments {
		resp = append(resp, ToDepartmentResponse(&departments[i]))
	}
	common.RespondOK(c, "", resp)
}

func (h *Handler) listMunicipalities(c *gin.Context) {
	var departmentID *uuid.UUID
	if raw := c.Query("department_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.RespondWithError(c, common.NewFieldValidationError("department_id", "Must be a valid UUID."))
			return
		}
		departmentID = &id
	}

	municipalities, err := h.repo.ListMunicipalities(c.Request.Context(), departmentID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp := make([]MunicipalityResponse, 0, len(municipalities))
	for i := range municipalities {
		resp = append(resp, ToMunicipalityResponse(&municipalities[i]))
	}
	common.RespondOK(c, "", resp)
}
