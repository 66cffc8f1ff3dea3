// File: internal/category/handler.go
package category

import (
	"errors"

	"agromarket_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler serves category endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new category handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up public and staff category routes. Reads take the
// optional auth middleware so staff callers can request inactive nodes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, optionalAuthMW, staffMW gin.HandlerFunc) {
	categoryGroup := router.Group("/categories")
	{
		categoryGroup.GET("", optionalAuthMW, h.listCategories)
		categoryGroup.GET("/:id", optionalAuthMW, h.getCategory)

		adminGroup := categoryGroup.Group("/admin")
		adminGroup.Use(authMW, staffMW)
		{
			adminGroup.POST("", h.createCategory)
			adminGroup.PATCH("/:id", h.updateCategory)
			adminGroup.DELETE("/:id", h.deleteCategory)
		}
	}
}

func (h *Handler) listCategories(c *gin.Context) {
	caller := common.GetCallerFromContext(c)
	includeInactive := caller.IsStaff && c.Query("include_inactive") == "true"

	categories, err := h.service.List(c.Request.Context(), includeInactive)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		resp = append(resp, ToCategoryResponse(&categories[i]))
	}
	common.RespondOK(c, "", resp)
}

func (h *Handler) getCategory(c *gin.Context) {
	raw := c.Param("id")
	var (
		cat *Category
		err error
	)
	if id, parseErr := uuid.Parse(raw); parseErr == nil {
		cat, err = h.service.GetByID(c.Request.Context(), id)
	} else {
		cat, err = h.service.GetBySlug(c.Request.Context(), raw)
	}
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "", ToCategoryResponse(cat))
}

func (h *Handler) createCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	cat, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Category created.", ToCategoryResponse(cat))
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid category ID format."))
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	cat, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Category updated.", ToCategoryResponse(cat))
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid category ID format."))
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
