// File: internal/crop/handler.go
package crop

import (
	"errors"
	"strings"

	"agromarket_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler serves crop and product endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new crop handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up crop routes (owner-scoped) and the public product
// catalog.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	router.GET("/products", h.listProducts)

	cropGroup := router.Group("/crops")
	cropGroup.Use(authMW)
	{
		cropGroup.POST("", h.createCrop)
		cropGroup.GET("", h.listCrops)
		cropGroup.GET("/:id", h.getCrop)
		cropGroup.PUT("/:id", h.updateCrop)
		cropGroup.DELETE("/:id", h.deleteCrop)
	}
}

func (h *Handler) bindCropRequest(c *gin.Context) (*CropRequest, bool) {
	var req CropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return nil, false
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return nil, false
	}
	return &req, true
}

func (h *Handler) createCrop(c *gin.Context) {
	req, ok := h.bindCropRequest(c)
	if !ok {
		return
	}
	ownerID := common.GetUserIDFromContext(c)
	cr, err := h.service.Create(c.Request.Context(), ownerID, *req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Crop created.", ToCropResponse(cr))
}

func (h *Handler) listCrops(c *gin.Context) {
	ownerID := common.GetUserIDFromContext(c)
	var p common.PaginationQuery
	p.Page, p.PageSize = common.GetPaginationParams(c)

	crops, total, err := h.service.List(c.Request.Context(), ownerID, p)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp := make([]CropResponse, 0, len(crops))
	for i := range crops {
		resp = append(resp, ToCropResponse(&crops[i]))
	}
	common.RespondPaginated(c, "", resp, common.NewPagination(total, p.Page, p.PageSize))
}

func (h *Handler) getCrop(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid crop ID format."))
		return
	}
	ownerID := common.GetUserIDFromContext(c)
	cr, err := h.service.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "", ToCropResponse(cr))
}

func (h *Handler) updateCrop(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid crop ID format."))
		return
	}
	req, ok := h.bindCropRequest(c)
	if !ok {
		return
	}
	ownerID := common.GetUserIDFromContext(c)
	cr, err := h.service.Update(c.Request.Context(), ownerID, id, *req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Crop updated.", ToCropResponse(cr))
}

func (h *Handler) deleteCrop(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid crop ID format."))
		return
	}
	ownerID := common.GetUserIDFromContext(c)
	if err := h.service.Delete(c.Request.Context(), ownerID, id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) listProducts(c *gin.Context) {
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))
	products, err := h.service.ListProducts(c.Request.Context(), search)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp := make([]ProductResponse, 0, len(products))
	for i := range products {
		resp = append(resp, ToProductResponse(&products[i]))
	}
	common.RespondOK(c, "", resp)
}
