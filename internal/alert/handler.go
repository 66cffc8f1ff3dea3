// File: internal/alert/handler.go
package alert

import (
	"io"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/image"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxMultipartMemory = 32 << 20

// Handler serves alert endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new alert handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up alert routes. Reading requires authentication so
// the region filter has a caller to resolve; creation is moderator-only.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, moderatorMW gin.HandlerFunc) {
	alertGroup := router.Group("/alerts")
	alertGroup.Use(authMW)
	{
		alertGroup.GET("", h.listAlerts)
		alertGroup.GET("/:id", h.getAlert)

		privileged := alertGroup.Group("")
		privileged.Use(moderatorMW)
		{
			privileged.POST("", h.createAlert)
			privileged.POST("/:id/images", h.attachImages)
		}
	}

	router.GET("/alert-categories", h.listCategories)
}

func (h *Handler) createAlert(c *gin.Context) {
	caller := common.GetCallerFromContext(c)

	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid multipart form: "+err.Error()))
		return
	}

	details := map[string]string{}
	input := CreateAlertInput{
		Scope:        c.PostForm("scope"),
		Title:        c.PostForm("alert_title"),
		Message:      c.PostForm("message"),
		CategoryName: c.PostForm("category_name"),
	}
	if raw := c.PostForm("department_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			input.DepartmentID = &id
		} else {
			details["department_id"] = "Must be a valid UUID."
		}
	}
	if raw := c.PostForm("municipality_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			input.MunicipalityID = &id
		} else {
			details["municipality_id"] = "Must be a valid UUID."
		}
	}
	if raw := c.PostForm("category_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			input.CategoryID = &id
		} else {
			details["category_id"] = "Must be a valid UUID."
		}
	}
	if len(details) > 0 {
		common.RespondWithError(c, common.NewValidationAPIError(details))
		return
	}

	files, err := readUploadedFiles(c)
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Could not read uploaded files."))
		return
	}

	a, _, err := h.service.Create(c.Request.Context(), caller, input, files)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Alert created.", ToAlertResponse(a))
}

func (h *Handler) listAlerts(c *gin.Context) {
	caller := common.GetCallerFromContext(c)

	var q ListQuery
	q.Scope = c.Query("scope")
	q.Search = c.Query("search")
	if raw := c.Query("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.RespondWithError(c, common.NewFieldValidationError("category", "Must be a valid UUID."))
			return
		}
		q.CategoryID = &id
	}
	q.Pagination.Page, q.Pagination.PageSize = common.GetPaginationParams(c)

	alerts, total, err := h.service.List(c.Request.Context(), caller, q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp := make([]AlertResponse, 0, len(alerts))
	for i := range alerts {
		resp = append(resp, ToAlertResponse(&alerts[i]))
	}
	common.RespondPaginated(c, "", resp,
		common.NewPagination(total, q.Pagination.Page, q.Pagination.PageSize))
}

func (h *Handler) getAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid alert ID format."))
		return
	}
	caller := common.GetCallerFromContext(c)
	a, err := h.service.Get(c.Request.Context(), caller, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "", ToAlertResponse(a))
}

func (h *Handler) attachImages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid alert ID format."))
		return
	}
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid multipart form: "+err.Error()))
		return
	}
	files, err := readUploadedFiles(c)
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Could not read uploaded files."))
		return
	}

	caller := common.GetCallerFromContext(c)
	a, _, err := h.service.AttachImages(c.Request.Context(), caller, id, files)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Images attached.", ToAlertResponse(a))
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context(), c.Query("search"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp := make([]AlertCategoryResponse, 0, len(categories))
	for i := range categories {
		resp = append(resp, ToAlertCategoryResponse(&categories[i]))
	}
	common.RespondOK(c, "", resp)
}

func readUploadedFiles(c *gin.Context) ([]image.FileInput, error) {
	if c.Request.MultipartForm == nil {
		return nil, nil
	}
	headers := c.Request.MultipartForm.File["images"]
	files := make([]image.FileInput, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, image.FileInput{Filename: header.Filename, Data: data})
	}
	return files, nil
}
