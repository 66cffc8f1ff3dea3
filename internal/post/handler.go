// File: internal/post/handler.go
package post

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/image"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxMultipartMemory = 32 << 20

// Handler serves the post endpoints for all three audiences.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new post handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up public, owner and moderation routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, optionalAuthMW, moderatorMW gin.HandlerFunc) {
	postGroup := router.Group("/posts")
	{
		postGroup.GET("", h.feed)
		postGroup.GET("/:idOrSlug", optionalAuthMW, h.getPost)

		authed := postGroup.Group("")
		authed.Use(authMW)
		{
			authed.POST("", h.createPost)
			authed.GET("/my-posts", h.myPosts)
			authed.PATCH("/:idOrSlug", h.updatePost)
			authed.DELETE("/:idOrSlug", h.archivePost)
			authed.POST("/:idOrSlug/toggle-visibility", h.toggleVisibility)
			authed.POST("/:idOrSlug/mark-sold", h.markSold)
			authed.POST("/:idOrSlug/pause", h.pause)
			authed.POST("/:idOrSlug/unpause", h.unpause)
			authed.POST("/:idOrSlug/images", h.attachImages)
			authed.DELETE("/:idOrSlug/images/:imageID", h.removeImage)
		}

		moderation := postGroup.Group("/moderation")
		moderation.Use(authMW, moderatorMW)
		{
			moderation.GET("", h.moderationList)
			moderation.GET("/queue", h.moderationQueue)
			moderation.POST("/:idOrSlug/approve", h.approve)
			moderation.POST("/:idOrSlug/reject", h.reject)
			moderation.POST("/:idOrSlug/activate", h.activate)
			moderation.PATCH("/:idOrSlug", h.moderationUpdate)
		}
	}
}

func (h *Handler) postID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("idOrSlug"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid post ID format."))
		return uuid.Nil, false
	}
	return id, true
}

// --- Creation ---

func (h *Handler) createPost(c *gin.Context) {
	caller := common.GetCallerFromContext(c)

	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid multipart form: "+err.Error()))
		return
	}

	input, details := parseCreateForm(c)
	if len(details) > 0 {
		common.RespondWithError(c, common.NewValidationAPIError(details))
		return
	}

	files, err := readUploadedFiles(c, "images")
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Could not read uploaded files."))
		return
	}

	p, uploadResult, err := h.service.Create(c.Request.Context(), caller, *input, files)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	resp := CreatePostResponse{Post: ToPostResponse(p, true)}
	if uploadResult != nil {
		resp.FailedImages = uploadResult.Failed
	}
	common.RespondCreated(c, "Post created.", resp)
}

// parseCreateForm reads form fields into a CreatePostInput, accumulating
// field-scoped errors instead of failing on the first bad value.
func parseCreateForm(c *gin.Context) (*CreatePostInput, map[string]string) {
	details := map[string]string{}
	input := &CreatePostInput{
		Title:      c.PostForm("title"),
		Content:    c.PostForm("content"),
		Unit:       c.PostForm("unit"),
		Visibility: c.PostForm("visibility"),
	}

	input.Price = parseDecimalField(c.PostForm("price"), "price", true, details)
	input.Quantity = parseDecimalField(c.PostForm("quantity"), "quantity", true, details)

	if raw := c.PostForm("category_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			input.CategoryID = &id
		} else {
			details["category_id"] = "Must be a valid UUID."
		}
	}
	if raw := c.PostForm("municipality_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			input.MunicipalityID = &id
		} else {
			details["municipality_id"] = "Must be a valid UUID."
		}
	}
	if raw := c.PostForm("expires_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			input.ExpiresAt = &t
		} else {
			details["expires_at"] = "Must be an RFC 3339 timestamp."
		}
	}
	return input, details
}

func parseDecimalField(raw, field string, required bool, details map[string]string) decimal.Decimal {
	if raw == "" {
		if required {
			details[field] = "This field is required."
		}
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		details[field] = "Must be a valid decimal number."
		return decimal.Zero
	}
	return d
}

func readUploadedFiles(c *gin.Context, field string) ([]image.FileInput, error) {
	if c.Request.MultipartForm == nil {
		return nil, nil
	}
	headers := c.Request.MultipartForm.File[field]
	files := make([]image.FileInput, 0, len(headers))
	for _, header := range headers {
		data, err := readMultipartFile(header)
		if err != nil {
			return nil, err
		}
		files = append(files, image.FileInput{Filename: header.Filename, Data: data})
	}
	return files, nil
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// --- Reads ---

func (h *Handler) feed(c *gin.Context) {
	details := map[string]string{}

	var q FeedQuery
	var categoryID *uuid.UUID
	if raw := c.Query("category"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			categoryID = &id
		} else {
			details["category"] = "Must be a valid UUID."
		}
	}
	if raw := c.Query("municipality_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			q.MunicipalityID = &id
		} else {
			details["municipality_id"] = "Must be a valid UUID."
		}
	}
	if raw := c.Query("department_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			q.DepartmentID = &id
		} else {
			details["department_id"] = "Must be a valid UUID."
		}
	}
	if raw := c.Query("is_featured"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			q.IsFeatured = &b
		} else {
			details["is_featured"] = "Must be a boolean."
		}
	}

	minPrice, err := ParsePriceParam("min_price", c.Query("min_price"))
	if err != nil {
		mergeFieldError(details, err)
	}
	maxPrice, err := ParsePriceParam("max_price", c.Query("max_price"))
	if err != nil {
		mergeFieldError(details, err)
	}
	if len(details) > 0 {
		common.RespondWithError(c, common.NewValidationAPIError(details))
		return
	}

	q.MinPrice = minPrice
	q.MaxPrice = maxPrice
	q.Unit = c.Query("unit")
	q.Search = c.Query("search")
	q.Ordering = c.Query("ordering")
	q.Pagination.Page, q.Pagination.PageSize = common.GetPaginationParams(c)

	posts, total, err := h.service.Feed(c.Request.Context(), q, categoryID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "", toResponses(posts, false),
		common.NewPagination(total, q.Pagination.Page, q.Pagination.PageSize))
}

func mergeFieldError(details map[string]string, err error) {
	apiErr, ok := common.IsAPIError(err)
	if !ok {
		return
	}
	if m, ok := apiErr.Details.(map[string]string); ok {
		for k, v := range m {
			details[k] = v
		}
	}
}

func (h *Handler) getPost(c *gin.Context) {
	caller := common.GetCallerFromContext(c)
	p, err := h.service.Get(c.Request.Context(), caller, c.Param("idOrSlug"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	audit := caller.IsPrivileged() || (caller.UserID != uuid.Nil && caller.UserID == p.UserID)
	common.RespondOK(c, "", ToPostResponse(p, audit))
}

func (h *Handler) myPosts(c *gin.Context) {
	caller := common.GetCallerFromContext(c)

	var q OwnerQuery
	q.Status = c.Query("status")
	q.Visibility = c.Query("visibility")
	if raw := c.Query("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.RespondWithError(c, common.NewFieldValidationError("category", "Must be a valid UUID."))
			return
		}
		q.CategoryID = &id
	}
	q.Pagination.Page, q.Pagination.PageSize = common.GetPaginationParams(c)

	posts, total, err := h.service.ListOwn(c.Request.Context(), caller.UserID, q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "", toResponses(posts, true),
		common.NewPagination(total, q.Pagination.Page, q.Pagination.PageSize))
}

// --- Owner mutations ---

type updatePostRequest struct {
	Title          *string    `json:"title,omitempty" binding:"omitempty,min=1,max=255"`
	Content        *string    `json:"content,omitempty" binding:"omitempty,min=1"`
	CategoryID     *uuid.UUID `json:"category_id,omitempty"`
	MunicipalityID *uuid.UUID `json:"municipality_id,omitempty"`
	Price          *string    `json:"price,omitempty"`
	Quantity       *string    `json:"quantity,omitempty"`
	Unit           *string    `json:"unit,omitempty" binding:"omitempty,min=1,max=50"`
	Visibility     *string    `json:"visibility,omitempty" binding:"omitempty,oneof=public private unlisted"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) updatePost(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}

	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	details := map[string]string{}
	input := UpdatePostInput{
		Title:          req.Title,
		Content:        req.Content,
		CategoryID:     req.CategoryID,
		MunicipalityID: req.MunicipalityID,
		Unit:           req.Unit,
		Visibility:     req.Visibility,
		ExpiresAt:      req.ExpiresAt,
	}
	if req.Price != nil {
		d := parseDecimalField(*req.Price, "price", false, details)
		input.Price = &d
	}
	if req.Quantity != nil {
		d := parseDecimalField(*req.Quantity, "quantity", false, details)
		input.Quantity = &d
	}
	if len(details) > 0 {
		common.RespondWithError(c, common.NewValidationAPIError(details))
		return
	}

	caller := common.GetCallerFromContext(c)
	p, err := h.service.Update(c.Request.Context(), caller, id, input)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Post updated.", ToPostResponse(p, true))
}

func (h *Handler) archivePost(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}
	caller := common.GetCallerFromContext(c)
	if err := h.service.Archive(c.Request.Context(), caller, id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) toggleVisibility(c *gin.Context) {
	h.ownerTransition(c, h.service.ToggleVisibility, "Visibility toggled.")
}

func (h *Handler) markSold(c *gin.Context) {
	h.ownerTransition(c, h.service.MarkSold, "Post marked as sold.")
}

func (h *Handler) pause(c *gin.Context) {
	h.ownerTransition(c, h.service.Pause, "Post paused.")
}

func (h *Handler) unpause(c *gin.Context) {
	h.ownerTransition(c, h.service.Unpause, "Post unpaused.")
}

func (h *Handler) ownerTransition(c *gin.Context, op func(ctx context.Context, caller common.Caller, id uuid.UUID) (*Post, error), message string) {
	id, ok := h.postID(c)
	if !ok {
		return
	}
	caller := common.GetCallerFromContext(c)
	p, err := op(c.Request.Context(), caller, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, message, ToPostResponse(p, true))
}

// --- Images ---

func (h *Handler) attachImages(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid multipart form: "+err.Error()))
		return
	}

	files, err := readUploadedFiles(c, "images")
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Could not read uploaded files."))
		return
	}

	var positions []int
	if raw := c.PostForm("orders"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				common.RespondWithError(c, common.NewFieldValidationError("order", "Order values must be integers."))
				return
			}
			positions = append(positions, n)
		}
	}

	caller := common.GetCallerFromContext(c)
	p, uploadResult, err := h.service.AttachImages(c.Request.Context(), caller, id, files, positions)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	resp := CreatePostResponse{Post: ToPostResponse(p, true)}
	if uploadResult != nil {
		resp.FailedImages = uploadResult.Failed
	}
	common.RespondOK(c, "Images attached.", resp)
}

func (h *Handler) removeImage(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}
	imageID, err := uuid.Parse(c.Param("imageID"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid image ID format."))
		return
	}
	caller := common.GetCallerFromContext(c)
	if err := h.service.RemoveImage(c.Request.Context(), caller, id, imageID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

// --- Moderation ---

func (h *Handler) moderationList(c *gin.Context) {
	var q ModerationQuery
	q.Status = c.Query("status")
	q.Visibility = c.Query("visibility")
	q.Ordering = c.Query("ordering")
	q.Pagination.Page, q.Pagination.PageSize = common.GetPaginationParams(c)

	posts, total, err := h.service.ModerationList(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "", toResponses(posts, true),
		common.NewPagination(total, q.Pagination.Page, q.Pagination.PageSize))
}

func (h *Handler) moderationQueue(c *gin.Context) {
	var p common.PaginationQuery
	p.Page, p.PageSize = common.GetPaginationParams(c)

	posts, total, err := h.service.ModerationQueue(c.Request.Context(), p)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "", toResponses(posts, true),
		common.NewPagination(total, p.Page, p.PageSize))
}

func (h *Handler) approve(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}
	caller := common.GetCallerFromContext(c)
	p, err := h.service.Approve(c.Request.Context(), caller, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Post approved.", ToPostResponse(p, true))
}

// Notes are optional; a reject without them stores empty review notes.
type rejectRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) reject(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	caller := common.GetCallerFromContext(c)
	p, err := h.service.Reject(c.Request.Context(), caller, id, req.Notes)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Post rejected.", ToPostResponse(p, true))
}

func (h *Handler) activate(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}
	caller := common.GetCallerFromContext(c)
	p, err := h.service.Activate(c.Request.Context(), caller, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Post activated.", ToPostResponse(p, true))
}

type moderationUpdateRequest struct {
	Status      *string `json:"status,omitempty"`
	Visibility  *string `json:"visibility,omitempty"`
	IsFeatured  *bool   `json:"is_featured,omitempty"`
	ReviewNotes *string `json:"review_notes,omitempty"`
}

func (h *Handler) moderationUpdate(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}
	var req moderationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	caller := common.GetCallerFromContext(c)
	p, err := h.service.ModerationUpdate(c.Request.Context(), caller, id, ModerationUpdateInput{
		Status:      req.Status,
		Visibility:  req.Visibility,
		IsFeatured:  req.IsFeatured,
		ReviewNotes: req.ReviewNotes,
	})
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Post updated.", ToPostResponse(p, true))
}

func toResponses(posts []Post, audit bool) []PostResponse {
	resp := make([]PostResponse, 0, len(posts))
	for i := range posts {
		resp = append(resp, ToPostResponse(&posts[i], audit))
	}
	return resp
}
