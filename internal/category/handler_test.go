package category

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// callerInjector stands in for the optional auth middleware: a test header
// carrying a role becomes the request caller, no header stays anonymous.
func callerInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(common.CallerKey, common.Caller{
				UserID:  uuid.New(),
				IsStaff: role == common.RoleStaff,
			})
		}
		c.Next()
	}
}

func setupCategoryRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	db := setupCategoryRepoTestDB(t)

	seedCategory(t, db, "active-cat", nil)
	inactive := seedCategory(t, db, "inactive-cat", nil)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	service := NewService(NewGORMRepository(db), nil, &config.Config{}, zap.NewNop())
	handler := NewHandler(service, zap.NewNop())

	router := gin.New()
	v1 := router.Group("/api/v1")
	noop := func(c *gin.Context) { c.Next() }
	handler.RegisterRoutes(v1, noop, callerInjector(), noop)
	return router
}

func listedCategoryNames(t *testing.T, router *gin.Engine, staff bool) []string {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories?include_inactive=true", nil)
	if staff {
		req.Header.Set("X-Test-Role", common.RoleStaff)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []CategoryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	names := make([]string, 0, len(body.Data))
	for _, cat := range body.Data {
		names = append(names, cat.Name)
	}
	return names
}

func TestHandler_ListCategories_IncludeInactiveIsStaffOnly(t *testing.T) {
	router := setupCategoryRouter(t)

	assert.NotContains(t, listedCategoryNames(t, router, false), "inactive-cat")

	staffNames := listedCategoryNames(t, router, true)
	assert.Contains(t, staffNames, "inactive-cat")
	assert.Contains(t, staffNames, "active-cat")
}
