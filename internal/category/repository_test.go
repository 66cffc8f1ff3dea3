package category

import (
	"context"
	"fmt"
	"testing"

	"agromarket_backend/internal/post"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupCategoryRepoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Category{}, &post.Post{}))
	return db
}

func seedCategory(t *testing.T, db *gorm.DB, name string, parentID *uuid.UUID) *Category {
	cat := &Category{
		Name:     name,
		Slug:     fmt.Sprintf("%s-%s", name, uuid.New().String()[:8]),
		ParentID: parentID,
		IsActive: true,
	}
	require.NoError(t, db.Create(cat).Error)
	return cat
}

func seedCategoryPost(t *testing.T, db *gorm.DB, categoryID uuid.UUID, status, visibility string) {
	p := &post.Post{
		UserID:     uuid.New(),
		CategoryID: &categoryID,
		Title:      "Seed post",
		Slug:       fmt.Sprintf("seed-post-%s", uuid.New().String()[:8]),
		Content:    "Seed content",
		Price:      decimal.NewFromInt(10),
		Quantity:   decimal.NewFromInt(5),
		Unit:       "kg",
		Status:     status,
		Visibility: visibility,
	}
	require.NoError(t, db.Create(p).Error)
}

func TestRepository_PostCount_CountsOnlyLiveListings(t *testing.T) {
	db := setupCategoryRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	grains := seedCategory(t, db, "grains", nil)
	empty := seedCategory(t, db, "empty", nil)

	seedCategoryPost(t, db, grains.ID, post.StatusActive, post.VisibilityPublic)
	seedCategoryPost(t, db, grains.ID, post.StatusActive, post.VisibilityPublic)
	seedCategoryPost(t, db, grains.ID, post.StatusPendingReview, post.VisibilityPublic)
	seedCategoryPost(t, db, grains.ID, post.StatusActive, post.VisibilityPrivate)
	seedCategoryPost(t, db, grains.ID, post.StatusSold, post.VisibilityPublic)

	all, err := repo.FindAll(ctx, true)
	require.NoError(t, err)
	counts := make(map[uuid.UUID]int64, len(all))
	for i := range all {
		counts[all[i].ID] = all[i].PostCount
	}
	assert.Equal(t, int64(2), counts[grains.ID])
	assert.Equal(t, int64(0), counts[empty.ID])
}

func TestRepository_PostCount_PopulatedOnDetailAndChildren(t *testing.T) {
	db := setupCategoryRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	parent := seedCategory(t, db, "fruits", nil)
	child := seedCategory(t, db, "citrus", &parent.ID)

	seedCategoryPost(t, db, parent.ID, post.StatusActive, post.VisibilityPublic)
	seedCategoryPost(t, db, child.ID, post.StatusActive, post.VisibilityPublic)
	seedCategoryPost(t, db, child.ID, post.StatusActive, post.VisibilityPublic)
	seedCategoryPost(t, db, child.ID, post.StatusRejected, post.VisibilityPublic)

	byID, err := repo.FindByID(ctx, parent.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byID.PostCount)
	require.Len(t, byID.Children, 1)
	assert.Equal(t, int64(2), byID.Children[0].PostCount)

	bySlug, err := repo.FindBySlug(ctx, child.Slug, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), bySlug.PostCount)
}
