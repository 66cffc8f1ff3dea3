package post

import (
	"context"
	"fmt"
	"testing"
	"time"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/location"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupPostRepoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&location.Department{}, &location.Municipality{}, &Post{}, &PostImage{}))
	return db
}

type seedOpts struct {
	status         string
	visibility     string
	price          string
	unit           string
	categoryID     *uuid.UUID
	municipalityID *uuid.UUID
	expiresAt      *time.Time
	publishedAt    *time.Time
}

func seedPost(t *testing.T, db *gorm.DB, owner uuid.UUID, o seedOpts) *Post {
	if o.status == "" {
		o.status = StatusActive
	}
	if o.visibility == "" {
		o.visibility = VisibilityPublic
	}
	if o.price == "" {
		o.price = "10.00"
	}
	if o.unit == "" {
		o.unit = "kg"
	}
	price, err := decimal.NewFromString(o.price)
	require.NoError(t, err)

	p := &Post{
		UserID:         owner,
		CategoryID:     o.categoryID,
		MunicipalityID: o.municipalityID,
		Title:          "Seed post",
		Slug:           fmt.Sprintf("seed-post-%s", uuid.New().String()[:8]),
		Content:        "Seed content",
		Price:          price,
		Quantity:       decimal.NewFromInt(5),
		Unit:           o.unit,
		Status:         o.status,
		Visibility:     o.visibility,
		ExpiresAt:      o.expiresAt,
		PublishedAt:    o.publishedAt,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func feedIDs(posts []Post) map[uuid.UUID]bool {
	ids := make(map[uuid.UUID]bool, len(posts))
	for i := range posts {
		ids[posts[i].ID] = true
	}
	return ids
}

func TestGORMRepository_SearchFeed_OnlyLivePublicUnexpired(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)

	visible := seedPost(t, db, owner, seedOpts{})
	visibleWithExpiry := seedPost(t, db, owner, seedOpts{expiresAt: &future})
	seedPost(t, db, owner, seedOpts{status: StatusPendingReview})
	seedPost(t, db, owner, seedOpts{status: StatusSold})
	seedPost(t, db, owner, seedOpts{status: StatusPaused})
	seedPost(t, db, owner, seedOpts{visibility: VisibilityPrivate})
	seedPost(t, db, owner, seedOpts{visibility: VisibilityUnlisted})
	seedPost(t, db, owner, seedOpts{expiresAt: &past})

	posts, total, err := repo.SearchFeed(ctx, FeedQuery{Pagination: common.PaginationQuery{PageSize: 50}})

	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	ids := feedIDs(posts)
	assert.True(t, ids[visible.ID])
	assert.True(t, ids[visibleWithExpiry.ID])
}

func TestGORMRepository_SearchFeed_CategorySetSemantics(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	catA := uuid.New()
	catB := uuid.New()
	inA := seedPost(t, db, owner, seedOpts{categoryID: &catA})
	seedPost(t, db, owner, seedOpts{categoryID: &catB})

	posts, total, err := repo.SearchFeed(ctx, FeedQuery{CategoryIDs: []uuid.UUID{catA}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, inA.ID, posts[0].ID)

	// An empty non-nil set matches nothing, never "ignore the filter".
	posts, total, err = repo.SearchFeed(ctx, FeedQuery{CategoryIDs: []uuid.UUID{}})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, posts)

	// A nil set means no category filter at all.
	_, total, err = repo.SearchFeed(ctx, FeedQuery{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestGORMRepository_SearchFeed_PriceBoundsAndUnit(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	cheap := seedPost(t, db, owner, seedOpts{price: "5.00", unit: "kg"})
	seedPost(t, db, owner, seedOpts{price: "50.00", unit: "quintal"})

	min := decimal.NewFromInt(1)
	max := decimal.NewFromInt(10)
	posts, total, err := repo.SearchFeed(ctx, FeedQuery{MinPrice: &min, MaxPrice: &max})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, cheap.ID, posts[0].ID)

	// Unit matches case-insensitively on substring.
	posts, total, err = repo.SearchFeed(ctx, FeedQuery{Unit: "QUIN"})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "quintal", posts[0].Unit)
}

func TestGORMRepository_SearchFeed_DepartmentFilterJoinsMunicipalities(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	north := &location.Department{Name: "North", Code: "NO"}
	south := &location.Department{Name: "South", Code: "SO"}
	require.NoError(t, db.Create(north).Error)
	require.NoError(t, db.Create(south).Error)
	muniNorth := &location.Municipality{DepartmentID: north.ID, Name: "Northville", Code: "NV"}
	muniSouth := &location.Municipality{DepartmentID: south.ID, Name: "Southtown", Code: "ST"}
	require.NoError(t, db.Create(muniNorth).Error)
	require.NoError(t, db.Create(muniSouth).Error)

	inNorth := seedPost(t, db, owner, seedOpts{municipalityID: &muniNorth.ID})
	seedPost(t, db, owner, seedOpts{municipalityID: &muniSouth.ID})
	seedPost(t, db, owner, seedOpts{})

	posts, total, err := repo.SearchFeed(ctx, FeedQuery{DepartmentID: &north.ID})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, inNorth.ID, posts[0].ID)
}

func TestGORMRepository_SearchFeed_OrderingWhitelist(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	seedPost(t, db, owner, seedOpts{price: "30.00"})
	seedPost(t, db, owner, seedOpts{price: "10.00"})
	seedPost(t, db, owner, seedOpts{price: "20.00"})

	posts, _, err := repo.SearchFeed(ctx, FeedQuery{Ordering: "price"})
	assert.NoError(t, err)
	require.Len(t, posts, 3)
	assert.True(t, posts[0].Price.LessThan(posts[1].Price))
	assert.True(t, posts[1].Price.LessThan(posts[2].Price))

	// Unknown orderings fall back to the default instead of erroring.
	_, _, err = repo.SearchFeed(ctx, FeedQuery{Ordering: "view_count; DROP TABLE posts"})
	assert.NoError(t, err)
}

func TestGORMRepository_IncrementViewCount_Accumulates(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	p := seedPost(t, db, uuid.New(), seedOpts{})
	for i := 0; i < 5; i++ {
		assert.NoError(t, repo.IncrementViewCount(ctx, p.ID))
	}

	got, err := repo.FindByID(ctx, p.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), got.ViewCount)
}

func TestGORMRepository_UpdateStatusCAS_SingleWinner(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	p := seedPost(t, db, uuid.New(), seedOpts{})

	rows, err := repo.UpdateStatusCAS(ctx, p.ID, []string{StatusActive}, map[string]interface{}{"status": StatusSold})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// A second identical transition finds the guard no longer satisfied.
	rows, err = repo.UpdateStatusCAS(ctx, p.ID, []string{StatusActive}, map[string]interface{}{"status": StatusSold})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	got, err := repo.FindByID(ctx, p.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusSold, got.Status)
}

func TestGORMRepository_AddImages_DuplicatePositionRejected(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	p := seedPost(t, db, uuid.New(), seedOpts{})
	first := []PostImage{{PostID: p.ID, ObjectKey: "posts/a", ImageURL: "https://cdn/a", Position: 0}}
	require.NoError(t, repo.AddImages(ctx, first))

	dup := []PostImage{{PostID: p.ID, ObjectKey: "posts/b", ImageURL: "https://cdn/b", Position: 0}}
	err := repo.AddImages(ctx, dup)

	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	details := apiErr.Details.(map[string]string)
	assert.Contains(t, details, "order")

	// The same position on another post is fine.
	other := seedPost(t, db, uuid.New(), seedOpts{})
	assert.NoError(t, repo.AddImages(ctx, []PostImage{{PostID: other.ID, ObjectKey: "posts/c", ImageURL: "https://cdn/c", Position: 0}}))
}

func TestGORMRepository_MaxImagePosition(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	p := seedPost(t, db, uuid.New(), seedOpts{})

	pos, err := repo.MaxImagePosition(ctx, p.ID)
	assert.NoError(t, err)
	assert.Equal(t, -1, pos)

	require.NoError(t, repo.AddImages(ctx, []PostImage{
		{PostID: p.ID, ObjectKey: "posts/a", ImageURL: "https://cdn/a", Position: 0},
		{PostID: p.ID, ObjectKey: "posts/b", ImageURL: "https://cdn/b", Position: 3},
	}))

	pos, err = repo.MaxImagePosition(ctx, p.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, pos)
}

func TestGORMRepository_ExpireOverdue_OnlyActivePastExpiry(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)

	overdue := seedPost(t, db, owner, seedOpts{expiresAt: &past})
	fresh := seedPost(t, db, owner, seedOpts{expiresAt: &future})
	pausedOverdue := seedPost(t, db, owner, seedOpts{status: StatusPaused, expiresAt: &past})
	noExpiry := seedPost(t, db, owner, seedOpts{})

	n, err := repo.ExpireOverdue(ctx, time.Now().UTC())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ := repo.FindByID(ctx, overdue.ID)
	assert.Equal(t, StatusExpired, got.Status)
	got, _ = repo.FindByID(ctx, fresh.ID)
	assert.Equal(t, StatusActive, got.Status)
	got, _ = repo.FindByID(ctx, pausedOverdue.ID)
	assert.Equal(t, StatusPaused, got.Status)
	got, _ = repo.FindByID(ctx, noExpiry.ID)
	assert.Equal(t, StatusActive, got.Status)
}

func TestGORMRepository_FindByOwner_SpansStatusesAndVisibilities(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	seedPost(t, db, owner, seedOpts{status: StatusPendingReview})
	seedPost(t, db, owner, seedOpts{status: StatusRejected, visibility: VisibilityPrivate})
	seedPost(t, db, owner, seedOpts{})
	seedPost(t, db, uuid.New(), seedOpts{})

	posts, total, err := repo.FindByOwner(ctx, owner, OwnerQuery{Pagination: common.PaginationQuery{PageSize: 50}})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, posts, 3)

	posts, total, err = repo.FindByOwner(ctx, owner, OwnerQuery{Status: StatusRejected})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, StatusRejected, posts[0].Status)
}

func TestGORMRepository_FindAllForModeration_SpansOwnersStatusesVisibilities(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	seedPost(t, db, uuid.New(), seedOpts{status: StatusPendingReview})
	seedPost(t, db, uuid.New(), seedOpts{status: StatusRejected, visibility: VisibilityPrivate})
	seedPost(t, db, uuid.New(), seedOpts{visibility: VisibilityUnlisted})
	seedPost(t, db, uuid.New(), seedOpts{})

	posts, total, err := repo.FindAllForModeration(ctx, ModerationQuery{
		Pagination: common.PaginationQuery{PageSize: 50},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, posts, 4)

	posts, total, err = repo.FindAllForModeration(ctx, ModerationQuery{Status: StatusRejected})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, StatusRejected, posts[0].Status)
}

func TestGORMRepository_FindAllForModeration_OrderingDefaultsNewestFirst(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	first := seedPost(t, db, uuid.New(), seedOpts{status: StatusPendingReview})
	require.NoError(t, db.Model(first).UpdateColumn("created_at", time.Now().UTC().Add(-time.Hour)).Error)
	second := seedPost(t, db, uuid.New(), seedOpts{})

	posts, _, err := repo.FindAllForModeration(ctx, ModerationQuery{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)

	posts, _, err = repo.FindAllForModeration(ctx, ModerationQuery{Ordering: "created_at"})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, first.ID, posts[0].ID)
}

func TestGORMRepository_Create_TransactionalWithImages(t *testing.T) {
	db := setupPostRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	p := &Post{
		UserID:   uuid.New(),
		Title:    "With images",
		Slug:     "with-images-cafe0123",
		Content:  "Content",
		Price:    decimal.NewFromInt(1),
		Quantity: decimal.NewFromInt(1),
		Unit:     "kg",
		Status:   StatusPendingReview,
	}
	p.ID = uuid.New()
	images := []PostImage{
		{ObjectKey: "posts/a", ImageURL: "https://cdn/a", Position: 0},
		{ObjectKey: "posts/b", ImageURL: "https://cdn/b", Position: 1},
	}

	require.NoError(t, repo.Create(ctx, p, images))

	got, err := repo.FindByID(ctx, p.ID)
	assert.NoError(t, err)
	require.Len(t, got.Images, 2)
	assert.Equal(t, 0, got.Images[0].Position)
	assert.Equal(t, 1, got.Images[1].Position)

	// Duplicate positions roll the whole creation back, post row included.
	clash := &Post{
		UserID:   uuid.New(),
		Title:    "Clashing",
		Slug:     "clashing-feed4567",
		Content:  "Content",
		Price:    decimal.NewFromInt(1),
		Quantity: decimal.NewFromInt(1),
		Unit:     "kg",
		Status:   StatusPendingReview,
	}
	clash.ID = uuid.New()
	err = repo.Create(ctx, clash, []PostImage{
		{ObjectKey: "posts/c", ImageURL: "https://cdn/c", Position: 0},
		{ObjectKey: "posts/d", ImageURL: "https://cdn/d", Position: 0},
	})
	assert.Error(t, err)

	_, err = repo.FindByID(ctx, clash.ID)
	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}
