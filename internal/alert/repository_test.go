package alert

import (
	"context"
	"testing"

	"agromarket_backend/internal/location"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupAlertRepoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&AlertCategory{}, &Alert{}, &AlertImage{}))
	return db
}

func seedAlert(t *testing.T, db *gorm.DB, scope string, deptID, muniID *uuid.UUID) *Alert {
	a := &Alert{
		Scope:          scope,
		DepartmentID:   deptID,
		MunicipalityID: muniID,
		Title:          "Seed alert",
		Message:        "Seed message",
		CreatedByID:    uuid.New(),
	}
	require.NoError(t, db.Create(a).Error)
	return a
}

func alertIDs(alerts []Alert) map[uuid.UUID]bool {
	ids := make(map[uuid.UUID]bool, len(alerts))
	for i := range alerts {
		ids[alerts[i].ID] = true
	}
	return ids
}

func TestGORMRepository_ListVisible_UnionForRegionalCaller(t *testing.T) {
	db := setupAlertRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	homeDept := uuid.New()
	homeMuni := uuid.New()
	otherDept := uuid.New()
	otherMuni := uuid.New()

	global := seedAlert(t, db, ScopeGlobal, nil, nil)
	ownDept := seedAlert(t, db, ScopeDepartamental, &homeDept, nil)
	ownMuni := seedAlert(t, db, ScopeMunicipal, nil, &homeMuni)
	seedAlert(t, db, ScopeDepartamental, &otherDept, nil)
	seedAlert(t, db, ScopeMunicipal, nil, &otherMuni)

	region := &location.Region{MunicipalityID: homeMuni, DepartmentID: homeDept}
	alerts, total, err := repo.ListVisible(ctx, region, ListQuery{})

	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	ids := alertIDs(alerts)
	assert.True(t, ids[global.ID])
	assert.True(t, ids[ownDept.ID])
	assert.True(t, ids[ownMuni.ID])
}

func TestGORMRepository_ListVisible_NilRegionSeesGlobalOnly(t *testing.T) {
	db := setupAlertRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	dept := uuid.New()
	muni := uuid.New()
	global := seedAlert(t, db, ScopeGlobal, nil, nil)
	seedAlert(t, db, ScopeDepartamental, &dept, nil)
	seedAlert(t, db, ScopeMunicipal, nil, &muni)

	alerts, total, err := repo.ListVisible(ctx, nil, ListQuery{})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, global.ID, alerts[0].ID)
}

func TestGORMRepository_ListVisible_ScopeFilterNarrowsUnion(t *testing.T) {
	db := setupAlertRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	homeDept := uuid.New()
	homeMuni := uuid.New()
	seedAlert(t, db, ScopeGlobal, nil, nil)
	ownDept := seedAlert(t, db, ScopeDepartamental, &homeDept, nil)

	region := &location.Region{MunicipalityID: homeMuni, DepartmentID: homeDept}
	alerts, total, err := repo.ListVisible(ctx, region, ListQuery{Scope: ScopeDepartamental})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, ownDept.ID, alerts[0].ID)
}

func TestGORMRepository_FindCategoryByName_CaseInsensitive(t *testing.T) {
	db := setupAlertRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	ac := &AlertCategory{Name: "Weather"}
	require.NoError(t, db.Create(ac).Error)

	got, err := repo.FindCategoryByName(ctx, "  weather ")
	assert.NoError(t, err)
	assert.Equal(t, ac.ID, got.ID)
}

func TestGORMRepository_AddImages_DuplicatePositionRejected(t *testing.T) {
	db := setupAlertRepoTestDB(t)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	a := seedAlert(t, db, ScopeGlobal, nil, nil)
	require.NoError(t, repo.AddImages(ctx, []AlertImage{{AlertID: a.ID, ObjectKey: "alerts/a", ImageURL: "https://cdn/a", Position: 0}}))

	err := repo.AddImages(ctx, []AlertImage{{AlertID: a.ID, ObjectKey: "alerts/b", ImageURL: "https://cdn/b", Position: 0}})
	assert.Error(t, err)
}
