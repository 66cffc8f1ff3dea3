// File: internal/common/model_test.go
package common

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type baseModelRecord struct {
	BaseModel
	Name string
}

func TestBaseModel_MigratesAndAssignsIDOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&baseModelRecord{}))

	rec := baseModelRecord{Name: "first"}
	require.NoError(t, db.Create(&rec).Error)
	assert.NotEqual(t, uuid.Nil, rec.ID)

	preset := baseModelRecord{Name: "second"}
	preset.ID = uuid.New()
	want := preset.ID
	require.NoError(t, db.Create(&preset).Error)
	assert.Equal(t, want, preset.ID)
}
