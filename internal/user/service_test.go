package user

import (
	"context"
	"testing"

	"agromarket_backend/internal/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupUserService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}, &Profile{}))
	return NewService(NewGORMRepository(db), zap.NewNop()), db
}

func TestService_Register_DefaultsToProducerAndIssuesToken(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, common.Caller{}, CreateUserRequest{Email: "Maria@Example.com"})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, common.RoleProducer, resp.User.Role)
	// Emails are stored normalized.
	assert.Equal(t, "maria@example.com", resp.User.Email)

	caller, err := svc.Verify(ctx, resp.Token)
	assert.NoError(t, err)
	assert.Equal(t, resp.User.ID, caller.UserID)
	assert.False(t, caller.IsPrivileged())
}

func TestService_Register_PrivilegedRolesRequireStaffCaller(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, common.Caller{}, CreateUserRequest{Email: "mod@example.com", Role: common.RoleModerator})
	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "FORBIDDEN", apiErr.Code)

	resp, err := svc.Register(ctx, common.Caller{UserID: uuid.New(), IsStaff: true},
		CreateUserRequest{Email: "mod@example.com", Role: common.RoleModerator})
	require.NoError(t, err)
	assert.Equal(t, common.RoleModerator, resp.User.Role)

	caller, err := svc.Verify(ctx, resp.Token)
	assert.NoError(t, err)
	assert.True(t, caller.IsModerator)
}

func TestService_Register_DuplicateEmailConflicts(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, common.Caller{}, CreateUserRequest{Email: "dup@example.com"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, common.Caller{}, CreateUserRequest{Email: "DUP@example.com"})
	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "CONFLICT", apiErr.Code)
}

func TestService_Verify_UnknownTokenUnauthorized(t *testing.T) {
	svc, _ := setupUserService(t)

	_, err := svc.Verify(context.Background(), "not-a-real-token")

	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
}

func TestService_Verify_InactiveAccountUnauthorized(t *testing.T) {
	svc, db := setupUserService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, common.Caller{}, CreateUserRequest{Email: "gone@example.com"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&User{}).Where("id = ?", resp.User.ID).Update("is_active", false).Error)

	_, err = svc.Verify(ctx, resp.Token)
	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
}

func TestService_RotateToken_InvalidatesOldToken(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, common.Caller{}, CreateUserRequest{Email: "rotate@example.com"})
	require.NoError(t, err)

	rotated, err := svc.RotateToken(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, resp.Token, rotated.Token)
	assert.NotNil(t, rotated.User.LastLoginAt)

	_, err = svc.Verify(ctx, resp.Token)
	assert.Error(t, err)

	caller, err := svc.Verify(ctx, rotated.Token)
	assert.NoError(t, err)
	assert.Equal(t, resp.User.ID, caller.UserID)
}

func TestService_Delete_SelfOrStaffOnly(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, common.Caller{}, CreateUserRequest{Email: "victim@example.com"})
	require.NoError(t, err)

	err = svc.Delete(ctx, common.Caller{UserID: uuid.New()}, resp.User.ID)
	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "FORBIDDEN", apiErr.Code)

	assert.NoError(t, svc.Delete(ctx, common.Caller{UserID: resp.User.ID}, resp.User.ID))

	_, err = svc.GetByID(ctx, resp.User.ID)
	assert.Error(t, err)
}

func TestService_GetProfile_MaterializesEmptyProfile(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	userID := uuid.New()
	p, err := svc.GetProfile(ctx, userID)

	assert.NoError(t, err)
	assert.Equal(t, userID, p.UserID)
	assert.Nil(t, p.MunicipalityID)
}

func TestService_UpdateProfile_CreatesRowOnFirstWrite(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, common.Caller{}, CreateUserRequest{Email: "farmer@example.com"})
	require.NoError(t, err)

	org := "Cooperativa El Progreso"
	muni := uuid.New()
	p, err := svc.UpdateProfile(ctx, resp.User.ID, UpdateProfileRequest{Organization: &org, MunicipalityID: &muni})
	require.NoError(t, err)
	assert.Equal(t, &org, p.Organization)

	// A later partial update leaves the untouched fields alone.
	bio := "Coffee growers since 1998"
	p, err = svc.UpdateProfile(ctx, resp.User.ID, UpdateProfileRequest{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, &org, p.Organization)
	assert.Equal(t, &muni, p.MunicipalityID)
	assert.Equal(t, &bio, p.Bio)
}
