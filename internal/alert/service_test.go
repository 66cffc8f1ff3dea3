package alert

import (
	"context"
	"testing"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/config"
	"agromarket_backend/internal/image"
	"agromarket_backend/internal/location"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockAlertRepository is a mock type for alert.Repository
type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) Create(ctx context.Context, alert *Alert, images []AlertImage) error {
	args := m.Called(ctx, alert, images)
	return args.Error(0)
}

func (m *MockAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Alert), args.Error(1)
}

func (m *MockAlertRepository) ListVisible(ctx context.Context, region *location.Region, q ListQuery) ([]Alert, int64, error) {
	args := m.Called(ctx, region, q)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]Alert), args.Get(1).(int64), args.Error(2)
}

func (m *MockAlertRepository) AddImages(ctx context.Context, images []AlertImage) error {
	args := m.Called(ctx, images)
	return args.Error(0)
}

func (m *MockAlertRepository) CountImages(ctx context.Context, alertID uuid.UUID) (int64, error) {
	args := m.Called(ctx, alertID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertRepository) MaxImagePosition(ctx context.Context, alertID uuid.UUID) (int, error) {
	args := m.Called(ctx, alertID)
	return args.Int(0), args.Error(1)
}

func (m *MockAlertRepository) ListCategories(ctx context.Context, search string) ([]AlertCategory, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]AlertCategory), args.Error(1)
}

func (m *MockAlertRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*AlertCategory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AlertCategory), args.Error(1)
}

func (m *MockAlertRepository) FindCategoryByName(ctx context.Context, name string) (*AlertCategory, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AlertCategory), args.Error(1)
}

// MockRegionResolver is a mock type for location.Resolver
type MockRegionResolver struct {
	mock.Mock
}

func (m *MockRegionResolver) ResolveRegion(ctx context.Context, userID uuid.UUID) (*location.Region, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*location.Region), args.Error(1)
}

// MockImageService is a mock type for image.Service
type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) UploadBatch(ctx context.Context, prefix string, maxCount int, files []image.FileInput) (*image.UploadResult, error) {
	args := m.Called(ctx, prefix, maxCount, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*image.UploadResult), args.Error(1)
}

func (m *MockImageService) DeleteObjects(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

type AlertServiceTestSuite struct {
	service      *Service
	mockRepo     *MockAlertRepository
	mockResolver *MockRegionResolver
	mockImages   *MockImageService
}

func setupAlertServiceTestSuite(t *testing.T) *AlertServiceTestSuite {
	ts := &AlertServiceTestSuite{}
	ts.mockRepo = new(MockAlertRepository)
	ts.mockResolver = new(MockRegionResolver)
	ts.mockImages = new(MockImageService)
	cfg := &config.Config{MaxImagesPerAlert: 3}
	ts.service = NewService(ts.mockRepo, ts.mockResolver, ts.mockImages, cfg, zap.NewNop())
	return ts
}

func moderatorCaller() common.Caller {
	return common.Caller{UserID: uuid.New(), IsModerator: true}
}

// --- Test Cases ---

func TestService_Create_DepartamentalScopeRequiresDepartment(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()

	input := CreateAlertInput{Scope: ScopeDepartamental, Title: "Frost warning", Message: "Protect seedlings tonight."}

	_, _, err := ts.service.Create(ctx, moderatorCaller(), input, nil)

	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	details := apiErr.Details.(map[string]string)
	assert.Contains(t, details, "department_id")
	ts.mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Create_MunicipalScopeRequiresMunicipality(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()

	input := CreateAlertInput{Scope: ScopeMunicipal, Title: "Road closure", Message: "Market road flooded."}

	_, _, err := ts.service.Create(ctx, moderatorCaller(), input, nil)

	apiErr, _ := common.IsAPIError(err)
	details := apiErr.Details.(map[string]string)
	assert.Contains(t, details, "municipality_id")
}

func TestService_Create_UnknownScopeRejected(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()

	input := CreateAlertInput{Scope: "regional", Title: "T", Message: "M"}

	_, _, err := ts.service.Create(ctx, moderatorCaller(), input, nil)

	apiErr, _ := common.IsAPIError(err)
	details := apiErr.Details.(map[string]string)
	assert.Contains(t, details, "scope")
}

func TestService_Create_GlobalScopeDropsRegionReferences(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()

	dept := uuid.New()
	muni := uuid.New()
	input := CreateAlertInput{
		Scope:          ScopeGlobal,
		Title:          "National advisory",
		Message:        "Rain expected across all departments.",
		DepartmentID:   &dept,
		MunicipalityID: &muni,
	}

	ts.mockRepo.On("Create", ctx, mock.MatchedBy(func(a *Alert) bool {
		return a.Scope == ScopeGlobal && a.DepartmentID == nil && a.MunicipalityID == nil
	}), mock.Anything).Return(nil)

	a, _, err := ts.service.Create(ctx, moderatorCaller(), input, nil)

	assert.NoError(t, err)
	assert.Nil(t, a.DepartmentID)
	assert.Nil(t, a.MunicipalityID)
	ts.mockRepo.AssertExpectations(t)
}

func TestService_Create_CategoryResolvableByName(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()

	cat := &AlertCategory{Name: "Weather"}
	cat.ID = uuid.New()
	ts.mockRepo.On("FindCategoryByName", ctx, "Weather").Return(cat, nil)
	ts.mockRepo.On("Create", ctx, mock.MatchedBy(func(a *Alert) bool {
		return a.CategoryID != nil && *a.CategoryID == cat.ID
	}), mock.Anything).Return(nil)

	input := CreateAlertInput{Scope: ScopeGlobal, Title: "Storm", Message: "Incoming.", CategoryName: "Weather"}
	_, _, err := ts.service.Create(ctx, moderatorCaller(), input, nil)

	assert.NoError(t, err)
	ts.mockRepo.AssertExpectations(t)
}

func TestService_Create_UnknownCategoryNamesTheValue(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()

	ts.mockRepo.On("FindCategoryByName", ctx, "Nonsense").Return(nil, common.ErrNotFound)

	input := CreateAlertInput{Scope: ScopeGlobal, Title: "T", Message: "M", CategoryName: "Nonsense"}
	_, _, err := ts.service.Create(ctx, moderatorCaller(), input, nil)

	apiErr, _ := common.IsAPIError(err)
	details := apiErr.Details.(map[string]string)
	assert.Contains(t, details["category"], "Nonsense")
}

func TestService_List_RejectsUnknownScopeFilter(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()

	_, _, err := ts.service.List(ctx, common.Caller{UserID: uuid.New()}, ListQuery{Scope: "continental"})

	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	ts.mockResolver.AssertNotCalled(t, "ResolveRegion", mock.Anything, mock.Anything)
}

func TestService_List_PassesResolvedRegionToRepository(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()
	caller := common.Caller{UserID: uuid.New()}

	region := &location.Region{MunicipalityID: uuid.New(), DepartmentID: uuid.New()}
	ts.mockResolver.On("ResolveRegion", ctx, caller.UserID).Return(region, nil)
	ts.mockRepo.On("ListVisible", ctx, region, mock.Anything).Return([]Alert{}, int64(0), nil)

	_, _, err := ts.service.List(ctx, caller, ListQuery{})

	assert.NoError(t, err)
	ts.mockRepo.AssertExpectations(t)
}

func TestService_Get_RegionalAlertHiddenOutsideRegion(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()
	caller := common.Caller{UserID: uuid.New()}

	alertDept := uuid.New()
	a := &Alert{Scope: ScopeDepartamental, DepartmentID: &alertDept, CreatedByID: uuid.New()}
	a.ID = uuid.New()

	ts.mockRepo.On("FindByID", ctx, a.ID).Return(a, nil)
	ts.mockResolver.On("ResolveRegion", ctx, caller.UserID).Return(&location.Region{
		MunicipalityID: uuid.New(),
		DepartmentID:   uuid.New(),
	}, nil)

	_, err := ts.service.Get(ctx, caller, a.ID)

	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestService_Get_RegionalAlertVisibleInsideRegion(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()
	caller := common.Caller{UserID: uuid.New()}

	dept := uuid.New()
	a := &Alert{Scope: ScopeDepartamental, DepartmentID: &dept, CreatedByID: uuid.New()}
	a.ID = uuid.New()

	ts.mockRepo.On("FindByID", ctx, a.ID).Return(a, nil)
	ts.mockResolver.On("ResolveRegion", ctx, caller.UserID).Return(&location.Region{
		MunicipalityID: uuid.New(),
		DepartmentID:   dept,
	}, nil)

	got, err := ts.service.Get(ctx, caller, a.ID)

	assert.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestService_Get_GlobalAlertVisibleToAnyone(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()

	a := &Alert{Scope: ScopeGlobal, CreatedByID: uuid.New()}
	a.ID = uuid.New()
	ts.mockRepo.On("FindByID", ctx, a.ID).Return(a, nil)

	got, err := ts.service.Get(ctx, common.Caller{UserID: uuid.New()}, a.ID)

	assert.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	ts.mockResolver.AssertNotCalled(t, "ResolveRegion", mock.Anything, mock.Anything)
}

func TestService_Get_CreatorAlwaysSeesOwnAlert(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()

	creator := uuid.New()
	muni := uuid.New()
	a := &Alert{Scope: ScopeMunicipal, MunicipalityID: &muni, CreatedByID: creator}
	a.ID = uuid.New()
	ts.mockRepo.On("FindByID", ctx, a.ID).Return(a, nil)

	got, err := ts.service.Get(ctx, common.Caller{UserID: creator}, a.ID)

	assert.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestService_AttachImages_EnforcesAlertImageLimit(t *testing.T) {
	ts := setupAlertServiceTestSuite(t)
	ctx := context.Background()

	creator := uuid.New()
	a := &Alert{Scope: ScopeGlobal, CreatedByID: creator}
	a.ID = uuid.New()

	ts.mockRepo.On("FindByID", ctx, a.ID).Return(a, nil)
	ts.mockRepo.On("CountImages", ctx, a.ID).Return(int64(2), nil)

	files := []image.FileInput{
		{Filename: "a.jpg", Data: []byte("a")},
		{Filename: "b.jpg", Data: []byte("b")},
	}
	_, _, err := ts.service.AttachImages(ctx, common.Caller{UserID: creator}, a.ID, files)

	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	ts.mockImages.AssertNotCalled(t, "UploadBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
