package places

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/daisydate/go-date-course-planner/internal/types"
)

// MockProvider is a mock implementation of Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Search(ctx context.Context, query string, limit int) []types.Place {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]types.Place)
}

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Upsert(ctx context.Context, place types.Place) error {
	args := m.Called(ctx, place)
	return args.Error(0)
}

func (m *MockRepository) FindNearby(ctx context.Context, lat, lng float64, radiusMeters float64, limit int) ([]types.Place, error) {
	args := m.Called(ctx, lat, lng, radiusMeters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockRepository) SearchByText(ctx context.Context, query string) ([]types.Place, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id string) (*types.Place, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Place), args.Error(1)
}

func (m *MockRepository) FindAll(ctx context.Context, skip, take int) ([]types.Place, error) {
	args := m.Called(ctx, skip, take)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func setupPlaceServiceTest() (*ServiceImpl, *MockProvider, *MockRepository) {
	mockProvider := new(MockProvider)
	mockRepo := new(MockRepository)
	return NewServiceImpl(mockProvider, mockRepo, testLogger()), mockProvider, mockRepo
}

func TestService_Search(t *testing.T) {
	service, mockProvider, _ := setupPlaceServiceTest()
	ctx := context.Background()
	want := []types.Place{{ID: "place-1", Title: "연남 토마"}}

	mockProvider.On("Search", ctx, "연남 토마", 3).Return(want, nil).Once()

	assert.Equal(t, want, service.Search(ctx, "연남 토마", 3))
	mockProvider.AssertExpectations(t)
}

func TestService_Persist(t *testing.T) {
	ctx := context.Background()
	place := types.Place{ID: "place-1", Title: "연남 토마"}

	t.Run("success", func(t *testing.T) {
		service, _, mockRepo := setupPlaceServiceTest()
		mockRepo.On("Upsert", mock.Anything, place).Return(nil).Once()

		service.Persist(ctx, place)
		mockRepo.AssertExpectations(t)
	})

	t.Run("repository error is swallowed", func(t *testing.T) {
		service, _, mockRepo := setupPlaceServiceTest()
		mockRepo.On("Upsert", mock.Anything, place).Return(errors.New("disk full")).Once()

		// Must not panic; losing one upsert is acceptable.
		service.Persist(ctx, place)
		mockRepo.AssertExpectations(t)
	})
}

func TestService_FindNearby(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, _, mockRepo := setupPlaceServiceTest()
		want := []types.Place{{ID: "place-1"}}
		mockRepo.On("FindNearby", mock.Anything, 37.5, 127.0, 2000.0, 50).Return(want, nil).Once()

		assert.Equal(t, want, service.FindNearby(ctx, 37.5, 127.0, 2000, 50))
		mockRepo.AssertExpectations(t)
	})

	t.Run("repository error degrades to empty", func(t *testing.T) {
		service, _, mockRepo := setupPlaceServiceTest()
		mockRepo.On("FindNearby", mock.Anything, 37.5, 127.0, 2000.0, 50).
			Return(nil, errors.New("connection refused")).Once()

		assert.Empty(t, service.FindNearby(ctx, 37.5, 127.0, 2000, 50))
		mockRepo.AssertExpectations(t)
	})
}

func TestService_SearchByText(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, _, mockRepo := setupPlaceServiceTest()
		want := []types.Place{{ID: "place-1", Title: "연남 토마"}}
		mockRepo.On("SearchByText", mock.Anything, "토마").Return(want, nil).Once()

		assert.Equal(t, want, service.SearchByText(ctx, "토마"))
	})

	t.Run("repository error degrades to empty", func(t *testing.T) {
		service, _, mockRepo := setupPlaceServiceTest()
		mockRepo.On("SearchByText", mock.Anything, "토마").
			Return(nil, errors.New("connection refused")).Once()

		assert.Empty(t, service.SearchByText(ctx, "토마"))
	})
}

func TestService_FindByID(t *testing.T) {
	service, _, mockRepo := setupPlaceServiceTest()
	ctx := context.Background()
	want := &types.Place{ID: "place-1"}

	mockRepo.On("FindByID", mock.Anything, "place-1").Return(want, nil).Once()
	require.Equal(t, want, service.FindByID(ctx, "place-1"))

	mockRepo.On("FindByID", mock.Anything, "ghost").Return(nil, errors.New("boom")).Once()
	assert.Nil(t, service.FindByID(ctx, "ghost"))
}
