package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/daisydate/go-date-course-planner/internal/types"
)

// MockCacheRepository is a mock implementation of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error) {
	args := m.Called(ctx, origin, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RouteInfo), args.Error(1)
}

func (m *MockCacheRepository) Put(ctx context.Context, origin, destination types.LatLng, info *types.RouteInfo) error {
	args := m.Called(ctx, origin, destination, info)
	return args.Error(0)
}

// MockProvider is a mock implementation of Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Route(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error) {
	args := m.Called(ctx, origin, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RouteInfo), args.Error(1)
}

func setupRoutingServiceTest() (*ServiceImpl, *MockCacheRepository, *MockProvider) {
	mockRepo := new(MockCacheRepository)
	mockChain := new(MockProvider)
	return NewServiceImpl(mockRepo, mockChain, testLogger()), mockRepo, mockChain
}

func TestGetOrFetchRoute_CacheHit(t *testing.T) {
	service, mockRepo, mockChain := setupRoutingServiceTest()
	ctx := context.Background()
	want := &types.RouteInfo{DistanceMeters: 850, DurationSeconds: 612}

	mockRepo.On("Get", mock.Anything, testOrigin, testDestination).Return(want, nil).Once()

	info, err := service.GetOrFetchRoute(ctx, testOrigin, testDestination)
	require.NoError(t, err)
	assert.Equal(t, want, info)
	mockChain.AssertNotCalled(t, "Route")
	mockRepo.AssertExpectations(t)
}

func TestGetOrFetchRoute_CacheMissFetchesAndWritesBack(t *testing.T) {
	service, mockRepo, mockChain := setupRoutingServiceTest()
	ctx := context.Background()
	want := &types.RouteInfo{DistanceMeters: 1340, DurationSeconds: 420}

	mockRepo.On("Get", mock.Anything, testOrigin, testDestination).Return(nil, ErrCacheMiss).Once()
	mockChain.On("Route", mock.Anything, testOrigin, testDestination).Return(want, nil).Once()
	mockRepo.On("Put", mock.Anything, testOrigin, testDestination, want).Return(nil).Once()

	info, err := service.GetOrFetchRoute(ctx, testOrigin, testDestination)
	require.NoError(t, err)
	assert.Equal(t, want, info)
	mockRepo.AssertExpectations(t)
	mockChain.AssertExpectations(t)
}

func TestGetOrFetchRoute_HotCacheServesRepeatLookups(t *testing.T) {
	service, mockRepo, mockChain := setupRoutingServiceTest()
	ctx := context.Background()
	want := &types.RouteInfo{DistanceMeters: 500, DurationSeconds: 300}

	mockRepo.On("Get", mock.Anything, testOrigin, testDestination).Return(nil, ErrCacheMiss).Once()
	mockChain.On("Route", mock.Anything, testOrigin, testDestination).Return(want, nil).Once()
	mockRepo.On("Put", mock.Anything, testOrigin, testDestination, want).Return(nil).Once()

	first, err := service.GetOrFetchRoute(ctx, testOrigin, testDestination)
	require.NoError(t, err)

	// Second lookup must not touch the repository or the chain again.
	second, err := service.GetOrFetchRoute(ctx, testOrigin, testDestination)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	mockRepo.AssertExpectations(t)
	mockChain.AssertExpectations(t)
}

func TestGetOrFetchRoute_WriteBackFailureIsNonFatal(t *testing.T) {
	service, mockRepo, mockChain := setupRoutingServiceTest()
	ctx := context.Background()
	want := &types.RouteInfo{DistanceMeters: 700, DurationSeconds: 350}

	mockRepo.On("Get", mock.Anything, testOrigin, testDestination).Return(nil, ErrCacheMiss).Once()
	mockChain.On("Route", mock.Anything, testOrigin, testDestination).Return(want, nil).Once()
	mockRepo.On("Put", mock.Anything, testOrigin, testDestination, want).Return(errors.New("disk full")).Once()

	info, err := service.GetOrFetchRoute(ctx, testOrigin, testDestination)
	require.NoError(t, err)
	assert.Equal(t, want, info)
	mockRepo.AssertExpectations(t)
}

func TestGetOrFetchRoute_BrokenCacheFallsThroughToProviders(t *testing.T) {
	service, mockRepo, mockChain := setupRoutingServiceTest()
	ctx := context.Background()
	want := &types.RouteInfo{DistanceMeters: 900, DurationSeconds: 500}

	mockRepo.On("Get", mock.Anything, testOrigin, testDestination).Return(nil, errors.New("connection refused")).Once()
	mockChain.On("Route", mock.Anything, testOrigin, testDestination).Return(want, nil).Once()
	mockRepo.On("Put", mock.Anything, testOrigin, testDestination, want).Return(nil).Once()

	info, err := service.GetOrFetchRoute(ctx, testOrigin, testDestination)
	require.NoError(t, err)
	assert.Equal(t, want, info)
	mockRepo.AssertExpectations(t)
}

func TestGetOrFetchRoute_AllSourcesExhausted(t *testing.T) {
	service, mockRepo, mockChain := setupRoutingServiceTest()
	ctx := context.Background()

	mockRepo.On("Get", mock.Anything, testOrigin, testDestination).Return(nil, ErrCacheMiss).Once()
	mockChain.On("Route", mock.Anything, testOrigin, testDestination).Return(nil, ErrRouteNotFound).Once()

	_, err := service.GetOrFetchRoute(ctx, testOrigin, testDestination)
	assert.ErrorIs(t, err, ErrRouteNotFound)
	mockRepo.AssertNotCalled(t, "Put")
}
