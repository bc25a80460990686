package routing

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daisydate/go-date-course-planner/internal/types"
)

func setupCacheRepoTest(t *testing.T) (*CacheRepositoryImpl, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewCacheRepository(mockPool, testLogger()), mockPool
}

func TestCacheRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		repo, mockPool := setupCacheRepoTest(t)

		rows := pgxmock.NewRows([]string{"distance_m", "duration_s", "path"}).
			AddRow(850.0, 612, []byte(`[{"lat":37.5601,"lng":126.925},{"lat":37.5563,"lng":126.9236}]`))
		mockPool.ExpectQuery(regexp.QuoteMeta("SELECT distance_m, duration_s, path")).
			WithArgs(testOrigin.Lat, testOrigin.Lng, testDestination.Lat, testDestination.Lng).
			WillReturnRows(rows)

		info, err := repo.Get(ctx, testOrigin, testDestination)
		require.NoError(t, err)
		assert.Equal(t, 850.0, info.DistanceMeters)
		assert.Equal(t, 612, info.DurationSeconds)
		require.Len(t, info.Path, 2)
		assert.Equal(t, types.LatLng{Lat: 37.5601, Lng: 126.925}, info.Path[0])
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		repo, mockPool := setupCacheRepoTest(t)

		mockPool.ExpectQuery(regexp.QuoteMeta("SELECT distance_m, duration_s, path")).
			WithArgs(testOrigin.Lat, testOrigin.Lng, testDestination.Lat, testDestination.Lng).
			WillReturnRows(pgxmock.NewRows([]string{"distance_m", "duration_s", "path"}))

		_, err := repo.Get(ctx, testOrigin, testDestination)
		assert.ErrorIs(t, err, ErrCacheMiss)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		repo, mockPool := setupCacheRepoTest(t)

		mockPool.ExpectQuery(regexp.QuoteMeta("SELECT distance_m, duration_s, path")).
			WithArgs(testOrigin.Lat, testOrigin.Lng, testDestination.Lat, testDestination.Lng).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.Get(ctx, testOrigin, testDestination)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCacheMiss)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestCacheRepository_Put(t *testing.T) {
	ctx := context.Background()
	info := &types.RouteInfo{
		DistanceMeters:  850,
		DurationSeconds: 612,
		Path:            []types.LatLng{testOrigin, testDestination},
	}

	t.Run("success", func(t *testing.T) {
		repo, mockPool := setupCacheRepoTest(t)

		mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO route_cache")).
			WithArgs(testOrigin.Lat, testOrigin.Lng, testDestination.Lat, testDestination.Lng,
				info.DistanceMeters, info.DurationSeconds, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Put(ctx, testOrigin, testDestination, info))
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("insert error", func(t *testing.T) {
		repo, mockPool := setupCacheRepoTest(t)

		mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO route_cache")).
			WithArgs(testOrigin.Lat, testOrigin.Lng, testDestination.Lat, testDestination.Lng,
				info.DistanceMeters, info.DurationSeconds, pgxmock.AnyArg()).
			WillReturnError(errors.New("disk full"))

		assert.Error(t, repo.Put(ctx, testOrigin, testDestination, info))
		require.NoError(t, mockPool.ExpectationsWereMet())
	})
}
