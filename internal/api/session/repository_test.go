package session

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func setupSessionRepoTest(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewRepositoryImpl(mockPool, testLogger()), mockPool
}

func sessionRowColumns() []string {
	return []string{"session_id", "created_at", "last_active", "expires_at"}
}

func TestRepository_CreateSession(t *testing.T) {
	repo, mockPool := setupSessionRepoTest(t)

	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s, err := repo.CreateSession(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, s.SessionID)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), s.ExpiresAt, time.Minute)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepository_GetSession(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("live session", func(t *testing.T) {
		repo, mockPool := setupSessionRepoTest(t)

		rows := pgxmock.NewRows(sessionRowColumns()).
			AddRow("sid-1", now.Add(-time.Hour), now, now.Add(24*time.Hour))
		mockPool.ExpectQuery(regexp.QuoteMeta("FROM sessions")).
			WithArgs("sid-1").WillReturnRows(rows)

		s, err := repo.GetSession(ctx, "sid-1")
		require.NoError(t, err)
		assert.Equal(t, "sid-1", s.SessionID)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("expired session is deleted and reported missing", func(t *testing.T) {
		repo, mockPool := setupSessionRepoTest(t)

		rows := pgxmock.NewRows(sessionRowColumns()).
			AddRow("sid-2", now.Add(-48*time.Hour), now.Add(-25*time.Hour), now.Add(-time.Hour))
		mockPool.ExpectQuery(regexp.QuoteMeta("FROM sessions")).
			WithArgs("sid-2").WillReturnRows(rows)
		mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions")).
			WithArgs("sid-2").WillReturnResult(pgxmock.NewResult("DELETE", 1))

		_, err := repo.GetSession(ctx, "sid-2")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("unknown session", func(t *testing.T) {
		repo, mockPool := setupSessionRepoTest(t)

		mockPool.ExpectQuery(regexp.QuoteMeta("FROM sessions")).
			WithArgs("ghost").WillReturnRows(pgxmock.NewRows(sessionRowColumns()))

		_, err := repo.GetSession(ctx, "ghost")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestRepository_SetCache(t *testing.T) {
	repo, mockPool := setupSessionRepoTest(t)

	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO session_cache")).
		WithArgs("sid-1", "context", "chat_history", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.SetCache(context.Background(), "sid-1", "context", "chat_history",
		[]map[string]string{{"role": "user", "content": "안녕"}}, 7*24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepository_GetCache(t *testing.T) {
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		repo, mockPool := setupSessionRepoTest(t)

		rows := pgxmock.NewRows([]string{"cache_data", "expires_at"}).
			AddRow([]byte(`{"region": "홍대"}`), time.Now().Add(24*time.Hour))
		mockPool.ExpectQuery(regexp.QuoteMeta("FROM session_cache")).
			WithArgs("sid-1", "context", "user_context").WillReturnRows(rows)

		var dst map[string]string
		require.NoError(t, repo.GetCache(ctx, "sid-1", "context", "user_context", &dst))
		assert.Equal(t, "홍대", dst["region"])
	})

	t.Run("expired entry is deleted and reported missing", func(t *testing.T) {
		repo, mockPool := setupSessionRepoTest(t)

		rows := pgxmock.NewRows([]string{"cache_data", "expires_at"}).
			AddRow([]byte(`{}`), time.Now().Add(-time.Hour))
		mockPool.ExpectQuery(regexp.QuoteMeta("FROM session_cache")).
			WithArgs("sid-1", "context", "user_context").WillReturnRows(rows)
		mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM session_cache")).
			WithArgs("sid-1", "context", "user_context").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		var dst map[string]string
		err := repo.GetCache(ctx, "sid-1", "context", "user_context", &dst)
		assert.ErrorIs(t, err, ErrCacheEntryNotFound)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		repo, mockPool := setupSessionRepoTest(t)

		mockPool.ExpectQuery(regexp.QuoteMeta("FROM session_cache")).
			WithArgs("sid-1", "context", "user_context").
			WillReturnRows(pgxmock.NewRows([]string{"cache_data", "expires_at"}))

		var dst map[string]string
		err := repo.GetCache(ctx, "sid-1", "context", "user_context", &dst)
		assert.ErrorIs(t, err, ErrCacheEntryNotFound)
	})
}

func TestRepository_DeleteExpiredSessions(t *testing.T) {
	repo, mockPool := setupSessionRepoTest(t)

	mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires_at < now()")).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.DeleteExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
