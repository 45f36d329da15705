package community

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quitflow/internal/common/logger"
)

func newTestLeaderboard(t *testing.T) *Leaderboard {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLeaderboard(rdb, "leaderboard:streaks", logger.Nop())
}

func TestLeaderboard_TopOrdersByStreak(t *testing.T) {
	lb := newTestLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, lb.UpdateScore(ctx, "u-1", "Sam", 4))
	require.NoError(t, lb.UpdateScore(ctx, "u-2", "Alex", 12))
	require.NoError(t, lb.UpdateScore(ctx, "u-3", "Kim", 7))

	top, err := lb.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, Entry{Rank: 1, UserID: "u-2", Name: "Alex", Streak: 12}, top[0])
	assert.Equal(t, Entry{Rank: 2, UserID: "u-3", Name: "Kim", Streak: 7}, top[1])
	assert.Equal(t, Entry{Rank: 3, UserID: "u-1", Name: "Sam", Streak: 4}, top[2])
}

func TestLeaderboard_TopTruncatesToN(t *testing.T) {
	lb := newTestLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, lb.UpdateScore(ctx, "u-1", "Sam", 4))
	require.NoError(t, lb.UpdateScore(ctx, "u-2", "Alex", 12))

	top, err := lb.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "u-2", top[0].UserID)
}

func TestLeaderboard_UpdateOverwritesScore(t *testing.T) {
	lb := newTestLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, lb.UpdateScore(ctx, "u-1", "Sam", 2))
	require.NoError(t, lb.UpdateScore(ctx, "u-1", "Sam", 9))

	top, err := lb.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 9, top[0].Streak)
}

func TestLeaderboard_Rank(t *testing.T) {
	lb := newTestLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, lb.UpdateScore(ctx, "u-1", "Sam", 4))
	require.NoError(t, lb.UpdateScore(ctx, "u-2", "Alex", 12))

	rank, err := lb.Rank(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	rank, err = lb.Rank(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, rank)
}

func TestLeaderboard_Remove(t *testing.T) {
	lb := newTestLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, lb.UpdateScore(ctx, "u-1", "Sam", 4))
	require.NoError(t, lb.Remove(ctx, "u-1"))

	top, err := lb.Top(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestLeaderboard_TopPropagatesRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lb := NewLeaderboard(db, "leaderboard:streaks", logger.Nop())

	mock.ExpectZRevRangeWithScores("leaderboard:streaks", 0, 9).
		SetErr(errors.New("connection refused"))

	_, err := lb.Top(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboard_EmptyBoard(t *testing.T) {
	lb := newTestLeaderboard(t)

	top, err := lb.Top(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, top)
	assert.Empty(t, top)
}
