package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLeaderboardManager(t *testing.T) (*LeaderboardManager, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	lm := NewLeaderboardManager(client)
	lm.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return lm, mr
}

func TestLeaderboard_RecordMatchResult_NewPlayer(t *testing.T) {
	t.Parallel()

	lm, mr := newTestLeaderboardManager(t)
	defer mr.Close()
	ctx := context.Background()

	err := lm.RecordMatchResult(ctx, "p1", "Player1", OutcomeWin)
	require.NoError(t, err)

	stats, err := lm.GetPlayerStats(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, "p1", stats.PlayerID)
	assert.Equal(t, "Player1", stats.PlayerName)
	assert.Equal(t, 1, stats.TotalGames)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, ScoreWin, stats.Score)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, float64(100), stats.WinRate())
}

func TestLeaderboard_RecordMatchResult_Update(t *testing.T) {
	t.Parallel()

	lm, mr := newTestLeaderboardManager(t)
	defer mr.Close()
	ctx := context.Background()

	// 5 -> 5 - 10 = -5 -> 0 (min 0)
	require.NoError(t, lm.RecordMatchResult(ctx, "p1", "Player1", OutcomeDraw))
	require.NoError(t, lm.RecordMatchResult(ctx, "p1", "", OutcomeLoss))

	stats, err := lm.GetPlayerStats(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalGames)
	assert.Equal(t, 1, stats.Draws)
	assert.Equal(t, 1, stats.Losses)
	assert.Equal(t, 0, stats.Score)
	assert.Equal(t, -1, stats.CurrentStreak)
	assert.Equal(t, "Player1", stats.PlayerName, "empty name keeps the previous one")
}

func TestLeaderboard_StreakBonus(t *testing.T) {
	t.Parallel()

	lm, mr := newTestLeaderboardManager(t)
	defer mr.Close()
	ctx := context.Background()

	// 1st: 30, 2nd: 60, 3rd: 60 + 30 + 5 = 95
	for i := 0; i < 3; i++ {
		require.NoError(t, lm.RecordMatchResult(ctx, "p1", "Player1", OutcomeWin))
	}

	stats, _ := lm.GetPlayerStats(ctx, "p1")
	assert.Equal(t, 95, stats.Score)
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 3, stats.MaxWinStreak)

	// 平局清零连胜
	require.NoError(t, lm.RecordMatchResult(ctx, "p1", "Player1", OutcomeDraw))
	stats, _ = lm.GetPlayerStats(ctx, "p1")
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 3, stats.MaxWinStreak)
}

func TestLeaderboard_GetLeaderboard(t *testing.T) {
	t.Parallel()

	lm, mr := newTestLeaderboardManager(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, lm.RecordMatchResult(ctx, "p1", "Player1", OutcomeWin))
	require.NoError(t, lm.RecordMatchResult(ctx, "p2", "Player2", OutcomeDraw))
	require.NoError(t, lm.RecordMatchResult(ctx, "p3", "Player3", OutcomeWin))
	require.NoError(t, lm.RecordMatchResult(ctx, "p3", "Player3", OutcomeWin))

	for _, board := range []string{"total", "daily", "weekly"} {
		entries, err := lm.GetLeaderboard(ctx, board, 10)
		require.NoError(t, err, board)
		require.Len(t, entries, 3, board)

		assert.Equal(t, "p3", entries[0].PlayerID)
		assert.Equal(t, 1, entries[0].Rank)
		assert.Equal(t, 60, entries[0].Score)
		assert.Equal(t, "p1", entries[1].PlayerID)
		assert.Equal(t, "p2", entries[2].PlayerID)
		assert.Equal(t, 3, entries[2].Rank)
	}

	assert.True(t, mr.Exists("leaderboard:daily:2026-03-10"))
	assert.True(t, mr.Exists("leaderboard:weekly:2026-W11"))

	top, err := lm.GetLeaderboard(ctx, "total", 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	none, err := lm.GetLeaderboard(ctx, "total", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLeaderboard_GetPlayerRank(t *testing.T) {
	t.Parallel()

	lm, mr := newTestLeaderboardManager(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, lm.RecordMatchResult(ctx, "p1", "Player1", OutcomeWin))
	require.NoError(t, lm.RecordMatchResult(ctx, "p2", "Player2", OutcomeDraw))

	rank, err := lm.GetPlayerRank(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rank)

	rank, err = lm.GetPlayerRank(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), rank)

	stats, err := lm.GetPlayerStats(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, stats)
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "win", OutcomeWin.String())
	assert.Equal(t, "loss", OutcomeLoss.String())
	assert.Equal(t, "draw", OutcomeDraw.String())
}
