//go:build !production

package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/hidden-word-duel/internal/server/storage"
)

// MockRecorder 对局记录 mock
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) CreateMatch(ctx context.Context, matchID, player1ID, player2ID string) error {
	args := m.Called(ctx, matchID, player1ID, player2ID)
	return args.Error(0)
}

func (m *MockRecorder) UpdateMatchStatus(ctx context.Context, matchID, status string) error {
	args := m.Called(ctx, matchID, status)
	return args.Error(0)
}

func (m *MockRecorder) CreateRound(ctx context.Context, roundID, matchID, word string, revealed []bool, roundNumber int) error {
	args := m.Called(ctx, roundID, matchID, word, revealed, roundNumber)
	return args.Error(0)
}

func (m *MockRecorder) SetRoundWinner(ctx context.Context, roundID, playerID string) error {
	args := m.Called(ctx, roundID, playerID)
	return args.Error(0)
}

func (m *MockRecorder) EndRound(ctx context.Context, roundID string) error {
	args := m.Called(ctx, roundID)
	return args.Error(0)
}

func (m *MockRecorder) RecordGuess(ctx context.Context, roundID, playerID, guess string, correct bool) error {
	args := m.Called(ctx, roundID, playerID, guess, correct)
	return args.Error(0)
}

func (m *MockRecorder) IncrementPlayerWinLoss(ctx context.Context, playerID string, won bool) error {
	args := m.Called(ctx, playerID, won)
	return args.Error(0)
}

// MockLeaderboard 排行榜 mock
type MockLeaderboard struct {
	mock.Mock
}

func (m *MockLeaderboard) RecordMatchResult(ctx context.Context, playerID, playerName string, outcome storage.Outcome) error {
	args := m.Called(ctx, playerID, playerName, outcome)
	return args.Error(0)
}

func (m *MockLeaderboard) GetPlayerStats(ctx context.Context, playerID string) (*storage.PlayerStats, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PlayerStats), args.Error(1)
}

func (m *MockLeaderboard) GetPlayerRank(ctx context.Context, playerID string) (int64, error) {
	args := m.Called(ctx, playerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLeaderboard) GetLeaderboard(ctx context.Context, boardType string, limit int) ([]*storage.LeaderboardEntry, error) {
	args := m.Called(ctx, boardType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.LeaderboardEntry), args.Error(1)
}

// MockSnapshots 房间快照 mock
type MockSnapshots struct {
	mock.Mock
}

func (m *MockSnapshots) SaveRoom(ctx context.Context, roomID string, data *storage.RoomData) error {
	args := m.Called(ctx, roomID, data)
	return args.Error(0)
}

func (m *MockSnapshots) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}
