package handler

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/hidden-word-duel/internal/apperrors"
	"github.com/palemoky/hidden-word-duel/internal/game/duel"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
	"github.com/palemoky/hidden-word-duel/internal/server/storage"
	"github.com/palemoky/hidden-word-duel/internal/testutil"
	"github.com/palemoky/hidden-word-duel/internal/types"
)

type stubServer struct {
	maintenance bool
	players     []protocol.PlayerInfo
}

func (s *stubServer) IsMaintenanceMode() bool                          { return s.maintenance }
func (s *stubServer) GetOnlineCount() int                              { return len(s.players) }
func (s *stubServer) BroadcastToLobby(*protocol.Message)               {}
func (s *stubServer) GetClientByPlayerID(string) types.ClientInterface { return nil }
func (s *stubServer) OnlinePlayers() []protocol.PlayerInfo             { return s.players }

type mockGame struct {
	mock.Mock
}

func (m *mockGame) StartGame(roomID, connID string) error {
	return m.Called(roomID, connID).Error(0)
}

func (m *mockGame) HandleGuess(roomID, connID, word string) {
	m.Called(roomID, connID, word)
}

func (m *mockGame) RoomData(roomID string) (protocol.RoomDataPayload, error) {
	args := m.Called(roomID)
	return args.Get(0).(protocol.RoomDataPayload), args.Error(1)
}

func (m *mockGame) IsPlayer(roomID, playerID string) bool {
	return m.Called(roomID, playerID).Bool(0)
}

func (m *mockGame) AbortMatch(roomID, reason string) {
	m.Called(roomID, reason)
}

type mockLobby struct {
	mock.Mock
}

func (m *mockLobby) AddToQueue(c types.ClientInterface) error {
	return m.Called(c.GetID()).Error(0)
}

func (m *mockLobby) RemoveFromQueue(c types.ClientInterface) {
	m.Called(c.GetID())
}

func (m *mockLobby) Invite(c types.ClientInterface, inviteeID string) error {
	return m.Called(c.GetID(), inviteeID).Error(0)
}

func (m *mockLobby) Accept(c types.ClientInterface, inviterID string) error {
	return m.Called(c.GetID(), inviterID).Error(0)
}

func (m *mockLobby) Decline(c types.ClientInterface, inviterID string) error {
	return m.Called(c.GetID(), inviterID).Error(0)
}

type fakeRooms struct {
	joined    []string
	remaining int
}

func (f *fakeRooms) Join(roomID string, _ types.ClientInterface) { f.joined = append(f.joined, roomID) }
func (f *fakeRooms) Leave(string, string) int                     { return f.remaining }

type fixture struct {
	h      *Handler
	server *stubServer
	game   *mockGame
	lobby  *mockLobby
	rooms  *fakeRooms
	lb     *testutil.MockLeaderboard
	client *testutil.SimpleClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		server: &stubServer{},
		game:   &mockGame{},
		lobby:  &mockLobby{},
		rooms:  &fakeRooms{},
		lb:     &testutil.MockLeaderboard{},
		client: &testutil.SimpleClient{ID: "c1", PlayerID: "p1", Name: "Alice"},
	}
	f.h = NewHandler(HandlerDeps{
		Server:      f.server,
		Game:        f.game,
		Lobby:       f.lobby,
		Rooms:       f.rooms,
		Leaderboard: f.lb,
	})
	t.Cleanup(func() {
		f.game.AssertExpectations(t)
		f.lobby.AssertExpectations(t)
		f.lb.AssertExpectations(t)
	})
	return f
}

func msgOf(t *testing.T, msgType protocol.MessageType, payload any) *protocol.Message {
	t.Helper()
	msg, err := codec.NewMessage(msgType, payload)
	require.NoError(t, err)
	return msg
}

func lastError(t *testing.T, c *testutil.SimpleClient) protocol.ErrorPayload {
	t.Helper()
	msg := c.Last(protocol.MsgError)
	require.NotNil(t, msg, "expected an error message")
	p, err := codec.ParsePayload[protocol.ErrorPayload](msg)
	require.NoError(t, err)
	return *p
}

func TestHandle_UnknownType(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.h.Handle(f.client, &protocol.Message{Type: "dance"})
	assert.Equal(t, protocol.ErrCodeInvalidMsg, lastError(t, f.client).Code)
}

func TestHandle_RecoversPanic(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.game.On("StartGame", "r1", "c1").Run(func(mock.Arguments) { panic("boom") }).Return(nil)

	assert.NotPanics(t, func() {
		f.h.Handle(f.client, msgOf(t, protocol.MsgStartGame, protocol.RoomPayload{RoomID: "r1"}))
	})
	assert.Equal(t, protocol.ErrCodeUnknown, lastError(t, f.client).Code)
}

func TestHandle_Ping(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.h.Handle(f.client, msgOf(t, protocol.MsgPing, protocol.PingPayload{Timestamp: 42}))

	pong, err := codec.ParsePayload[protocol.PongPayload](f.client.Last(protocol.MsgPong))
	require.NoError(t, err)
	assert.Equal(t, int64(42), pong.ClientTimestamp)
	assert.Positive(t, pong.ServerTimestamp)
}

func TestHandle_GetOnlinePlayers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.server.players = []protocol.PlayerInfo{{ID: "p1", Username: "Alice"}, {ID: "p2", Username: "Bob"}}

	f.h.Handle(f.client, &protocol.Message{Type: protocol.MsgGetOnlinePlayers})

	online, err := codec.ParsePayload[protocol.OnlinePlayersPayload](f.client.Last(protocol.MsgOnlinePlayers))
	require.NoError(t, err)
	assert.Equal(t, f.server.players, online.Players)
}

func TestHandle_StartGame(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		errCode int
	}{
		{"started", nil, 0},
		{"room missing", apperrors.ErrRoomNotFound, protocol.ErrCodeRoomNotFound},
		{"not a member", apperrors.ErrNotInRoom, protocol.ErrCodeNotInRoom},
		{"already started", apperrors.ErrNotStartable, protocol.ErrCodeGameStarted},
		{"unexpected", errors.New("boom"), protocol.ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.game.On("StartGame", "r1", "c1").Return(tt.err).Once()

			f.h.Handle(f.client, msgOf(t, protocol.MsgStartGame, protocol.RoomPayload{RoomID: "r1"}))

			if tt.err == nil {
				assert.Empty(t, f.client.Messages())
				return
			}
			assert.Equal(t, tt.errCode, lastError(t, f.client).Code)
		})
	}
}

func TestHandle_GuessWord(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.game.On("HandleGuess", "r1", "c1", "apple").Once()

	f.h.Handle(f.client, msgOf(t, protocol.MsgGuessWord, protocol.GuessWordPayload{RoomID: "r1", Word: "apple"}))
	assert.Empty(t, f.client.Messages(), "guess results are pushed by the coordinator")

	// 格式错误
	f.h.Handle(f.client, &protocol.Message{Type: protocol.MsgGuessWord, Payload: json.RawMessage(`{"word":`)})
	assert.Equal(t, protocol.ErrCodeInvalidMsg, lastError(t, f.client).Code)
}

func TestHandle_JoinRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	data := protocol.RoomDataPayload{RoomID: "r1", Status: "playing", CurrentRound: 2, TotalRounds: 5}
	f.game.On("RoomData", "r1").Return(data, nil)
	f.game.On("IsPlayer", "r1", "p1").Return(true)

	f.h.Handle(f.client, msgOf(t, protocol.MsgJoinRoom, protocol.RoomPayload{RoomID: "r1"}))

	assert.Equal(t, []string{"r1"}, f.rooms.joined)
	joined, err := codec.ParsePayload[protocol.RoomDataPayload](f.client.Last(protocol.MsgRoomJoined))
	require.NoError(t, err)
	assert.Equal(t, data, *joined)
}

func TestHandle_JoinRoom_Rejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.game.On("RoomData", "missing").Return(protocol.RoomDataPayload{}, apperrors.ErrRoomNotFound)
	f.game.On("RoomData", "r1").Return(protocol.RoomDataPayload{RoomID: "r1"}, nil)
	f.game.On("IsPlayer", "r1", "p1").Return(false)

	f.h.Handle(f.client, msgOf(t, protocol.MsgJoinRoom, protocol.RoomPayload{RoomID: "missing"}))
	assert.Equal(t, protocol.ErrCodeRoomNotFound, lastError(t, f.client).Code)

	f.h.Handle(f.client, msgOf(t, protocol.MsgJoinRoom, protocol.RoomPayload{RoomID: "r1"}))
	assert.Equal(t, protocol.ErrCodeNotInRoom, lastError(t, f.client).Code)
	assert.Empty(t, f.rooms.joined)
}

func TestHandle_LeaveRoom(t *testing.T) {
	t.Parallel()

	t.Run("last member aborts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.game.On("IsPlayer", "r1", "p1").Return(true)
		f.game.On("AbortMatch", "r1", duel.ReasonPlayersLeft).Once()

		f.h.Handle(f.client, msgOf(t, protocol.MsgLeaveRoom, protocol.RoomPayload{RoomID: "r1"}))
	})

	t.Run("opponent still connected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.rooms.remaining = 1
		f.game.On("IsPlayer", "r1", "p1").Return(true)

		f.h.Handle(f.client, msgOf(t, protocol.MsgLeaveRoom, protocol.RoomPayload{RoomID: "r1"}))
		f.game.AssertNotCalled(t, "AbortMatch", mock.Anything, mock.Anything)
	})

	t.Run("outsider cannot abort", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.game.On("IsPlayer", "r1", "p1").Return(false)

		f.h.Handle(f.client, msgOf(t, protocol.MsgLeaveRoom, protocol.RoomPayload{RoomID: "r1"}))
		f.game.AssertNotCalled(t, "AbortMatch", mock.Anything, mock.Anything)
	})
}

func TestHandle_GetRoomData(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	data := protocol.RoomDataPayload{RoomID: "r1", Status: "waiting", TotalRounds: 5}
	f.game.On("RoomData", "r1").Return(data, nil)

	f.h.Handle(f.client, msgOf(t, protocol.MsgGetRoomData, protocol.RoomPayload{RoomID: "r1"}))

	got, err := codec.ParsePayload[protocol.RoomDataPayload](f.client.Last(protocol.MsgRoomData))
	require.NoError(t, err)
	assert.Equal(t, data, *got)
}

func TestHandle_Lobby(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.lobby.On("Invite", "c1", "p2").Return(apperrors.ErrPlayerOffline).Once()
	f.lobby.On("Accept", "c1", "p3").Return(nil).Once()
	f.lobby.On("Decline", "c1", "p4").Return(apperrors.ErrInviteNotFound).Once()
	f.lobby.On("AddToQueue", "c1").Return(nil).Once()
	f.lobby.On("RemoveFromQueue", "c1").Once()

	f.h.Handle(f.client, msgOf(t, protocol.MsgInvitePlayer, protocol.InvitePlayerPayload{InviteeID: "p2"}))
	assert.Equal(t, protocol.ErrCodePlayerOffline, lastError(t, f.client).Code)

	f.h.Handle(f.client, msgOf(t, protocol.MsgAcceptInvite, protocol.InviteReplyPayload{InviterID: "p3"}))
	f.h.Handle(f.client, msgOf(t, protocol.MsgDeclineInvite, protocol.InviteReplyPayload{InviterID: "p4"}))
	assert.Equal(t, protocol.ErrCodeInviteNotFound, lastError(t, f.client).Code)

	f.h.Handle(f.client, &protocol.Message{Type: protocol.MsgQuickMatch})
	assert.NotNil(t, f.client.Last(protocol.MsgMatchQueued))

	f.h.Handle(f.client, &protocol.Message{Type: protocol.MsgCancelMatch})
}

func TestHandle_MaintenanceBlocksNewMatches(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.server.maintenance = true

	for _, msg := range []*protocol.Message{
		{Type: protocol.MsgQuickMatch},
		msgOf(t, protocol.MsgInvitePlayer, protocol.InvitePlayerPayload{InviteeID: "p2"}),
		msgOf(t, protocol.MsgAcceptInvite, protocol.InviteReplyPayload{InviterID: "p2"}),
	} {
		f.h.Handle(f.client, msg)
		assert.Equal(t, protocol.ErrCodeServerMaintenance, lastError(t, f.client).Code)
	}
	f.lobby.AssertNotCalled(t, "AddToQueue", mock.Anything)
}

func TestHandle_GetStats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.lb.On("GetPlayerStats", mock.Anything, "p1").Return(&storage.PlayerStats{
		PlayerID:   "p1",
		PlayerName: "Alice",
		TotalGames: 4,
		Wins:       3,
		Losses:     1,
		Score:      80,
	}, nil)
	f.lb.On("GetPlayerRank", mock.Anything, "p1").Return(int64(2), nil)

	f.h.Handle(f.client, &protocol.Message{Type: protocol.MsgGetStats})

	stats, err := codec.ParsePayload[protocol.StatsResultPayload](f.client.Last(protocol.MsgStatsResult))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Wins)
	assert.Equal(t, 2, stats.Rank)
	assert.InDelta(t, 75.0, stats.WinRate, 0.001)
}

func TestHandle_GetStats_NoHistory(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.lb.On("GetPlayerStats", mock.Anything, "p1").Return(nil, nil)

	f.h.Handle(f.client, &protocol.Message{Type: protocol.MsgGetStats})

	stats, err := codec.ParsePayload[protocol.StatsResultPayload](f.client.Last(protocol.MsgStatsResult))
	require.NoError(t, err)
	assert.Equal(t, protocol.StatsResultPayload{PlayerID: "p1", PlayerName: "Alice", Rank: -1}, *stats)
}

func TestHandle_GetLeaderboard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	entries := []*storage.LeaderboardEntry{{Rank: 1, PlayerID: "p9", PlayerName: "Zed", Score: 300, Wins: 10, WinRate: 90}}
	f.lb.On("GetLeaderboard", mock.Anything, "weekly", 5).Return(entries, nil).Once()
	f.lb.On("GetLeaderboard", mock.Anything, "total", 10).Return(nil, errors.New("redis down")).Once()

	f.h.Handle(f.client, msgOf(t, protocol.MsgGetLeaderboard, protocol.GetLeaderboardPayload{Type: "weekly", Limit: 5}))
	board, err := codec.ParsePayload[protocol.LeaderboardResultPayload](f.client.Last(protocol.MsgLeaderboardResult))
	require.NoError(t, err)
	assert.Equal(t, "weekly", board.Type)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "Zed", board.Entries[0].PlayerName)

	// 缺省 payload 使用总榜前 10
	f.h.Handle(f.client, &protocol.Message{Type: protocol.MsgGetLeaderboard})
	assert.Equal(t, protocol.ErrCodeUnknown, lastError(t, f.client).Code)
}

func TestNormalizeLeaderboardQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		inType    string
		inLimit   int
		wantType  string
		wantLimit int
	}{
		{"daily", 20, "daily", 20},
		{"weekly", 50, "weekly", 50},
		{"", 0, "total", 10},
		{"monthly", -1, "total", 10},
		{"total", 51, "total", 10},
	}
	for _, tt := range tests {
		gotType, gotLimit := NormalizeLeaderboardQuery(tt.inType, tt.inLimit)
		assert.Equal(t, tt.wantType, gotType)
		assert.Equal(t, tt.wantLimit, gotLimit)
	}
}
