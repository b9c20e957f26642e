package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/hidden-word-duel/internal/config"
	"github.com/palemoky/hidden-word-duel/internal/game/wordpool"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
	"github.com/palemoky/hidden-word-duel/internal/server/storage"
)

type testEnv struct {
	s  *Server
	ts *httptest.Server
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Server.AllowGuest = true
	cfg.Game.TotalRounds = 1
	cfg.Auth.JWTSecret = "test-secret"
	if mutate != nil {
		mutate(cfg)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	words := wordpool.New([]string{"apple"}, cfg.Game.WordMinLength, cfg.Game.WordMaxLength)
	s := newServer(cfg, rdb, nil, words)
	t.Cleanup(s.Shutdown)

	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)

	return &testEnv{s: s, ts: ts}
}

func (e *testEnv) wsURL(query string) string {
	return "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws?" + query
}

func (e *testEnv) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(e.wsURL(query), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(e.ts.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

// readUntil 跳过其他消息直到收到指定类型
func readUntil(t *testing.T, conn *websocket.Conn, want protocol.MessageType) *protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg protocol.Message
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", want)
		if msg.Type == want {
			return &msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(codec.MustNewMessage(msgType, payload)))
}

func payloadOf[T any](t *testing.T, msg *protocol.Message) T {
	t.Helper()
	p, err := codec.ParsePayload[T](msg)
	require.NoError(t, err)
	return *p
}

// --- HTTP API ---

func TestAPI_Health(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	resp, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"redis": "ok"}, body["checks"])
	assert.Equal(t, false, body["maintenance"])
}

func TestAPI_CreatePlayer(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	resp, err := http.Post(env.ts.URL+"/api/players", "application/json",
		strings.NewReader(`{"id":"p-42","username":"  Alice  "}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out createPlayerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "p-42", out.Player.ID)
	assert.Equal(t, "Alice", out.Player.Username)

	id, name, err := env.s.tokens.Verify(out.Token)
	require.NoError(t, err)
	assert.Equal(t, "p-42", id)
	assert.Equal(t, "Alice", name)
}

func TestAPI_CreatePlayer_Defaults(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	resp, err := http.Post(env.ts.URL+"/api/players", "application/json", http.NoBody)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out createPlayerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Player.ID)
	assert.Equal(t, storage.DefaultUsername(out.Player.ID), out.Player.Username)
	assert.NotEmpty(t, out.Token)
}

func TestAPI_CreatePlayer_BadBody(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	resp, err := http.Post(env.ts.URL+"/api/players", "application/json", strings.NewReader(`{"id":`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetPlayer_WithoutPostgres(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	resp, body := env.get(t, "/api/players/p1")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "player records are disabled", body["error"])
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	resp, body := env.get(t, "/api/players")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "method not allowed", body["error"])

	post, err := http.Post(env.ts.URL+"/api/rooms", "application/json", http.NoBody)
	require.NoError(t, err)
	_ = post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)

	resp, body = env.get(t, "/api/unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", body["error"])
}

func TestAPI_StatsAndLeaderboard(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.NoError(t, env.s.leaderboard.RecordMatchResult(ctx, "p1", "Alice", storage.OutcomeWin))
	require.NoError(t, env.s.leaderboard.RecordMatchResult(ctx, "p2", "Bob", storage.OutcomeLoss))
	require.NoError(t, env.s.leaderboard.RecordMatchResult(ctx, "p2", "Bob", storage.OutcomeWin))

	resp, body := env.get(t, "/api/players/p1/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Alice", body["playerName"])
	assert.InDelta(t, 1, body["wins"], 0)

	resp, body = env.get(t, "/api/players/nobody/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, -1, body["rank"], 0)

	resp, body = env.get(t, "/api/leaderboard?type=weekly&limit=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "weekly", body["type"])
	entries, ok := body["entries"].([]any)
	require.True(t, ok)
	assert.Len(t, entries, 1)
}

func TestAPI_Rooms(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	_, body := env.get(t, "/api/rooms")
	assert.Equal(t, []any{}, body["rooms"])

	require.NoError(t, env.s.redisStore.SaveRoom(context.Background(), "r1", &storage.RoomData{ID: "r1", Status: "playing"}))
	_, body = env.get(t, "/api/rooms")
	assert.Equal(t, []any{"r1"}, body["rooms"])
}

// --- WebSocket ---

func TestWebSocket_RejectsWithoutIdentity(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, func(c *config.Config) { c.Server.AllowGuest = false })

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL(""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_TokenIdentity(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, func(c *config.Config) { c.Server.AllowGuest = false })

	token, err := env.s.tokens.Issue("p7", "Grace")
	require.NoError(t, err)

	conn := env.dial(t, "token="+token)
	connected := payloadOf[protocol.ConnectedPayload](t, readUntil(t, conn, protocol.MsgConnected))
	assert.Equal(t, protocol.ConnectedPayload{PlayerID: "p7", PlayerName: "Grace"}, connected)
}

func TestWebSocket_Maintenance(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.s.EnterMaintenanceMode()

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("playerId=p1"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebSocket_QuickMatchDuel(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	alice := env.dial(t, "playerId=p1&name=Alice")
	bob := env.dial(t, "playerId=p2&name=Bob")
	readUntil(t, alice, protocol.MsgConnected)
	readUntil(t, bob, protocol.MsgConnected)

	send(t, alice, protocol.MsgQuickMatch, nil)
	readUntil(t, alice, protocol.MsgMatchQueued)
	send(t, bob, protocol.MsgQuickMatch, nil)

	found := payloadOf[protocol.MatchFoundPayload](t, readUntil(t, alice, protocol.MsgMatchFound))
	readUntil(t, bob, protocol.MsgMatchFound)
	require.NotEmpty(t, found.RoomID)
	assert.Len(t, found.Players, 2)

	send(t, alice, protocol.MsgStartGame, protocol.RoomPayload{RoomID: found.RoomID})
	start := payloadOf[protocol.RoundStartPayload](t, readUntil(t, alice, protocol.MsgRoundStart))
	readUntil(t, bob, protocol.MsgRoundStart)
	assert.Equal(t, "apple", start.Word)
	assert.Equal(t, 1, start.TotalRounds)

	send(t, bob, protocol.MsgGuessWord, protocol.GuessWordPayload{RoomID: found.RoomID, Word: "lemon"})
	wrong := payloadOf[protocol.WordGuessedPayload](t, readUntil(t, bob, protocol.MsgWordGuessed))
	assert.False(t, wrong.Success)
	assert.Equal(t, 4, wrong.RemainingChances)

	send(t, alice, protocol.MsgGuessWord, protocol.GuessWordPayload{RoomID: found.RoomID, Word: "apple"})
	over := payloadOf[protocol.MatchOverPayload](t, readUntil(t, bob, protocol.MsgMatchOver))
	readUntil(t, alice, protocol.MsgMatchOver)
	require.NotNil(t, over.WinnerID)
	assert.Equal(t, "p1", *over.WinnerID)
	assert.Equal(t, map[string]int{"p1": 1, "p2": 0}, over.Scores)

	assert.Eventually(t, func() bool { return env.s.coordinator.RoomCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_DisconnectAbortsEmptyRoom(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	alice := env.dial(t, "playerId=p1&name=Alice")
	bob := env.dial(t, "playerId=p2&name=Bob")
	readUntil(t, alice, protocol.MsgConnected)
	readUntil(t, bob, protocol.MsgConnected)

	send(t, alice, protocol.MsgInvitePlayer, protocol.InvitePlayerPayload{InviteeID: "p2"})
	readUntil(t, bob, protocol.MsgGameInvite)
	send(t, bob, protocol.MsgAcceptInvite, protocol.InviteReplyPayload{InviterID: "p1"})
	readUntil(t, alice, protocol.MsgMatchFound)
	require.Equal(t, 1, env.s.coordinator.RoomCount())

	// 对手仍在房间内，不中止
	_ = alice.Close()
	assert.Eventually(t, func() bool { return env.s.GetOnlineCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, env.s.coordinator.RoomCount())

	_ = bob.Close()
	assert.Eventually(t, func() bool { return env.s.coordinator.RoomCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
