// Package duel 实现对局协调：回合推进、猜词判定、计时与结算
package duel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/apperrors"
	"github.com/palemoky/hidden-word-duel/internal/game/room"
	"github.com/palemoky/hidden-word-duel/internal/game/timer"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
	"github.com/palemoky/hidden-word-duel/internal/server/storage"
)

// Participant 参与对局的玩家
type Participant struct {
	ID   string
	Name string
}

// Coordinator 对局协调器，房间状态的唯一写入方
//
// 所有状态转换（指令、tick、超时）都在房间锁内完成：
// 重新检查房间与计时器句柄仍然有效 → 修改状态 → 发送事件 → 派发持久化。
type Coordinator struct {
	settings  Settings
	transport Transport
	words     WordSource
	recorder  Recorder
	snapshots SnapshotStore
	results   ResultRecorder
	queue     Dispatcher
	onClosed  func(roomID string)

	rooms  *room.Store
	timers *timer.Registry
	newID  func() string
}

// New 创建协调器
func New(deps Deps) *Coordinator {
	c := &Coordinator{
		settings:  deps.Settings,
		transport: deps.Transport,
		words:     deps.Words,
		recorder:  deps.Recorder,
		snapshots: deps.Snapshots,
		results:   deps.Results,
		queue:     deps.Queue,
		onClosed:  deps.OnRoomClosed,
		rooms:     room.NewStore(),
		timers:    timer.NewRegistry(deps.Settings.TickInterval),
		newID:     uuid.NewString,
	}
	if c.recorder == nil {
		c.recorder = noopRecorder{}
	}
	if c.snapshots == nil {
		c.snapshots = noopSnapshots{}
	}
	if c.results == nil {
		c.results = noopResults{}
	}
	if c.queue == nil {
		c.queue = storage.NewWriteBehind(64, 5*time.Second)
	}
	return c
}

// Timers 计时器注册表
func (c *Coordinator) Timers() *timer.Registry {
	return c.timers
}

// CreateMatch 为两名玩家创建等待开局的房间
func (c *Coordinator) CreateMatch(roomID string, p1, p2 Participant) error {
	if roomID == "" || p1.ID == "" || p2.ID == "" || p1.ID == p2.ID {
		return apperrors.ErrInvalidPlayers
	}

	matchID := c.newID()
	r := room.New(roomID, matchID,
		room.PlayerState{ID: p1.ID, Name: p1.Name},
		room.PlayerState{ID: p2.ID, Name: p2.Name},
		c.settings.TotalChances)

	r.Lock()
	defer r.Unlock()

	if err := c.rooms.Add(r); err != nil {
		return err
	}

	log.Info().Str("room", roomID).Str("match", matchID).
		Str("player1", p1.ID).Str("player2", p2.ID).Msg("🎮 创建对局")

	c.persist(roomID, "create_match", func(ctx context.Context) error {
		return c.recorder.CreateMatch(ctx, matchID, p1.ID, p2.ID)
	})
	c.saveSnapshotLocked(r)
	return nil
}

// StartGame 处理 startGame 指令
func (c *Coordinator) StartGame(roomID, connID string) error {
	playerID, _, ok := c.transport.ResolveIdentity(connID)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	r := c.rooms.Get(roomID)
	if r == nil {
		return apperrors.ErrRoomNotFound
	}

	r.Lock()
	defer r.Unlock()

	if !r.IsLive() {
		return apperrors.ErrRoomNotFound
	}
	if !r.HasPlayer(playerID) {
		return apperrors.ErrNotInRoom
	}
	if r.Status != room.StatusWaiting {
		return apperrors.ErrNotStartable
	}

	log.Info().Str("room", roomID).Str("player", playerID).Msg("▶️ 对局开始")
	c.startNextRoundLocked(r, ReasonGameStarting)
	return nil
}

// HandleGuess 处理 guessWord 指令，无效的猜词只记录日志
func (c *Coordinator) HandleGuess(roomID, connID, word string) {
	playerID, name, ok := c.transport.ResolveIdentity(connID)
	if !ok {
		log.Debug().Str("conn", connID).Msg("🚮 丢弃猜词：连接身份未知")
		return
	}

	r := c.rooms.Get(roomID)
	if r == nil {
		log.Debug().Str("room", roomID).Str("player", playerID).Msg("🚮 丢弃猜词：房间不存在")
		return
	}

	r.Lock()
	defer r.Unlock()

	if !r.IsLive() || r.Status != room.StatusPlaying {
		log.Debug().Str("room", roomID).Str("player", playerID).Str("status", string(r.Status)).Msg("🚮 丢弃猜词：对局未进行")
		return
	}
	p := r.Player(playerID)
	if p == nil {
		log.Warn().Str("room", roomID).Str("player", playerID).Msg("🚮 丢弃猜词：非房间成员")
		return
	}
	if p.RemainingChances <= 0 {
		log.Debug().Str("room", roomID).Str("player", playerID).Msg("🚮 丢弃猜词：机会已用尽")
		return
	}

	roundID := r.CurrentRoundID
	if name == "" {
		name = p.Name
	}

	if r.Matches(word) {
		p.RoundsWon++
		log.Info().Str("room", roomID).Str("player", playerID).Int("round", r.CurrentRound).Msg("🎯 猜中")

		c.persist(roomID, "record_guess", func(ctx context.Context) error {
			return c.recorder.RecordGuess(ctx, roundID, playerID, word, true)
		})
		c.persist(roomID, "set_round_winner", func(ctx context.Context) error {
			return c.recorder.SetRoundWinner(ctx, roundID, playerID)
		})
		c.startNextRoundLocked(r, correctGuessMessage(name))
		return
	}

	p.RemainingChances--
	remaining := p.RemainingChances

	c.persist(roomID, "record_guess", func(ctx context.Context) error {
		return c.recorder.RecordGuess(ctx, roundID, playerID, word, false)
	})
	c.saveSnapshotLocked(r)

	c.transport.Unicast(connID, codec.MustNewMessage(protocol.MsgWordGuessed, protocol.WordGuessedPayload{
		Success:          false,
		Message:          incorrectGuessMessage(remaining),
		RemainingChances: remaining,
	}))
	if remaining == 0 {
		c.transport.Unicast(connID, codec.MustNewMessage(protocol.MsgGameOver, protocol.GameOverPayload{
			Reason: ReasonOutOfChances,
		}))
	}
}

// --- 查询 ---

// RoomData 房间快照（不含当前单词）
func (c *Coordinator) RoomData(roomID string) (protocol.RoomDataPayload, error) {
	r := c.rooms.Get(roomID)
	if r == nil {
		return protocol.RoomDataPayload{}, apperrors.ErrRoomNotFound
	}

	r.Lock()
	defer r.Unlock()
	if !r.IsLive() {
		return protocol.RoomDataPayload{}, apperrors.ErrRoomNotFound
	}
	return r.ToPayload(c.settings.TotalRounds), nil
}

// IsPlayer 玩家是否是房间成员
func (c *Coordinator) IsPlayer(roomID, playerID string) bool {
	r := c.rooms.Get(roomID)
	if r == nil {
		return false
	}
	r.Lock()
	defer r.Unlock()
	return r.IsLive() && r.HasPlayer(playerID)
}

// PlayerRooms 玩家所在的房间
func (c *Coordinator) PlayerRooms(playerID string) []string {
	rooms := c.rooms.FindByPlayer(playerID)
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	return ids
}

// RoomCount 房间总数
func (c *Coordinator) RoomCount() int {
	return c.rooms.Len()
}

// ActiveCount 进行中的对局数
func (c *Coordinator) ActiveCount() int {
	count := 0
	for _, r := range c.rooms.All() {
		r.Lock()
		if r.Status == room.StatusPlaying {
			count++
		}
		r.Unlock()
	}
	return count
}
