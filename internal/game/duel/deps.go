package duel

import (
	"context"
	"time"

	"github.com/palemoky/hidden-word-duel/internal/config"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/server/storage"
)

// Transport 房间广播、连接单播与连接身份
type Transport interface {
	Broadcast(roomID string, msg *protocol.Message)
	Unicast(connID string, msg *protocol.Message)
	ResolveIdentity(connID string) (playerID, name string, ok bool)
}

// WordSource 词库
type WordSource interface {
	Pick(excluding []string) (string, error)
}

// Recorder 对局记录持久化
type Recorder interface {
	CreateMatch(ctx context.Context, matchID, player1ID, player2ID string) error
	UpdateMatchStatus(ctx context.Context, matchID, status string) error
	CreateRound(ctx context.Context, roundID, matchID, word string, revealed []bool, roundNumber int) error
	SetRoundWinner(ctx context.Context, roundID, playerID string) error
	EndRound(ctx context.Context, roundID string) error
	RecordGuess(ctx context.Context, roundID, playerID, guess string, correct bool) error
	IncrementPlayerWinLoss(ctx context.Context, playerID string, won bool) error
}

// SnapshotStore 房间快照
type SnapshotStore interface {
	SaveRoom(ctx context.Context, roomID string, data *storage.RoomData) error
	DeleteRoom(ctx context.Context, roomID string) error
}

// ResultRecorder 排行榜
type ResultRecorder interface {
	RecordMatchResult(ctx context.Context, playerID, playerName string, outcome storage.Outcome) error
}

// Dispatcher 按房间串行的异步写入
type Dispatcher interface {
	Enqueue(key, label string, fn storage.WriteFunc) bool
	Release(key string)
}

// Settings 对局参数
type Settings struct {
	TotalChances   int
	TotalRounds    int
	RoundDuration  int // 秒
	InitialReveal  int
	RevealInterval int // 秒，0 关闭追加揭示
	TickInterval   time.Duration
	RoomTimeout    time.Duration
}

// SettingsFromConfig 从配置构造对局参数
func SettingsFromConfig(cfg *config.GameConfig) Settings {
	return Settings{
		TotalChances:   cfg.TotalChances,
		TotalRounds:    cfg.TotalRounds,
		RoundDuration:  cfg.RoundDuration,
		InitialReveal:  cfg.InitialReveal,
		RevealInterval: cfg.RevealInterval,
		TickInterval:   cfg.TickIntervalDuration(),
		RoomTimeout:    cfg.RoomTimeoutDuration(),
	}
}

// Deps 协调器依赖，持久化相关依赖为 nil 时不记录
type Deps struct {
	Settings  Settings
	Transport Transport
	Words     WordSource
	Recorder  Recorder
	Snapshots SnapshotStore
	Results   ResultRecorder
	Queue     Dispatcher

	// OnRoomClosed 房间销毁后回调（在房间锁内调用）
	OnRoomClosed func(roomID string)
}

type noopRecorder struct{}

func (noopRecorder) CreateMatch(context.Context, string, string, string) error {
	return nil
}

func (noopRecorder) UpdateMatchStatus(context.Context, string, string) error {
	return nil
}

func (noopRecorder) CreateRound(context.Context, string, string, string, []bool, int) error {
	return nil
}

func (noopRecorder) SetRoundWinner(context.Context, string, string) error {
	return nil
}

func (noopRecorder) EndRound(context.Context, string) error {
	return nil
}

func (noopRecorder) RecordGuess(context.Context, string, string, string, bool) error {
	return nil
}

func (noopRecorder) IncrementPlayerWinLoss(context.Context, string, bool) error {
	return nil
}

type noopSnapshots struct{}

func (noopSnapshots) SaveRoom(context.Context, string, *storage.RoomData) error { return nil }
func (noopSnapshots) DeleteRoom(context.Context, string) error                  { return nil }

type noopResults struct{}

func (noopResults) RecordMatchResult(context.Context, string, string, storage.Outcome) error {
	return nil
}
