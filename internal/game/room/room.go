package room

import (
	"strings"
	"sync"
	"time"

	"github.com/palemoky/hidden-word-duel/internal/game/timer"
)

// Status 房间状态
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// PlayerState 房间中的玩家
type PlayerState struct {
	ID               string
	Name             string
	RoundsWon        int
	RemainingChances int // 整场比赛剩余的猜错次数
}

// Room 对局房间，所有字段由持有 Lock 的一方读写
type Room struct {
	ID      string
	MatchID string
	Status  Status
	Players [2]*PlayerState

	CurrentRound    int
	CurrentRoundID  string
	CurrentWord     string
	RevealedIndices []int
	UsedWords       []string

	// Timer 当前回合计时器，回调通过比较句柄丢弃过期事件
	Timer *timer.Handle

	CreatedAt time.Time
	UpdatedAt time.Time

	mu sync.Mutex
}

// New 创建等待开局的房间
func New(id, matchID string, p1, p2 PlayerState, chances int) *Room {
	now := time.Now()
	r := &Room{
		ID:        id,
		MatchID:   matchID,
		Status:    StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, p := range []PlayerState{p1, p2} {
		p.RoundsWon = 0
		p.RemainingChances = chances
		r.Players[i] = &p
	}
	return r
}

func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

// Player 按 ID 查找玩家
func (r *Room) Player(id string) *PlayerState {
	for _, p := range r.Players {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

// HasPlayer 是否是房间成员
func (r *Room) HasPlayer(id string) bool {
	return r.Player(id) != nil
}

// PlayerIDs 按座位顺序返回玩家 ID
func (r *Room) PlayerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

// IsLive 房间是否仍在进行（未结束）
func (r *Room) IsLive() bool {
	return r.Status != StatusFinished
}

// BeginRound 进入下一回合
func (r *Room) BeginRound(roundID, word string, revealed []int) {
	r.CurrentRound++
	r.CurrentRoundID = roundID
	r.CurrentWord = word
	r.RevealedIndices = revealed
	r.UsedWords = append(r.UsedWords, word)
	r.Status = StatusPlaying
	r.UpdatedAt = time.Now()
}

// Matches 猜词是否命中当前单词（忽略大小写）
func (r *Room) Matches(guess string) bool {
	return r.CurrentWord != "" && strings.EqualFold(guess, r.CurrentWord)
}

// Reveal 追加揭示一个位置
func (r *Room) Reveal(index int) {
	r.RevealedIndices = append(r.RevealedIndices, index)
	r.UpdatedAt = time.Now()
}

// Scores 每名玩家赢得的回合数
func (r *Room) Scores() map[string]int {
	scores := make(map[string]int, len(r.Players))
	for _, p := range r.Players {
		scores[p.ID] = p.RoundsWon
	}
	return scores
}

// Winner 回合数严格更多的玩家，平局返回 nil
func (r *Room) Winner() *string {
	a, b := r.Players[0], r.Players[1]
	switch {
	case a.RoundsWon > b.RoundsWon:
		return &a.ID
	case b.RoundsWon > a.RoundsWon:
		return &b.ID
	default:
		return nil
	}
}

// StopTimer 停止并清除当前计时器
func (r *Room) StopTimer() {
	if r.Timer != nil {
		r.Timer.Stop()
		r.Timer = nil
	}
}
