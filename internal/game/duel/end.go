package duel

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/game/room"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
	"github.com/palemoky/hidden-word-duel/internal/server/storage"
)

// EndMatch 结算对局，房间不存在或已结束时为空操作
func (c *Coordinator) EndMatch(roomID, reason string) {
	r := c.rooms.Get(roomID)
	if r == nil {
		return
	}
	r.Lock()
	defer r.Unlock()
	c.endMatchLocked(r, reason)
}

// AbortMatch 中止对局，不记录胜负
func (c *Coordinator) AbortMatch(roomID, reason string) {
	r := c.rooms.Get(roomID)
	if r == nil {
		return
	}
	r.Lock()
	defer r.Unlock()
	c.abortLocked(r, reason)
}

// AbortAll 中止所有房间（停机时使用）
func (c *Coordinator) AbortAll(reason string) int {
	n := 0
	for _, r := range c.rooms.All() {
		r.Lock()
		if r.IsLive() {
			c.abortLocked(r, reason)
			n++
		}
		r.Unlock()
	}
	return n
}

func (c *Coordinator) endMatchLocked(r *room.Room, reason string) {
	if !r.IsLive() {
		return
	}
	r.Status = room.StatusFinished
	r.StopTimer()

	winner := r.Winner()
	c.transport.Broadcast(r.ID, codec.MustNewMessage(protocol.MsgMatchOver, protocol.MatchOverPayload{
		WinnerID: winner,
		Scores:   r.Scores(),
		Reason:   reason,
	}))

	ev := log.Info().Str("room", r.ID).Interface("scores", r.Scores())
	if winner != nil {
		ev = ev.Str("winner", *winner)
	}
	ev.Msg("🏁 对局结束")

	matchID := r.MatchID
	c.persist(r.ID, "complete_match", func(ctx context.Context) error {
		return c.recorder.UpdateMatchStatus(ctx, matchID, storage.MatchStatusCompleted)
	})
	for _, p := range r.Players {
		playerID, name := p.ID, p.Name
		outcome := storage.OutcomeLoss
		switch {
		case winner == nil:
			outcome = storage.OutcomeDraw
		case *winner == playerID:
			outcome = storage.OutcomeWin
		}

		c.persist(r.ID, "player_win_loss", func(ctx context.Context) error {
			return c.recorder.IncrementPlayerWinLoss(ctx, playerID, outcome == storage.OutcomeWin)
		})
		c.persist(r.ID, "leaderboard", func(ctx context.Context) error {
			return c.results.RecordMatchResult(ctx, playerID, name, outcome)
		})
	}

	c.teardownLocked(r)
}

func (c *Coordinator) abortLocked(r *room.Room, reason string) {
	if !r.IsLive() {
		return
	}
	r.Status = room.StatusFinished
	r.StopTimer()

	c.transport.Broadcast(r.ID, codec.MustNewMessage(protocol.MsgMatchAborted, protocol.MatchAbortedPayload{
		Reason: reason,
	}))
	log.Warn().Str("room", r.ID).Str("reason", reason).Msg("🛑 对局中止")

	matchID := r.MatchID
	c.persist(r.ID, "abort_match", func(ctx context.Context) error {
		return c.recorder.UpdateMatchStatus(ctx, matchID, storage.MatchStatusAborted)
	})

	c.teardownLocked(r)
}

// teardownLocked 从内存表、计时器与写入队列中移除房间
func (c *Coordinator) teardownLocked(r *room.Room) {
	c.timers.Stop(r.ID)
	c.rooms.Remove(r)

	roomID := r.ID
	c.persist(roomID, "delete_snapshot", func(ctx context.Context) error {
		return c.snapshots.DeleteRoom(ctx, roomID)
	})
	c.queue.Release(roomID)

	if c.onClosed != nil {
		c.onClosed(roomID)
	}
}

// --- 持久化 ---

func (c *Coordinator) persist(roomID, label string, fn storage.WriteFunc) {
	c.queue.Enqueue(roomID, label, fn)
}

func (c *Coordinator) saveSnapshotLocked(r *room.Room) {
	data := r.ToRoomData()
	data.TotalRounds = c.settings.TotalRounds
	c.persist(r.ID, "save_snapshot", func(ctx context.Context) error {
		return c.snapshots.SaveRoom(ctx, data.ID, data)
	})
}

// --- 过期房间清理 ---

// ExpireIdle 中止等待开局超过 RoomTimeout 的房间
func (c *Coordinator) ExpireIdle(now time.Time) int {
	if c.settings.RoomTimeout <= 0 {
		return 0
	}

	n := 0
	for _, r := range c.rooms.All() {
		r.Lock()
		if r.Status == room.StatusWaiting && now.Sub(r.CreatedAt) > c.settings.RoomTimeout {
			c.abortLocked(r, ReasonRoomExpired)
			n++
		}
		r.Unlock()
	}
	return n
}

// RunCleanup 定期清理过期房间，直到 ctx 结束
func (c *Coordinator) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := c.ExpireIdle(now); n > 0 {
				log.Info().Int("count", n).Msg("🧹 清理过期房间")
			}
		}
	}
}
