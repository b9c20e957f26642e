package duel

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/game/reveal"
	"github.com/palemoky/hidden-word-duel/internal/game/room"
	"github.com/palemoky/hidden-word-duel/internal/game/timer"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
)

// startNextRoundLocked 进入下一回合，所有回合结束时结算对局，调用方需持有房间锁
func (c *Coordinator) startNextRoundLocked(r *room.Room, reason string) {
	r.StopTimer()

	if r.CurrentRound >= c.settings.TotalRounds {
		c.endMatchLocked(r, ReasonAllRounds)
		return
	}

	word, err := c.words.Pick(slices.Clone(r.UsedWords))
	if err != nil {
		log.Error().Err(err).Str("room", r.ID).Int("used", len(r.UsedWords)).Msg("❌ 词库耗尽，中止对局")
		c.abortLocked(r, ReasonWordsExhausted)
		return
	}

	revealed := reveal.InitialReveal(word, c.settings.InitialReveal)
	roundID := c.newID()
	r.BeginRound(roundID, word, revealed)

	log.Info().Str("room", r.ID).Int("round", r.CurrentRound).Str("reason", reason).Msg("🔤 回合开始")

	c.transport.Broadcast(r.ID, codec.MustNewMessage(protocol.MsgRoundStart, protocol.RoundStartPayload{
		CurrentRound:    r.CurrentRound,
		TotalRounds:     c.settings.TotalRounds,
		Word:            word,
		WordLength:      len([]rune(word)),
		RevealedIndices: slices.Clone(revealed),
		Message:         reason,
		Duration:        c.settings.RoundDuration,
	}))

	r.Timer = c.timers.Start(r.ID, c.settings.RoundDuration, timer.Callbacks{
		OnTick:    c.onTick,
		OnTimeout: c.onTimeout,
	})

	matchID, roundNumber := r.MatchID, r.CurrentRound
	mask := reveal.Mask(word, revealed)
	c.persist(r.ID, "create_round", func(ctx context.Context) error {
		return c.recorder.CreateRound(ctx, roundID, matchID, word, mask, roundNumber)
	})
	c.saveSnapshotLocked(r)
}

// lockCurrent 锁定计时器所属房间，房间已销毁或句柄已过期时返回 nil
func (c *Coordinator) lockCurrent(h *timer.Handle) *room.Room {
	r := c.rooms.Get(h.RoomID())
	if r == nil {
		return nil
	}
	r.Lock()
	if !r.IsLive() || r.Timer != h {
		r.Unlock()
		return nil
	}
	return r
}

func (c *Coordinator) onTick(h *timer.Handle, remaining int) {
	r := c.lockCurrent(h)
	if r == nil {
		return
	}
	defer r.Unlock()

	c.transport.Broadcast(r.ID, codec.MustNewMessage(protocol.MsgTick, protocol.TickPayload{
		TimeLeft: remaining,
	}))

	if interval := c.settings.RevealInterval; interval > 0 && remaining > 0 {
		if elapsed := c.settings.RoundDuration - remaining; elapsed > 0 && elapsed%interval == 0 {
			c.revealNextLocked(r)
		}
	}
}

func (c *Coordinator) onTimeout(h *timer.Handle) {
	r := c.lockCurrent(h)
	if r == nil {
		return
	}
	defer r.Unlock()

	log.Debug().Str("room", r.ID).Int("round", r.CurrentRound).Msg("⏰ 回合超时")
	roundID := r.CurrentRoundID
	c.persist(r.ID, "end_round", func(ctx context.Context) error {
		return c.recorder.EndRound(ctx, roundID)
	})
	c.startNextRoundLocked(r, ReasonTimeUp)
}

// revealNextLocked 追加揭示一个字母，至少保留一个未揭示的位置
func (c *Coordinator) revealNextLocked(r *room.Room) {
	if len(reveal.Hidden(r.CurrentWord, r.RevealedIndices)) <= 1 {
		return
	}
	idx, ok := reveal.Next(r.CurrentWord, r.RevealedIndices)
	if !ok {
		return
	}
	r.Reveal(idx)

	c.transport.Broadcast(r.ID, codec.MustNewMessage(protocol.MsgLetterRevealed, protocol.LetterRevealedPayload{
		Index:           idx,
		Letter:          reveal.LetterAt(r.CurrentWord, idx),
		RevealedIndices: slices.Clone(r.RevealedIndices),
	}))
}
