package client

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
)

// MatchResult 一场对局的结果
type MatchResult struct {
	RoomID   string
	WinnerID *string
	Scores   map[string]int
	Aborted  bool
	Reason   string
}

// Bot 按已揭示字母从词表中挑选候选词的自动玩家
type Bot struct {
	client *Client
	words  []string
	think  time.Duration
	intN   func(int) int
}

// NewBot 创建机器人，think 为每次猜词前的等待时间
func NewBot(c *Client, words []string, think time.Duration) *Bot {
	return &Bot{client: c, words: words, think: think, intN: rand.IntN}
}

// PlayMatch 加入快速匹配并打完一场
func (b *Bot) PlayMatch(ctx context.Context) (*MatchResult, error) {
	selfID, _ := b.client.Identity()
	state := NewDuelState(selfID)

	if err := b.client.QuickMatch(); err != nil {
		return nil, err
	}

	pending := false
	for {
		msg, err := b.client.Receive(ctx)
		if err != nil {
			return nil, err
		}
		state.Apply(msg)

		switch msg.Type {
		case protocol.MsgMatchFound:
			log.Info().Str("room", state.RoomID).Bool("host", state.IsHost()).Msg("🤝 匹配成功")
			if state.IsHost() {
				if err := b.client.StartGame(state.RoomID); err != nil {
					return nil, err
				}
			}
			continue

		case protocol.MsgRoundStart:
			pending = false
		case protocol.MsgWordGuessed:
			pending = false
		case protocol.MsgLetterRevealed:
		case protocol.MsgMatchOver, protocol.MsgMatchAborted:
			return &MatchResult{
				RoomID:   state.RoomID,
				WinnerID: state.WinnerID,
				Scores:   state.Scores,
				Aborted:  state.Aborted,
				Reason:   state.Reason,
			}, nil
		case protocol.MsgError:
			if p, err := codec.ParsePayload[protocol.ErrorPayload](msg); err == nil {
				log.Warn().Int("code", p.Code).Str("message", p.Message).Msg("服务器返回错误")
			}
			continue
		default:
			continue
		}

		if pending || !state.CanGuess() {
			continue
		}
		guess, ok := b.pick(state)
		if !ok {
			continue
		}
		if err := b.wait(ctx); err != nil {
			return nil, err
		}
		state.MarkTried(guess)
		if err := b.client.Guess(state.RoomID, guess); err != nil {
			return nil, err
		}
		pending = true
		log.Debug().Str("room", state.RoomID).Int("round", state.Round).Str("pattern", state.Pattern()).
			Str("guess", guess).Msg("🤔 猜词")
	}
}

func (b *Bot) pick(state *DuelState) (string, bool) {
	candidates := state.Candidates(b.words)
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[b.intN(len(candidates))], true
}

func (b *Bot) wait(ctx context.Context) error {
	if b.think <= 0 {
		return nil
	}
	select {
	case <-time.After(b.think):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
