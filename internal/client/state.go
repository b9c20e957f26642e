package client

import (
	"strings"
	"unicode/utf8"

	"github.com/palemoky/hidden-word-duel/internal/game/reveal"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
)

// DuelState 客户端视角的对局状态
type DuelState struct {
	SelfID string

	// 房间
	RoomID  string
	HostID  string
	Players []protocol.PlayerInfo

	// 回合
	Round       int
	TotalRounds int
	WordLength  int
	Revealed    []int
	letters     map[int]string
	tried       map[string]struct{}

	// 本人
	RemainingChances int // -1 表示未知
	OutOfChances     bool

	// 结果
	Over     bool
	Aborted  bool
	Reason   string
	WinnerID *string
	Scores   map[string]int
}

// NewDuelState 创建状态
func NewDuelState(selfID string) *DuelState {
	s := &DuelState{SelfID: selfID}
	s.Reset()
	return s
}

// Reset 清空对局状态，保留自身 ID
func (s *DuelState) Reset() {
	*s = DuelState{
		SelfID:           s.SelfID,
		letters:          make(map[int]string),
		tried:            make(map[string]struct{}),
		RemainingChances: -1,
	}
}

// Apply 根据服务器事件更新状态，返回该消息是否被识别
func (s *DuelState) Apply(msg *protocol.Message) bool {
	switch msg.Type {
	case protocol.MsgMatchFound:
		p, err := codec.ParsePayload[protocol.MatchFoundPayload](msg)
		if err != nil {
			return false
		}
		s.Reset()
		s.RoomID, s.HostID, s.Players = p.RoomID, p.HostID, p.Players

	case protocol.MsgRoundStart:
		p, err := codec.ParsePayload[protocol.RoundStartPayload](msg)
		if err != nil {
			return false
		}
		s.Round, s.TotalRounds, s.WordLength = p.CurrentRound, p.TotalRounds, p.WordLength
		s.Revealed = append([]int(nil), p.RevealedIndices...)
		s.letters = make(map[int]string, len(p.RevealedIndices))
		for _, idx := range p.RevealedIndices {
			s.letters[idx] = reveal.LetterAt(p.Word, idx)
		}
		s.tried = make(map[string]struct{})

	case protocol.MsgLetterRevealed:
		p, err := codec.ParsePayload[protocol.LetterRevealedPayload](msg)
		if err != nil {
			return false
		}
		s.Revealed = append([]int(nil), p.RevealedIndices...)
		s.letters[p.Index] = p.Letter

	case protocol.MsgWordGuessed:
		p, err := codec.ParsePayload[protocol.WordGuessedPayload](msg)
		if err != nil {
			return false
		}
		s.RemainingChances = p.RemainingChances

	case protocol.MsgGameOver:
		s.OutOfChances = true
		s.RemainingChances = 0

	case protocol.MsgMatchOver:
		p, err := codec.ParsePayload[protocol.MatchOverPayload](msg)
		if err != nil {
			return false
		}
		s.Over, s.WinnerID, s.Scores, s.Reason = true, p.WinnerID, p.Scores, p.Reason

	case protocol.MsgMatchAborted:
		p, err := codec.ParsePayload[protocol.MatchAbortedPayload](msg)
		if err != nil {
			return false
		}
		s.Over, s.Aborted, s.Reason = true, true, p.Reason

	default:
		return false
	}
	return true
}

// IsHost 本人是否为房主
func (s *DuelState) IsHost() bool {
	return s.HostID != "" && s.HostID == s.SelfID
}

// CanGuess 回合进行中且仍有机会
func (s *DuelState) CanGuess() bool {
	return s.Round > 0 && !s.Over && !s.OutOfChances
}

// Pattern 已揭示字母组成的模式，未揭示位置为 '_'
func (s *DuelState) Pattern() string {
	var b strings.Builder
	for i := range s.WordLength {
		if l, ok := s.letters[i]; ok {
			b.WriteString(l)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// MarkTried 记录本回合已猜过的单词
func (s *DuelState) MarkTried(word string) {
	s.tried[strings.ToLower(word)] = struct{}{}
}

// Candidates 与当前模式匹配且本回合未猜过的单词
func (s *DuelState) Candidates(words []string) []string {
	var out []string
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if utf8.RuneCountInString(w) != s.WordLength {
			continue
		}
		if _, done := s.tried[w]; done {
			continue
		}
		if s.matches(w) {
			out = append(out, w)
		}
	}
	return out
}

func (s *DuelState) matches(word string) bool {
	for idx, l := range s.letters {
		if reveal.LetterAt(word, idx) != l {
			return false
		}
	}
	return true
}
