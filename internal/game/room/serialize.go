package room

import (
	"slices"

	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/server/storage"
)

// ToRoomData 转换为 Redis 快照，调用方需持有锁
func (r *Room) ToRoomData() *storage.RoomData {
	data := &storage.RoomData{
		ID:              r.ID,
		MatchID:         r.MatchID,
		Status:          string(r.Status),
		CurrentRound:    r.CurrentRound,
		WordLength:      len([]rune(r.CurrentWord)),
		RevealedIndices: slices.Clone(r.RevealedIndices),
		UsedWords:       len(r.UsedWords),
		Players:         make([]storage.PlayerData, 0, len(r.Players)),
		CreatedAt:       r.CreatedAt.Unix(),
		UpdatedAt:       r.UpdatedAt.Unix(),
	}

	for _, p := range r.Players {
		data.Players = append(data.Players, storage.PlayerData{
			ID:               p.ID,
			RoundsWon:        p.RoundsWon,
			RemainingChances: p.RemainingChances,
		})
	}
	return data
}

// ToPayload 转换为客户端可见的房间数据（不含当前单词），调用方需持有锁
func (r *Room) ToPayload(totalRounds int) protocol.RoomDataPayload {
	payload := protocol.RoomDataPayload{
		RoomID:          r.ID,
		Status:          string(r.Status),
		CurrentRound:    r.CurrentRound,
		TotalRounds:     totalRounds,
		WordLength:      len([]rune(r.CurrentWord)),
		RevealedIndices: slices.Clone(r.RevealedIndices),
		Players:         make([]protocol.RoomPlayerState, 0, len(r.Players)),
	}

	for _, p := range r.Players {
		payload.Players = append(payload.Players, protocol.RoomPlayerState{
			ID:               p.ID,
			Username:         p.Name,
			RoundsWon:        p.RoundsWon,
			RemainingChances: p.RemainingChances,
		})
	}
	return payload
}
