package handler

import (
	"context"
	"time"

	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
	"github.com/palemoky/hidden-word-duel/internal/server/storage"
	"github.com/palemoky/hidden-word-duel/internal/types"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 50
	queryTimeout            = 3 * time.Second
)

// StatsPayload 组装个人统计，stats 为 nil 时返回空统计
func StatsPayload(playerID, playerName string, stats *storage.PlayerStats, rank int64) protocol.StatsResultPayload {
	if stats == nil {
		return protocol.StatsResultPayload{PlayerID: playerID, PlayerName: playerName, Rank: -1}
	}
	return protocol.StatsResultPayload{
		PlayerID:      stats.PlayerID,
		PlayerName:    stats.PlayerName,
		TotalGames:    stats.TotalGames,
		Wins:          stats.Wins,
		Losses:        stats.Losses,
		Draws:         stats.Draws,
		WinRate:       stats.WinRate(),
		Score:         stats.Score,
		Rank:          int(rank),
		CurrentStreak: stats.CurrentStreak,
		MaxWinStreak:  stats.MaxWinStreak,
	}
}

// NormalizeLeaderboardQuery 未知类型回落到 total，数量限制在 [1, 50]
func NormalizeLeaderboardQuery(boardType string, limit int) (string, int) {
	switch boardType {
	case "total", "daily", "weekly":
	default:
		boardType = "total"
	}
	if limit <= 0 || limit > maxLeaderboardLimit {
		limit = defaultLeaderboardLimit
	}
	return boardType, limit
}

// LeaderboardPayload 转换为协议格式
func LeaderboardPayload(boardType string, entries []*storage.LeaderboardEntry) protocol.LeaderboardResultPayload {
	out := make([]protocol.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, protocol.LeaderboardEntry{
			Rank:       e.Rank,
			PlayerID:   e.PlayerID,
			PlayerName: e.PlayerName,
			Score:      e.Score,
			Wins:       e.Wins,
			WinRate:    e.WinRate,
		})
	}
	return protocol.LeaderboardResultPayload{Type: boardType, Entries: out}
}

// handleGetStats 获取个人统计
func (h *Handler) handleGetStats(client types.ClientInterface) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	playerID := client.GetPlayerID()
	stats, err := h.leaderboard.GetPlayerStats(ctx, playerID)
	if err != nil {
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeUnknown, "Failed to load stats"))
		return
	}

	var rank int64 = -1
	if stats != nil {
		if rank, err = h.leaderboard.GetPlayerRank(ctx, playerID); err != nil {
			rank = -1
		}
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgStatsResult, StatsPayload(playerID, client.GetName(), stats, rank)))
}

// handleGetLeaderboard 获取排行榜
func (h *Handler) handleGetLeaderboard(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.GetLeaderboardPayload](msg)
	if err != nil {
		// 默认获取总排行榜前 10
		payload = &protocol.GetLeaderboardPayload{Type: "total", Limit: defaultLeaderboardLimit}
	}
	boardType, limit := NormalizeLeaderboardQuery(payload.Type, payload.Limit)

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	entries, err := h.leaderboard.GetLeaderboard(ctx, boardType, limit)
	if err != nil {
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeUnknown, "Failed to load leaderboard"))
		return
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgLeaderboardResult, LeaderboardPayload(boardType, entries)))
}
