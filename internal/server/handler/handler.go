// Package handler 将客户端消息分发到大厅、房间与对局
package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/apperrors"
	"github.com/palemoky/hidden-word-duel/internal/logger"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
	"github.com/palemoky/hidden-word-duel/internal/server/storage"
	"github.com/palemoky/hidden-word-duel/internal/types"
)

// Game 对局协调器
type Game interface {
	StartGame(roomID, connID string) error
	HandleGuess(roomID, connID, word string)
	RoomData(roomID string) (protocol.RoomDataPayload, error)
	IsPlayer(roomID, playerID string) bool
	AbortMatch(roomID, reason string)
}

// Lobby 快速匹配与邀请
type Lobby interface {
	AddToQueue(client types.ClientInterface) error
	RemoveFromQueue(client types.ClientInterface)
	Invite(inviter types.ClientInterface, inviteeID string) error
	Accept(invitee types.ClientInterface, inviterID string) error
	Decline(invitee types.ClientInterface, inviterID string) error
}

// Leaderboard 个人统计与排行榜
type Leaderboard interface {
	GetPlayerStats(ctx context.Context, playerID string) (*storage.PlayerStats, error)
	GetPlayerRank(ctx context.Context, playerID string) (int64, error)
	GetLeaderboard(ctx context.Context, boardType string, limit int) ([]*storage.LeaderboardEntry, error)
}

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server      types.ServerInterface
	Game        Game
	Lobby       Lobby
	Rooms       types.RoomMembership
	Leaderboard Leaderboard
}

// Handler 消息处理器
type Handler struct {
	server      types.ServerInterface
	game        Game
	lobby       Lobby
	rooms       types.RoomMembership
	leaderboard Leaderboard
	handlers    map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		server:      deps.Server,
		game:        deps.Game,
		lobby:       deps.Lobby,
		rooms:       deps.Rooms,
		leaderboard: deps.Leaderboard,
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing: h.handlePing,

		// 大厅操作
		protocol.MsgGetOnlinePlayers: func(c types.ClientInterface, _ *protocol.Message) { h.handleGetOnlinePlayers(c) },
		protocol.MsgInvitePlayer:     h.handleInvitePlayer,
		protocol.MsgAcceptInvite:     h.handleAcceptInvite,
		protocol.MsgDeclineInvite:    h.handleDeclineInvite,
		protocol.MsgQuickMatch:       func(c types.ClientInterface, _ *protocol.Message) { h.handleQuickMatch(c) },
		protocol.MsgCancelMatch:      func(c types.ClientInterface, _ *protocol.Message) { h.handleCancelMatch(c) },

		// 房间操作
		protocol.MsgJoinRoom:    h.handleJoinRoom,
		protocol.MsgLeaveRoom:   h.handleLeaveRoom,
		protocol.MsgGetRoomData: h.handleGetRoomData,

		// 游戏操作
		protocol.MsgStartGame: h.handleStartGame,
		protocol.MsgGuessWord: h.handleGuessWord,

		// 信息查询
		protocol.MsgGetStats:       func(c types.ClientInterface, _ *protocol.Message) { h.handleGetStats(c) },
		protocol.MsgGetLeaderboard: h.handleGetLeaderboard,
	}
}

// Handle 处理消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
		}
	}()

	if handler, ok := h.handlers[msg.Type]; ok {
		handler(client, msg)
		return
	}

	log.Warn().Str("type", string(msg.Type)).Str("conn", client.GetID()).
		Str("player", client.GetPlayerID()).Int("payload_bytes", len(msg.Payload)).Msg("⚠️ 未知消息类型")
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
}

// sendError GameError 转换为对应错误码，其他错误为 ErrCodeUnknown
func sendError(client types.ClientInterface, err error) {
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		client.SendMessage(codec.NewErrorMessage(gameErr.Code))
		return
	}
	log.Error().Err(err).Str("conn", client.GetID()).Msg("处理消息失败")
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
}

// parseOrReject 解析 payload，失败时回复 ErrCodeInvalidMsg
func parseOrReject[T any](client types.ClientInterface, msg *protocol.Message) (*T, bool) {
	payload, err := codec.ParsePayload[T](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return nil, false
	}
	return payload, true
}
