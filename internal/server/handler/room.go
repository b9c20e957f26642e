package handler

import (
	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/apperrors"
	"github.com/palemoky/hidden-word-duel/internal/game/duel"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
	"github.com/palemoky/hidden-word-duel/internal/types"
)

// handleJoinRoom 房间成员重新加入广播组
func (h *Handler) handleJoinRoom(client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parseOrReject[protocol.RoomPayload](client, msg)
	if !ok {
		return
	}

	data, err := h.game.RoomData(payload.RoomID)
	if err != nil {
		sendError(client, err)
		return
	}
	if !h.game.IsPlayer(payload.RoomID, client.GetPlayerID()) {
		sendError(client, apperrors.ErrNotInRoom)
		return
	}

	h.rooms.Join(payload.RoomID, client)
	client.SendMessage(codec.MustNewMessage(protocol.MsgRoomJoined, data))
}

// handleLeaveRoom 离开房间，最后一名成员离开时中止对局
func (h *Handler) handleLeaveRoom(client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parseOrReject[protocol.RoomPayload](client, msg)
	if !ok {
		return
	}

	isPlayer := h.game.IsPlayer(payload.RoomID, client.GetPlayerID())
	remaining := h.rooms.Leave(payload.RoomID, client.GetID())
	if isPlayer && remaining == 0 {
		log.Info().Str("room", payload.RoomID).Str("player", client.GetPlayerID()).Msg("🚪 最后一名玩家离开房间")
		h.game.AbortMatch(payload.RoomID, duel.ReasonPlayersLeft)
	}
}

// handleGetRoomData 房间快照
func (h *Handler) handleGetRoomData(client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parseOrReject[protocol.RoomPayload](client, msg)
	if !ok {
		return
	}

	data, err := h.game.RoomData(payload.RoomID)
	if err != nil {
		sendError(client, err)
		return
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgRoomData, data))
}
