package handler

import (
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/types"
)

// handleStartGame 开始对局
func (h *Handler) handleStartGame(client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parseOrReject[protocol.RoomPayload](client, msg)
	if !ok {
		return
	}
	if err := h.game.StartGame(payload.RoomID, client.GetID()); err != nil {
		sendError(client, err)
	}
}

// handleGuessWord 猜词，结果由协调器推送
func (h *Handler) handleGuessWord(client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parseOrReject[protocol.GuessWordPayload](client, msg)
	if !ok {
		return
	}
	h.game.HandleGuess(payload.RoomID, client.GetID(), payload.Word)
}
