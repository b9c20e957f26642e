package handler

import (
	"github.com/palemoky/hidden-word-duel/internal/apperrors"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
	"github.com/palemoky/hidden-word-duel/internal/types"
)

// handleInvitePlayer 邀请对战
func (h *Handler) handleInvitePlayer(client types.ClientInterface, msg *protocol.Message) {
	if h.server.IsMaintenanceMode() {
		sendError(client, apperrors.ErrMaintenance)
		return
	}
	payload, ok := parseOrReject[protocol.InvitePlayerPayload](client, msg)
	if !ok {
		return
	}
	if err := h.lobby.Invite(client, payload.InviteeID); err != nil {
		sendError(client, err)
	}
}

// handleAcceptInvite 接受邀请
func (h *Handler) handleAcceptInvite(client types.ClientInterface, msg *protocol.Message) {
	if h.server.IsMaintenanceMode() {
		sendError(client, apperrors.ErrMaintenance)
		return
	}
	payload, ok := parseOrReject[protocol.InviteReplyPayload](client, msg)
	if !ok {
		return
	}
	if err := h.lobby.Accept(client, payload.InviterID); err != nil {
		sendError(client, err)
	}
}

// handleDeclineInvite 拒绝邀请
func (h *Handler) handleDeclineInvite(client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parseOrReject[protocol.InviteReplyPayload](client, msg)
	if !ok {
		return
	}
	if err := h.lobby.Decline(client, payload.InviterID); err != nil {
		sendError(client, err)
	}
}

// handleQuickMatch 快速匹配
func (h *Handler) handleQuickMatch(client types.ClientInterface) {
	if h.server.IsMaintenanceMode() {
		sendError(client, apperrors.ErrMaintenance)
		return
	}

	// 先确认入队，配对成功时 matchFound 紧随其后
	client.SendMessage(codec.MustNewMessage(protocol.MsgMatchQueued, protocol.NoticePayload{
		Message: "Looking for an opponent...",
	}))
	if err := h.lobby.AddToQueue(client); err != nil {
		sendError(client, err)
	}
}

// handleCancelMatch 取消匹配
func (h *Handler) handleCancelMatch(client types.ClientInterface) {
	h.lobby.RemoveFromQueue(client)
}
