package apperrors

import (
	"errors"

	"github.com/palemoky/hidden-word-duel/internal/protocol"
)

// GameError 游戏错误（对局、大厅共享），携带协议错误码
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrRoomNotFound   = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: protocol.ErrorMessages[protocol.ErrCodeRoomNotFound]}
	ErrRoomExists     = &GameError{Code: protocol.ErrCodeRoomExists, Message: protocol.ErrorMessages[protocol.ErrCodeRoomExists]}
	ErrNotInRoom      = &GameError{Code: protocol.ErrCodeNotInRoom, Message: protocol.ErrorMessages[protocol.ErrCodeNotInRoom]}
	ErrNotStartable   = &GameError{Code: protocol.ErrCodeGameStarted, Message: protocol.ErrorMessages[protocol.ErrCodeGameStarted]}
	ErrInvalidPlayers = &GameError{Code: protocol.ErrCodeInvalidPlayers, Message: protocol.ErrorMessages[protocol.ErrCodeInvalidPlayers]}
	ErrUnauthorized   = &GameError{Code: protocol.ErrCodeUnauthorized, Message: protocol.ErrorMessages[protocol.ErrCodeUnauthorized]}
	ErrPlayerOffline  = &GameError{Code: protocol.ErrCodePlayerOffline, Message: protocol.ErrorMessages[protocol.ErrCodePlayerOffline]}
	ErrPlayerBusy     = &GameError{Code: protocol.ErrCodePlayerBusy, Message: protocol.ErrorMessages[protocol.ErrCodePlayerBusy]}
	ErrInviteNotFound = &GameError{Code: protocol.ErrCodeInviteNotFound, Message: protocol.ErrorMessages[protocol.ErrCodeInviteNotFound]}
	ErrInviteSelf     = &GameError{Code: protocol.ErrCodeInviteSelf, Message: protocol.ErrorMessages[protocol.ErrCodeInviteSelf]}
	ErrMaintenance    = &GameError{Code: protocol.ErrCodeServerMaintenance, Message: protocol.ErrorMessages[protocol.ErrCodeServerMaintenance]}
)

// Code 返回错误对应的协议错误码，非 GameError 返回 ErrCodeUnknown
func Code(err error) int {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Code
	}
	return protocol.ErrCodeUnknown
}
