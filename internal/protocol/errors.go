package protocol

// 错误码
const (
	ErrCodeUnknown           = 1000
	ErrCodeInvalidMsg        = 1001
	ErrCodeRateLimit         = 1002 // 速率限制
	ErrCodeUnauthorized      = 1003
	ErrCodeRoomNotFound      = 2001
	ErrCodeRoomExists        = 2002
	ErrCodeNotInRoom         = 2003
	ErrCodeGameStarted       = 2004 // 对局已开始
	ErrCodeInvalidPlayers    = 2005
	ErrCodePlayerOffline     = 4001
	ErrCodePlayerBusy        = 4002
	ErrCodeInviteNotFound    = 4003
	ErrCodeInviteSelf        = 4004
	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "Unknown error",
	ErrCodeInvalidMsg:        "Invalid message format",
	ErrCodeRateLimit:         "Too many requests",
	ErrCodeUnauthorized:      "Unauthorized",
	ErrCodeRoomNotFound:      "Room not found",
	ErrCodeRoomExists:        "Room already exists",
	ErrCodeNotInRoom:         "You are not a player in this room",
	ErrCodeGameStarted:       "The game cannot be started in its current state",
	ErrCodeInvalidPlayers:    "A match needs two distinct players",
	ErrCodePlayerOffline:     "Player is not available or offline",
	ErrCodePlayerBusy:        "Player is already in a match",
	ErrCodeInviteNotFound:    "Invite not found or expired",
	ErrCodeInviteSelf:        "You cannot invite yourself",
	ErrCodeServerMaintenance: "Server is under maintenance",
}
