package types

import (
	"github.com/palemoky/hidden-word-duel/internal/protocol"
)

// ServerInterface 定义服务器接口（用于打破循环依赖）
type ServerInterface interface {
	IsMaintenanceMode() bool
	GetOnlineCount() int
	BroadcastToLobby(msg *protocol.Message)
	GetClientByPlayerID(playerID string) ClientInterface
	OnlinePlayers() []protocol.PlayerInfo
}

// ClientInterface 定义客户端接口
// GetID 是连接 ID，GetPlayerID 是玩家身份，同一玩家可能有多个连接
type ClientInterface interface {
	GetID() string
	GetPlayerID() string
	GetName() string
	SendMessage(msg *protocol.Message)
	Close()
}

// RoomMembership 房间广播组
type RoomMembership interface {
	Join(roomID string, client ClientInterface)
	Leave(roomID, connID string) (remaining int)
}
