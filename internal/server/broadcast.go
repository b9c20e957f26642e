package server

import (
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
	"github.com/palemoky/hidden-word-duel/internal/types"
)

// GetOnlineCount 在线连接数
func (s *Server) GetOnlineCount() int {
	return s.hub.Count()
}

// BroadcastToLobby 广播消息给大厅玩家（未在房间内的连接）
func (s *Server) BroadcastToLobby(msg *protocol.Message) {
	for _, c := range s.hub.LobbyClients() {
		c.SendMessage(msg)
	}
}

// GetClientByPlayerID 按玩家 ID 查找在线连接
func (s *Server) GetClientByPlayerID(playerID string) types.ClientInterface {
	return s.hub.GetClientByPlayerID(playerID)
}

// OnlinePlayers 在线玩家列表
func (s *Server) OnlinePlayers() []protocol.PlayerInfo {
	return s.hub.OnlinePlayers()
}

// broadcastOnlinePlayers 在线玩家变化时通知大厅
func (s *Server) broadcastOnlinePlayers() {
	s.BroadcastToLobby(codec.MustNewMessage(protocol.MsgOnlinePlayers, protocol.OnlinePlayersPayload{
		Players: s.OnlinePlayers(),
	}))
}
