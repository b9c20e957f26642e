package client

import (
	"time"

	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
)

// --- 便捷方法 ---

// Ping 发送心跳
func (c *Client) Ping() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgPing, protocol.PingPayload{
		Timestamp: time.Now().UnixMilli(),
	}))
}

// GetOnlinePlayers 获取在线玩家
func (c *Client) GetOnlinePlayers() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgGetOnlinePlayers, nil))
}

// QuickMatch 快速匹配
func (c *Client) QuickMatch() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgQuickMatch, nil))
}

// CancelMatch 取消匹配
func (c *Client) CancelMatch() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgCancelMatch, nil))
}

// Invite 邀请玩家
func (c *Client) Invite(playerID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgInvitePlayer, protocol.InvitePlayerPayload{
		InviteeID: playerID,
	}))
}

// AcceptInvite 接受邀请
func (c *Client) AcceptInvite(inviterID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgAcceptInvite, protocol.InviteReplyPayload{
		InviterID: inviterID,
	}))
}

// DeclineInvite 拒绝邀请
func (c *Client) DeclineInvite(inviterID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgDeclineInvite, protocol.InviteReplyPayload{
		InviterID: inviterID,
	}))
}

// JoinRoom 进入房间广播组
func (c *Client) JoinRoom(roomID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgJoinRoom, protocol.RoomPayload{RoomID: roomID}))
}

// LeaveRoom 离开房间
func (c *Client) LeaveRoom(roomID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgLeaveRoom, protocol.RoomPayload{RoomID: roomID}))
}

// GetRoomData 获取房间快照
func (c *Client) GetRoomData(roomID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgGetRoomData, protocol.RoomPayload{RoomID: roomID}))
}

// StartGame 开始对局
func (c *Client) StartGame(roomID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgStartGame, protocol.RoomPayload{RoomID: roomID}))
}

// Guess 猜词
func (c *Client) Guess(roomID, word string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgGuessWord, protocol.GuessWordPayload{
		RoomID: roomID,
		Word:   word,
	}))
}

// GetStats 获取个人统计
func (c *Client) GetStats() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgGetStats, nil))
}

// GetLeaderboard 获取排行榜
func (c *Client) GetLeaderboard(boardType string, limit int) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgGetLeaderboard, protocol.GetLeaderboardPayload{
		Type:  boardType,
		Limit: limit,
	}))
}
