package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgPing MessageType = "ping" // 心跳 ping

	// 大厅操作
	MsgGetOnlinePlayers MessageType = "getOnlinePlayers" // 获取在线玩家
	MsgInvitePlayer     MessageType = "invitePlayer"     // 邀请对战
	MsgAcceptInvite     MessageType = "acceptInvite"     // 接受邀请
	MsgDeclineInvite    MessageType = "declineInvite"    // 拒绝邀请
	MsgQuickMatch       MessageType = "quickMatch"       // 快速匹配
	MsgCancelMatch      MessageType = "cancelMatch"      // 取消匹配

	// 房间操作
	MsgJoinRoom    MessageType = "joinRoom"    // 进入房间广播组
	MsgLeaveRoom   MessageType = "leaveRoom"   // 离开房间
	MsgGetRoomData MessageType = "getRoomData" // 获取房间快照

	// 游戏操作
	MsgStartGame MessageType = "startGame" // 开始对局
	MsgGuessWord MessageType = "guessWord" // 猜词

	// 排行榜
	MsgGetStats       MessageType = "getStats"       // 获取个人统计
	MsgGetLeaderboard MessageType = "getLeaderboard" // 获取排行榜
)

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgConnected     MessageType = "connected"     // 连接成功
	MsgPong          MessageType = "pong"          // 心跳 pong
	MsgOnlinePlayers MessageType = "onlinePlayers" // 在线玩家列表

	// 大厅相关
	MsgGameInvite     MessageType = "gameInvite"     // 收到邀请
	MsgInviteSent     MessageType = "inviteSent"     // 邀请已发送
	MsgInviteAccepted MessageType = "inviteAccepted" // 邀请被接受
	MsgInviteDeclined MessageType = "inviteDeclined" // 邀请被拒绝
	MsgMatchQueued    MessageType = "matchQueued"    // 已加入匹配队列
	MsgMatchFound     MessageType = "matchFound"     // 匹配成功

	// 房间相关
	MsgRoomJoined MessageType = "roomJoined" // 进入房间成功
	MsgRoomData   MessageType = "roomData"   // 房间快照

	// 对局流程
	MsgRoundStart     MessageType = "roundStart"     // 回合开始
	MsgTick           MessageType = "tick"           // 倒计时
	MsgLetterRevealed MessageType = "letterRevealed" // 追加揭示字母
	MsgWordGuessed    MessageType = "wordGuessed"    // 猜词结果（仅猜错时单播）
	MsgGameOver       MessageType = "gameOver"       // 机会用尽（仅通知本人）
	MsgMatchOver      MessageType = "matchOver"      // 对局结束
	MsgMatchAborted   MessageType = "matchAborted"   // 对局中止

	// 排行榜
	MsgStatsResult       MessageType = "statsResult"       // 个人统计结果
	MsgLeaderboardResult MessageType = "leaderboardResult" // 排行榜结果

	// 错误
	MsgError MessageType = "error" // 错误消息
)
