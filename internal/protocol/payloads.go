package protocol

// --- 客户端请求 Payloads ---

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// RoomPayload 只携带房间 ID 的请求（startGame/joinRoom/leaveRoom/getRoomData）
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// GuessWordPayload 猜词请求
type GuessWordPayload struct {
	RoomID string `json:"roomId"`
	Word   string `json:"word"`
}

// InvitePlayerPayload 邀请请求
type InvitePlayerPayload struct {
	InviteeID string `json:"inviteeId"`
}

// InviteReplyPayload 接受/拒绝邀请
type InviteReplyPayload struct {
	InviterID string `json:"inviterId"`
}

// GetLeaderboardPayload 获取排行榜请求
type GetLeaderboardPayload struct {
	Type  string `json:"type"`  // total/daily/weekly
	Limit int    `json:"limit"` // 数量
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"clientTimestamp"`
	ServerTimestamp int64 `json:"serverTimestamp"`
}

// PlayerInfo 玩家信息
type PlayerInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// OnlinePlayersPayload 在线玩家列表
type OnlinePlayersPayload struct {
	Players []PlayerInfo `json:"players"`
}

// GameInvitePayload 收到的邀请
type GameInvitePayload struct {
	InviterID   string `json:"inviterId"`
	InviterName string `json:"inviterName"`
}

// InviteSentPayload 邀请已发送
type InviteSentPayload struct {
	InviteeID string `json:"inviteeId"`
}

// NoticePayload 仅携带提示文本的通知
type NoticePayload struct {
	Message string `json:"message"`
}

// MatchFoundPayload 匹配成功
type MatchFoundPayload struct {
	RoomID  string       `json:"roomId"`
	HostID  string       `json:"hostId"`
	Players []PlayerInfo `json:"players"`
}

// RoomPlayerState 房间内玩家状态
type RoomPlayerState struct {
	ID               string `json:"id"`
	Username         string `json:"username,omitempty"`
	RoundsWon        int    `json:"roundsWon"`
	RemainingChances int    `json:"remainingChances"`
}

// RoomDataPayload 房间快照
type RoomDataPayload struct {
	RoomID          string            `json:"roomId"`
	Status          string            `json:"status"`
	CurrentRound    int               `json:"currentRound"`
	TotalRounds     int               `json:"totalRounds"`
	WordLength      int               `json:"wordLength,omitempty"`
	RevealedIndices []int             `json:"revealedIndices,omitempty"`
	Players         []RoomPlayerState `json:"players"`
}

// RoundStartPayload 回合开始
type RoundStartPayload struct {
	CurrentRound    int    `json:"currentRound"`
	TotalRounds     int    `json:"totalRounds"`
	Word            string `json:"word"`
	WordLength      int    `json:"wordLength"`
	RevealedIndices []int  `json:"revealedIndices"`
	Message         string `json:"message"`
	Duration        int    `json:"duration"` // 秒
}

// TickPayload 倒计时
type TickPayload struct {
	TimeLeft int `json:"timeLeft"`
}

// LetterRevealedPayload 追加揭示
type LetterRevealedPayload struct {
	Index           int    `json:"index"`
	Letter          string `json:"letter"`
	RevealedIndices []int  `json:"revealedIndices"`
}

// WordGuessedPayload 猜词结果
type WordGuessedPayload struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	RemainingChances int    `json:"remainingChances"`
}

// GameOverPayload 机会用尽通知
type GameOverPayload struct {
	Reason string `json:"reason"`
}

// MatchOverPayload 对局结束
type MatchOverPayload struct {
	WinnerID *string       `json:"winnerId"`
	Scores   map[string]int `json:"scores"`
	Reason   string         `json:"reason,omitempty"`
}

// MatchAbortedPayload 对局中止
type MatchAbortedPayload struct {
	Reason string `json:"reason"`
}

// StatsResultPayload 个人统计结果
type StatsResultPayload struct {
	PlayerID      string  `json:"playerId"`
	PlayerName    string  `json:"playerName"`
	TotalGames    int     `json:"totalGames"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Draws         int     `json:"draws"`
	WinRate       float64 `json:"winRate"`
	Score         int     `json:"score"`
	Rank          int     `json:"rank"`
	CurrentStreak int     `json:"currentStreak"`
	MaxWinStreak  int     `json:"maxWinStreak"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Score      int     `json:"score"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"winRate"`
}

// LeaderboardResultPayload 排行榜结果
type LeaderboardResultPayload struct {
	Type    string             `json:"type"`
	Entries []LeaderboardEntry `json:"entries"`
}

// ErrorPayload 错误消息
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
