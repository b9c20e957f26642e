package server

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/game/duel"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
)

const maxNameLength = 24

var errNoIdentity = errors.New("missing identity token")

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// 获取真实客户端IP
	clientIP := GetClientIP(r)

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		log.Info().Str("ip", clientIP).Msg("🔧 维护模式，拒绝新连接")
		http.Error(w, "Server is under maintenance, please try again later", http.StatusServiceUnavailable)
		return
	}

	// 连接数限制检查，连接断开时释放
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Warn().Int("max", s.maxConnections).Str("ip", clientIP).Msg("🚫 达到最大连接数限制")
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}
	upgraded := false
	defer func() {
		if !upgraded {
			s.releaseSlot()
		}
	}()

	// 来源验证
	if !s.originChecker.Check(r) {
		log.Warn().Str("origin", r.Header.Get("Origin")).Str("ip", clientIP).Msg("🚫 来源验证失败")
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	// 速率限制检查
	if !s.rateLimiter.Allow(clientIP) {
		log.Warn().Str("ip", clientIP).Msg("🚫 请求过于频繁")
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	playerID, name, err := s.identify(r)
	if err != nil {
		log.Info().Err(err).Str("ip", clientIP).Msg("🔑 身份校验失败")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", clientIP).Msg("WebSocket 升级失败")
		return
	}
	upgraded = true

	client := NewClient(s, conn, playerID, name, codec.ForName(r.URL.Query().Get("codec")))
	client.IP = clientIP
	s.hub.Register(client)

	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		PlayerID:   client.PlayerID,
		PlayerName: client.Name,
	}))

	log.Info().Str("conn", client.ID).Str("player", client.PlayerID).Str("name", client.Name).
		Str("codec", client.codec.Name()).Msg("✅ 玩家已连接")

	// 启动客户端读写协程
	go client.WritePump()
	go client.ReadPump()

	s.broadcastOnlinePlayers()
}

// identify 从令牌解析玩家身份；允许游客时接受 ?playerId=&name=
func (s *Server) identify(r *http.Request) (playerID, name string, err error) {
	if token := tokenFromRequest(r); token != "" {
		return s.tokens.Verify(token)
	}
	if !s.config.Server.AllowGuest {
		return "", "", errNoIdentity
	}

	q := r.URL.Query()
	playerID = strings.TrimSpace(q.Get("playerId"))
	if playerID == "" {
		playerID = uuid.NewString()
	}
	name = sanitizeName(q.Get("name"))
	if name == "" {
		name = GenerateNickname()
	}
	return playerID, name, nil
}

// sanitizeName 去除首尾空白并截断过长的昵称
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return name
}

// handleDisconnect 连接断开：离开队列与房间，房间内无人时中止对局
// 由 ReadPump 退出时调用，每个连接只调用一次
func (s *Server) handleDisconnect(c *Client) {
	c.Close()
	defer s.releaseSlot()

	left := s.hub.Unregister(c.ID)
	s.matcher.RemoveClient(c)
	s.messageLimiter.RemoveClient(c.ID)

	for _, roomID := range left {
		if len(s.hub.Members(roomID)) == 0 && s.coordinator.IsPlayer(roomID, c.PlayerID) {
			log.Info().Str("room", roomID).Str("player", c.PlayerID).Msg("🔌 房间内玩家全部断开")
			s.coordinator.AbortMatch(roomID, duel.ReasonPlayersLeft)
		}
	}

	log.Info().Str("conn", c.ID).Str("player", c.PlayerID).Str("name", c.Name).Msg("❌ 玩家已断开")
	s.broadcastOnlinePlayers()
}

// releaseSlot 归还连接信号量
func (s *Server) releaseSlot() {
	select {
	case <-s.semaphore:
	default:
	}
}
