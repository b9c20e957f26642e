// Package match 实现大厅配对：快速匹配队列与玩家间邀请
package match

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/apperrors"
	"github.com/palemoky/hidden-word-duel/internal/game/duel"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
	"github.com/palemoky/hidden-word-duel/internal/types"
)

// Games 对局协调器
type Games interface {
	CreateMatch(roomID string, p1, p2 duel.Participant) error
	PlayerRooms(playerID string) []string
}

// Presence 在线玩家查询
type Presence interface {
	GetClientByPlayerID(playerID string) types.ClientInterface
}

// MatcherDeps 匹配器依赖
type MatcherDeps struct {
	Rooms     types.RoomMembership
	Games     Games
	Presence  Presence
	InviteTTL time.Duration
}

type inviteKey struct {
	inviter string
	invitee string
}

type invite struct {
	inviterName string
	expiresAt   time.Time
}

// Matcher 匹配系统
type Matcher struct {
	rooms     types.RoomMembership
	games     Games
	presence  Presence
	inviteTTL time.Duration
	newRoomID func() string
	now       func() time.Time

	mu      sync.Mutex
	queue   []types.ClientInterface
	invites map[inviteKey]invite
	pairing map[string]struct{} // 正在创建对局的玩家
}

// NewMatcher 创建匹配器
func NewMatcher(deps MatcherDeps) *Matcher {
	ttl := deps.InviteTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Matcher{
		rooms:     deps.Rooms,
		games:     deps.Games,
		presence:  deps.Presence,
		inviteTTL: ttl,
		newRoomID: uuid.NewString,
		now:       time.Now,
		queue:     make([]types.ClientInterface, 0),
		invites:   make(map[inviteKey]invite),
		pairing:   make(map[string]struct{}),
	}
}

// --- 快速匹配 ---

// AddToQueue 加入匹配队列，队列中有两名不同玩家时立即配对
func (m *Matcher) AddToQueue(client types.ClientInterface) error {
	m.mu.Lock()
	if m.busyLocked(client.GetPlayerID()) {
		m.mu.Unlock()
		return apperrors.ErrPlayerBusy
	}
	for _, c := range m.queue {
		if c.GetPlayerID() == client.GetPlayerID() {
			m.mu.Unlock()
			return nil
		}
	}
	m.queue = append(m.queue, client)
	log.Info().Str("player", client.GetPlayerID()).Int("queue", len(m.queue)).Msg("🔍 加入匹配队列")

	if len(m.queue) < 2 {
		m.mu.Unlock()
		return nil
	}
	host, guest := m.queue[0], m.queue[1]
	m.queue = m.queue[2:]
	m.reserveLocked(host.GetPlayerID(), guest.GetPlayerID())
	m.mu.Unlock()
	defer m.release(host.GetPlayerID(), guest.GetPlayerID())

	found, err := m.pair(host, guest)
	if err != nil {
		log.Error().Err(err).Str("host", host.GetPlayerID()).Str("guest", guest.GetPlayerID()).Msg("❌ 匹配创建对局失败")
		errMsg := codec.NewErrorMessage(apperrors.Code(err))
		host.SendMessage(errMsg)
		guest.SendMessage(errMsg)
		return nil
	}
	host.SendMessage(found)
	guest.SendMessage(found)
	return nil
}

// RemoveFromQueue 从匹配队列移除
func (m *Matcher) RemoveFromQueue(client types.ClientInterface) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.queue {
		if c.GetID() == client.GetID() {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			log.Info().Str("player", client.GetPlayerID()).Msg("🔍 离开匹配队列")
			return
		}
	}
}

// GetQueueLength 获取队列长度
func (m *Matcher) GetQueueLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// --- 邀请 ---

// Invite 邀请在线玩家对战
func (m *Matcher) Invite(inviter types.ClientInterface, inviteeID string) error {
	inviterID := inviter.GetPlayerID()
	if inviteeID == inviterID {
		return apperrors.ErrInviteSelf
	}
	invitee := m.presence.GetClientByPlayerID(inviteeID)
	if invitee == nil {
		return apperrors.ErrPlayerOffline
	}
	m.mu.Lock()
	if m.busyLocked(inviterID) || m.busyLocked(inviteeID) {
		m.mu.Unlock()
		return apperrors.ErrPlayerBusy
	}
	m.invites[inviteKey{inviter: inviterID, invitee: inviteeID}] = invite{
		inviterName: inviter.GetName(),
		expiresAt:   m.now().Add(m.inviteTTL),
	}
	m.mu.Unlock()

	log.Info().Str("inviter", inviterID).Str("invitee", inviteeID).Msg("📨 发出邀请")

	invitee.SendMessage(codec.MustNewMessage(protocol.MsgGameInvite, protocol.GameInvitePayload{
		InviterID:   inviterID,
		InviterName: inviter.GetName(),
	}))
	inviter.SendMessage(codec.MustNewMessage(protocol.MsgInviteSent, protocol.InviteSentPayload{
		InviteeID: inviteeID,
	}))
	return nil
}

// Accept 接受邀请并创建对局
func (m *Matcher) Accept(invitee types.ClientInterface, inviterID string) error {
	if !m.takeInvite(inviterID, invitee.GetPlayerID()) {
		return apperrors.ErrInviteNotFound
	}

	inviter := m.presence.GetClientByPlayerID(inviterID)
	if inviter == nil {
		return apperrors.ErrPlayerOffline
	}
	inviteeID := invitee.GetPlayerID()

	// 检查与预留在同一把锁内完成，同一玩家不会同时进入两场对局
	m.mu.Lock()
	if m.busyLocked(inviterID) || m.busyLocked(inviteeID) {
		m.mu.Unlock()
		return apperrors.ErrPlayerBusy
	}
	m.reserveLocked(inviterID, inviteeID)
	m.removePlayersLocked(inviterID, inviteeID)
	m.mu.Unlock()
	defer m.release(inviterID, inviteeID)

	found, err := m.pair(inviter, invitee)
	if err != nil {
		return err
	}

	inviter.SendMessage(codec.MustNewMessage(protocol.MsgInviteAccepted, protocol.NoticePayload{
		Message: fmt.Sprintf("%s accepted your invite.", invitee.GetName()),
	}))
	inviter.SendMessage(found)
	invitee.SendMessage(found)
	return nil
}

// Decline 拒绝邀请
func (m *Matcher) Decline(invitee types.ClientInterface, inviterID string) error {
	if !m.takeInvite(inviterID, invitee.GetPlayerID()) {
		return apperrors.ErrInviteNotFound
	}

	log.Info().Str("inviter", inviterID).Str("invitee", invitee.GetPlayerID()).Msg("🙅 拒绝邀请")

	if inviter := m.presence.GetClientByPlayerID(inviterID); inviter != nil {
		inviter.SendMessage(codec.MustNewMessage(protocol.MsgInviteDeclined, protocol.NoticePayload{
			Message: fmt.Sprintf("%s declined your invite.", invitee.GetName()),
		}))
	}
	return nil
}

// PendingInvites 未过期的邀请数
func (m *Matcher) PendingInvites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invites)
}

// takeInvite 取出并删除邀请，不存在或已过期时返回 false
func (m *Matcher) takeInvite(inviterID, inviteeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := inviteKey{inviter: inviterID, invitee: inviteeID}
	inv, ok := m.invites[key]
	if !ok {
		return false
	}
	delete(m.invites, key)
	return m.now().Before(inv.expiresAt)
}

// ExpireInvites 删除过期邀请
func (m *Matcher) ExpireInvites(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key, inv := range m.invites {
		if !now.Before(inv.expiresAt) {
			delete(m.invites, key)
			n++
		}
	}
	return n
}

// RunCleanup 定期清理过期邀请，直到 ctx 结束
func (m *Matcher) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.ExpireInvites(now); n > 0 {
				log.Debug().Int("count", n).Msg("🧹 清理过期邀请")
			}
		}
	}
}

// --- 断线 ---

// RemoveClient 连接断开时移出匹配队列；玩家已无在线连接时同时撤销相关邀请
func (m *Matcher) RemoveClient(client types.ClientInterface) {
	m.RemoveFromQueue(client)

	playerID := client.GetPlayerID()
	if m.presence.GetClientByPlayerID(playerID) != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.invites {
		if key.inviter == playerID || key.invitee == playerID {
			delete(m.invites, key)
		}
	}
}

// --- 内部 ---

func (m *Matcher) isBusy(playerID string) bool {
	return len(m.games.PlayerRooms(playerID)) > 0
}

// busyLocked 已在对局中或正在配对，调用方需持有 mu
func (m *Matcher) busyLocked(playerID string) bool {
	if _, ok := m.pairing[playerID]; ok {
		return true
	}
	return m.isBusy(playerID)
}

func (m *Matcher) reserveLocked(playerIDs ...string) {
	for _, id := range playerIDs {
		m.pairing[id] = struct{}{}
	}
}

// release 对局已创建（或创建失败）后解除预留
func (m *Matcher) release(playerIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range playerIDs {
		delete(m.pairing, id)
	}
}

// removePlayersLocked 将玩家的所有连接移出匹配队列
func (m *Matcher) removePlayersLocked(playerIDs ...string) {
	kept := m.queue[:0]
	for _, c := range m.queue {
		if !slices.Contains(playerIDs, c.GetPlayerID()) {
			kept = append(kept, c)
		}
	}
	m.queue = kept
}

// pair 为两名玩家创建房间与对局，返回待发送的 matchFound 消息
func (m *Matcher) pair(host, guest types.ClientInterface) (*protocol.Message, error) {
	roomID := m.newRoomID()

	m.rooms.Join(roomID, host)
	m.rooms.Join(roomID, guest)

	err := m.games.CreateMatch(roomID,
		duel.Participant{ID: host.GetPlayerID(), Name: host.GetName()},
		duel.Participant{ID: guest.GetPlayerID(), Name: guest.GetName()})
	if err != nil {
		m.rooms.Leave(roomID, host.GetID())
		m.rooms.Leave(roomID, guest.GetID())
		return nil, err
	}

	m.dropInvitesFor(host.GetPlayerID(), guest.GetPlayerID())

	log.Info().Str("room", roomID).Str("host", host.GetPlayerID()).Str("guest", guest.GetPlayerID()).Msg("🎮 匹配成功")

	return codec.MustNewMessage(protocol.MsgMatchFound, protocol.MatchFoundPayload{
		RoomID: roomID,
		HostID: host.GetPlayerID(),
		Players: []protocol.PlayerInfo{
			{ID: host.GetPlayerID(), Username: host.GetName()},
			{ID: guest.GetPlayerID(), Username: guest.GetName()},
		},
	}), nil
}

func (m *Matcher) dropInvitesFor(playerIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.invites {
		for _, id := range playerIDs {
			if key.inviter == id || key.invitee == id {
				delete(m.invites, key)
				break
			}
		}
	}
}
