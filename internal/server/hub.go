package server

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/types"
)

// Hub 连接注册表与房间广播组，实现 duel.Transport
//
// 发送都是非阻塞入队，可以在房间锁内调用；Hub 不回调协调器。
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]types.ClientInterface // connID → client
	rooms    map[string]map[string]struct{}   // roomID → connIDs
	memberOf map[string]map[string]struct{}   // connID → roomIDs
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]types.ClientInterface),
		rooms:    make(map[string]map[string]struct{}),
		memberOf: make(map[string]map[string]struct{}),
	}
}

// Register 注册连接
func (h *Hub) Register(client types.ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.GetID()] = client
}

// Unregister 注销连接并离开所有房间，返回离开的房间
func (h *Hub) Unregister(connID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[connID]; !ok {
		return nil
	}
	delete(h.clients, connID)

	left := make([]string, 0, len(h.memberOf[connID]))
	for roomID := range h.memberOf[connID] {
		h.removeLocked(roomID, connID)
		left = append(left, roomID)
	}
	delete(h.memberOf, connID)
	sort.Strings(left)
	return left
}

// Join 加入房间广播组
func (h *Hub) Join(roomID string, client types.ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	connID := client.GetID()
	if _, ok := h.clients[connID]; !ok {
		// 已断开的连接不再加入，房间会因无人开局而过期
		log.Debug().Str("room", roomID).Str("conn", connID).Msg("🚮 忽略已断开连接的入房")
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]struct{})
	}
	h.rooms[roomID][connID] = struct{}{}
	if h.memberOf[connID] == nil {
		h.memberOf[connID] = make(map[string]struct{})
	}
	h.memberOf[connID][roomID] = struct{}{}
}

// Leave 离开房间广播组，返回剩余成员数
func (h *Hub) Leave(roomID, connID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(roomID, connID)
	if rooms := h.memberOf[connID]; rooms != nil {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(h.memberOf, connID)
		}
	}
	return len(h.rooms[roomID])
}

func (h *Hub) removeLocked(roomID, connID string) {
	members := h.rooms[roomID]
	if members == nil {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// CloseRoom 解散房间广播组
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for connID := range h.rooms[roomID] {
		if rooms := h.memberOf[connID]; rooms != nil {
			delete(rooms, roomID)
			if len(rooms) == 0 {
				delete(h.memberOf, connID)
			}
		}
	}
	delete(h.rooms, roomID)
}

// Members 房间内的连接 ID
func (h *Hub) Members(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.rooms[roomID]))
	for id := range h.rooms[roomID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Broadcast 发送给房间内所有连接
func (h *Hub) Broadcast(roomID string, msg *protocol.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID := range h.rooms[roomID] {
		if c := h.clients[connID]; c != nil {
			c.SendMessage(msg)
		}
	}
}

// Unicast 发送给单个连接
func (h *Hub) Unicast(connID string, msg *protocol.Message) {
	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()

	if c == nil {
		log.Debug().Str("conn", connID).Str("type", string(msg.Type)).Msg("🚮 单播目标已断开")
		return
	}
	c.SendMessage(msg)
}

// ResolveIdentity 连接 → 玩家身份
func (h *Hub) ResolveIdentity(connID string) (string, string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c := h.clients[connID]
	if c == nil {
		return "", "", false
	}
	return c.GetPlayerID(), c.GetName(), true
}

// GetClient 按连接 ID 查找
func (h *Hub) GetClient(connID string) types.ClientInterface {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[connID]
}

// GetClientByPlayerID 按玩家 ID 查找一个在线连接（优先大厅中的连接）
func (h *Hub) GetClientByPlayerID(playerID string) types.ClientInterface {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var found types.ClientInterface
	for connID, c := range h.clients {
		if c.GetPlayerID() != playerID {
			continue
		}
		if len(h.memberOf[connID]) == 0 {
			return c
		}
		found = c
	}
	return found
}

// Count 在线连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Clients 所有连接的快照
func (h *Hub) Clients() []types.ClientInterface {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]types.ClientInterface, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// LobbyClients 不在任何房间内的连接
func (h *Hub) LobbyClients() []types.ClientInterface {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]types.ClientInterface, 0, len(h.clients))
	for connID, c := range h.clients {
		if len(h.memberOf[connID]) == 0 {
			out = append(out, c)
		}
	}
	return out
}

// OnlinePlayers 在线玩家（按玩家去重，按 ID 排序）
func (h *Hub) OnlinePlayers() []protocol.PlayerInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{}, len(h.clients))
	players := make([]protocol.PlayerInfo, 0, len(h.clients))
	for _, c := range h.clients {
		id := c.GetPlayerID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		players = append(players, protocol.PlayerInfo{ID: id, Username: c.GetName()})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}
