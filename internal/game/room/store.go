package room

import (
	"slices"
	"sync"

	"github.com/palemoky/hidden-word-duel/internal/apperrors"
)

// Store 所有活跃房间的内存表
type Store struct {
	rooms map[string]*Room
	mu    sync.RWMutex
}

// NewStore 创建房间表
func NewStore() *Store {
	return &Store{rooms: make(map[string]*Room)}
}

// Add 登记房间，ID 已存在时返回 ErrRoomExists
func (s *Store) Add(r *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[r.ID]; ok {
		return apperrors.ErrRoomExists
	}
	s.rooms[r.ID] = r
	return nil
}

// Get 获取房间，不存在返回 nil
func (s *Store) Get(id string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[id]
}

// Remove 移除房间，仅当表中仍是同一实例时生效
func (s *Store) Remove(r *Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.rooms[r.ID]; ok && cur == r {
		delete(s.rooms, r.ID)
		return true
	}
	return false
}

// Len 房间数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// IDs 所有房间 ID（有序）
func (s *Store) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// All 当前所有房间的快照列表
func (s *Store) All() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// FindByPlayer 查找玩家所在的房间
func (s *Store) FindByPlayer(playerID string) []*Room {
	var found []*Room
	for _, r := range s.All() {
		r.Lock()
		if r.IsLive() && r.HasPlayer(playerID) {
			found = append(found, r)
		}
		r.Unlock()
	}
	return found
}
