// Package timer 实现按房间管理的回合倒计时
package timer

import (
	"sync"
	"time"

	"github.com/palemoky/hidden-word-duel/internal/logger"
)

// Callbacks 倒计时回调，在计时 goroutine 中执行
// 回调收到触发它的 Handle，调用方据此丢弃已被取消的旧计时器的事件
type Callbacks struct {
	OnTick    func(h *Handle, remaining int)
	OnTimeout func(h *Handle)
}

// Handle 一次倒计时的取消句柄
type Handle struct {
	roomID string
	reg    *Registry
	stop   chan struct{}
	once   sync.Once
}

// RoomID 返回所属房间
func (h *Handle) RoomID() string {
	return h.roomID
}

// Stop 取消倒计时，可重复调用
// 返回后不会再有新的回合事件开始派发
func (h *Handle) Stop() {
	h.once.Do(func() {
		close(h.stop)
		h.reg.release(h)
	})
}

// Stopped 是否已取消
func (h *Handle) Stopped() bool {
	select {
	case <-h.stop:
		return true
	default:
		return false
	}
}

// Registry 房间 → 活动倒计时，保证每个房间最多一个活动计时器
type Registry struct {
	interval time.Duration

	mu     sync.Mutex
	active map[string]*Handle
	live   map[string]int // 未取消的句柄数，用于校验
}

// NewRegistry 创建计时器注册表，interval 为相邻两次 tick 的间隔
func NewRegistry(interval time.Duration) *Registry {
	if interval <= 0 {
		interval = time.Second
	}
	return &Registry{
		interval: interval,
		active:   make(map[string]*Handle),
		live:     make(map[string]int),
	}
}

// Start 为房间启动 seconds 秒的倒计时
// 先同步取消该房间已有的计时器；tick 依次携带 seconds..0，第一次立即触发，
// tick 0 之后立刻触发一次超时
func (r *Registry) Start(roomID string, seconds int, cb Callbacks) *Handle {
	r.Stop(roomID)

	h := &Handle{
		roomID: roomID,
		reg:    r,
		stop:   make(chan struct{}),
	}

	r.mu.Lock()
	r.active[roomID] = h
	r.live[roomID]++
	r.mu.Unlock()

	go h.run(max(seconds, 0), r.interval, cb)
	return h
}

// Stop 取消房间的当前计时器，没有计时器时为空操作
func (r *Registry) Stop(roomID string) {
	r.mu.Lock()
	h := r.active[roomID]
	r.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}

// Current 返回房间的当前计时器
func (r *Registry) Current(roomID string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[roomID]
}

// Active 返回房间未取消的计时器数量（0 或 1）
func (r *Registry) Active(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[roomID]
}

// Len 返回所有房间的活动计时器总数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *Registry) release(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active[h.roomID] == h {
		delete(r.active, h.roomID)
	}
	if r.live[h.roomID]--; r.live[h.roomID] <= 0 {
		delete(r.live, h.roomID)
	}
}

func (h *Handle) run(seconds int, interval time.Duration, cb Callbacks) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for remaining := seconds; remaining >= 0; remaining-- {
		if remaining < seconds {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
			}
		}
		if h.Stopped() {
			return
		}
		if cb.OnTick != nil {
			cb.OnTick(h, remaining)
		}
	}

	if h.Stopped() {
		return
	}
	if cb.OnTimeout != nil {
		cb.OnTimeout(h)
	}
}
