//go:build !production

package testutil

import (
	"sync"

	"github.com/palemoky/hidden-word-duel/internal/protocol"
)

// Sent 一次发送记录
type Sent struct {
	Target    string // 房间 ID 或连接 ID
	Broadcast bool
	Msg       *protocol.Message
}

type identity struct {
	playerID string
	name     string
}

// RecordingTransport 记录所有广播与单播的 Transport
type RecordingTransport struct {
	mu         sync.Mutex
	identities map[string]identity
	sent       []Sent
}

// NewRecordingTransport 创建记录用 Transport
func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{identities: make(map[string]identity)}
}

// AddIdentity 绑定连接与玩家
func (t *RecordingTransport) AddIdentity(connID, playerID, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.identities[connID] = identity{playerID: playerID, name: name}
}

func (t *RecordingTransport) Broadcast(roomID string, msg *protocol.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, Sent{Target: roomID, Broadcast: true, Msg: msg})
}

func (t *RecordingTransport) Unicast(connID string, msg *protocol.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, Sent{Target: connID, Msg: msg})
}

func (t *RecordingTransport) ResolveIdentity(connID string) (string, string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.identities[connID]
	return id.playerID, id.name, ok
}

// Sent 所有发送记录
func (t *RecordingTransport) Sent() []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sent(nil), t.sent...)
}

// Types 发往 target 的消息类型序列
func (t *RecordingTransport) Types(target string) []protocol.MessageType {
	var types []protocol.MessageType
	for _, s := range t.Sent() {
		if s.Target == target {
			types = append(types, s.Msg.Type)
		}
	}
	return types
}

// Filter 指定类型的消息（按发送顺序）
func (t *RecordingTransport) Filter(msgType protocol.MessageType) []Sent {
	var out []Sent
	for _, s := range t.Sent() {
		if s.Msg.Type == msgType {
			out = append(out, s)
		}
	}
	return out
}

// Count 指定类型的消息数
func (t *RecordingTransport) Count(msgType protocol.MessageType) int {
	return len(t.Filter(msgType))
}

// Last 最近一条指定类型的消息
func (t *RecordingTransport) Last(msgType protocol.MessageType) *protocol.Message {
	sent := t.Filter(msgType)
	if len(sent) == 0 {
		return nil
	}
	return sent[len(sent)-1].Msg
}

// Reset 清空记录
func (t *RecordingTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
}
