//go:build !production

package testutil

import (
	"sync"

	"github.com/palemoky/hidden-word-duel/internal/protocol"
)

// SimpleClient 记录收到消息的 types.ClientInterface 实现
type SimpleClient struct {
	ID       string // 连接 ID
	PlayerID string
	Name     string

	mu       sync.Mutex
	messages []*protocol.Message
	closed   bool
}

func (c *SimpleClient) GetID() string   { return c.ID }
func (c *SimpleClient) GetName() string { return c.Name }

func (c *SimpleClient) GetPlayerID() string {
	if c.PlayerID == "" {
		return c.ID
	}
	return c.PlayerID
}

func (c *SimpleClient) SendMessage(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *SimpleClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Messages 已收到的消息副本
func (c *SimpleClient) Messages() []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*protocol.Message(nil), c.messages...)
}

// Types 已收到消息的类型序列
func (c *SimpleClient) Types() []protocol.MessageType {
	msgs := c.Messages()
	types := make([]protocol.MessageType, 0, len(msgs))
	for _, m := range msgs {
		types = append(types, m.Type)
	}
	return types
}

// Last 最近一条指定类型的消息
func (c *SimpleClient) Last(msgType protocol.MessageType) *protocol.Message {
	msgs := c.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == msgType {
			return msgs[i]
		}
	}
	return nil
}

// IsClosed 是否已被关闭
func (c *SimpleClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
