package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/hidden-word-duel/internal/protocol"
)

// Codec 线路编解码器
type Codec interface {
	Name() string
	// Binary 为 true 时使用二进制 WebSocket 帧
	Binary() bool
	Encode(msg *protocol.Message) ([]byte, error)
	Decode(data []byte) (*protocol.Message, error)
}

var (
	// JSON 默认文本编解码器
	JSON Codec = jsonCodec{}
	// Protobuf 二进制编解码器，信封为 google.protobuf.Struct
	Protobuf Codec = protobufCodec{}

	errMissingType = errors.New("codec: message type is missing")
)

// ForName 按名称选择编解码器，未知名称回落到 JSON
func ForName(name string) Codec {
	switch name {
	case "pb", "protobuf":
		return Protobuf
	default:
		return JSON
	}
}

// NewMessage 创建一个新消息
func NewMessage(msgType protocol.MessageType, payload any) (*protocol.Message, error) {
	var data json.RawMessage
	if payload != nil {
		buf := GetBuffer()
		defer PutBuffer(buf)

		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, err
		}
		// Encoder 会追加换行
		data = append(json.RawMessage(nil), bytesTrimNewline(buf.Bytes())...)
	}
	return &protocol.Message{
		Type:    msgType,
		Payload: data,
	}, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType protocol.MessageType, payload any) *protocol.Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// ParsePayload 解析消息的 Payload 到指定类型
func ParsePayload[T any](msg *protocol.Message) (*T, error) {
	var payload T
	if len(msg.Payload) == 0 {
		return nil, fmt.Errorf("codec: empty payload for %s", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// NewErrorMessage 创建错误消息
func NewErrorMessage(code int) *protocol.Message {
	return MustNewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: protocol.ErrorMessages[code],
	})
}

// NewErrorMessageWithText 创建带自定义文本的错误消息
func NewErrorMessageWithText(code int, text string) *protocol.Message {
	return MustNewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: text,
	})
}

func bytesTrimNewline(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		return b[:n-1]
	}
	return b
}

// --- JSON ---

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(msg *protocol.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Decode(data []byte) (*protocol.Message, error) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, errMissingType
	}
	return &msg, nil
}

// --- Protobuf ---

// protobufCodec 把 {type, payload} 装进 structpb.Struct 后按 protobuf 线格式编码，
// 不需要生成代码，payload 的结构与 JSON 保持一致
type protobufCodec struct{}

func (protobufCodec) Name() string { return "protobuf" }
func (protobufCodec) Binary() bool { return true }

func (protobufCodec) Encode(msg *protocol.Message) ([]byte, error) {
	env := getEnvelope()
	defer putEnvelope(env)

	env.Fields = map[string]*structpb.Value{
		"type": structpb.NewStringValue(string(msg.Type)),
	}
	if len(msg.Payload) > 0 {
		var raw any
		if err := json.Unmarshal(msg.Payload, &raw); err != nil {
			return nil, fmt.Errorf("codec: payload is not valid JSON: %w", err)
		}
		v, err := structpb.NewValue(raw)
		if err != nil {
			return nil, err
		}
		env.Fields["payload"] = v
	}
	return proto.Marshal(env)
}

func (protobufCodec) Decode(data []byte) (*protocol.Message, error) {
	env := getEnvelope()
	defer putEnvelope(env)

	if err := proto.Unmarshal(data, env); err != nil {
		return nil, err
	}

	msgType := env.GetFields()["type"].GetStringValue()
	if msgType == "" {
		return nil, errMissingType
	}

	msg := &protocol.Message{Type: protocol.MessageType(msgType)}
	if payload, ok := env.GetFields()["payload"]; ok {
		data, err := json.Marshal(payload.AsInterface())
		if err != nil {
			return nil, err
		}
		msg.Payload = data
	}
	return msg, nil
}
