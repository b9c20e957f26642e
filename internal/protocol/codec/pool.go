package codec

import (
	"bytes"
	"sync"

	"google.golang.org/protobuf/types/known/structpb"
)

// 编码热路径复用的缓冲区与 protobuf 信封
var (
	bufferPool = sync.Pool{
		New: func() any { return new(bytes.Buffer) },
	}

	envelopePool = sync.Pool{
		New: func() any { return &structpb.Struct{} },
	}
)

// GetBuffer 取出一个空缓冲区
func GetBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// PutBuffer 归还缓冲区，保留容量
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

func getEnvelope() *structpb.Struct {
	return envelopePool.Get().(*structpb.Struct)
}

func putEnvelope(env *structpb.Struct) {
	if env == nil {
		return
	}
	env.Reset()
	envelopePool.Put(env)
}
