package codec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/hidden-word-duel/internal/protocol"
)

func TestBufferPool_ReturnsEmptyBuffer(t *testing.T) {
	t.Parallel()

	buf := GetBuffer()
	buf.WriteString("leftover")
	PutBuffer(buf)

	assert.Zero(t, GetBuffer().Len())
	assert.NotPanics(t, func() {
		PutBuffer(nil)
		putEnvelope(nil)
	})
}

func TestEnvelopePool_ResetBetweenUses(t *testing.T) {
	t.Parallel()

	env := getEnvelope()
	env.Fields = map[string]*structpb.Value{"type": structpb.NewStringValue("tick")}
	putEnvelope(env)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := getEnvelope()
			assert.Empty(t, e.GetFields())
			putEnvelope(e)
		}()
	}
	wg.Wait()
}

// 并发编码共享池时各自的结果互不污染
func TestCodecs_ConcurrentEncode(t *testing.T) {
	t.Parallel()

	for _, c := range []Codec{JSON, Protobuf} {
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				msg := MustNewMessage(protocol.MsgTick, protocol.TickPayload{TimeLeft: i})
				data, err := c.Encode(msg)
				require.NoError(t, err)

				got, err := c.Decode(data)
				require.NoError(t, err)
				p, err := ParsePayload[protocol.TickPayload](got)
				require.NoError(t, err)
				assert.Equal(t, i, p.TimeLeft)
			}()
		}
		wg.Wait()
	}
}
