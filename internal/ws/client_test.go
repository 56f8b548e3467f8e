package ws

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	raw := []byte(`{"event":"send-message","data":{"from":"a@x.com","to":"b@x.com","text":"hi"}}`)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "send-message", env.Event)
	assert.JSONEq(t, `{"from":"a@x.com","to":"b@x.com","text":"hi"}`, string(env.Data))

	out, err := json.Marshal(outbound{Event: "user-typing", Data: map[string]any{"from": "a@x.com", "typing": true}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"user-typing","data":{"from":"a@x.com","typing":true}}`, string(out))
}

func TestSendNeverBlocks(t *testing.T) {
	// No pumps running: the buffer fills and Send starts reporting drops
	// instead of blocking.
	c := newClient("test", nil, nil, zerolog.Nop())

	for i := 0; i < sendBuffer; i++ {
		assert.True(t, c.Send("ev", i))
	}
	assert.False(t, c.Send("ev", "overflow"), "full buffer must drop, not block")
}

func TestSendAfterCloseDrops(t *testing.T) {
	c := newClient("test", nil, nil, zerolog.Nop())
	c.Close()
	c.Close() // idempotent

	assert.False(t, c.Send("ev", "late"))
}
