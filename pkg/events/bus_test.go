package events

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesHandler(t *testing.T) {
	bus, err := NewInMemoryBus()
	require.NoError(t, err)

	received := make(chan Envelope, 8)
	bus.AddHandler("capture", func(msg *message.Message) error {
		env, err := ParseEnvelope(msg.Payload)
		if err != nil {
			return err
		}
		received <- env
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bus.Run(ctx) }()

	select {
	case <-bus.Router.Running():
	case <-time.After(2 * time.Second):
		t.Fatal("router did not start")
	}

	require.NoError(t, bus.Publish(TypeServiceStarted, ServiceStarted{Service: "proxy", PID: 42}))

	select {
	case env := <-received:
		assert.Equal(t, TypeServiceStarted, env.Type)
		var ev ServiceStarted
		require.NoError(t, json.Unmarshal(env.Payload, &ev))
		assert.Equal(t, "proxy", ev.Service)
		assert.Equal(t, 42, ev.PID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestConsoleHandler_Narrates(t *testing.T) {
	var buf bytes.Buffer
	h := ConsoleHandler(&buf)

	env, err := NewEnvelope(TypeServiceStarted, ServiceStarted{Service: "tts", PID: 7})
	require.NoError(t, err)
	b, err := env.MarshalJSONBytes()
	require.NoError(t, err)

	require.NoError(t, h(message.NewMessage("1", b)))
	assert.Contains(t, buf.String(), "started tts (pid 7)")
}

func TestEnvelope_RejectsEmptyType(t *testing.T) {
	_, err := NewEnvelope("", nil)
	require.Error(t, err)
}
