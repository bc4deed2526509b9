// Package events carries orchestrator lifecycle events over an in-memory
// watermill pubsub so that reporters (console, watch dashboard) can observe a
// run without being wired into the orchestrator itself.
package events

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	gochannel "github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
)

const Topic = "voicectl.events"

type Bus struct {
	Router     *message.Router
	Publisher  message.Publisher
	Subscriber message.Subscriber

	runOnce sync.Once
}

func NewInMemoryBus() (*Bus, error) {
	logger := watermill.NopLogger{}
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1024}, logger)

	r, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "new watermill router")
	}
	return &Bus{
		Router:     r,
		Publisher:  pubsub,
		Subscriber: pubsub,
	}, nil
}

func (b *Bus) AddHandler(name string, handler func(*message.Message) error) {
	b.Router.AddConsumerHandler(name, Topic, b.Subscriber, handler)
}

func (b *Bus) Run(ctx context.Context) error {
	var runErr error
	b.runOnce.Do(func() {
		go func() {
			<-ctx.Done()
			_ = b.Router.Close()
		}()
		runErr = b.Router.Run(ctx)
	})
	return runErr
}

// Publish wraps payload in an envelope and publishes it on the bus topic.
func (b *Bus) Publish(typ string, payload any) error {
	env, err := NewEnvelope(typ, payload)
	if err != nil {
		return err
	}
	bts, err := env.MarshalJSONBytes()
	if err != nil {
		return err
	}
	return b.Publisher.Publish(Topic, message.NewMessage(watermill.NewUUID(), bts))
}

// Close shuts the router down; pending handlers finish first.
func (b *Bus) Close() error {
	return b.Router.Close()
}
