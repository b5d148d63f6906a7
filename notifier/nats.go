package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/ridwantaufk/todolist-with-chat/config"
)

// NatsBus extends the in-process Bus across processes. Publishes go to a
// JetStream subject; a single consumer per process relays incoming events
// into the local registry, so handlers behave identically whether the
// triggering write happened in this process or another one.
type NatsBus struct {
	local      *Bus
	nc         *nats.Conn
	js         jetstream.JetStream
	consumeCtx jetstream.ConsumeContext
	log        *slog.Logger
}

// NewNatsBus connects to NATS, ensures the event stream exists and starts
// relaying events into the given local bus.
func NewNatsBus(url string, local *Bus, log *slog.Logger) (*NatsBus, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := js.Stream(ctx, config.StreamName)
	if err != nil {
		log.Info("event stream not found, creating", "stream", config.StreamName)
		streamCfg := jetstream.StreamConfig{
			Name:        config.StreamName,
			Description: "Chat commit notifications",
			Subjects:    []string{config.SubjectName},
			// Events are ephemeral signals; a short retention covers
			// consumers that reconnect after a broker hiccup.
			MaxAge:  time.Hour,
			Storage: jetstream.FileStorage,
		}
		stream, err = js.CreateStream(ctx, streamCfg)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream '%s': %w", config.StreamName, err)
		}
	} else {
		log.Info("found existing event stream", "stream", stream.CachedInfo().Config.Name)
	}

	b := &NatsBus{local: local, nc: nc, js: js, log: log}
	if err := b.consume(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	return b, nil
}

// consume starts the relay from the NATS subject into the local registry.
// Open streams only care about events from now on; history is covered by
// each connection's initial query.
func (b *NatsBus) consume(ctx context.Context) error {
	cons, err := b.js.CreateOrUpdateConsumer(ctx, config.StreamName, jetstream.ConsumerConfig{
		FilterSubject: config.SubjectName,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckNonePolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer for subject '%s': %w", config.SubjectName, err)
	}

	consumeCtx, err := cons.Consume(func(jsMsg jetstream.Msg) {
		var ev Event
		if err := json.Unmarshal(jsMsg.Data(), &ev); err != nil {
			b.log.Error("error unmarshaling event", "subject", jsMsg.Subject(), "error", err)
			return
		}
		// Runs on the NATS delivery goroutine; local handlers must not block.
		b.local.Publish(context.Background(), ev)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming from subject '%s': %w", config.SubjectName, err)
	}

	b.consumeCtx = consumeCtx
	return nil
}

// Publish sends the commit event to the NATS subject. Local delivery happens
// when the event is relayed back through the consumer.
func (b *NatsBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := b.js.Publish(ctx, config.SubjectName, data); err != nil {
		return fmt.Errorf("failed to publish event to subject '%s': %w", config.SubjectName, err)
	}
	return nil
}

// Subscribe registers a handler on the local registry.
func (b *NatsBus) Subscribe(h Handler) *Subscription {
	return b.local.Subscribe(h)
}

// Close stops the consumer and closes the NATS connection.
func (b *NatsBus) Close() {
	if b.consumeCtx != nil {
		b.consumeCtx.Stop()
	}
	if b.nc != nil {
		b.nc.Close()
	}
}
