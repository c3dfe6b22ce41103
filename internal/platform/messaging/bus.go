package messaging

import (
	"context"
	"log/slog"
	"sync"

	"agora/contexts/governance/election-service/ports"
)

const moduleName = "internal/platform/messaging"

// Bus is the in-process event bus fed by the outbox relay. Each subscriber
// gets a buffered channel. Publish waits while a buffer is full, so a slow
// consumer holds the relay back instead of losing events.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscriber
	bufferSize  int
	logger      *slog.Logger
}

type subscriber struct {
	ch   chan ports.EventEnvelope
	done <-chan struct{}
}

func NewBus(bufferSize int, logger *slog.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]subscriber),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Publish hands event to every subscriber of topic. It blocks until each one
// accepts it, and returns ctx.Err() when ctx ends first so the outbox row stays
// pending. Subscribers that already stopped are skipped.
func (b *Bus) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	b.mu.RLock()
	subs := append([]subscriber(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- event:
			continue
		default:
		}
		b.logger.Warn("waiting for slow subscriber",
			"event", "bus_publish_backpressure",
			"module", moduleName,
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.done:
		case sub.ch <- event:
		}
	}

	b.logger.Debug("event published",
		"event", "bus_publish",
		"module", moduleName,
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"subscribers", len(subs),
	)
	return nil
}

// Subscribe registers handler for topic until ctx is cancelled. Handler
// errors are logged, never retried.
func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	ch := make(chan ports.EventEnvelope, b.bufferSize)

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], subscriber{ch: ch, done: ctx.Done()})
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(topic, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					b.logger.Error("consumer handler failed",
						"event", "bus_consume_failed",
						"module", moduleName,
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (b *Bus) removeSubscriber(topic string, target chan ports.EventEnvelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]subscriber, 0, len(items))
	for _, item := range items {
		if item.ch != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[topic] = filtered
}

var (
	_ ports.EventPublisher  = (*Bus)(nil)
	_ ports.EventSubscriber = (*Bus)(nil)
)
