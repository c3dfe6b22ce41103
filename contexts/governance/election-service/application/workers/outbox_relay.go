package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	application "agora/contexts/governance/election-service/application"
	"agora/contexts/governance/election-service/ports"
)

// OutboxRelay publishes persisted outbox records to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending rows and marks each one
// published only after the bus accepted it. It stops on the first failure and
// leaves the rest for the next cycle.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("election outbox list failed",
			"event", "election_outbox_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}
	if len(pending) == 0 {
		logger.Debug("election outbox relay found no pending rows",
			"event", "election_outbox_relay_noop",
			"module", application.ModuleName,
			"layer", "worker",
			"batch_size", limit,
		)
		return 0, nil
	}

	now := resolveNow(r.Clock)
	published := 0
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("election outbox decode failed",
				"event", "election_outbox_decode_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("election outbox publish failed",
				"event", "election_outbox_publish_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return published, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("election outbox mark published failed",
				"event", "election_outbox_mark_published_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		published++
	}

	logger.Info("election outbox relay cycle completed",
		"event", "election_outbox_relay_completed",
		"module", application.ModuleName,
		"layer", "worker",
		"published_count", published,
	)
	return published, nil
}
