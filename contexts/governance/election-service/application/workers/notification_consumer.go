package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "agora/contexts/governance/election-service/application"
	"agora/contexts/governance/election-service/ports"
)

const (
	candidacyValidatedTopic  = "candidacy.validated"
	candidacyRejectedTopic   = "candidacy.rejected"
	defaultNotificationGroup = "election-service-notification-cg"
)

// NotificationConsumer tells candidates about moderation decisions. Delivery
// is best-effort: a failed notification is logged and the event is still
// acknowledged.
type NotificationConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Elections     ports.ElectionRepository
	Candidacies   ports.CandidacyRepository
	Directory     ports.Directory
	Notifier      ports.Notifier
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger
}

func (c NotificationConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("notification consumer disabled by feature flag",
			"event", "election_notification_consumer_disabled",
			"module", application.ModuleName,
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultNotificationGroup
	}
	for _, topic := range []string{candidacyValidatedTopic, candidacyRejectedTopic} {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.Handle); err != nil {
			logger.Error("notification consumer subscribe failed",
				"event", "election_notification_consumer_subscribe_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"topic", topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("notification consumer subscriptions active",
		"event", "election_notification_consumer_started",
		"module", application.ModuleName,
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

// Handle processes one candidacy decision event. Only dedup and decode
// failures are returned; everything after that is best-effort.
func (c NotificationConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	now := resolveNow(c.Clock)
	if c.Dedup != nil {
		alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), now.Add(c.dedupTTL()))
		if err != nil {
			logger.Error("notification event dedupe failed",
				"event", "election_notification_dedupe_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"event_id", event.EventID,
				"error", err.Error(),
			)
			return err
		}
		if alreadyProcessed {
			logger.Debug("notification event replay skipped",
				"event", "election_notification_replayed",
				"module", application.ModuleName,
				"layer", "worker",
				"event_id", event.EventID,
			)
			return nil
		}
	}

	var payload struct {
		CandidacyID string `json:"candidacy_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("notification payload decode failed",
			"event", "election_notification_decode_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	notification, err := c.buildNotification(ctx, strings.TrimSpace(payload.CandidacyID))
	if err == nil {
		err = c.Notifier.NotifyCandidacyDecision(ctx, notification)
	}
	if err != nil {
		logger.Warn("candidacy notification not delivered",
			"event", "election_notification_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"candidacy_id", payload.CandidacyID,
			"error", err.Error(),
		)
		return nil
	}
	logger.Info("candidacy notification delivered",
		"event", "election_notification_sent",
		"module", application.ModuleName,
		"layer", "worker",
		"event_id", event.EventID,
		"candidacy_id", notification.CandidacyID,
		"status", string(notification.Status),
	)
	return nil
}

func (c NotificationConsumer) buildNotification(ctx context.Context, candidacyID string) (ports.CandidacyNotification, error) {
	candidacy, err := c.Candidacies.GetCandidacy(ctx, candidacyID)
	if err != nil {
		return ports.CandidacyNotification{}, err
	}
	election, err := c.Elections.GetElection(ctx, candidacy.ElectionID)
	if err != nil {
		return ports.CandidacyNotification{}, err
	}
	position, err := c.Elections.GetPosition(ctx, candidacy.PositionID)
	if err != nil {
		return ports.CandidacyNotification{}, err
	}
	member, err := c.Directory.GetMember(ctx, candidacy.MemberID)
	if err != nil {
		return ports.CandidacyNotification{}, err
	}
	return ports.CandidacyNotification{
		CandidacyID:   candidacy.CandidacyID,
		ElectionTitle: election.Title,
		PositionTitle: position.Title,
		Status:        candidacy.Status,
		Comments:      candidacy.Comments,
		Recipient:     member,
	}, nil
}

func (c NotificationConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}
