package ports

import (
	"context"
	"encoding/json"
	"time"

	"agora/contexts/governance/election-service/domain/entities"
)

// ElectionTransition is a compare-and-set status change. The repository applies
// it only when the stored status equals From. A non-nil ClosesAt replaces the
// stored close date.
type ElectionTransition struct {
	ElectionID string
	From       entities.ElectionStatus
	To         entities.ElectionStatus
	At         time.Time
	ClosesAt   *time.Time
}

// ElectionRepository owns elections and their positions.
type ElectionRepository interface {
	CreateElection(ctx context.Context, election entities.Election, positions []entities.Position, events ...EventEnvelope) error
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	ListElections(ctx context.Context, status entities.ElectionStatus) ([]entities.Election, error)
	UpdateElection(ctx context.Context, election entities.Election) error
	TransitionElection(ctx context.Context, transition ElectionTransition, events ...EventEnvelope) (entities.Election, error)
	ListElectionsDueForClose(ctx context.Context, now time.Time, limit int) ([]entities.Election, error)

	CreatePosition(ctx context.Context, position entities.Position) error
	DeletePosition(ctx context.Context, electionID string, positionID string) error
	GetPosition(ctx context.Context, positionID string) (entities.Position, error)
	ListPositions(ctx context.Context, electionID string) ([]entities.Position, error)
}

// CandidacyRepository writes are atomic and re-check, inside the same
// transaction, that the election is still open. A second candidacy for the
// same (election, position, member) fails with ErrDuplicateCandidacy.
type CandidacyRepository interface {
	CreateCandidacies(ctx context.Context, candidacies []entities.Candidacy, events ...EventEnvelope) error
	GetCandidacy(ctx context.Context, candidacyID string) (entities.Candidacy, error)
	FindCandidacy(ctx context.Context, electionID string, positionID string, memberID string) (entities.Candidacy, bool, error)
	ListCandidaciesByElection(ctx context.Context, electionID string) ([]entities.Candidacy, error)
	ListCandidaciesByMember(ctx context.Context, memberID string, electionID string) ([]entities.Candidacy, error)
	UpdateCandidacy(ctx context.Context, candidacy entities.Candidacy) error
	ApplyCandidacyPositionChange(ctx context.Context, change entities.CandidacyPositionChange, events ...EventEnvelope) error
	DecideCandidacy(ctx context.Context, candidacy entities.Candidacy, events ...EventEnvelope) error
}

// VoteRepository never updates or deletes a ballot. CreateVote fails with
// ErrDuplicateVote for a second ballot on the same (election, position, member)
// and with ErrElectionNotOpen when the election closed meanwhile.
type VoteRepository interface {
	CreateVote(ctx context.Context, vote entities.Vote, events ...EventEnvelope) error
	FindVote(ctx context.Context, electionID string, positionID string, memberID string) (entities.Vote, bool, error)
	ListVotesByElection(ctx context.Context, electionID string) ([]entities.Vote, error)
	ListVotesByMember(ctx context.Context, electionID string, memberID string) ([]entities.Vote, error)
}

// Directory is the identity provider seen from this module: it resolves the
// session principal into a role and member profile.
type Directory interface {
	GetActor(ctx context.Context, userID string) (entities.Actor, error)
	GetMember(ctx context.Context, memberID string) (entities.Member, error)
}

// ViewInvalidator marks rendered views stale after a successful mutation.
type ViewInvalidator interface {
	Revalidate(ctx context.Context, paths ...string) error
}

// CandidacyNotification is sent to a candidate once an administrator decided
// on the application.
type CandidacyNotification struct {
	CandidacyID   string
	ElectionTitle string
	PositionTitle string
	Status        entities.CandidacyStatus
	Comments      string
	Recipient     entities.Member
}

type Notifier interface {
	NotifyCandidacyDecision(ctx context.Context, notification CandidacyNotification) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope is the canonical event shape written to the outbox.
type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}

// EventDedupStore returns true when the event id was already processed.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}
