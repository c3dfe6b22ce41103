package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "agora/contexts/governance/election-service/application"
	"agora/contexts/governance/election-service/ports"
)

const (
	EventElectionCreated    = "election.created"
	EventElectionOpened     = "election.opened"
	EventElectionClosed     = "election.closed"
	EventElectionCancelled  = "election.cancelled"
	EventCandidacySubmitted = "candidacy.submitted"
	EventCandidacyUpdated   = "candidacy.positions_updated"
	EventCandidacyValidated = "candidacy.validated"
	EventCandidacyRejected  = "candidacy.rejected"
	EventVoteCast           = "vote.cast"
)

func newElectionEnvelope(
	ctx context.Context,
	ids ports.IDGenerator,
	eventType string,
	electionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Events are partitioned by election so per-election consumers see them in
	// order.
	eventID, err := ids.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "election-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "election_id",
		PartitionKey:     electionID,
		Data:             payload,
	}, nil
}

// revalidateViews is best-effort: a failure is logged and never changes the
// outcome of the mutation that already committed.
func revalidateViews(ctx context.Context, views ports.ViewInvalidator, logger *slog.Logger, paths ...string) {
	if views == nil || len(paths) == 0 {
		return
	}
	if err := views.Revalidate(ctx, paths...); err != nil {
		application.ResolveLogger(logger).Warn("view revalidation failed",
			"event", "election_view_revalidation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"paths", paths,
			"error", err.Error(),
		)
	}
}

func electionPaths(electionID string) []string {
	return []string{
		"/admin/elections",
		"/admin/elections/" + electionID,
		"/elections",
		"/elections/" + electionID,
	}
}

func candidacyPaths(electionID string) []string {
	return []string{
		"/admin/elections/" + electionID + "/candidatures",
		"/elections/" + electionID,
		"/elections/" + electionID + "/candidatures",
		"/profile/candidatures",
	}
}

func votePaths(electionID string) []string {
	return []string{
		"/elections/" + electionID + "/vote",
		"/elections/" + electionID + "/results",
	}
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
