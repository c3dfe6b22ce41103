package workers

import (
	"context"
	"log/slog"

	application "agora/contexts/governance/election-service/application"
)

// ExpiredElectionCloser is the part of the lifecycle use case the closer
// drives.
type ExpiredElectionCloser interface {
	CloseExpiredElections(ctx context.Context, limit int) (int, error)
}

// ElectionCloser closes open elections once their close date has passed. The
// transition rules are the ones an administrator goes through.
type ElectionCloser struct {
	Lifecycle ExpiredElectionCloser
	BatchSize int
	Disabled  bool
	Logger    *slog.Logger
}

func (c ElectionCloser) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		return 0, nil
	}
	limit := c.BatchSize
	if limit <= 0 {
		limit = 50
	}
	closed, err := c.Lifecycle.CloseExpiredElections(ctx, limit)
	if err != nil {
		logger.Error("election auto close failed",
			"event", "election_auto_close_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"closed_count", closed,
			"error", err.Error(),
		)
		return closed, err
	}
	if closed > 0 {
		logger.Info("elections closed on schedule",
			"event", "election_auto_close_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"closed_count", closed,
		)
	}
	return closed, nil
}
