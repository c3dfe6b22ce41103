package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "agora/contexts/governance/election-service/application"
	"agora/contexts/governance/election-service/domain/entities"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
	"agora/contexts/governance/election-service/ports"
)

// CastVoteCommand records one ballot. An empty CandidacyID is a blank vote.
type CastVoteCommand struct {
	ActorID     string
	ElectionID  string
	PositionID  string
	CandidacyID string
}

type BallotUseCase struct {
	Elections   ports.ElectionRepository
	Candidacies ports.CandidacyRepository
	Votes       ports.VoteRepository
	Directory   ports.Directory
	Views       ports.ViewInvalidator
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc BallotUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.Vote, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("vote processing started",
		"event", "election_vote_cast_started",
		"module", application.ModuleName,
		"layer", "application",
		"actor_id", strings.TrimSpace(cmd.ActorID),
		"election_id", strings.TrimSpace(cmd.ElectionID),
		"position_id", strings.TrimSpace(cmd.PositionID),
	)
	actor, err := requireMember(ctx, uc.Directory, cmd.ActorID)
	if err != nil {
		return entities.Vote{}, err
	}
	if strings.TrimSpace(cmd.ElectionID) == "" || strings.TrimSpace(cmd.PositionID) == "" {
		return entities.Vote{}, domainerrors.ErrInvalidInput
	}
	election, err := loadOpenElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		logger.Warn("vote refused on closed election",
			"event", "election_vote_cast_not_open",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", strings.TrimSpace(cmd.ElectionID),
			"error", err.Error(),
		)
		return entities.Vote{}, err
	}
	position, err := loadPositionOf(ctx, uc.Elections, election.ElectionID, cmd.PositionID)
	if err != nil {
		return entities.Vote{}, err
	}
	if _, found, err := uc.Votes.FindVote(ctx, election.ElectionID, position.PositionID, actor.MemberID); err != nil {
		return entities.Vote{}, err
	} else if found {
		logger.Warn("vote duplicate",
			"event", "election_vote_cast_duplicate",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", election.ElectionID,
			"position_id", position.PositionID,
			"member_id", actor.MemberID,
		)
		return entities.Vote{}, domainerrors.ErrDuplicateVote
	}

	var candidacyID *string
	status := entities.VoteStatusBlank
	if id := strings.TrimSpace(cmd.CandidacyID); id != "" {
		candidacy, err := uc.Candidacies.GetCandidacy(ctx, id)
		if err != nil {
			if errors.Is(err, domainerrors.ErrCandidacyNotFound) {
				return entities.Vote{}, domainerrors.ErrCandidacyNotEligible
			}
			return entities.Vote{}, err
		}
		if candidacy.ElectionID != election.ElectionID || candidacy.PositionID != position.PositionID {
			return entities.Vote{}, domainerrors.ErrCandidacyNotEligible
		}
		candidacyID = &candidacy.CandidacyID
		status = entities.VoteStatusValid
	}

	now := resolveNow(uc.Clock)
	voteID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Vote{}, err
	}
	vote := entities.Vote{
		VoteID:      voteID,
		ElectionID:  election.ElectionID,
		PositionID:  position.PositionID,
		MemberID:    actor.MemberID,
		CandidacyID: candidacyID,
		Status:      status,
		CreatedAt:   now,
	}
	// The ballot content stays out of the event; consumers only learn that a
	// member voted on a position.
	envelope, err := newElectionEnvelope(ctx, uc.IDGen, EventVoteCast, election.ElectionID, now, map[string]any{
		"vote_id":     vote.VoteID,
		"election_id": vote.ElectionID,
		"position_id": vote.PositionID,
		"member_id":   vote.MemberID,
		"occurred_at": now.Format(time.RFC3339),
	})
	if err != nil {
		return entities.Vote{}, err
	}
	if err := uc.Votes.CreateVote(ctx, vote, envelope); err != nil {
		return entities.Vote{}, err
	}

	revalidateViews(ctx, uc.Views, logger, votePaths(election.ElectionID)...)
	logger.Info("vote cast",
		"event", "election_vote_cast_completed",
		"module", application.ModuleName,
		"layer", "application",
		"vote_id", vote.VoteID,
		"election_id", vote.ElectionID,
		"position_id", vote.PositionID,
		"blank", vote.IsBlank(),
	)
	return vote, nil
}
