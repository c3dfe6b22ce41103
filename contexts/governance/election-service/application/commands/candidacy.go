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

type SubmitCandidacyCommand struct {
	ActorID    string
	ElectionID string
	PositionID string
	Motivation string
	Programme  string
	Documents  []string
}

type SubmitMultipleCandidaciesCommand struct {
	ActorID     string
	ElectionID  string
	PositionIDs []string
	Motivation  string
	Programme   string
	Documents   []string
}

// UpdateCandidacyPositionsCommand replaces the set of positions a member runs
// for in the election of CandidacyID.
type UpdateCandidacyPositionsCommand struct {
	ActorID     string
	CandidacyID string
	Motivation  string
	Programme   string
	PositionIDs []string
}

type UpdateCandidacyCommand struct {
	ActorID     string
	CandidacyID string
	Motivation  string
	Programme   string
	Documents   []string
}

type DecideCandidacyCommand struct {
	ActorID     string
	CandidacyID string
	Comments    string
}

// CandidacyUseCase enforces candidacy rules: open election, one candidacy per
// (election, position, member), owner-only edits of undecided candidacies and
// administrator moderation.
type CandidacyUseCase struct {
	Elections   ports.ElectionRepository
	Candidacies ports.CandidacyRepository
	Votes       ports.VoteRepository
	Directory   ports.Directory
	Views       ports.ViewInvalidator
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc CandidacyUseCase) SubmitCandidacy(ctx context.Context, cmd SubmitCandidacyCommand) (entities.CandidacyView, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("candidacy submit processing started",
		"event", "election_candidacy_submit_started",
		"module", application.ModuleName,
		"layer", "application",
		"actor_id", strings.TrimSpace(cmd.ActorID),
		"election_id", strings.TrimSpace(cmd.ElectionID),
		"position_id", strings.TrimSpace(cmd.PositionID),
	)
	actor, err := requireMember(ctx, uc.Directory, cmd.ActorID)
	if err != nil {
		return entities.CandidacyView{}, err
	}
	if strings.TrimSpace(cmd.ElectionID) == "" || strings.TrimSpace(cmd.PositionID) == "" {
		return entities.CandidacyView{}, domainerrors.ErrInvalidInput
	}
	now := resolveNow(uc.Clock)
	election, err := uc.loadElectionForCandidacy(ctx, cmd.ElectionID, now)
	if err != nil {
		return entities.CandidacyView{}, err
	}
	if _, found, err := uc.Candidacies.FindCandidacy(ctx, election.ElectionID, strings.TrimSpace(cmd.PositionID), actor.MemberID); err != nil {
		return entities.CandidacyView{}, err
	} else if found {
		logger.Warn("candidacy submit duplicate",
			"event", "election_candidacy_submit_duplicate",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", election.ElectionID,
			"position_id", strings.TrimSpace(cmd.PositionID),
			"member_id", actor.MemberID,
		)
		return entities.CandidacyView{}, domainerrors.ErrDuplicateCandidacy
	}
	position, err := loadPositionOf(ctx, uc.Elections, election.ElectionID, cmd.PositionID)
	if err != nil {
		return entities.CandidacyView{}, err
	}

	candidacy, err := uc.newCandidacy(ctx, election.ElectionID, position.PositionID, actor.MemberID, cmd.Motivation, cmd.Programme, cmd.Documents, now)
	if err != nil {
		return entities.CandidacyView{}, err
	}
	envelope, err := candidacyEnvelope(ctx, uc.IDGen, EventCandidacySubmitted, candidacy, now)
	if err != nil {
		return entities.CandidacyView{}, err
	}
	if err := uc.Candidacies.CreateCandidacies(ctx, []entities.Candidacy{candidacy}, envelope); err != nil {
		return entities.CandidacyView{}, err
	}

	revalidateViews(ctx, uc.Views, logger, candidacyPaths(election.ElectionID)...)
	logger.Info("candidacy submitted",
		"event", "election_candidacy_submitted",
		"module", application.ModuleName,
		"layer", "application",
		"candidacy_id", candidacy.CandidacyID,
		"election_id", candidacy.ElectionID,
		"position_id", candidacy.PositionID,
		"member_id", candidacy.MemberID,
	)
	return entities.CandidacyView{
		Candidacy:  candidacy,
		Position:   position,
		MemberName: actor.DisplayName,
	}, nil
}

// SubmitMultipleCandidacies is all-or-nothing: every position is checked first
// and the first refusal set aborts the whole batch with a BatchCandidacyError.
func (uc CandidacyUseCase) SubmitMultipleCandidacies(ctx context.Context, cmd SubmitMultipleCandidaciesCommand) ([]entities.CandidacyView, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("candidacy batch processing started",
		"event", "election_candidacy_batch_started",
		"module", application.ModuleName,
		"layer", "application",
		"actor_id", strings.TrimSpace(cmd.ActorID),
		"election_id", strings.TrimSpace(cmd.ElectionID),
		"positions", len(cmd.PositionIDs),
	)
	actor, err := requireMember(ctx, uc.Directory, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	positionIDs := normalizeIDs(cmd.PositionIDs)
	if strings.TrimSpace(cmd.ElectionID) == "" || len(positionIDs) == 0 {
		return nil, domainerrors.ErrInvalidInput
	}
	now := resolveNow(uc.Clock)
	election, err := uc.loadElectionForCandidacy(ctx, cmd.ElectionID, now)
	if err != nil {
		return nil, err
	}

	batchErr := &domainerrors.BatchCandidacyError{}
	positions := make([]entities.Position, 0, len(positionIDs))
	for _, positionID := range positionIDs {
		if _, found, err := uc.Candidacies.FindCandidacy(ctx, election.ElectionID, positionID, actor.MemberID); err != nil {
			return nil, err
		} else if found {
			batchErr.Failures = append(batchErr.Failures, domainerrors.PositionFailure{
				PositionID: positionID,
				Err:        domainerrors.ErrDuplicateCandidacy,
			})
			continue
		}
		position, err := loadPositionOf(ctx, uc.Elections, election.ElectionID, positionID)
		if err != nil {
			if !errors.Is(err, domainerrors.ErrPositionNotFound) {
				return nil, err
			}
			batchErr.Failures = append(batchErr.Failures, domainerrors.PositionFailure{
				PositionID: positionID,
				Err:        err,
			})
			continue
		}
		positions = append(positions, position)
	}
	if len(batchErr.Failures) > 0 {
		logger.Warn("candidacy batch refused",
			"event", "election_candidacy_batch_refused",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", election.ElectionID,
			"member_id", actor.MemberID,
			"failed_positions", batchErr.FailedPositions(),
		)
		return nil, batchErr
	}

	candidacies := make([]entities.Candidacy, 0, len(positions))
	envelopes := make([]ports.EventEnvelope, 0, len(positions))
	views := make([]entities.CandidacyView, 0, len(positions))
	for _, position := range positions {
		candidacy, err := uc.newCandidacy(ctx, election.ElectionID, position.PositionID, actor.MemberID, cmd.Motivation, cmd.Programme, cmd.Documents, now)
		if err != nil {
			return nil, err
		}
		envelope, err := candidacyEnvelope(ctx, uc.IDGen, EventCandidacySubmitted, candidacy, now)
		if err != nil {
			return nil, err
		}
		candidacies = append(candidacies, candidacy)
		envelopes = append(envelopes, envelope)
		views = append(views, entities.CandidacyView{
			Candidacy:  candidacy,
			Position:   position,
			MemberName: actor.DisplayName,
		})
	}
	if err := uc.Candidacies.CreateCandidacies(ctx, candidacies, envelopes...); err != nil {
		return nil, err
	}

	revalidateViews(ctx, uc.Views, logger, candidacyPaths(election.ElectionID)...)
	logger.Info("candidacy batch submitted",
		"event", "election_candidacy_batch_submitted",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", election.ElectionID,
		"member_id", actor.MemberID,
		"created", len(candidacies),
	)
	return views, nil
}

// UpdateCandidacyPositions diffs the desired positions against the member's
// current candidacies in the same election and applies removals, the update of
// the referenced candidacy and additions in one transaction.
func (uc CandidacyUseCase) UpdateCandidacyPositions(ctx context.Context, cmd UpdateCandidacyPositionsCommand) ([]entities.Candidacy, error) {
	logger := application.ResolveLogger(uc.Logger)
	actor, err := requireMember(ctx, uc.Directory, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	desired := normalizeIDs(cmd.PositionIDs)
	if strings.TrimSpace(cmd.CandidacyID) == "" || len(desired) == 0 {
		return nil, domainerrors.ErrInvalidInput
	}
	reference, err := uc.Candidacies.GetCandidacy(ctx, strings.TrimSpace(cmd.CandidacyID))
	if err != nil {
		return nil, err
	}
	if reference.MemberID != actor.MemberID {
		return nil, domainerrors.ErrForbidden
	}
	now := resolveNow(uc.Clock)
	election, err := uc.loadElectionForCandidacy(ctx, reference.ElectionID, now)
	if err != nil {
		return nil, err
	}

	current, err := uc.Candidacies.ListCandidaciesByMember(ctx, actor.MemberID, election.ElectionID)
	if err != nil {
		return nil, err
	}
	currentByPosition := make(map[string]entities.Candidacy, len(current))
	for _, candidacy := range current {
		currentByPosition[candidacy.PositionID] = candidacy
	}
	desiredSet := make(map[string]struct{}, len(desired))
	for _, positionID := range desired {
		desiredSet[positionID] = struct{}{}
	}

	change := entities.CandidacyPositionChange{
		ElectionID: election.ElectionID,
		MemberID:   actor.MemberID,
	}
	for _, candidacy := range current {
		if _, keep := desiredSet[candidacy.PositionID]; keep {
			continue
		}
		if candidacy.Decided() {
			return nil, domainerrors.ErrCandidacyDecided
		}
		change.Remove = append(change.Remove, candidacy.CandidacyID)
	}
	if err := uc.ensureNoBallots(ctx, election.ElectionID, change.Remove); err != nil {
		return nil, err
	}

	if _, keep := desiredSet[reference.PositionID]; keep {
		if reference.Decided() {
			return nil, domainerrors.ErrCandidacyDecided
		}
		updated := reference
		updated.Motivation = strings.TrimSpace(cmd.Motivation)
		updated.Programme = strings.TrimSpace(cmd.Programme)
		updated.UpdatedAt = now
		change.Update = &updated
	}

	batchErr := &domainerrors.BatchCandidacyError{}
	for _, positionID := range desired {
		if _, exists := currentByPosition[positionID]; exists {
			continue
		}
		if _, err := loadPositionOf(ctx, uc.Elections, election.ElectionID, positionID); err != nil {
			if !errors.Is(err, domainerrors.ErrPositionNotFound) {
				return nil, err
			}
			batchErr.Failures = append(batchErr.Failures, domainerrors.PositionFailure{PositionID: positionID, Err: err})
			continue
		}
		if _, found, err := uc.Candidacies.FindCandidacy(ctx, election.ElectionID, positionID, actor.MemberID); err != nil {
			return nil, err
		} else if found {
			batchErr.Failures = append(batchErr.Failures, domainerrors.PositionFailure{
				PositionID: positionID,
				Err:        domainerrors.ErrDuplicateCandidacy,
			})
			continue
		}
		candidacy, err := uc.newCandidacy(ctx, election.ElectionID, positionID, actor.MemberID, cmd.Motivation, cmd.Programme, reference.Documents, now)
		if err != nil {
			return nil, err
		}
		change.Add = append(change.Add, candidacy)
	}
	if len(batchErr.Failures) > 0 {
		return nil, batchErr
	}

	envelope, err := newElectionEnvelope(ctx, uc.IDGen, EventCandidacyUpdated, election.ElectionID, now, map[string]any{
		"election_id": election.ElectionID,
		"member_id":   actor.MemberID,
		"removed":     len(change.Remove),
		"added":       len(change.Add),
		"updated":     change.Update != nil,
		"positions":   desired,
	})
	if err != nil {
		return nil, err
	}
	if err := uc.Candidacies.ApplyCandidacyPositionChange(ctx, change, envelope); err != nil {
		return nil, err
	}

	result, err := uc.Candidacies.ListCandidaciesByMember(ctx, actor.MemberID, election.ElectionID)
	if err != nil {
		return nil, err
	}
	revalidateViews(ctx, uc.Views, logger, candidacyPaths(election.ElectionID)...)
	logger.Info("candidacy positions updated",
		"event", "election_candidacy_positions_updated",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", election.ElectionID,
		"member_id", actor.MemberID,
		"removed", len(change.Remove),
		"added", len(change.Add),
	)
	return result, nil
}

// UpdateCandidacy edits the texts of an undecided candidacy owned by the actor.
func (uc CandidacyUseCase) UpdateCandidacy(ctx context.Context, cmd UpdateCandidacyCommand) (entities.Candidacy, error) {
	logger := application.ResolveLogger(uc.Logger)
	actor, err := requireMember(ctx, uc.Directory, cmd.ActorID)
	if err != nil {
		return entities.Candidacy{}, err
	}
	candidacy, err := uc.Candidacies.GetCandidacy(ctx, strings.TrimSpace(cmd.CandidacyID))
	if err != nil {
		return entities.Candidacy{}, err
	}
	if candidacy.MemberID != actor.MemberID {
		return entities.Candidacy{}, domainerrors.ErrForbidden
	}
	now := resolveNow(uc.Clock)
	if _, err := loadOpenElection(ctx, uc.Elections, candidacy.ElectionID); err != nil {
		return entities.Candidacy{}, err
	}
	if candidacy.Decided() {
		return entities.Candidacy{}, domainerrors.ErrCandidacyDecided
	}

	candidacy.Motivation = strings.TrimSpace(cmd.Motivation)
	candidacy.Programme = strings.TrimSpace(cmd.Programme)
	if cmd.Documents != nil {
		candidacy.Documents = normalizeIDs(cmd.Documents)
	}
	candidacy.UpdatedAt = now
	if err := uc.Candidacies.UpdateCandidacy(ctx, candidacy); err != nil {
		return entities.Candidacy{}, err
	}
	revalidateViews(ctx, uc.Views, logger, candidacyPaths(candidacy.ElectionID)...)
	return candidacy, nil
}

func (uc CandidacyUseCase) ValidateCandidacy(ctx context.Context, cmd DecideCandidacyCommand) (entities.Candidacy, error) {
	return uc.decide(ctx, cmd, entities.CandidacyStatusApproved, EventCandidacyValidated)
}

func (uc CandidacyUseCase) RejectCandidacy(ctx context.Context, cmd DecideCandidacyCommand) (entities.Candidacy, error) {
	return uc.decide(ctx, cmd, entities.CandidacyStatusRejected, EventCandidacyRejected)
}

func (uc CandidacyUseCase) decide(
	ctx context.Context,
	cmd DecideCandidacyCommand,
	status entities.CandidacyStatus,
	eventType string,
) (entities.Candidacy, error) {
	logger := application.ResolveLogger(uc.Logger)
	actor, err := requireAdmin(ctx, uc.Directory, cmd.ActorID)
	if err != nil {
		return entities.Candidacy{}, err
	}
	candidacy, err := uc.Candidacies.GetCandidacy(ctx, strings.TrimSpace(cmd.CandidacyID))
	if err != nil {
		return entities.Candidacy{}, err
	}
	if candidacy.Decided() {
		return entities.Candidacy{}, domainerrors.ErrCandidacyDecided
	}

	now := resolveNow(uc.Clock)
	candidacy.Status = status
	candidacy.ValidatedBy = actor.UserID
	candidacy.ValidatedAt = &now
	candidacy.Comments = strings.TrimSpace(cmd.Comments)
	candidacy.UpdatedAt = now

	envelope, err := candidacyEnvelope(ctx, uc.IDGen, eventType, candidacy, now)
	if err != nil {
		return entities.Candidacy{}, err
	}
	if err := uc.Candidacies.DecideCandidacy(ctx, candidacy, envelope); err != nil {
		return entities.Candidacy{}, err
	}

	revalidateViews(ctx, uc.Views, logger, candidacyPaths(candidacy.ElectionID)...)
	logger.Info("candidacy decided",
		"event", "election_candidacy_decided",
		"module", application.ModuleName,
		"layer", "application",
		"candidacy_id", candidacy.CandidacyID,
		"status", string(status),
		"actor_id", actor.UserID,
	)
	return candidacy, nil
}

// loadElectionForCandidacy requires an open election whose candidacy window,
// when set, has not ended.
func (uc CandidacyUseCase) loadElectionForCandidacy(ctx context.Context, electionID string, now time.Time) (entities.Election, error) {
	election, err := loadOpenElection(ctx, uc.Elections, electionID)
	if err != nil {
		return entities.Election{}, err
	}
	if election.CandidacyClosesAt != nil && now.After(election.CandidacyClosesAt.UTC()) {
		return entities.Election{}, domainerrors.ErrCandidacyPeriodClosed
	}
	return election, nil
}

func (uc CandidacyUseCase) newCandidacy(
	ctx context.Context,
	electionID string,
	positionID string,
	memberID string,
	motivation string,
	programme string,
	documents []string,
	now time.Time,
) (entities.Candidacy, error) {
	candidacyID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Candidacy{}, err
	}
	return entities.Candidacy{
		CandidacyID: candidacyID,
		ElectionID:  electionID,
		PositionID:  positionID,
		MemberID:    memberID,
		Motivation:  strings.TrimSpace(motivation),
		Programme:   strings.TrimSpace(programme),
		Documents:   normalizeIDs(documents),
		Status:      entities.CandidacyStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func candidacyEnvelope(
	ctx context.Context,
	ids ports.IDGenerator,
	eventType string,
	candidacy entities.Candidacy,
	now time.Time,
) (ports.EventEnvelope, error) {
	return newElectionEnvelope(ctx, ids, eventType, candidacy.ElectionID, now, map[string]any{
		"candidacy_id": candidacy.CandidacyID,
		"election_id":  candidacy.ElectionID,
		"position_id":  candidacy.PositionID,
		"member_id":    candidacy.MemberID,
		"status":       string(candidacy.Status),
		"comments":     candidacy.Comments,
		"occurred_at":  now.Format(time.RFC3339),
	})
}

// normalizeIDs trims, drops empties and removes duplicates, keeping order.
func normalizeIDs(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	items := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		items = append(items, value)
	}
	return items
}

// ensureNoBallots refuses to withdraw a candidacy that a vote already points
// at. The repository repeats the check inside its transaction.
func (uc CandidacyUseCase) ensureNoBallots(ctx context.Context, electionID string, candidacyIDs []string) error {
	if uc.Votes == nil || len(candidacyIDs) == 0 {
		return nil
	}
	votes, err := uc.Votes.ListVotesByElection(ctx, electionID)
	if err != nil {
		return err
	}
	withdrawn := make(map[string]struct{}, len(candidacyIDs))
	for _, candidacyID := range candidacyIDs {
		withdrawn[candidacyID] = struct{}{}
	}
	for _, vote := range votes {
		if vote.IsBlank() {
			continue
		}
		if _, ok := withdrawn[*vote.CandidacyID]; ok {
			return domainerrors.ErrCandidacyHasVotes
		}
	}
	return nil
}
