package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "agora/contexts/governance/election-service/application"
	"agora/contexts/governance/election-service/domain/entities"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
	"agora/contexts/governance/election-service/domain/services"
	"agora/contexts/governance/election-service/ports"
)

// ElectionInput carries the editable attributes of an election.
type ElectionInput struct {
	Title             string
	Description       string
	OpensAt           time.Time
	ClosesAt          time.Time
	BallotAt          time.Time
	CandidacyClosesAt *time.Time
	QuorumPercent     float64
	MajorityRule      entities.MajorityRule
	DefaultSeats      int
}

type CreateElectionCommand struct {
	ActorID       string
	Election      ElectionInput
	PositionTypes []entities.PositionType
}

type UpdateElectionCommand struct {
	ActorID    string
	ElectionID string
	Election   ElectionInput
}

type TransitionElectionCommand struct {
	ActorID    string
	ElectionID string
}

type AddPositionCommand struct {
	ActorID       string
	ElectionID    string
	Type          entities.PositionType
	Title         string
	Description   string
	Mandates      int
	MandateMonths int
	Eligibility   string
}

type DeletePositionCommand struct {
	ActorID    string
	ElectionID string
	PositionID string
}

// CreateElectionResult returns the stored election and its initial positions.
type CreateElectionResult struct {
	Election  entities.Election
	Positions []entities.Position
}

// LifecycleUseCase owns the administrator-only election operations: creation,
// editing while in preparation, status transitions and seat definitions.
type LifecycleUseCase struct {
	Elections ports.ElectionRepository
	Directory ports.Directory
	Views     ports.ViewInvalidator
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc LifecycleUseCase) CreateElection(ctx context.Context, cmd CreateElectionCommand) (CreateElectionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("election create processing started",
		"event", "election_create_started",
		"module", application.ModuleName,
		"layer", "application",
		"actor_id", strings.TrimSpace(cmd.ActorID),
		"position_types", len(cmd.PositionTypes),
	)
	actor, err := requireAdmin(ctx, uc.Directory, cmd.ActorID)
	if err != nil {
		return CreateElectionResult{}, err
	}
	input, err := normalizeElectionInput(cmd.Election)
	if err != nil {
		logger.Warn("election create validation failed",
			"event", "election_create_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"actor_id", actor.UserID,
			"error", err.Error(),
		)
		return CreateElectionResult{}, err
	}

	now := resolveNow(uc.Clock)
	electionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CreateElectionResult{}, err
	}
	election := entities.Election{
		ElectionID:        electionID,
		Title:             input.Title,
		Description:       input.Description,
		OpensAt:           input.OpensAt,
		ClosesAt:          input.ClosesAt,
		BallotAt:          input.BallotAt,
		CandidacyClosesAt: input.CandidacyClosesAt,
		QuorumPercent:     input.QuorumPercent,
		MajorityRule:      input.MajorityRule,
		Status:            entities.ElectionStatusPreparation,
		DefaultSeats:      input.DefaultSeats,
		CreatedBy:         actor.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	positions := make([]entities.Position, 0, len(cmd.PositionTypes))
	for _, positionType := range cmd.PositionTypes {
		preset, ok := positionType.Preset()
		if !ok {
			return CreateElectionResult{}, domainerrors.ErrInvalidInput
		}
		positionID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return CreateElectionResult{}, err
		}
		positions = append(positions, entities.Position{
			PositionID:    positionID,
			ElectionID:    electionID,
			Type:          positionType,
			Title:         preset.Title,
			Description:   preset.Description,
			Mandates:      preset.Mandates,
			MandateMonths: preset.MandateMonths,
			Eligibility:   preset.Eligibility,
			CreatedAt:     now,
		})
	}

	envelope, err := newElectionEnvelope(ctx, uc.IDGen, EventElectionCreated, electionID, now, map[string]any{
		"election_id": electionID,
		"title":       election.Title,
		"created_by":  actor.UserID,
		"positions":   len(positions),
	})
	if err != nil {
		return CreateElectionResult{}, err
	}
	if err := uc.Elections.CreateElection(ctx, election, positions, envelope); err != nil {
		return CreateElectionResult{}, err
	}

	revalidateViews(ctx, uc.Views, logger, electionPaths(electionID)...)
	logger.Info("election created",
		"event", "election_created",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", electionID,
		"actor_id", actor.UserID,
		"positions", len(positions),
	)
	return CreateElectionResult{Election: election, Positions: positions}, nil
}

func (uc LifecycleUseCase) UpdateElection(ctx context.Context, cmd UpdateElectionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	actor, err := requireAdmin(ctx, uc.Directory, cmd.ActorID)
	if err != nil {
		return entities.Election{}, err
	}
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(cmd.ElectionID))
	if err != nil {
		return entities.Election{}, err
	}
	if err := services.EnsureEditable(election); err != nil {
		return entities.Election{}, err
	}
	input, err := normalizeElectionInput(cmd.Election)
	if err != nil {
		return entities.Election{}, err
	}

	election.Title = input.Title
	election.Description = input.Description
	election.OpensAt = input.OpensAt
	election.ClosesAt = input.ClosesAt
	election.BallotAt = input.BallotAt
	election.CandidacyClosesAt = input.CandidacyClosesAt
	election.QuorumPercent = input.QuorumPercent
	election.MajorityRule = input.MajorityRule
	election.DefaultSeats = input.DefaultSeats
	election.UpdatedAt = resolveNow(uc.Clock)
	if err := uc.Elections.UpdateElection(ctx, election); err != nil {
		return entities.Election{}, err
	}

	revalidateViews(ctx, uc.Views, logger, electionPaths(election.ElectionID)...)
	logger.Info("election updated",
		"event", "election_updated",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", election.ElectionID,
		"actor_id", actor.UserID,
	)
	return election, nil
}

// ValidateElection opens the election to candidacies and votes.
func (uc LifecycleUseCase) ValidateElection(ctx context.Context, cmd TransitionElectionCommand) (entities.Election, error) {
	return uc.transition(ctx, cmd, entities.ElectionStatusOpen, EventElectionOpened)
}

// CloseElection freezes ballots and stamps the close date with the current
// time, or with the open date when the election is closed before it opens.
func (uc LifecycleUseCase) CloseElection(ctx context.Context, cmd TransitionElectionCommand) (entities.Election, error) {
	return uc.transition(ctx, cmd, entities.ElectionStatusClosed, EventElectionClosed)
}

func (uc LifecycleUseCase) CancelElection(ctx context.Context, cmd TransitionElectionCommand) (entities.Election, error) {
	return uc.transition(ctx, cmd, entities.ElectionStatusCancelled, EventElectionCancelled)
}

func (uc LifecycleUseCase) transition(
	ctx context.Context,
	cmd TransitionElectionCommand,
	to entities.ElectionStatus,
	eventType string,
) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("election transition processing started",
		"event", "election_transition_started",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", strings.TrimSpace(cmd.ElectionID),
		"actor_id", strings.TrimSpace(cmd.ActorID),
		"to_status", string(to),
	)
	actor, err := requireAdmin(ctx, uc.Directory, cmd.ActorID)
	if err != nil {
		logger.Warn("election transition refused",
			"event", "election_transition_refused",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", strings.TrimSpace(cmd.ElectionID),
			"actor_id", strings.TrimSpace(cmd.ActorID),
			"error", err.Error(),
		)
		return entities.Election{}, err
	}
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(cmd.ElectionID))
	if err != nil {
		return entities.Election{}, err
	}
	updated, err := uc.applyTransition(ctx, election, to, eventType, actor.UserID)
	if err != nil {
		return entities.Election{}, err
	}
	revalidateViews(ctx, uc.Views, logger, electionPaths(updated.ElectionID)...)
	return updated, nil
}

func (uc LifecycleUseCase) applyTransition(
	ctx context.Context,
	election entities.Election,
	to entities.ElectionStatus,
	eventType string,
	actorID string,
) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := services.EnsureTransition(election.Status, to); err != nil {
		logger.Warn("election transition not allowed",
			"event", "election_transition_invalid",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", election.ElectionID,
			"from_status", string(election.Status),
			"to_status", string(to),
		)
		return entities.Election{}, err
	}

	now := resolveNow(uc.Clock)
	envelope, err := newElectionEnvelope(ctx, uc.IDGen, eventType, election.ElectionID, now, map[string]any{
		"election_id": election.ElectionID,
		"from_status": string(election.Status),
		"to_status":   string(to),
		"actor_id":    actorID,
		"occurred_at": now.Format(time.RFC3339),
	})
	if err != nil {
		return entities.Election{}, err
	}
	transition := ports.ElectionTransition{
		ElectionID: election.ElectionID,
		From:       election.Status,
		To:         to,
		At:         now,
	}
	if to == entities.ElectionStatusClosed {
		// The close date never precedes the open date.
		closesAt := now
		if closesAt.Before(election.OpensAt) {
			closesAt = election.OpensAt.UTC()
		}
		transition.ClosesAt = &closesAt
	}
	updated, err := uc.Elections.TransitionElection(ctx, transition, envelope)
	if err != nil {
		return entities.Election{}, err
	}
	logger.Info("election transitioned",
		"event", "election_transitioned",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", updated.ElectionID,
		"from_status", string(election.Status),
		"to_status", string(updated.Status),
		"actor_id", actorID,
	)
	return updated, nil
}

// CloseExpiredElections closes open elections whose close date has passed. It
// runs under the system identity and is driven by the worker process.
func (uc LifecycleUseCase) CloseExpiredElections(ctx context.Context, limit int) (int, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	due, err := uc.Elections.ListElectionsDueForClose(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, election := range due {
		if _, err := uc.applyTransition(ctx, election, entities.ElectionStatusClosed, EventElectionClosed, "system"); err != nil {
			if domainerrors.IsAny(err, domainerrors.ErrInvalidTransition, domainerrors.ErrConflict) {
				// Closed or cancelled by an administrator in the meantime.
				continue
			}
			return closed, err
		}
		closed++
		revalidateViews(ctx, uc.Views, logger, electionPaths(election.ElectionID)...)
	}
	return closed, nil
}

func (uc LifecycleUseCase) AddPosition(ctx context.Context, cmd AddPositionCommand) (entities.Position, error) {
	logger := application.ResolveLogger(uc.Logger)
	actor, err := requireAdmin(ctx, uc.Directory, cmd.ActorID)
	if err != nil {
		return entities.Position{}, err
	}
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(cmd.ElectionID))
	if err != nil {
		return entities.Position{}, err
	}
	if err := services.EnsureEditable(election); err != nil {
		return entities.Position{}, err
	}

	position := entities.Position{
		ElectionID:    election.ElectionID,
		Type:          cmd.Type,
		Title:         strings.TrimSpace(cmd.Title),
		Description:   strings.TrimSpace(cmd.Description),
		Mandates:      cmd.Mandates,
		MandateMonths: cmd.MandateMonths,
		Eligibility:   strings.TrimSpace(cmd.Eligibility),
		CreatedAt:     resolveNow(uc.Clock),
	}
	if position.Type == "" {
		position.Type = entities.PositionTypeOther
	}
	preset, ok := position.Type.Preset()
	if !ok {
		return entities.Position{}, domainerrors.ErrInvalidInput
	}
	if position.Title == "" {
		position.Title = preset.Title
	}
	if position.Description == "" {
		position.Description = preset.Description
	}
	if position.Mandates == 0 {
		position.Mandates = preset.Mandates
	}
	if position.MandateMonths == 0 {
		position.MandateMonths = preset.MandateMonths
	}
	if position.Eligibility == "" {
		position.Eligibility = preset.Eligibility
	}
	if position.Mandates < 0 || position.MandateMonths < 0 {
		return entities.Position{}, domainerrors.ErrInvalidInput
	}

	positionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Position{}, err
	}
	position.PositionID = positionID
	if err := uc.Elections.CreatePosition(ctx, position); err != nil {
		return entities.Position{}, err
	}

	revalidateViews(ctx, uc.Views, logger, electionPaths(election.ElectionID)...)
	logger.Info("election position added",
		"event", "election_position_added",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", election.ElectionID,
		"position_id", position.PositionID,
		"actor_id", actor.UserID,
	)
	return position, nil
}

// DeletePosition is only allowed before the election opens.
func (uc LifecycleUseCase) DeletePosition(ctx context.Context, cmd DeletePositionCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	actor, err := requireAdmin(ctx, uc.Directory, cmd.ActorID)
	if err != nil {
		return err
	}
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(cmd.ElectionID))
	if err != nil {
		return err
	}
	if err := services.EnsureEditable(election); err != nil {
		return err
	}
	if _, err := loadPositionOf(ctx, uc.Elections, election.ElectionID, cmd.PositionID); err != nil {
		return err
	}
	if err := uc.Elections.DeletePosition(ctx, election.ElectionID, strings.TrimSpace(cmd.PositionID)); err != nil {
		return err
	}

	revalidateViews(ctx, uc.Views, logger, electionPaths(election.ElectionID)...)
	logger.Info("election position deleted",
		"event", "election_position_deleted",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", election.ElectionID,
		"position_id", strings.TrimSpace(cmd.PositionID),
		"actor_id", actor.UserID,
	)
	return nil
}

func normalizeElectionInput(input ElectionInput) (ElectionInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" || input.OpensAt.IsZero() || input.ClosesAt.IsZero() {
		return ElectionInput{}, domainerrors.ErrInvalidInput
	}
	input.OpensAt = input.OpensAt.UTC()
	input.ClosesAt = input.ClosesAt.UTC()
	if input.ClosesAt.Before(input.OpensAt) {
		return ElectionInput{}, domainerrors.ErrInvalidInput
	}
	if input.BallotAt.IsZero() {
		input.BallotAt = input.ClosesAt
	}
	input.BallotAt = input.BallotAt.UTC()
	if input.CandidacyClosesAt != nil {
		closesAt := input.CandidacyClosesAt.UTC()
		input.CandidacyClosesAt = &closesAt
	}
	if input.QuorumPercent < 0 || input.QuorumPercent > 100 || input.DefaultSeats < 0 {
		return ElectionInput{}, domainerrors.ErrInvalidInput
	}
	if input.MajorityRule == "" {
		input.MajorityRule = entities.MajorityRuleAbsolute
	}
	if !input.MajorityRule.Valid() {
		return ElectionInput{}, domainerrors.ErrInvalidInput
	}
	return input, nil
}
