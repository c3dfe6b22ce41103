package commands

import (
	"context"
	"errors"
	"strings"

	"agora/contexts/governance/election-service/domain/entities"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
	"agora/contexts/governance/election-service/domain/services"
	"agora/contexts/governance/election-service/ports"
)

// resolveActor maps the session principal to a directory actor. An empty or
// unknown principal is unauthenticated.
func resolveActor(ctx context.Context, directory ports.Directory, actorID string) (entities.Actor, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return entities.Actor{}, domainerrors.ErrUnauthorized
	}
	actor, err := directory.GetActor(ctx, actorID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrMemberNotFound) {
			return entities.Actor{}, domainerrors.ErrUnauthorized
		}
		return entities.Actor{}, err
	}
	return actor, nil
}

func requireAdmin(ctx context.Context, directory ports.Directory, actorID string) (entities.Actor, error) {
	actor, err := resolveActor(ctx, directory, actorID)
	if err != nil {
		return entities.Actor{}, err
	}
	if !actor.IsAdmin() {
		return entities.Actor{}, domainerrors.ErrForbidden
	}
	return actor, nil
}

func requireMember(ctx context.Context, directory ports.Directory, actorID string) (entities.Actor, error) {
	actor, err := resolveActor(ctx, directory, actorID)
	if err != nil {
		return entities.Actor{}, err
	}
	if !actor.IsMember() {
		return entities.Actor{}, domainerrors.ErrNotAMember
	}
	return actor, nil
}

// loadOpenElection returns ErrElectionNotOpen for a missing election too, so
// mutation endpoints do not reveal which ids exist.
func loadOpenElection(ctx context.Context, elections ports.ElectionRepository, electionID string) (entities.Election, error) {
	election, err := elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		if errors.Is(err, domainerrors.ErrElectionNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotOpen
		}
		return entities.Election{}, err
	}
	if err := services.EnsureAcceptsBallots(election); err != nil {
		return entities.Election{}, err
	}
	return election, nil
}

// loadPositionOf returns ErrPositionNotFound when the position is missing or
// belongs to another election.
func loadPositionOf(ctx context.Context, elections ports.ElectionRepository, electionID string, positionID string) (entities.Position, error) {
	position, err := elections.GetPosition(ctx, strings.TrimSpace(positionID))
	if err != nil {
		return entities.Position{}, err
	}
	if position.ElectionID != strings.TrimSpace(electionID) {
		return entities.Position{}, domainerrors.ErrPositionNotFound
	}
	return position, nil
}
