package queries

import (
	"context"
	"errors"
	"strings"

	"agora/contexts/governance/election-service/domain/entities"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
	"agora/contexts/governance/election-service/ports"
)

type CandidaciesUseCase struct {
	Elections   ports.ElectionRepository
	Candidacies ports.CandidacyRepository
	Votes       ports.VoteRepository
	Directory   ports.Directory
}

// ListElectionCandidacies returns the candidacies of an election joined with
// position and member data. An empty status keeps every candidacy.
func (uc CandidaciesUseCase) ListElectionCandidacies(
	ctx context.Context,
	electionID string,
	status entities.CandidacyStatus,
) ([]entities.CandidacyView, error) {
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return nil, err
	}
	candidacies, err := uc.Candidacies.ListCandidaciesByElection(ctx, election.ElectionID)
	if err != nil {
		return nil, err
	}
	if status != "" {
		filtered := candidacies[:0]
		for _, candidacy := range candidacies {
			if candidacy.Status == status {
				filtered = append(filtered, candidacy)
			}
		}
		candidacies = filtered
	}
	return buildViews(ctx, uc.Elections, uc.Directory, election.ElectionID, candidacies)
}

// ListMemberCandidacies returns the actor's own candidacies, optionally
// restricted to one election.
func (uc CandidaciesUseCase) ListMemberCandidacies(ctx context.Context, actorID string, electionID string) ([]entities.CandidacyView, error) {
	actor, err := requireMember(ctx, uc.Directory, actorID)
	if err != nil {
		return nil, err
	}
	candidacies, err := uc.Candidacies.ListCandidaciesByMember(ctx, actor.MemberID, strings.TrimSpace(electionID))
	if err != nil {
		return nil, err
	}
	return buildViews(ctx, uc.Elections, uc.Directory, "", candidacies)
}

// ListMemberVotes tells a voting page which positions the actor already voted
// on.
func (uc CandidaciesUseCase) ListMemberVotes(ctx context.Context, actorID string, electionID string) ([]entities.Vote, error) {
	actor, err := requireMember(ctx, uc.Directory, actorID)
	if err != nil {
		return nil, err
	}
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	return uc.Votes.ListVotesByMember(ctx, electionID, actor.MemberID)
}

func requireMember(ctx context.Context, directory ports.Directory, actorID string) (entities.Actor, error) {
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
	if !actor.IsMember() {
		return entities.Actor{}, domainerrors.ErrNotAMember
	}
	return actor, nil
}

// buildViews joins candidacies with positions and member names. When
// electionID is empty positions are looked up one by one.
func buildViews(
	ctx context.Context,
	elections ports.ElectionRepository,
	directory ports.Directory,
	electionID string,
	candidacies []entities.Candidacy,
) ([]entities.CandidacyView, error) {
	positions := map[string]entities.Position{}
	if electionID != "" {
		items, err := elections.ListPositions(ctx, electionID)
		if err != nil {
			return nil, err
		}
		for _, position := range items {
			positions[position.PositionID] = position
		}
	}
	names := map[string]string{}

	views := make([]entities.CandidacyView, 0, len(candidacies))
	for _, candidacy := range candidacies {
		position, ok := positions[candidacy.PositionID]
		if !ok {
			loaded, err := elections.GetPosition(ctx, candidacy.PositionID)
			if err != nil && !errors.Is(err, domainerrors.ErrPositionNotFound) {
				return nil, err
			}
			position = loaded
			positions[candidacy.PositionID] = position
		}
		name, ok := names[candidacy.MemberID]
		if !ok {
			member, err := directory.GetMember(ctx, candidacy.MemberID)
			if err != nil && !errors.Is(err, domainerrors.ErrMemberNotFound) {
				return nil, err
			}
			name = member.DisplayName()
			names[candidacy.MemberID] = name
		}
		views = append(views, entities.CandidacyView{
			Candidacy:  candidacy,
			Position:   position,
			MemberName: name,
		})
	}
	return views, nil
}
