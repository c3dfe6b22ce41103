package queries

import (
	"context"
	"strings"

	"agora/contexts/governance/election-service/domain/entities"
	"agora/contexts/governance/election-service/ports"
)

type ElectionDetails struct {
	Election  entities.Election
	Positions []entities.Position
}

type ElectionsUseCase struct {
	Elections ports.ElectionRepository
}

// ListElections returns every election when status is empty.
func (uc ElectionsUseCase) ListElections(ctx context.Context, status entities.ElectionStatus) ([]entities.Election, error) {
	return uc.Elections.ListElections(ctx, entities.ElectionStatus(strings.TrimSpace(string(status))))
}

func (uc ElectionsUseCase) GetElection(ctx context.Context, electionID string) (ElectionDetails, error) {
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return ElectionDetails{}, err
	}
	positions, err := uc.Elections.ListPositions(ctx, election.ElectionID)
	if err != nil {
		return ElectionDetails{}, err
	}
	return ElectionDetails{Election: election, Positions: positions}, nil
}
