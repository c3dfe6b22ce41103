package queries

import (
	"context"
	"log/slog"
	"strings"

	application "agora/contexts/governance/election-service/application"
	"agora/contexts/governance/election-service/domain/entities"
	"agora/contexts/governance/election-service/domain/services"
	"agora/contexts/governance/election-service/ports"
)

// ResultsUseCase tallies an election. Quorum and majority are copied into the
// result as-is; no winner is derived from them.
type ResultsUseCase struct {
	Elections   ports.ElectionRepository
	Candidacies ports.CandidacyRepository
	Votes       ports.VoteRepository
	Directory   ports.Directory
	Logger      *slog.Logger
}

func (uc ResultsUseCase) ComputeResults(ctx context.Context, electionID string) (entities.ElectionResults, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return entities.ElectionResults{}, err
	}
	positions, err := uc.Elections.ListPositions(ctx, election.ElectionID)
	if err != nil {
		return entities.ElectionResults{}, err
	}
	candidacies, err := uc.Candidacies.ListCandidaciesByElection(ctx, election.ElectionID)
	if err != nil {
		return entities.ElectionResults{}, err
	}
	views, err := buildViews(ctx, uc.Elections, uc.Directory, election.ElectionID, candidacies)
	if err != nil {
		return entities.ElectionResults{}, err
	}
	votes, err := uc.Votes.ListVotesByElection(ctx, election.ElectionID)
	if err != nil {
		return entities.ElectionResults{}, err
	}

	results := entities.ElectionResults{
		Election:      election,
		Positions:     make([]entities.PositionResult, 0, len(positions)),
		Voters:        services.CountVoters(votes),
		QuorumPercent: election.QuorumPercent,
		MajorityRule:  election.MajorityRule,
	}
	for _, position := range positions {
		results.Positions = append(results.Positions, services.TallyPosition(position, views, votes))
	}
	logger.Debug("election results computed",
		"event", "election_results_computed",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", election.ElectionID,
		"positions", len(results.Positions),
		"votes", len(votes),
	)
	return results, nil
}
