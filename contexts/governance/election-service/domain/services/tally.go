package services

import (
	"sort"

	"agora/contexts/governance/election-service/domain/entities"
)

// TallyPosition counts the votes of one position. Candidacies keep their input
// order on ties; percentages are 0 when nobody voted.
func TallyPosition(
	position entities.Position,
	candidacies []entities.CandidacyView,
	votes []entities.Vote,
) entities.PositionResult {
	result := entities.PositionResult{
		Position:    position,
		Candidacies: make([]entities.CandidacyResult, 0, len(candidacies)),
	}

	counts := make(map[string]int, len(candidacies))
	for _, vote := range votes {
		if vote.PositionID != position.PositionID {
			continue
		}
		result.TotalVotes++
		if vote.Status == entities.VoteStatusBlank {
			result.BlankVotes++
		}
		if vote.CandidacyID != nil {
			counts[*vote.CandidacyID]++
		}
	}

	for _, candidacy := range candidacies {
		if candidacy.Candidacy.PositionID != position.PositionID {
			continue
		}
		count := counts[candidacy.Candidacy.CandidacyID]
		result.Candidacies = append(result.Candidacies, entities.CandidacyResult{
			Candidacy:  candidacy,
			VotesCount: count,
			Percentage: Percentage(count, result.TotalVotes),
		})
	}

	sort.SliceStable(result.Candidacies, func(i, j int) bool {
		return result.Candidacies[i].VotesCount > result.Candidacies[j].VotesCount
	})
	return result
}

// Percentage returns part/total*100, or 0 when total is 0.
func Percentage(part int, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// CountVoters returns the number of distinct members that cast at least one
// ballot.
func CountVoters(votes []entities.Vote) int {
	seen := make(map[string]struct{}, len(votes))
	for _, vote := range votes {
		seen[vote.MemberID] = struct{}{}
	}
	return len(seen)
}
