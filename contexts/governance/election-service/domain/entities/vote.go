package entities

import "time"

type VoteStatus string

const (
	VoteStatusValid VoteStatus = "VALIDE"
	VoteStatusBlank VoteStatus = "BLANC"
)

// Vote is an immutable ballot for one position. A nil CandidacyID is a blank
// vote.
type Vote struct {
	VoteID      string
	ElectionID  string
	PositionID  string
	MemberID    string
	CandidacyID *string
	Status      VoteStatus
	CreatedAt   time.Time
}

func (v Vote) IsBlank() bool {
	return v.CandidacyID == nil
}

type CandidacyResult struct {
	Candidacy  CandidacyView
	VotesCount int
	Percentage float64
}

type PositionResult struct {
	Position    Position
	Candidacies []CandidacyResult
	TotalVotes  int
	BlankVotes  int
}

// ElectionResults carries the tally plus the informational quorum and
// majority settings of the election.
type ElectionResults struct {
	Election      Election
	Positions     []PositionResult
	Voters        int
	QuorumPercent float64
	MajorityRule  MajorityRule
}
