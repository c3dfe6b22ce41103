package http

import "time"

// Result is the envelope every election endpoint answers with, success or
// not.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	// FailedPositions lists the refused positions of a multi-position
	// candidacy.
	FailedPositions []string `json:"failed_positions,omitempty"`
}

type ElectionRequest struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	OpensAt           time.Time  `json:"opens_at"`
	ClosesAt          time.Time  `json:"closes_at"`
	BallotAt          time.Time  `json:"ballot_at"`
	CandidacyClosesAt *time.Time `json:"candidacy_closes_at,omitempty"`
	QuorumPercent     float64    `json:"quorum_percent"`
	MajorityRule      string     `json:"majority_rule"`
	DefaultSeats      int        `json:"default_seats"`
	PositionTypes     []string   `json:"position_types,omitempty"`
}

type PositionRequest struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Mandates      int    `json:"mandates"`
	MandateMonths int    `json:"mandate_months"`
	Eligibility   string `json:"eligibility"`
}

type SubmitCandidacyRequest struct {
	PositionID  string   `json:"position_id"`
	PositionIDs []string `json:"position_ids,omitempty"`
	Motivation  string   `json:"motivation"`
	Programme   string   `json:"programme"`
	Documents   []string `json:"documents,omitempty"`
}

type UpdateCandidacyRequest struct {
	Motivation  string   `json:"motivation"`
	Programme   string   `json:"programme"`
	Documents   []string `json:"documents,omitempty"`
	PositionIDs []string `json:"position_ids,omitempty"`
}

type DecideCandidacyRequest struct {
	Comments string `json:"comments"`
}

type CastVoteRequest struct {
	PositionID  string `json:"position_id"`
	CandidacyID string `json:"candidacy_id,omitempty"`
}

type ElectionResponse struct {
	ElectionID        string     `json:"election_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	OpensAt           time.Time  `json:"opens_at"`
	ClosesAt          time.Time  `json:"closes_at"`
	BallotAt          time.Time  `json:"ballot_at"`
	CandidacyClosesAt *time.Time `json:"candidacy_closes_at,omitempty"`
	QuorumPercent     float64    `json:"quorum_percent"`
	MajorityRule      string     `json:"majority_rule"`
	Status            string     `json:"status"`
	DefaultSeats      int        `json:"default_seats"`
	CreatedBy         string     `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type PositionResponse struct {
	PositionID    string `json:"position_id"`
	ElectionID    string `json:"election_id"`
	Type          string `json:"type"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Mandates      int    `json:"mandates"`
	MandateMonths int    `json:"mandate_months"`
	Eligibility   string `json:"eligibility,omitempty"`
}

type ElectionDetailsResponse struct {
	Election  ElectionResponse   `json:"election"`
	Positions []PositionResponse `json:"positions"`
}

type CandidacyResponse struct {
	CandidacyID   string     `json:"candidacy_id"`
	ElectionID    string     `json:"election_id"`
	PositionID    string     `json:"position_id"`
	PositionTitle string     `json:"position_title,omitempty"`
	MemberID      string     `json:"member_id"`
	MemberName    string     `json:"member_name,omitempty"`
	Motivation    string     `json:"motivation"`
	Programme     string     `json:"programme"`
	Documents     []string   `json:"documents,omitempty"`
	Status        string     `json:"status"`
	ValidatedBy   string     `json:"validated_by,omitempty"`
	ValidatedAt   *time.Time `json:"validated_at,omitempty"`
	Comments      string     `json:"comments,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type VoteResponse struct {
	VoteID      string    `json:"vote_id"`
	ElectionID  string    `json:"election_id"`
	PositionID  string    `json:"position_id"`
	CandidacyID *string   `json:"candidacy_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type CandidacyResultResponse struct {
	Candidacy  CandidacyResponse `json:"candidacy"`
	VotesCount int               `json:"votes_count"`
	Percentage float64           `json:"percentage"`
}

type PositionResultResponse struct {
	Position    PositionResponse          `json:"position"`
	Candidacies []CandidacyResultResponse `json:"candidacies"`
	TotalVotes  int                       `json:"total_votes"`
	BlankVotes  int                       `json:"blank_votes"`
}

type ResultsResponse struct {
	Election      ElectionResponse         `json:"election"`
	Positions     []PositionResultResponse `json:"positions"`
	Voters        int                      `json:"voters"`
	QuorumPercent float64                  `json:"quorum_percent"`
	MajorityRule  string                   `json:"majority_rule"`
}
