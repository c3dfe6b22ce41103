package entities

import "time"

type CandidacyStatus string

const (
	CandidacyStatusPending  CandidacyStatus = "EN_ATTENTE"
	CandidacyStatusApproved CandidacyStatus = "VALIDEE"
	CandidacyStatusRejected CandidacyStatus = "REJETEE"
)

// Candidacy is one member's application for one position. A member holds at
// most one candidacy per (election, position).
type Candidacy struct {
	CandidacyID string
	ElectionID  string
	PositionID  string
	MemberID    string
	Motivation  string
	Programme   string
	Documents   []string
	Status      CandidacyStatus
	ValidatedBy string
	ValidatedAt *time.Time
	Comments    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c Candidacy) Decided() bool {
	return c.Status == CandidacyStatusApproved || c.Status == CandidacyStatusRejected
}

// CandidacyView joins a candidacy with the display data of its position and
// member.
type CandidacyView struct {
	Candidacy  Candidacy
	Position   Position
	MemberName string
}

// CandidacyPositionChange is applied atomically by the repository: removals,
// the optional in-place update, then additions.
type CandidacyPositionChange struct {
	ElectionID string
	MemberID   string
	Remove     []string
	Update     *Candidacy
	Add        []Candidacy
}
