package postgresadapter

import (
	"encoding/json"
	"strings"
	"time"

	"agora/contexts/governance/election-service/domain/entities"
)

type electionModel struct {
	ID                string     `gorm:"column:id;primaryKey"`
	Title             string     `gorm:"column:title;not null"`
	Description       string     `gorm:"column:description"`
	OpensAt           time.Time  `gorm:"column:opens_at"`
	ClosesAt          time.Time  `gorm:"column:closes_at;index"`
	BallotAt          time.Time  `gorm:"column:ballot_at"`
	CandidacyClosesAt *time.Time `gorm:"column:candidacy_closes_at"`
	QuorumPercent     float64    `gorm:"column:quorum_percent"`
	MajorityRule      string     `gorm:"column:majority_rule"`
	Status            string     `gorm:"column:status;index"`
	DefaultSeats      int        `gorm:"column:default_seats"`
	CreatedBy         string     `gorm:"column:created_by"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (electionModel) TableName() string {
	return "elections"
}

func electionModelFromEntity(election entities.Election) electionModel {
	return electionModel{
		ID:                strings.TrimSpace(election.ElectionID),
		Title:             election.Title,
		Description:       election.Description,
		OpensAt:           election.OpensAt.UTC(),
		ClosesAt:          election.ClosesAt.UTC(),
		BallotAt:          election.BallotAt.UTC(),
		CandidacyClosesAt: normalizeOptionalTime(election.CandidacyClosesAt),
		QuorumPercent:     election.QuorumPercent,
		MajorityRule:      string(election.MajorityRule),
		Status:            string(election.Status),
		DefaultSeats:      election.DefaultSeats,
		CreatedBy:         election.CreatedBy,
		CreatedAt:         election.CreatedAt.UTC(),
		UpdatedAt:         election.UpdatedAt.UTC(),
	}
}

func (m electionModel) toEntity() entities.Election {
	return entities.Election{
		ElectionID:        m.ID,
		Title:             m.Title,
		Description:       m.Description,
		OpensAt:           m.OpensAt.UTC(),
		ClosesAt:          m.ClosesAt.UTC(),
		BallotAt:          m.BallotAt.UTC(),
		CandidacyClosesAt: normalizeOptionalTime(m.CandidacyClosesAt),
		QuorumPercent:     m.QuorumPercent,
		MajorityRule:      entities.MajorityRule(m.MajorityRule),
		Status:            entities.ElectionStatus(m.Status),
		DefaultSeats:      m.DefaultSeats,
		CreatedBy:         m.CreatedBy,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

type positionModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	ElectionID    string    `gorm:"column:election_id;index"`
	Type          string    `gorm:"column:type"`
	Title         string    `gorm:"column:title"`
	Description   string    `gorm:"column:description"`
	Mandates      int       `gorm:"column:mandates"`
	MandateMonths int       `gorm:"column:mandate_months"`
	Eligibility   string    `gorm:"column:eligibility"`
	Seq           int       `gorm:"column:seq"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (positionModel) TableName() string {
	return "election_positions"
}

func positionModelFromEntity(position entities.Position) positionModel {
	return positionModel{
		ID:            strings.TrimSpace(position.PositionID),
		ElectionID:    strings.TrimSpace(position.ElectionID),
		Type:          string(position.Type),
		Title:         position.Title,
		Description:   position.Description,
		Mandates:      position.Mandates,
		MandateMonths: position.MandateMonths,
		Eligibility:   position.Eligibility,
		CreatedAt:     position.CreatedAt.UTC(),
	}
}

func (m positionModel) toEntity() entities.Position {
	return entities.Position{
		PositionID:    m.ID,
		ElectionID:    m.ElectionID,
		Type:          entities.PositionType(m.Type),
		Title:         m.Title,
		Description:   m.Description,
		Mandates:      m.Mandates,
		MandateMonths: m.MandateMonths,
		Eligibility:   m.Eligibility,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

type candidacyModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	ElectionID  string     `gorm:"column:election_id;uniqueIndex:ux_candidacies_election_position_member,priority:1"`
	PositionID  string     `gorm:"column:position_id;uniqueIndex:ux_candidacies_election_position_member,priority:2"`
	MemberID    string     `gorm:"column:member_id;uniqueIndex:ux_candidacies_election_position_member,priority:3;index"`
	Motivation  string     `gorm:"column:motivation"`
	Programme   string     `gorm:"column:programme"`
	Documents   string     `gorm:"column:documents;type:text"`
	Status      string     `gorm:"column:status"`
	ValidatedBy string     `gorm:"column:validated_by"`
	ValidatedAt *time.Time `gorm:"column:validated_at"`
	Comments    string     `gorm:"column:comments"`
	Seq         int        `gorm:"column:seq"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (candidacyModel) TableName() string {
	return "candidacies"
}

func candidacyModelFromEntity(candidacy entities.Candidacy) (candidacyModel, error) {
	documents, err := encodeDocuments(candidacy.Documents)
	if err != nil {
		return candidacyModel{}, err
	}
	return candidacyModel{
		ID:          strings.TrimSpace(candidacy.CandidacyID),
		ElectionID:  strings.TrimSpace(candidacy.ElectionID),
		PositionID:  strings.TrimSpace(candidacy.PositionID),
		MemberID:    strings.TrimSpace(candidacy.MemberID),
		Motivation:  candidacy.Motivation,
		Programme:   candidacy.Programme,
		Documents:   documents,
		Status:      string(candidacy.Status),
		ValidatedBy: candidacy.ValidatedBy,
		ValidatedAt: normalizeOptionalTime(candidacy.ValidatedAt),
		Comments:    candidacy.Comments,
		CreatedAt:   candidacy.CreatedAt.UTC(),
		UpdatedAt:   candidacy.UpdatedAt.UTC(),
	}, nil
}

func (m candidacyModel) toEntity() entities.Candidacy {
	return entities.Candidacy{
		CandidacyID: m.ID,
		ElectionID:  m.ElectionID,
		PositionID:  m.PositionID,
		MemberID:    m.MemberID,
		Motivation:  m.Motivation,
		Programme:   m.Programme,
		Documents:   decodeDocuments(m.Documents),
		Status:      entities.CandidacyStatus(m.Status),
		ValidatedBy: m.ValidatedBy,
		ValidatedAt: normalizeOptionalTime(m.ValidatedAt),
		Comments:    m.Comments,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type voteModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	ElectionID  string    `gorm:"column:election_id;uniqueIndex:ux_votes_election_position_member,priority:1"`
	PositionID  string    `gorm:"column:position_id;uniqueIndex:ux_votes_election_position_member,priority:2"`
	MemberID    string    `gorm:"column:member_id;uniqueIndex:ux_votes_election_position_member,priority:3"`
	CandidacyID *string   `gorm:"column:candidacy_id"`
	Status      string    `gorm:"column:status"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	return voteModel{
		ID:          strings.TrimSpace(vote.VoteID),
		ElectionID:  strings.TrimSpace(vote.ElectionID),
		PositionID:  strings.TrimSpace(vote.PositionID),
		MemberID:    strings.TrimSpace(vote.MemberID),
		CandidacyID: vote.CandidacyID,
		Status:      string(vote.Status),
		CreatedAt:   vote.CreatedAt.UTC(),
	}
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:      m.ID,
		ElectionID:  m.ElectionID,
		PositionID:  m.PositionID,
		MemberID:    m.MemberID,
		CandidacyID: m.CandidacyID,
		Status:      entities.VoteStatus(m.Status),
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "election_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "election_event_dedup"
}

// userModel and memberModel are read-only projections of the identity
// provider's tables.
type userModel struct {
	ID   string `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name"`
	Role string `gorm:"column:role"`
}

func (userModel) TableName() string {
	return "users"
}

type memberModel struct {
	ID        string `gorm:"column:id;primaryKey"`
	UserID    string `gorm:"column:user_id;uniqueIndex"`
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
	Email     string `gorm:"column:email"`
}

func (memberModel) TableName() string {
	return "members"
}

func (m memberModel) toEntity() entities.Member {
	return entities.Member{
		MemberID:  m.ID,
		UserID:    m.UserID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     m.Email,
	}
}

func toCandidacyEntities(rows []candidacyModel) []entities.Candidacy {
	items := make([]entities.Candidacy, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func toVoteEntities(rows []voteModel) []entities.Vote {
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func encodeDocuments(documents []string) (string, error) {
	if len(documents) == 0 {
		return "[]", nil
	}
	payload, err := json.Marshal(documents)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func decodeDocuments(raw string) []string {
	var documents []string
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &documents); err != nil {
		return nil
	}
	if len(documents) == 0 {
		return nil
	}
	return documents
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
