package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "agora/contexts/governance/election-service/application"
	"agora/contexts/governance/election-service/domain/entities"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
	"agora/contexts/governance/election-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	candidacyIdentityIndex = "ux_candidacies_election_position_member"
	voteIdentityIndex      = "ux_votes_election_position_member"
)

// Repository persists the election-service aggregates through gorm. It works
// against postgres in production and sqlite in local runs and tests.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the tables, including the composite unique
// indexes that back the one-candidacy and one-vote rules.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&electionModel{},
		&positionModel{},
		&candidacyModel{},
		&voteModel{},
		&outboxModel{},
		&eventDedupModel{},
		&userModel{},
		&memberModel{},
	)
}

func (r *Repository) CreateElection(
	ctx context.Context,
	election entities.Election,
	positions []entities.Position,
	events ...ports.EventEnvelope,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := electionModelFromEntity(election)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return r.logError("election_repo_create_election_failed", err, "election_id", election.ElectionID)
		}
		for i, position := range positions {
			positionRow := positionModelFromEntity(position)
			positionRow.Seq = i
			if err := tx.Create(&positionRow).Error; err != nil {
				return r.logError("election_repo_create_position_failed", err,
					"election_id", election.ElectionID,
					"position_id", position.PositionID,
				)
			}
		}
		return r.appendOutbox(tx, events)
	})
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("election_repo_get_election_failed", err, "election_id", strings.TrimSpace(electionID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListElections(ctx context.Context, status entities.ElectionStatus) ([]entities.Election, error) {
	tx := r.db.WithContext(ctx).Model(&electionModel{})
	if status != "" {
		tx = tx.Where("status = ?", string(status))
	}
	var rows []electionModel
	if err := tx.Order("opens_at DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_elections_failed", err, "status", string(status))
	}
	items := make([]entities.Election, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdateElection(ctx context.Context, election entities.Election) error {
	row := electionModelFromEntity(election)
	result := r.db.WithContext(ctx).
		Model(&electionModel{}).
		Where("id = ?", row.ID).
		Where("status = ?", string(entities.ElectionStatusPreparation)).
		Updates(map[string]any{
			"title":               row.Title,
			"description":         row.Description,
			"opens_at":            row.OpensAt,
			"closes_at":           row.ClosesAt,
			"ballot_at":           row.BallotAt,
			"candidacy_closes_at": row.CandidacyClosesAt,
			"quorum_percent":      row.QuorumPercent,
			"majority_rule":       row.MajorityRule,
			"default_seats":       row.DefaultSeats,
			"updated_at":          row.UpdatedAt,
		})
	if result.Error != nil {
		return r.logError("election_repo_update_election_failed", result.Error, "election_id", row.ID)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetElection(ctx, row.ID); err != nil {
			return err
		}
		return domainerrors.ErrElectionLocked
	}
	return nil
}

// TransitionElection is a compare-and-set on the status column; a concurrent
// transition makes it fail with ErrConflict.
func (r *Repository) TransitionElection(
	ctx context.Context,
	transition ports.ElectionTransition,
	events ...ports.EventEnvelope,
) (entities.Election, error) {
	var updated entities.Election
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     string(transition.To),
			"updated_at": transition.At.UTC(),
		}
		if transition.ClosesAt != nil {
			updates["closes_at"] = transition.ClosesAt.UTC()
		}
		result := tx.Model(&electionModel{}).
			Where("id = ?", strings.TrimSpace(transition.ElectionID)).
			Where("status = ?", string(transition.From)).
			Updates(updates)
		if result.Error != nil {
			return r.logError("election_repo_transition_failed", result.Error,
				"election_id", transition.ElectionID,
				"to_status", string(transition.To),
			)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&electionModel{}).Where("id = ?", strings.TrimSpace(transition.ElectionID)).Count(&count).Error; err != nil {
				return r.logError("election_repo_transition_lookup_failed", err, "election_id", transition.ElectionID)
			}
			if count == 0 {
				return domainerrors.ErrElectionNotFound
			}
			return domainerrors.ErrConflict
		}
		var row electionModel
		if err := tx.Where("id = ?", strings.TrimSpace(transition.ElectionID)).First(&row).Error; err != nil {
			return r.logError("election_repo_transition_reload_failed", err, "election_id", transition.ElectionID)
		}
		updated = row.toEntity()
		return r.appendOutbox(tx, events)
	})
	if err != nil {
		return entities.Election{}, err
	}
	return updated, nil
}

func (r *Repository) ListElectionsDueForClose(ctx context.Context, now time.Time, limit int) ([]entities.Election, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []electionModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.ElectionStatusOpen)).
		Where("closes_at <= ?", now.UTC()).
		Order("closes_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_due_failed", err, "limit", limit)
	}
	items := make([]entities.Election, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CreatePosition(ctx context.Context, position entities.Position) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		election, err := r.lockElection(tx, position.ElectionID)
		if err != nil {
			return err
		}
		if election.Status != string(entities.ElectionStatusPreparation) {
			return domainerrors.ErrElectionLocked
		}
		row := positionModelFromEntity(position)
		if err := tx.Create(&row).Error; err != nil {
			return r.logError("election_repo_create_position_failed", err,
				"election_id", position.ElectionID,
				"position_id", position.PositionID,
			)
		}
		return nil
	})
}

func (r *Repository) DeletePosition(ctx context.Context, electionID string, positionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		election, err := r.lockElection(tx, electionID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrElectionNotFound) {
				return domainerrors.ErrPositionNotFound
			}
			return err
		}
		if election.Status != string(entities.ElectionStatusPreparation) {
			return domainerrors.ErrElectionLocked
		}
		result := tx.
			Where("id = ?", strings.TrimSpace(positionID)).
			Where("election_id = ?", election.ID).
			Delete(&positionModel{})
		if result.Error != nil {
			return r.logError("election_repo_delete_position_failed", result.Error,
				"election_id", election.ID,
				"position_id", strings.TrimSpace(positionID),
			)
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrPositionNotFound
		}
		return nil
	})
}

func (r *Repository) GetPosition(ctx context.Context, positionID string) (entities.Position, error) {
	var row positionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(positionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Position{}, domainerrors.ErrPositionNotFound
		}
		return entities.Position{}, r.logError("election_repo_get_position_failed", err, "position_id", strings.TrimSpace(positionID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListPositions(ctx context.Context, electionID string) ([]entities.Position, error) {
	var rows []positionModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_positions_failed", err, "election_id", strings.TrimSpace(electionID))
	}
	items := make([]entities.Position, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// CreateCandidacies inserts every row or none. The election row is locked so a
// concurrent close cannot slip between the status check and the insert.
func (r *Repository) CreateCandidacies(
	ctx context.Context,
	candidacies []entities.Candidacy,
	events ...ports.EventEnvelope,
) error {
	if len(candidacies) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		checked := map[string]bool{}
		for i, candidacy := range candidacies {
			if !checked[candidacy.ElectionID] {
				if err := r.ensureOpen(tx, candidacy.ElectionID); err != nil {
					return err
				}
				checked[candidacy.ElectionID] = true
			}
			if err := r.ensurePositionOf(tx, candidacy.ElectionID, candidacy.PositionID); err != nil {
				return err
			}
			row, err := candidacyModelFromEntity(candidacy)
			if err != nil {
				return err
			}
			row.Seq = i
			if err := tx.Create(&row).Error; err != nil {
				if isUniqueViolation(err) {
					return duplicateCandidacyError(err)
				}
				return r.logError("election_repo_create_candidacy_failed", err,
					"election_id", candidacy.ElectionID,
					"position_id", candidacy.PositionID,
					"member_id", candidacy.MemberID,
				)
			}
		}
		return r.appendOutbox(tx, events)
	})
}

func (r *Repository) GetCandidacy(ctx context.Context, candidacyID string) (entities.Candidacy, error) {
	var row candidacyModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(candidacyID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Candidacy{}, domainerrors.ErrCandidacyNotFound
		}
		return entities.Candidacy{}, r.logError("election_repo_get_candidacy_failed", err, "candidacy_id", strings.TrimSpace(candidacyID))
	}
	return row.toEntity(), nil
}

func (r *Repository) FindCandidacy(
	ctx context.Context,
	electionID string,
	positionID string,
	memberID string,
) (entities.Candidacy, bool, error) {
	var row candidacyModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("position_id = ?", strings.TrimSpace(positionID)).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Candidacy{}, false, nil
		}
		return entities.Candidacy{}, false, r.logError("election_repo_find_candidacy_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position_id", strings.TrimSpace(positionID),
			"member_id", strings.TrimSpace(memberID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListCandidaciesByElection(ctx context.Context, electionID string) ([]entities.Candidacy, error) {
	var rows []candidacyModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_candidacies_failed", err, "election_id", strings.TrimSpace(electionID))
	}
	return toCandidacyEntities(rows), nil
}

func (r *Repository) ListCandidaciesByMember(ctx context.Context, memberID string, electionID string) ([]entities.Candidacy, error) {
	tx := r.db.WithContext(ctx).Model(&candidacyModel{}).
		Where("member_id = ?", strings.TrimSpace(memberID))
	if strings.TrimSpace(electionID) != "" {
		tx = tx.Where("election_id = ?", strings.TrimSpace(electionID))
	}
	var rows []candidacyModel
	if err := tx.Order("created_at ASC").Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_member_candidacies_failed", err,
			"member_id", strings.TrimSpace(memberID),
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return toCandidacyEntities(rows), nil
}

func (r *Repository) UpdateCandidacy(ctx context.Context, candidacy entities.Candidacy) error {
	documents, err := encodeDocuments(candidacy.Documents)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensureOpen(tx, candidacy.ElectionID); err != nil {
			return err
		}
		result := tx.Model(&candidacyModel{}).
			Where("id = ?", strings.TrimSpace(candidacy.CandidacyID)).
			Where("status = ?", string(entities.CandidacyStatusPending)).
			Updates(map[string]any{
				"motivation": candidacy.Motivation,
				"programme":  candidacy.Programme,
				"documents":  documents,
				"updated_at": candidacy.UpdatedAt.UTC(),
			})
		if result.Error != nil {
			return r.logError("election_repo_update_candidacy_failed", result.Error, "candidacy_id", candidacy.CandidacyID)
		}
		if result.RowsAffected == 0 {
			return r.candidacyWriteMiss(tx, candidacy.CandidacyID)
		}
		return nil
	})
}

// ApplyCandidacyPositionChange deletes, updates and inserts in that order in
// a single transaction. Removing first frees the unique slot of a position
// that is dropped and re-added in the same change. A candidacy that already
// received a ballot is never removed.
func (r *Repository) ApplyCandidacyPositionChange(
	ctx context.Context,
	change entities.CandidacyPositionChange,
	events ...ports.EventEnvelope,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensureOpen(tx, change.ElectionID); err != nil {
			return err
		}
		if len(change.Remove) > 0 {
			var ballots int64
			if err := tx.Model(&voteModel{}).
				Where("candidacy_id IN ?", change.Remove).
				Count(&ballots).Error; err != nil {
				return r.logError("election_repo_count_candidacy_votes_failed", err,
					"election_id", change.ElectionID,
					"member_id", change.MemberID,
				)
			}
			if ballots > 0 {
				return domainerrors.ErrCandidacyHasVotes
			}
			result := tx.
				Where("id IN ?", change.Remove).
				Where("election_id = ?", change.ElectionID).
				Where("member_id = ?", change.MemberID).
				Where("status = ?", string(entities.CandidacyStatusPending)).
				Delete(&candidacyModel{})
			if result.Error != nil {
				return r.logError("election_repo_remove_candidacies_failed", result.Error,
					"election_id", change.ElectionID,
					"member_id", change.MemberID,
				)
			}
			if result.RowsAffected != int64(len(change.Remove)) {
				return domainerrors.ErrCandidacyDecided
			}
		}
		if change.Update != nil {
			result := tx.Model(&candidacyModel{}).
				Where("id = ?", change.Update.CandidacyID).
				Where("status = ?", string(entities.CandidacyStatusPending)).
				Updates(map[string]any{
					"motivation": change.Update.Motivation,
					"programme":  change.Update.Programme,
					"updated_at": change.Update.UpdatedAt.UTC(),
				})
			if result.Error != nil {
				return r.logError("election_repo_update_reference_candidacy_failed", result.Error,
					"candidacy_id", change.Update.CandidacyID,
				)
			}
			if result.RowsAffected == 0 {
				return r.candidacyWriteMiss(tx, change.Update.CandidacyID)
			}
		}
		for i, candidacy := range change.Add {
			if err := r.ensurePositionOf(tx, change.ElectionID, candidacy.PositionID); err != nil {
				return err
			}
			row, err := candidacyModelFromEntity(candidacy)
			if err != nil {
				return err
			}
			row.Seq = i
			if err := tx.Create(&row).Error; err != nil {
				if isUniqueViolation(err) {
					return duplicateCandidacyError(err)
				}
				return r.logError("election_repo_add_candidacy_failed", err,
					"election_id", change.ElectionID,
					"position_id", candidacy.PositionID,
				)
			}
		}
		return r.appendOutbox(tx, events)
	})
}

// DecideCandidacy only moves a candidacy out of EN_ATTENTE once.
func (r *Repository) DecideCandidacy(ctx context.Context, candidacy entities.Candidacy, events ...ports.EventEnvelope) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&candidacyModel{}).
			Where("id = ?", strings.TrimSpace(candidacy.CandidacyID)).
			Where("status = ?", string(entities.CandidacyStatusPending)).
			Updates(map[string]any{
				"status":       string(candidacy.Status),
				"validated_by": candidacy.ValidatedBy,
				"validated_at": normalizeOptionalTime(candidacy.ValidatedAt),
				"comments":     candidacy.Comments,
				"updated_at":   candidacy.UpdatedAt.UTC(),
			})
		if result.Error != nil {
			return r.logError("election_repo_decide_candidacy_failed", result.Error, "candidacy_id", candidacy.CandidacyID)
		}
		if result.RowsAffected == 0 {
			return r.candidacyWriteMiss(tx, candidacy.CandidacyID)
		}
		return r.appendOutbox(tx, events)
	})
}

// CreateVote relies on the unique index for the one-ballot rule; the
// election row lock serializes the insert against a concurrent close.
func (r *Repository) CreateVote(ctx context.Context, vote entities.Vote, events ...ports.EventEnvelope) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensureOpen(tx, vote.ElectionID); err != nil {
			return err
		}
		row := voteModelFromEntity(vote)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				if name := constraintName(err); name != "" && name != voteIdentityIndex {
					return domainerrors.ErrConflict
				}
				return domainerrors.ErrDuplicateVote
			}
			return r.logError("election_repo_create_vote_failed", err,
				"election_id", vote.ElectionID,
				"position_id", vote.PositionID,
			)
		}
		return r.appendOutbox(tx, events)
	})
}

func (r *Repository) FindVote(ctx context.Context, electionID string, positionID string, memberID string) (entities.Vote, bool, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("position_id = ?", strings.TrimSpace(positionID)).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, false, nil
		}
		return entities.Vote{}, false, r.logError("election_repo_find_vote_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position_id", strings.TrimSpace(positionID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListVotesByElection(ctx context.Context, electionID string) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_votes_failed", err, "election_id", strings.TrimSpace(electionID))
	}
	return toVoteEntities(rows), nil
}

func (r *Repository) ListVotesByMember(ctx context.Context, electionID string, memberID string) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_member_votes_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return toVoteEntities(rows), nil
}

func (r *Repository) GetActor(ctx context.Context, userID string) (entities.Actor, error) {
	var user userModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(userID)).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Actor{}, domainerrors.ErrMemberNotFound
		}
		return entities.Actor{}, r.logError("election_repo_get_actor_failed", err, "user_id", strings.TrimSpace(userID))
	}
	actor := entities.Actor{
		UserID: user.ID,
		Role:   entities.Role(user.Role),
	}
	var member memberModel
	err = r.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&member).Error
	switch {
	case err == nil:
		actor.MemberID = member.ID
		actor.DisplayName = member.toEntity().DisplayName()
	case errors.Is(err, gorm.ErrRecordNotFound):
		actor.DisplayName = user.Name
	default:
		return entities.Actor{}, r.logError("election_repo_get_actor_member_failed", err, "user_id", user.ID)
	}
	return actor, nil
}

func (r *Repository) GetMember(ctx context.Context, memberID string) (entities.Member, error) {
	var row memberModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(memberID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Member{}, domainerrors.ErrMemberNotFound
		}
		return entities.Member{}, r.logError("election_repo_get_member_failed", err, "member_id", strings.TrimSpace(memberID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Order("outbox_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("election_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("election_repo_reserve_event_failed", create.Error,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("election_repo_reserve_event_load_existing_failed", err,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) appendOutbox(tx *gorm.DB, events []ports.EventEnvelope) error {
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return r.logError("election_repo_append_outbox_marshal_failed", err,
				"event_id", strings.TrimSpace(envelope.EventID),
				"event_type", strings.TrimSpace(envelope.EventType),
			)
		}
		row := outboxModel{
			OutboxID:     strings.TrimSpace(envelope.EventID),
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			Status:       outboxStatusPending,
			CreatedAt:    envelope.OccurredAt.UTC(),
		}
		if row.OutboxID == "" {
			row.OutboxID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = time.Now().UTC()
		}
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outbox_id"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			return r.logError("election_repo_append_outbox_insert_failed", create.Error,
				"outbox_id", row.OutboxID,
			)
		}
		if create.RowsAffected > 0 {
			continue
		}
		var existing outboxModel
		if err := tx.Select("payload").Where("outbox_id = ?", row.OutboxID).First(&existing).Error; err != nil {
			return r.logError("election_repo_append_outbox_load_existing_failed", err,
				"outbox_id", row.OutboxID,
			)
		}
		if !bytes.Equal(existing.Payload, row.Payload) {
			return domainerrors.ErrConflict
		}
	}
	return nil
}

// lockElection takes a row lock on postgres. sqlite serializes writers on its
// own and does not understand FOR UPDATE.
func (r *Repository) lockElection(tx *gorm.DB, electionID string) (electionModel, error) {
	query := tx.Where("id = ?", strings.TrimSpace(electionID))
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row electionModel
	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return electionModel{}, domainerrors.ErrElectionNotFound
		}
		return electionModel{}, r.logError("election_repo_lock_election_failed", err, "election_id", strings.TrimSpace(electionID))
	}
	return row, nil
}

func (r *Repository) ensureOpen(tx *gorm.DB, electionID string) error {
	row, err := r.lockElection(tx, electionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrElectionNotFound) {
			return domainerrors.ErrElectionNotOpen
		}
		return err
	}
	if row.Status != string(entities.ElectionStatusOpen) {
		return domainerrors.ErrElectionNotOpen
	}
	return nil
}

func (r *Repository) ensurePositionOf(tx *gorm.DB, electionID string, positionID string) error {
	var count int64
	if err := tx.Model(&positionModel{}).
		Where("id = ?", positionID).
		Where("election_id = ?", electionID).
		Count(&count).Error; err != nil {
		return r.logError("election_repo_check_position_failed", err, "position_id", positionID)
	}
	if count == 0 {
		return domainerrors.ErrPositionNotFound
	}
	return nil
}

// candidacyWriteMiss explains a guarded update that touched no row.
func (r *Repository) candidacyWriteMiss(tx *gorm.DB, candidacyID string) error {
	var count int64
	if err := tx.Model(&candidacyModel{}).Where("id = ?", strings.TrimSpace(candidacyID)).Count(&count).Error; err != nil {
		return r.logError("election_repo_candidacy_lookup_failed", err, "candidacy_id", candidacyID)
	}
	if count == 0 {
		return domainerrors.ErrCandidacyNotFound
	}
	return domainerrors.ErrCandidacyDecided
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", application.ModuleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("election repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// duplicateCandidacyError maps a unique violation on the candidacy identity
// index back to the domain error. Other constraints are a storage conflict.
func duplicateCandidacyError(err error) error {
	if name := constraintName(err); name != "" && name != candidacyIdentityIndex {
		return domainerrors.ErrConflict
	}
	return domainerrors.ErrDuplicateCandidacy
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

var _ ports.ElectionRepository = (*Repository)(nil)
var _ ports.CandidacyRepository = (*Repository)(nil)
var _ ports.VoteRepository = (*Repository)(nil)
var _ ports.Directory = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
