package postgresadapter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"agora/contexts/governance/election-service/domain/entities"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
	"agora/contexts/governance/election-service/ports"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "elections.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepository(db, nil), db
}

func seedElection(t *testing.T, repo *Repository, status entities.ElectionStatus) {
	t.Helper()
	now := time.Now().UTC()
	election := entities.Election{
		ElectionID:   "el-1",
		Title:        "Assemblée générale",
		OpensAt:      now.Add(-time.Hour),
		ClosesAt:     now.Add(time.Hour),
		MajorityRule: entities.MajorityRuleAbsolute,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	positions := []entities.Position{
		{PositionID: "pos-1", ElectionID: "el-1", Type: entities.PositionTypePresident, Title: "Président", Mandates: 1, CreatedAt: now},
		{PositionID: "pos-2", ElectionID: "el-1", Type: entities.PositionTypeTreasurer, Title: "Trésorier", Mandates: 1, CreatedAt: now},
	}
	if err := repo.CreateElection(context.Background(), election, positions); err != nil {
		t.Fatalf("seed election: %v", err)
	}
}

func pendingCandidacy(id string, positionID string) entities.Candidacy {
	now := time.Now().UTC()
	return entities.Candidacy{
		CandidacyID: id,
		ElectionID:  "el-1",
		PositionID:  positionID,
		MemberID:    "m-1",
		Motivation:  "Servir l'association",
		Documents:   []string{"cv.pdf"},
		Status:      entities.CandidacyStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestRepositoryElectionRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t)
	seedElection(t, repo, entities.ElectionStatusPreparation)
	ctx := context.Background()

	election, err := repo.GetElection(ctx, "el-1")
	if err != nil {
		t.Fatalf("get election: %v", err)
	}
	if election.Status != entities.ElectionStatusPreparation || election.MajorityRule != entities.MajorityRuleAbsolute {
		t.Fatalf("unexpected election: %+v", election)
	}
	positions, err := repo.ListPositions(ctx, "el-1")
	if err != nil {
		t.Fatalf("list positions: %v", err)
	}
	if len(positions) != 2 || positions[0].PositionID != "pos-1" || positions[1].PositionID != "pos-2" {
		t.Fatalf("expected positions in creation order, got %+v", positions)
	}
	if _, err := repo.GetElection(ctx, "missing"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected election not found, got %v", err)
	}
}

func TestRepositoryTransitionIsCompareAndSet(t *testing.T) {
	repo, _ := newTestRepository(t)
	seedElection(t, repo, entities.ElectionStatusPreparation)
	ctx := context.Background()
	transition := ports.ElectionTransition{
		ElectionID: "el-1",
		From:       entities.ElectionStatusPreparation,
		To:         entities.ElectionStatusOpen,
		At:         time.Now().UTC(),
	}
	opened, err := repo.TransitionElection(ctx, transition)
	if err != nil {
		t.Fatalf("open election: %v", err)
	}
	if opened.Status != entities.ElectionStatusOpen {
		t.Fatalf("expected open status, got %s", opened.Status)
	}
	if _, err := repo.TransitionElection(ctx, transition); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict on stale transition, got %v", err)
	}
}

func TestRepositoryDuplicateCandidacyRollsBackBatch(t *testing.T) {
	repo, _ := newTestRepository(t)
	seedElection(t, repo, entities.ElectionStatusOpen)
	ctx := context.Background()

	if err := repo.CreateCandidacies(ctx, []entities.Candidacy{pendingCandidacy("c-1", "pos-1")}); err != nil {
		t.Fatalf("first candidacy: %v", err)
	}
	err := repo.CreateCandidacies(ctx, []entities.Candidacy{
		pendingCandidacy("c-2", "pos-2"),
		pendingCandidacy("c-3", "pos-1"),
	})
	if !errors.Is(err, domainerrors.ErrDuplicateCandidacy) {
		t.Fatalf("expected duplicate candidacy, got %v", err)
	}
	items, err := repo.ListCandidaciesByMember(ctx, "m-1", "el-1")
	if err != nil {
		t.Fatalf("list candidacies: %v", err)
	}
	if len(items) != 1 || items[0].CandidacyID != "c-1" {
		t.Fatalf("expected only the first candidacy, got %+v", items)
	}
	if len(items[0].Documents) != 1 || items[0].Documents[0] != "cv.pdf" {
		t.Fatalf("documents not preserved: %+v", items[0].Documents)
	}
}

func TestRepositoryRejectsWritesOnClosedElection(t *testing.T) {
	repo, _ := newTestRepository(t)
	seedElection(t, repo, entities.ElectionStatusClosed)
	ctx := context.Background()

	if err := repo.CreateCandidacies(ctx, []entities.Candidacy{pendingCandidacy("c-1", "pos-1")}); !errors.Is(err, domainerrors.ErrElectionNotOpen) {
		t.Fatalf("expected election not open for candidacy, got %v", err)
	}
	vote := entities.Vote{VoteID: "v-1", ElectionID: "el-1", PositionID: "pos-1", MemberID: "m-1", Status: entities.VoteStatusBlank, CreatedAt: time.Now().UTC()}
	if err := repo.CreateVote(ctx, vote); !errors.Is(err, domainerrors.ErrElectionNotOpen) {
		t.Fatalf("expected election not open for vote, got %v", err)
	}
}

func TestRepositoryDuplicateVote(t *testing.T) {
	repo, _ := newTestRepository(t)
	seedElection(t, repo, entities.ElectionStatusOpen)
	ctx := context.Background()
	if err := repo.CreateCandidacies(ctx, []entities.Candidacy{pendingCandidacy("c-1", "pos-1")}); err != nil {
		t.Fatalf("seed candidacy: %v", err)
	}
	candidacyID := "c-1"
	vote := entities.Vote{
		VoteID:      "v-1",
		ElectionID:  "el-1",
		PositionID:  "pos-1",
		MemberID:    "m-2",
		CandidacyID: &candidacyID,
		Status:      entities.VoteStatusValid,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.CreateVote(ctx, vote); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	vote.VoteID = "v-2"
	vote.CandidacyID = nil
	vote.Status = entities.VoteStatusBlank
	if err := repo.CreateVote(ctx, vote); !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected duplicate vote, got %v", err)
	}

	stored, found, err := repo.FindVote(ctx, "el-1", "pos-1", "m-2")
	if err != nil || !found {
		t.Fatalf("find vote: found=%v err=%v", found, err)
	}
	if stored.IsBlank() || *stored.CandidacyID != "c-1" {
		t.Fatalf("first ballot must be kept, got %+v", stored)
	}
}

func TestRepositoryPositionChangeIsAtomic(t *testing.T) {
	repo, _ := newTestRepository(t)
	seedElection(t, repo, entities.ElectionStatusOpen)
	ctx := context.Background()
	if err := repo.CreateCandidacies(ctx, []entities.Candidacy{
		pendingCandidacy("c-1", "pos-1"),
		pendingCandidacy("c-2", "pos-2"),
	}); err != nil {
		t.Fatalf("seed candidacies: %v", err)
	}
	approved := pendingCandidacy("c-2", "pos-2")
	approved.Status = entities.CandidacyStatusApproved
	approved.ValidatedBy = "admin-1"
	if err := repo.DecideCandidacy(ctx, approved); err != nil {
		t.Fatalf("decide: %v", err)
	}

	err := repo.ApplyCandidacyPositionChange(ctx, entities.CandidacyPositionChange{
		ElectionID: "el-1",
		MemberID:   "m-1",
		Remove:     []string{"c-1", "c-2"},
	})
	if !errors.Is(err, domainerrors.ErrCandidacyDecided) {
		t.Fatalf("expected decided error, got %v", err)
	}
	items, _ := repo.ListCandidaciesByMember(ctx, "m-1", "el-1")
	if len(items) != 2 {
		t.Fatalf("rolled back change must keep both candidacies, got %+v", items)
	}

	err = repo.ApplyCandidacyPositionChange(ctx, entities.CandidacyPositionChange{
		ElectionID: "el-1",
		MemberID:   "m-1",
		Remove:     []string{"c-1"},
		Add:        []entities.Candidacy{pendingCandidacy("c-3", "pos-1")},
	})
	if err != nil {
		t.Fatalf("swap candidacy: %v", err)
	}
	if _, err := repo.GetCandidacy(ctx, "c-1"); !errors.Is(err, domainerrors.ErrCandidacyNotFound) {
		t.Fatalf("expected c-1 removed, got %v", err)
	}
	if _, err := repo.GetCandidacy(ctx, "c-3"); err != nil {
		t.Fatalf("expected c-3 stored: %v", err)
	}
}

func TestRepositoryDecideOnlyOnce(t *testing.T) {
	repo, _ := newTestRepository(t)
	seedElection(t, repo, entities.ElectionStatusOpen)
	ctx := context.Background()
	if err := repo.CreateCandidacies(ctx, []entities.Candidacy{pendingCandidacy("c-1", "pos-1")}); err != nil {
		t.Fatalf("seed candidacy: %v", err)
	}
	decision := pendingCandidacy("c-1", "pos-1")
	decision.Status = entities.CandidacyStatusRejected
	if err := repo.DecideCandidacy(ctx, decision); err != nil {
		t.Fatalf("reject: %v", err)
	}
	decision.Status = entities.CandidacyStatusApproved
	if err := repo.DecideCandidacy(ctx, decision); !errors.Is(err, domainerrors.ErrCandidacyDecided) {
		t.Fatalf("expected decided error, got %v", err)
	}
	decision.CandidacyID = "missing"
	if err := repo.DecideCandidacy(ctx, decision); !errors.Is(err, domainerrors.ErrCandidacyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRepositoryOutboxAndDedup(t *testing.T) {
	repo, _ := newTestRepository(t)
	seedElection(t, repo, entities.ElectionStatusOpen)
	ctx := context.Background()
	occurred := time.Now().UTC()
	event := ports.EventEnvelope{
		EventID:      "evt-1",
		EventType:    "candidacy.submitted",
		OccurredAt:   occurred,
		PartitionKey: "el-1",
		Data:         []byte(`{"candidacy_id":"c-1"}`),
	}
	if err := repo.CreateCandidacies(ctx, []entities.Candidacy{pendingCandidacy("c-1", "pos-1")}, event); err != nil {
		t.Fatalf("create with event: %v", err)
	}

	pending, err := repo.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(pending) != 1 || pending[0].OutboxID != "evt-1" || pending[0].EventType != "candidacy.submitted" {
		t.Fatalf("unexpected outbox: %+v", pending)
	}
	if err := repo.MarkOutboxPublished(ctx, "evt-1", time.Now()); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if pending, _ = repo.ListPendingOutbox(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected empty outbox, got %+v", pending)
	}
	if err := repo.MarkOutboxPublished(ctx, "missing", time.Now()); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict for unknown outbox row, got %v", err)
	}

	expires := time.Now().Add(time.Hour)
	duplicate, err := repo.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	if err != nil || duplicate {
		t.Fatalf("first reservation: duplicate=%v err=%v", duplicate, err)
	}
	duplicate, err = repo.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	if err != nil || !duplicate {
		t.Fatalf("replay: duplicate=%v err=%v", duplicate, err)
	}
	if _, err := repo.ReserveEvent(ctx, "evt-1", "hash-b", expires); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict on payload mismatch, got %v", err)
	}
}

func TestRepositoryDirectory(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	if err := db.Create(&userModel{ID: "u-1", Name: "awa", Role: string(entities.RoleMember)}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := db.Create(&memberModel{ID: "m-1", UserID: "u-1", FirstName: "Awa", LastName: "Diallo"}).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	if err := db.Create(&userModel{ID: "u-2", Name: "Secrétariat", Role: string(entities.RoleAdmin)}).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	actor, err := repo.GetActor(ctx, "u-1")
	if err != nil {
		t.Fatalf("get actor: %v", err)
	}
	if actor.MemberID != "m-1" || actor.DisplayName != "Awa Diallo" || actor.IsAdmin() {
		t.Fatalf("unexpected member actor: %+v", actor)
	}
	admin, err := repo.GetActor(ctx, "u-2")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if !admin.IsAdmin() || admin.IsMember() || admin.DisplayName != "Secrétariat" {
		t.Fatalf("unexpected admin actor: %+v", admin)
	}
	if _, err := repo.GetActor(ctx, "u-3"); !errors.Is(err, domainerrors.ErrMemberNotFound) {
		t.Fatalf("expected member not found, got %v", err)
	}
}

func TestRepositoryKeepsCandidacyWithBallots(t *testing.T) {
	repo, _ := newTestRepository(t)
	seedElection(t, repo, entities.ElectionStatusOpen)
	ctx := context.Background()
	if err := repo.CreateCandidacies(ctx, []entities.Candidacy{
		pendingCandidacy("c-1", "pos-1"),
		pendingCandidacy("c-2", "pos-2"),
	}); err != nil {
		t.Fatalf("seed candidacies: %v", err)
	}
	candidacyID := "c-1"
	if err := repo.CreateVote(ctx, entities.Vote{
		VoteID:      "v-1",
		ElectionID:  "el-1",
		PositionID:  "pos-1",
		MemberID:    "m-9",
		CandidacyID: &candidacyID,
		Status:      entities.VoteStatusValid,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("cast vote: %v", err)
	}

	err := repo.ApplyCandidacyPositionChange(ctx, entities.CandidacyPositionChange{
		ElectionID: "el-1",
		MemberID:   "m-1",
		Remove:     []string{"c-1"},
	}, ports.EventEnvelope{EventID: "evt-1", EventType: "candidacy.positions_updated"})
	if !errors.Is(err, domainerrors.ErrCandidacyHasVotes) {
		t.Fatalf("expected candidacy has votes, got %v", err)
	}
	if _, err := repo.GetCandidacy(ctx, "c-1"); err != nil {
		t.Fatalf("voted candidacy must survive: %v", err)
	}
	if pending, _ := repo.ListPendingOutbox(ctx, 10); len(pending) != 0 {
		t.Fatalf("refused change must not write events, got %+v", pending)
	}
}
