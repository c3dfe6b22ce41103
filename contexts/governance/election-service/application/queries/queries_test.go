package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"agora/contexts/governance/election-service/adapters/memory"
	"agora/contexts/governance/election-service/domain/entities"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
)

type seeded struct {
	store    *memory.Store
	election entities.Election
	p1       entities.Position
	p2       entities.Position
	c1       entities.Candidacy
	c2       entities.Candidacy
}

// seedElection builds election E with positions P1 and P2 and candidacies C1
// (member A) and C2 (member B) on P1.
func seedElection(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	store.SetActor(entities.Actor{UserID: "user-a", Role: entities.RoleMember, MemberID: "member-a"})
	store.SetMember(entities.Member{MemberID: "member-a", UserID: "user-a", FirstName: "Awa", LastName: "Traoré"})
	store.SetActor(entities.Actor{UserID: "user-b", Role: entities.RoleMember, MemberID: "member-b", DisplayName: "Bakary"})
	store.SetActor(entities.Actor{UserID: "user-z", Role: entities.RoleMember, MemberID: "member-z", DisplayName: "Zeinab"})
	store.SetActor(entities.Actor{UserID: "user-y", Role: entities.RoleMember, MemberID: "member-y", DisplayName: "Yacouba"})
	store.SetActor(entities.Actor{UserID: "admin-1", Role: entities.RoleAdmin})

	now := time.Now().UTC()
	election := entities.Election{
		ElectionID:    "election-e",
		Title:         "Assemblée générale",
		OpensAt:       now.Add(-time.Hour),
		ClosesAt:      now.Add(time.Hour),
		BallotAt:      now.Add(time.Hour),
		QuorumPercent: 25,
		MajorityRule:  entities.MajorityRuleRelative,
		Status:        entities.ElectionStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p1 := entities.Position{PositionID: "p1", ElectionID: election.ElectionID, Type: entities.PositionTypePresident, Title: "Président", Mandates: 1}
	p2 := entities.Position{PositionID: "p2", ElectionID: election.ElectionID, Type: entities.PositionTypeTreasurer, Title: "Trésorier", Mandates: 1}
	if err := store.CreateElection(ctx, election, []entities.Position{p1, p2}); err != nil {
		t.Fatalf("seed election: %v", err)
	}
	c1 := entities.Candidacy{CandidacyID: "c1", ElectionID: election.ElectionID, PositionID: "p1", MemberID: "member-a", Status: entities.CandidacyStatusPending, CreatedAt: now}
	c2 := entities.Candidacy{CandidacyID: "c2", ElectionID: election.ElectionID, PositionID: "p1", MemberID: "member-b", Status: entities.CandidacyStatusApproved, CreatedAt: now}
	if err := store.CreateCandidacies(ctx, []entities.Candidacy{c1, c2}); err != nil {
		t.Fatalf("seed candidacies: %v", err)
	}
	return seeded{store: store, election: election, p1: p1, p2: p2, c1: c1, c2: c2}
}

func (s seeded) vote(t *testing.T, voteID string, memberID string, positionID string, candidacyID string) {
	t.Helper()
	vote := entities.Vote{
		VoteID:     voteID,
		ElectionID: s.election.ElectionID,
		PositionID: positionID,
		MemberID:   memberID,
		Status:     entities.VoteStatusBlank,
		CreatedAt:  time.Now().UTC(),
	}
	if candidacyID != "" {
		id := candidacyID
		vote.CandidacyID = &id
		vote.Status = entities.VoteStatusValid
	}
	if err := s.store.CreateVote(context.Background(), vote); err != nil {
		t.Fatalf("seed vote: %v", err)
	}
}

func (s seeded) results() ResultsUseCase {
	return ResultsUseCase{Elections: s.store, Candidacies: s.store, Votes: s.store, Directory: s.store}
}

func TestComputeResultsScenario(t *testing.T) {
	s := seedElection(t)
	s.vote(t, "v1", "member-z", "p1", "c1")
	s.vote(t, "v2", "member-y", "p1", "")

	results, err := s.results().ComputeResults(context.Background(), s.election.ElectionID)
	if err != nil {
		t.Fatalf("compute results failed: %v", err)
	}
	if len(results.Positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(results.Positions))
	}
	p1 := results.Positions[0]
	if p1.Position.PositionID != "p1" || p1.TotalVotes != 2 || p1.BlankVotes != 1 {
		t.Fatalf("unexpected p1 totals: %+v", p1)
	}
	if len(p1.Candidacies) != 2 {
		t.Fatalf("expected 2 candidacies on p1, got %d", len(p1.Candidacies))
	}
	first, second := p1.Candidacies[0], p1.Candidacies[1]
	if first.Candidacy.Candidacy.CandidacyID != "c1" || first.VotesCount != 1 || first.Percentage != 50 {
		t.Fatalf("unexpected c1 result: %+v", first)
	}
	if second.Candidacy.Candidacy.CandidacyID != "c2" || second.VotesCount != 0 || second.Percentage != 0 {
		t.Fatalf("unexpected c2 result: %+v", second)
	}
	if first.Candidacy.MemberName != "Awa Traoré" {
		t.Fatalf("expected member display name joined, got %q", first.Candidacy.MemberName)
	}

	p2 := results.Positions[1]
	if p2.TotalVotes != 0 || len(p2.Candidacies) != 0 {
		t.Fatalf("expected empty p2, got %+v", p2)
	}
	if results.Voters != 2 || results.QuorumPercent != 25 || results.MajorityRule != entities.MajorityRuleRelative {
		t.Fatalf("unexpected election summary: %+v", results)
	}
}

func TestComputeResultsWithoutVotes(t *testing.T) {
	s := seedElection(t)
	results, err := s.results().ComputeResults(context.Background(), s.election.ElectionID)
	if err != nil {
		t.Fatalf("compute results failed: %v", err)
	}
	for _, item := range results.Positions[0].Candidacies {
		if item.Percentage != 0 || item.VotesCount != 0 {
			t.Fatalf("expected zeroed result without votes, got %+v", item)
		}
	}
}

func TestComputeResultsUnknownElection(t *testing.T) {
	s := seedElection(t)
	if _, err := s.results().ComputeResults(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected election not found, got %v", err)
	}
}

func TestListElectionCandidaciesFiltersByStatus(t *testing.T) {
	s := seedElection(t)
	uc := CandidaciesUseCase{Elections: s.store, Candidacies: s.store, Votes: s.store, Directory: s.store}

	all, err := uc.ListElectionCandidacies(context.Background(), s.election.ElectionID, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 || all[0].Position.Title != "Président" {
		t.Fatalf("expected two joined candidacies, got %+v", all)
	}
	approved, err := uc.ListElectionCandidacies(context.Background(), s.election.ElectionID, entities.CandidacyStatusApproved)
	if err != nil {
		t.Fatalf("list approved failed: %v", err)
	}
	if len(approved) != 1 || approved[0].Candidacy.CandidacyID != "c2" || approved[0].MemberName != "Bakary" {
		t.Fatalf("expected only c2, got %+v", approved)
	}
}

func TestListMemberCandidaciesAndVotes(t *testing.T) {
	s := seedElection(t)
	s.vote(t, "v1", "member-a", "p1", "c2")
	uc := CandidaciesUseCase{Elections: s.store, Candidacies: s.store, Votes: s.store, Directory: s.store}

	mine, err := uc.ListMemberCandidacies(context.Background(), "user-a", "")
	if err != nil {
		t.Fatalf("list mine failed: %v", err)
	}
	if len(mine) != 1 || mine[0].Candidacy.CandidacyID != "c1" {
		t.Fatalf("expected c1 only, got %+v", mine)
	}
	votes, err := uc.ListMemberVotes(context.Background(), "user-a", s.election.ElectionID)
	if err != nil {
		t.Fatalf("list votes failed: %v", err)
	}
	if len(votes) != 1 || votes[0].PositionID != "p1" {
		t.Fatalf("expected one vote on p1, got %+v", votes)
	}

	if _, err := uc.ListMemberCandidacies(context.Background(), "admin-1", ""); !errors.Is(err, domainerrors.ErrNotAMember) {
		t.Fatalf("expected admin without profile to be refused, got %v", err)
	}
	if _, err := uc.ListMemberVotes(context.Background(), "user-a", " "); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected missing election to be invalid, got %v", err)
	}
}

func TestGetElectionDetails(t *testing.T) {
	s := seedElection(t)
	uc := ElectionsUseCase{Elections: s.store}

	details, err := uc.GetElection(context.Background(), s.election.ElectionID)
	if err != nil {
		t.Fatalf("get election failed: %v", err)
	}
	if len(details.Positions) != 2 || details.Positions[0].PositionID != "p1" {
		t.Fatalf("unexpected positions: %+v", details.Positions)
	}
	open, err := uc.ListElections(context.Background(), entities.ElectionStatusOpen)
	if err != nil || len(open) != 1 {
		t.Fatalf("expected one open election, got %d (%v)", len(open), err)
	}
	closed, _ := uc.ListElections(context.Background(), entities.ElectionStatusClosed)
	if len(closed) != 0 {
		t.Fatalf("expected no closed election, got %d", len(closed))
	}
}
