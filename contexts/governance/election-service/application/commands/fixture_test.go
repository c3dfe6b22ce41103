package commands

import (
	"context"
	"testing"
	"time"

	"agora/contexts/governance/election-service/adapters/memory"
	"agora/contexts/governance/election-service/domain/entities"
)

const (
	adminUser  = "admin-1"
	memberA    = "user-a"
	memberB    = "user-b"
	memberZ    = "user-z"
	memberY    = "user-y"
	outsider   = "user-x"
	memberAID  = "member-a"
	memberBID  = "member-b"
	memberZID  = "member-z"
	memberYID  = "member-y"
	unknownUID = "user-unknown"
)

type fixture struct {
	store       *memory.Store
	lifecycle   LifecycleUseCase
	candidacies CandidacyUseCase
	ballots     BallotUseCase
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	store.SetActor(entities.Actor{UserID: adminUser, Role: entities.RoleAdmin, DisplayName: "Admin"})
	store.SetActor(entities.Actor{UserID: memberA, Role: entities.RoleMember, MemberID: memberAID, DisplayName: "Awa"})
	store.SetActor(entities.Actor{UserID: memberB, Role: entities.RoleMember, MemberID: memberBID, DisplayName: "Bakary"})
	store.SetActor(entities.Actor{UserID: memberZ, Role: entities.RoleMember, MemberID: memberZID, DisplayName: "Zeinab"})
	store.SetActor(entities.Actor{UserID: memberY, Role: entities.RoleMember, MemberID: memberYID, DisplayName: "Yacouba"})
	store.SetActor(entities.Actor{UserID: outsider, Role: entities.RoleMember})

	return fixture{
		store: store,
		lifecycle: LifecycleUseCase{
			Elections: store,
			Directory: store,
			Views:     store,
			Clock:     store,
			IDGen:     store,
		},
		candidacies: CandidacyUseCase{
			Elections:   store,
			Candidacies: store,
			Votes:       store,
			Directory:   store,
			Views:       store,
			Clock:       store,
			IDGen:       store,
		},
		ballots: BallotUseCase{
			Elections:   store,
			Candidacies: store,
			Votes:       store,
			Directory:   store,
			Views:       store,
			Clock:       store,
			IDGen:       store,
		},
	}
}

func electionInput() ElectionInput {
	now := time.Now().UTC()
	return ElectionInput{
		Title:         "Assemblée générale 2026",
		OpensAt:       now.Add(-time.Hour),
		ClosesAt:      now.Add(24 * time.Hour),
		QuorumPercent: 50,
		MajorityRule:  entities.MajorityRuleAbsolute,
		DefaultSeats:  1,
	}
}

// prepareElection creates an election in preparation with one position per
// type.
func (f fixture) prepareElection(t *testing.T, input ElectionInput, types ...entities.PositionType) CreateElectionResult {
	t.Helper()
	if len(types) == 0 {
		types = []entities.PositionType{entities.PositionTypePresident, entities.PositionTypeTreasurer}
	}
	result, err := f.lifecycle.CreateElection(context.Background(), CreateElectionCommand{
		ActorID:       adminUser,
		Election:      input,
		PositionTypes: types,
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	return result
}

func (f fixture) openElection(t *testing.T, types ...entities.PositionType) CreateElectionResult {
	t.Helper()
	result := f.prepareElection(t, electionInput(), types...)
	opened, err := f.lifecycle.ValidateElection(context.Background(), TransitionElectionCommand{
		ActorID:    adminUser,
		ElectionID: result.Election.ElectionID,
	})
	if err != nil {
		t.Fatalf("open election failed: %v", err)
	}
	result.Election = opened
	return result
}

func (f fixture) submit(t *testing.T, user string, electionID string, positionID string) entities.CandidacyView {
	t.Helper()
	view, err := f.candidacies.SubmitCandidacy(context.Background(), SubmitCandidacyCommand{
		ActorID:    user,
		ElectionID: electionID,
		PositionID: positionID,
		Motivation: "Servir l'association",
		Programme:  "Transparence des comptes",
	})
	if err != nil {
		t.Fatalf("submit candidacy failed: %v", err)
	}
	return view
}

func (f fixture) candidacyCount(t *testing.T, electionID string) int {
	t.Helper()
	items, err := f.store.ListCandidaciesByElection(context.Background(), electionID)
	if err != nil {
		t.Fatalf("list candidacies failed: %v", err)
	}
	return len(items)
}

func (f fixture) outboxTypes(t *testing.T) map[string]int {
	t.Helper()
	pending, err := f.store.ListPendingOutbox(context.Background(), 1000)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	types := make(map[string]int, len(pending))
	for _, message := range pending {
		types[message.EventType]++
	}
	return types
}
