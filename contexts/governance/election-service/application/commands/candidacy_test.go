package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"agora/contexts/governance/election-service/domain/entities"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
)

func TestSubmitCandidacyCreatesPendingCandidacy(t *testing.T) {
	f := newFixture(t)
	election := f.openElection(t)
	president := election.Positions[0]

	view := f.submit(t, memberA, election.Election.ElectionID, president.PositionID)

	if view.Candidacy.Status != entities.CandidacyStatusPending {
		t.Fatalf("expected pending candidacy, got %s", view.Candidacy.Status)
	}
	if view.Candidacy.MemberID != memberAID {
		t.Fatalf("expected member id %s, got %s", memberAID, view.Candidacy.MemberID)
	}
	if view.Position.PositionID != president.PositionID || view.MemberName != "Awa" {
		t.Fatalf("expected view joined with position and member, got %+v", view)
	}
	if f.outboxTypes(t)[EventCandidacySubmitted] != 1 {
		t.Fatal("expected candidacy.submitted in outbox")
	}
	if len(f.store.RevalidatedPaths()) == 0 {
		t.Fatal("expected candidacy views to be revalidated")
	}
}

func TestSubmitCandidacyRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	election := f.openElection(t)
	positionID := election.Positions[0].PositionID
	f.submit(t, memberA, election.Election.ElectionID, positionID)

	_, err := f.candidacies.SubmitCandidacy(context.Background(), SubmitCandidacyCommand{
		ActorID:    memberA,
		ElectionID: election.Election.ElectionID,
		PositionID: positionID,
		Motivation: "Encore",
	})
	if !errors.Is(err, domainerrors.ErrDuplicateCandidacy) {
		t.Fatalf("expected duplicate candidacy, got %v", err)
	}
	if got := f.candidacyCount(t, election.Election.ElectionID); got != 1 {
		t.Fatalf("expected a single candidacy, got %d", got)
	}
}

func TestSubmitCandidacyPreconditions(t *testing.T) {
	f := newFixture(t)
	open := f.openElection(t)
	other := f.openElection(t, entities.PositionTypeAuditor)
	preparation := f.prepareElection(t, electionInput())

	cases := []struct {
		name       string
		actor      string
		electionID string
		positionID string
		want       error
	}{
		{"anonymous", "", open.Election.ElectionID, open.Positions[0].PositionID, domainerrors.ErrUnauthorized},
		{"not a member", outsider, open.Election.ElectionID, open.Positions[0].PositionID, domainerrors.ErrNotAMember},
		{"election in preparation", memberA, preparation.Election.ElectionID, preparation.Positions[0].PositionID, domainerrors.ErrElectionNotOpen},
		{"unknown election", memberA, "missing", open.Positions[0].PositionID, domainerrors.ErrElectionNotOpen},
		{"unknown position", memberA, open.Election.ElectionID, "missing", domainerrors.ErrPositionNotFound},
		{"position of another election", memberA, open.Election.ElectionID, other.Positions[0].PositionID, domainerrors.ErrPositionNotFound},
	}
	for _, tc := range cases {
		_, err := f.candidacies.SubmitCandidacy(context.Background(), SubmitCandidacyCommand{
			ActorID:    tc.actor,
			ElectionID: tc.electionID,
			PositionID: tc.positionID,
		})
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if got := f.candidacyCount(t, open.Election.ElectionID); got != 0 {
		t.Fatalf("expected no candidacy written, got %d", got)
	}
}

func TestSubmitCandidacyAfterCandidacyWindow(t *testing.T) {
	f := newFixture(t)
	input := electionInput()
	closedAt := time.Now().UTC().Add(-time.Minute)
	input.CandidacyClosesAt = &closedAt
	election := f.prepareElection(t, input)
	if _, err := f.lifecycle.ValidateElection(context.Background(), TransitionElectionCommand{
		ActorID:    adminUser,
		ElectionID: election.Election.ElectionID,
	}); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	_, err := f.candidacies.SubmitCandidacy(context.Background(), SubmitCandidacyCommand{
		ActorID:    memberA,
		ElectionID: election.Election.ElectionID,
		PositionID: election.Positions[0].PositionID,
	})
	if !errors.Is(err, domainerrors.ErrCandidacyPeriodClosed) {
		t.Fatalf("expected candidacy period closed, got %v", err)
	}
}

func TestSubmitMultipleCandidaciesIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	election := f.openElection(t,
		entities.PositionTypePresident,
		entities.PositionTypeTreasurer,
		entities.PositionTypeSecretaryGeneral,
	)
	electionID := election.Election.ElectionID
	president, treasurer, secretary := election.Positions[0], election.Positions[1], election.Positions[2]
	f.submit(t, memberA, electionID, treasurer.PositionID)

	_, err := f.candidacies.SubmitMultipleCandidacies(context.Background(), SubmitMultipleCandidaciesCommand{
		ActorID:     memberA,
		ElectionID:  electionID,
		PositionIDs: []string{president.PositionID, treasurer.PositionID, "missing"},
	})
	batch, ok := domainerrors.AsBatch(err)
	if !ok {
		t.Fatalf("expected batch error, got %v", err)
	}
	if !errors.Is(err, domainerrors.ErrDuplicateCandidacy) || !errors.Is(err, domainerrors.ErrPositionNotFound) {
		t.Fatalf("expected duplicate and not-found causes, got %v", err)
	}
	failed := batch.FailedPositions()
	if len(failed) != 2 || failed[0] != treasurer.PositionID || failed[1] != "missing" {
		t.Fatalf("unexpected failed positions: %v", failed)
	}
	if got := f.candidacyCount(t, electionID); got != 1 {
		t.Fatalf("expected the batch to write nothing, got %d candidacies", got)
	}

	views, err := f.candidacies.SubmitMultipleCandidacies(context.Background(), SubmitMultipleCandidaciesCommand{
		ActorID:     memberA,
		ElectionID:  electionID,
		PositionIDs: []string{secretary.PositionID, president.PositionID, secretary.PositionID},
		Motivation:  "Double engagement",
	})
	if err != nil {
		t.Fatalf("batch submit failed: %v", err)
	}
	if len(views) != 2 || views[0].Position.PositionID != secretary.PositionID || views[1].Position.PositionID != president.PositionID {
		t.Fatalf("expected two candidacies in request order, got %+v", views)
	}
	if got := f.candidacyCount(t, electionID); got != 3 {
		t.Fatalf("expected 3 candidacies, got %d", got)
	}
}

func TestUpdateCandidacyPositionsAppliesDiff(t *testing.T) {
	f := newFixture(t)
	election := f.openElection(t,
		entities.PositionTypePresident,
		entities.PositionTypeTreasurer,
		entities.PositionTypeSecretaryGeneral,
	)
	electionID := election.Election.ElectionID
	p1, p2, p3 := election.Positions[0], election.Positions[1], election.Positions[2]
	f.submit(t, memberA, electionID, p1.PositionID)
	reference := f.submit(t, memberA, electionID, p2.PositionID)

	result, err := f.candidacies.UpdateCandidacyPositions(context.Background(), UpdateCandidacyPositionsCommand{
		ActorID:     memberA,
		CandidacyID: reference.Candidacy.CandidacyID,
		Motivation:  "Nouvelle motivation",
		Programme:   "Nouveau programme",
		PositionIDs: []string{p2.PositionID, p3.PositionID},
	})
	if err != nil {
		t.Fatalf("update positions failed: %v", err)
	}
	byPosition := map[string]entities.Candidacy{}
	for _, candidacy := range result {
		byPosition[candidacy.PositionID] = candidacy
	}
	if len(byPosition) != 2 {
		t.Fatalf("expected 2 candidacies after diff, got %+v", result)
	}
	if _, ok := byPosition[p1.PositionID]; ok {
		t.Fatal("expected p1 candidacy removed")
	}
	kept := byPosition[p2.PositionID]
	if kept.CandidacyID != reference.Candidacy.CandidacyID || kept.Motivation != "Nouvelle motivation" {
		t.Fatalf("expected reference candidacy updated in place, got %+v", kept)
	}
	if added, ok := byPosition[p3.PositionID]; !ok || added.Status != entities.CandidacyStatusPending {
		t.Fatalf("expected pending p3 candidacy, got %+v", added)
	}
	if f.outboxTypes(t)[EventCandidacyUpdated] != 1 {
		t.Fatal("expected candidacy.positions_updated in outbox")
	}
}

func TestUpdateCandidacyPositionsIsAtomic(t *testing.T) {
	f := newFixture(t)
	election := f.openElection(t, entities.PositionTypePresident, entities.PositionTypeTreasurer)
	electionID := election.Election.ElectionID
	p1, p2 := election.Positions[0], election.Positions[1]
	reference := f.submit(t, memberA, electionID, p1.PositionID)
	kept := f.submit(t, memberA, electionID, p2.PositionID)

	_, err := f.candidacies.UpdateCandidacyPositions(context.Background(), UpdateCandidacyPositionsCommand{
		ActorID:     memberA,
		CandidacyID: reference.Candidacy.CandidacyID,
		Motivation:  "Changement",
		PositionIDs: []string{p1.PositionID, "missing"},
	})
	if !errors.Is(err, domainerrors.ErrPositionNotFound) {
		t.Fatalf("expected position not found, got %v", err)
	}
	current, _ := f.store.ListCandidaciesByMember(context.Background(), memberAID, electionID)
	if len(current) != 2 {
		t.Fatalf("expected nothing removed, got %d candidacies", len(current))
	}
	for _, candidacy := range current {
		if candidacy.CandidacyID == reference.Candidacy.CandidacyID && candidacy.Motivation == "Changement" {
			t.Fatal("expected reference text untouched after failure")
		}
	}

	if _, err := f.candidacies.ValidateCandidacy(context.Background(), DecideCandidacyCommand{
		ActorID:     adminUser,
		CandidacyID: kept.Candidacy.CandidacyID,
	}); err != nil {
		t.Fatalf("validate candidacy failed: %v", err)
	}
	_, err = f.candidacies.UpdateCandidacyPositions(context.Background(), UpdateCandidacyPositionsCommand{
		ActorID:     memberA,
		CandidacyID: reference.Candidacy.CandidacyID,
		PositionIDs: []string{p1.PositionID},
	})
	if !errors.Is(err, domainerrors.ErrCandidacyDecided) {
		t.Fatalf("expected decided candidacy to block removal, got %v", err)
	}
	if got := f.candidacyCount(t, electionID); got != 2 {
		t.Fatalf("expected 2 candidacies, got %d", got)
	}
}

func TestUpdateCandidacyPositionsRequiresOwner(t *testing.T) {
	f := newFixture(t)
	election := f.openElection(t)
	reference := f.submit(t, memberA, election.Election.ElectionID, election.Positions[0].PositionID)

	_, err := f.candidacies.UpdateCandidacyPositions(context.Background(), UpdateCandidacyPositionsCommand{
		ActorID:     memberB,
		CandidacyID: reference.Candidacy.CandidacyID,
		PositionIDs: []string{election.Positions[1].PositionID},
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	_, err = f.candidacies.UpdateCandidacyPositions(context.Background(), UpdateCandidacyPositionsCommand{
		ActorID:     memberA,
		CandidacyID: reference.Candidacy.CandidacyID,
	})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected empty desired set to be invalid, got %v", err)
	}
}

func TestUpdateCandidacyTexts(t *testing.T) {
	f := newFixture(t)
	election := f.openElection(t)
	view := f.submit(t, memberA, election.Election.ElectionID, election.Positions[0].PositionID)

	updated, err := f.candidacies.UpdateCandidacy(context.Background(), UpdateCandidacyCommand{
		ActorID:     memberA,
		CandidacyID: view.Candidacy.CandidacyID,
		Motivation:  "  Motivation révisée ",
		Documents:   []string{"cv.pdf", "cv.pdf", " lettre.pdf "},
	})
	if err != nil {
		t.Fatalf("update candidacy failed: %v", err)
	}
	if updated.Motivation != "Motivation révisée" {
		t.Fatalf("expected trimmed motivation, got %q", updated.Motivation)
	}
	if len(updated.Documents) != 2 || updated.Documents[1] != "lettre.pdf" {
		t.Fatalf("expected deduplicated documents, got %v", updated.Documents)
	}

	_, err = f.candidacies.UpdateCandidacy(context.Background(), UpdateCandidacyCommand{
		ActorID:     memberB,
		CandidacyID: view.Candidacy.CandidacyID,
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden for another member, got %v", err)
	}
}

func TestDecideCandidacy(t *testing.T) {
	f := newFixture(t)
	election := f.openElection(t)
	view := f.submit(t, memberA, election.Election.ElectionID, election.Positions[0].PositionID)
	cmd := DecideCandidacyCommand{
		ActorID:     adminUser,
		CandidacyID: view.Candidacy.CandidacyID,
		Comments:    "Dossier complet",
	}

	if _, err := f.candidacies.ValidateCandidacy(context.Background(), DecideCandidacyCommand{
		ActorID:     memberB,
		CandidacyID: view.Candidacy.CandidacyID,
	}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected member to be forbidden, got %v", err)
	}

	decided, err := f.candidacies.ValidateCandidacy(context.Background(), cmd)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if decided.Status != entities.CandidacyStatusApproved || decided.ValidatedBy != adminUser || decided.ValidatedAt == nil {
		t.Fatalf("unexpected decided candidacy: %+v", decided)
	}
	if decided.Comments != "Dossier complet" {
		t.Fatalf("expected comments stored, got %q", decided.Comments)
	}
	if _, err := f.candidacies.RejectCandidacy(context.Background(), cmd); !errors.Is(err, domainerrors.ErrCandidacyDecided) {
		t.Fatalf("expected second decision to fail, got %v", err)
	}
	if f.outboxTypes(t)[EventCandidacyValidated] != 1 {
		t.Fatal("expected candidacy.validated in outbox")
	}

	if _, err := f.candidacies.UpdateCandidacy(context.Background(), UpdateCandidacyCommand{
		ActorID:     memberA,
		CandidacyID: view.Candidacy.CandidacyID,
		Motivation:  "Trop tard",
	}); !errors.Is(err, domainerrors.ErrCandidacyDecided) {
		t.Fatalf("expected decided candidacy to be frozen, got %v", err)
	}
}

func TestUpdateCandidacyPositionsKeepsCandidacyWithBallots(t *testing.T) {
	f := newFixture(t)
	election := f.openElection(t)
	electionID := election.Election.ElectionID
	president, treasurer := election.Positions[0], election.Positions[1]
	voted := f.submit(t, memberA, electionID, president.PositionID)
	reference := f.submit(t, memberA, electionID, treasurer.PositionID)

	if _, err := f.ballots.CastVote(context.Background(), CastVoteCommand{
		ActorID:     memberZ,
		ElectionID:  electionID,
		PositionID:  president.PositionID,
		CandidacyID: voted.Candidacy.CandidacyID,
	}); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}

	cmd := UpdateCandidacyPositionsCommand{
		ActorID:     memberA,
		CandidacyID: reference.Candidacy.CandidacyID,
		Motivation:  "Je me concentre sur la trésorerie",
		PositionIDs: []string{treasurer.PositionID},
	}
	withoutPrecheck := f.candidacies
	withoutPrecheck.Votes = nil
	for name, uc := range map[string]CandidacyUseCase{
		"use case":   f.candidacies,
		"repository": withoutPrecheck,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := uc.UpdateCandidacyPositions(context.Background(), cmd); !errors.Is(err, domainerrors.ErrCandidacyHasVotes) {
				t.Fatalf("expected candidacy has votes, got %v", err)
			}
		})
	}

	if _, err := f.store.GetCandidacy(context.Background(), voted.Candidacy.CandidacyID); err != nil {
		t.Fatalf("voted candidacy must survive: %v", err)
	}
	if got := f.candidacyCount(t, electionID); got != 2 {
		t.Fatalf("expected 2 candidacies, got %d", got)
	}
	if types := f.outboxTypes(t); types[EventCandidacyUpdated] != 0 {
		t.Fatalf("refused change must not emit events, got %v", types)
	}
}
