package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	domainerrors "agora/contexts/governance/election-service/domain/errors"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "duplicate candidacy",
			err:     domainerrors.ErrDuplicateCandidacy,
			status:  http.StatusConflict,
			message: "Vous avez déjà postulé pour ce poste dans cette élection.",
		},
		{
			name:    "wrapped duplicate vote",
			err:     fmt.Errorf("cast vote: %w", domainerrors.ErrDuplicateVote),
			status:  http.StatusConflict,
			message: "Vous avez déjà voté pour ce poste.",
		},
		{
			name:    "withdrawing a voted candidacy",
			err:     domainerrors.ErrCandidacyHasVotes,
			status:  http.StatusConflict,
			message: "Cette candidature a déjà reçu des votes et ne peut plus être retirée.",
		},
		{
			name:    "outsider",
			err:     domainerrors.ErrNotAMember,
			status:  http.StatusForbidden,
			message: "Vous devez être membre de l'association pour effectuer cette action.",
		},
		{
			name:    "unknown error",
			err:     errors.New("connection reset"),
			status:  http.StatusInternalServerError,
			message: internalErrorMessage,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, message := ErrorStatus(tc.err)
			if status != tc.status || message != tc.message {
				t.Fatalf("got (%d, %q), want (%d, %q)", status, message, tc.status, tc.message)
			}
		})
	}
}

func TestErrorStatusBatchUsesFirstListedKind(t *testing.T) {
	batch := &domainerrors.BatchCandidacyError{Failures: []domainerrors.PositionFailure{
		{PositionID: "pos-2", Err: domainerrors.ErrDuplicateCandidacy},
		{PositionID: "pos-1", Err: domainerrors.ErrPositionNotFound},
	}}
	status, message := ErrorStatus(batch)
	if status != http.StatusNotFound || message != "Poste introuvable." {
		t.Fatalf("got (%d, %q)", status, message)
	}
}
