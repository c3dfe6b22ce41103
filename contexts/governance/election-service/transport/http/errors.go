package http

import (
	"errors"
	"net/http"

	domainerrors "agora/contexts/governance/election-service/domain/errors"
)

const internalErrorMessage = "Une erreur interne est survenue. Veuillez réessayer plus tard."

var errorMessages = []struct {
	err     error
	status  int
	message string
}{
	{domainerrors.ErrUnauthorized, http.StatusUnauthorized, "Vous devez être connecté pour effectuer cette action."},
	{domainerrors.ErrForbidden, http.StatusForbidden, "Vous n'avez pas les droits nécessaires pour effectuer cette action."},
	{domainerrors.ErrNotAMember, http.StatusForbidden, "Vous devez être membre de l'association pour effectuer cette action."},
	{domainerrors.ErrElectionNotFound, http.StatusNotFound, "Élection introuvable."},
	{domainerrors.ErrPositionNotFound, http.StatusNotFound, "Poste introuvable."},
	{domainerrors.ErrCandidacyNotFound, http.StatusNotFound, "Candidature introuvable."},
	{domainerrors.ErrMemberNotFound, http.StatusNotFound, "Membre introuvable."},
	{domainerrors.ErrElectionNotOpen, http.StatusConflict, "Cette élection n'est pas ouverte."},
	{domainerrors.ErrCandidacyPeriodClosed, http.StatusConflict, "La période de dépôt des candidatures est terminée."},
	{domainerrors.ErrDuplicateCandidacy, http.StatusConflict, "Vous avez déjà postulé pour ce poste dans cette élection."},
	{domainerrors.ErrDuplicateVote, http.StatusConflict, "Vous avez déjà voté pour ce poste."},
	{domainerrors.ErrElectionLocked, http.StatusConflict, "Cette élection ne peut plus être modifiée."},
	{domainerrors.ErrCandidacyDecided, http.StatusConflict, "Cette candidature a déjà été traitée."},
	{domainerrors.ErrCandidacyHasVotes, http.StatusConflict, "Cette candidature a déjà reçu des votes et ne peut plus être retirée."},
	{domainerrors.ErrConflict, http.StatusConflict, "L'élection a été modifiée entre-temps. Veuillez réessayer."},
	{domainerrors.ErrInvalidTransition, http.StatusUnprocessableEntity, "Ce changement de statut n'est pas autorisé."},
	{domainerrors.ErrCandidacyNotEligible, http.StatusUnprocessableEntity, "Ce candidat ne se présente pas à ce poste."},
	{domainerrors.ErrInvalidInput, http.StatusUnprocessableEntity, "Les données envoyées sont invalides."},
}

// ErrorStatus maps a use-case error to an HTTP status and a message that can
// be shown to the user as-is. Unknown errors are reported as internal.
func ErrorStatus(err error) (int, string) {
	// A batch failure carries several causes; the first listed kind wins.
	for _, candidate := range errorMessages {
		if errors.Is(err, candidate.err) {
			return candidate.status, candidate.message
		}
	}
	return http.StatusInternalServerError, internalErrorMessage
}
