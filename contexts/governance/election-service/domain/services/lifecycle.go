package services

import (
	"agora/contexts/governance/election-service/domain/entities"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
)

var allowedTransitions = map[entities.ElectionStatus][]entities.ElectionStatus{
	entities.ElectionStatusPreparation: {
		entities.ElectionStatusOpen,
		entities.ElectionStatusCancelled,
	},
	entities.ElectionStatusOpen: {
		entities.ElectionStatusClosed,
		entities.ElectionStatusCancelled,
	},
}

// CanTransition reports whether an election may move from one status to
// another. CLOTUREE and ANNULEE are terminal.
func CanTransition(from entities.ElectionStatus, to entities.ElectionStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// EnsureTransition returns ErrInvalidTransition when the move is not allowed.
func EnsureTransition(from entities.ElectionStatus, to entities.ElectionStatus) error {
	if !CanTransition(from, to) {
		return domainerrors.ErrInvalidTransition
	}
	return nil
}

// EnsureEditable guards structural edits (positions, dates, title): they are
// only allowed before the election opens.
func EnsureEditable(election entities.Election) error {
	if election.Status != entities.ElectionStatusPreparation {
		return domainerrors.ErrElectionLocked
	}
	return nil
}

// EnsureAcceptsBallots guards candidacy and vote writes.
func EnsureAcceptsBallots(election entities.Election) error {
	if !election.AcceptsBallots() {
		return domainerrors.ErrElectionNotOpen
	}
	return nil
}
