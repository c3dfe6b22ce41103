package errors

import "errors"

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotAMember            = errors.New("actor has no member profile")
	ErrElectionNotFound      = errors.New("election not found")
	ErrPositionNotFound      = errors.New("position not found")
	ErrCandidacyNotFound     = errors.New("candidacy not found")
	ErrMemberNotFound        = errors.New("member not found")
	ErrElectionNotOpen       = errors.New("election is not open")
	ErrDuplicateCandidacy    = errors.New("candidacy already exists for this position")
	ErrDuplicateVote         = errors.New("vote already cast for this position")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidTransition     = errors.New("invalid election status transition")
	ErrElectionLocked        = errors.New("election can no longer be edited")
	ErrCandidacyDecided      = errors.New("candidacy has already been decided")
	ErrCandidacyNotEligible  = errors.New("candidacy does not belong to this position")
	ErrConflict              = errors.New("election store conflict")
	ErrCandidacyPeriodClosed = errors.New("candidacy period is closed")
	ErrCandidacyHasVotes     = errors.New("candidacy already received votes")
)

// IsAny reports whether err matches one of targets.
func IsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
