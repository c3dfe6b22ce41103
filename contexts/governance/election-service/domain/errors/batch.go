package errors

import (
	"errors"
	"sort"
	"strings"
)

// PositionFailure records why a single position of a batch was refused.
type PositionFailure struct {
	PositionID string
	Err        error
}

// BatchCandidacyError aggregates every refused position of a multi-position
// submission. errors.Is matches any of the underlying causes.
type BatchCandidacyError struct {
	Failures []PositionFailure
}

func (e *BatchCandidacyError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		parts = append(parts, failure.PositionID+": "+failure.Err.Error())
	}
	sort.Strings(parts)
	return "candidacy batch refused (" + strings.Join(parts, "; ") + ")"
}

func (e *BatchCandidacyError) Unwrap() []error {
	items := make([]error, 0, len(e.Failures))
	for _, failure := range e.Failures {
		items = append(items, failure.Err)
	}
	return items
}

// FailedPositions lists the refused position ids in input order.
func (e *BatchCandidacyError) FailedPositions() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		ids = append(ids, failure.PositionID)
	}
	return ids
}

// AsBatch unwraps err into a BatchCandidacyError when possible.
func AsBatch(err error) (*BatchCandidacyError, bool) {
	var batch *BatchCandidacyError
	if errors.As(err, &batch) {
		return batch, true
	}
	return nil, false
}
