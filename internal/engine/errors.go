package engine

import (
	"errors"
	"fmt"

	"github.com/okent/rekindle/internal/store"
)

// ErrConflict means a state transition lost an optimistic-concurrency
// race; the caller must re-fetch the suggestion and retry.
var ErrConflict = store.ErrVersionConflict

// ErrNotFound means the requested suggestion does not exist.
var ErrNotFound = errors.New("suggestion not found")

// InputError rejects a call with bad arguments (unknown user, malformed
// date range, wrong status for a transition).
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func inputErrf(format string, args ...any) *InputError {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a failure of an external collaborator. Batch runs
// skip the affected user and retry next cycle; the conflict resolver
// degrades to its templated rationale instead.
type UpstreamError struct {
	Upstream string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Upstream, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsInput reports whether err is an InputError.
func IsInput(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
