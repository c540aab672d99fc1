// Package simerr defines the error taxonomy shared across the simulator.
//
// Errors are grouped into kinds rather than one type per failure mode, and
// every error returned from the domain packages can be attributed back to a
// batch/day/container/assignment via SimError.
package simerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation/retry policy (see spec §7).
type Kind string

const (
	// KindInvariant marks a domain invariant violation: capacity exceeded,
	// negative population, overlapping assignments, biomass mismatch.
	// Always fatal to the current action.
	KindInvariant Kind = "invariant_failed"

	// KindContention marks a recoverable conflict: container busy, feed
	// stock low. Callers reassign or replenish rather than abort.
	KindContention Kind = "contention"

	// KindConfig marks missing configuration: no policy found, unknown
	// feed name, no temperature profile. Fatal to the batch.
	KindConfig Kind = "config_missing"

	// KindPublisher marks an outbound event-hook failure. Never fatal to
	// domain progress.
	KindPublisher Kind = "publisher_failed"

	// KindCancelled marks cooperative cancellation. Not an error in the
	// usual sense; graceful termination.
	KindCancelled Kind = "cancelled"
)

// Sentinel errors tested with errors.Is.
var (
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrContainerBusy        = errors.New("container busy")
	ErrNegativePopulation   = errors.New("negative population")
	ErrOverlappingAssignment = errors.New("overlapping active assignment")
	ErrBiomassMismatch      = errors.New("biomass inconsistent with population and weight")
	ErrFeedStockLow         = errors.New("feed stock below replenishment threshold")
	ErrNoPolicyFound        = errors.New("no model policy found")
	ErrUnknownFeedName      = errors.New("unknown feed name")
	ErrNoTemperatureProfile = errors.New("no temperature profile")
	ErrCancelled            = errors.New("cancelled")
	ErrNotFound             = errors.New("entity not found")
)

// SimError attaches batch/day/container context to a domain error, the way
// a diagnostic line would read in the event log.
type SimError struct {
	Kind         Kind
	BatchNumber  string
	DayNumber    int
	ContainerID  string
	AssignmentID string
	Err          error
}

func (e *SimError) Error() string {
	return fmt.Sprintf("%s: batch=%s day=%d container=%s assignment=%s: %v",
		e.Kind, e.BatchNumber, e.DayNumber, e.ContainerID, e.AssignmentID, e.Err)
}

func (e *SimError) Unwrap() error { return e.Err }

// Wrap attaches diagnostic context to err and classifies it by kind.
func Wrap(kind Kind, batchNumber string, day int, containerID, assignmentID string, err error) error {
	if err == nil {
		return nil
	}
	return &SimError{
		Kind:         kind,
		BatchNumber:  batchNumber,
		DayNumber:    day,
		ContainerID:  containerID,
		AssignmentID: assignmentID,
		Err:          err,
	}
}

// KindOf returns the Kind attached to err, if any, and whether one was found.
func KindOf(err error) (Kind, bool) {
	var se *SimError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// IsRetryable reports whether the engine should retry the action once with
// an alternate destination (contention class only; invariant/config errors
// are fatal per §7).
func IsRetryable(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return errors.Is(err, ErrContainerBusy) || errors.Is(err, ErrFeedStockLow)
	}
	return k == KindContention
}
