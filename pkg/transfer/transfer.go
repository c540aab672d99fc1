// Package transfer is the Transfer Workflow subsystem (C5): a multi-action,
// multi-day container-movement state machine linking source and
// destination assignments, with an audit trail. It is used both by the
// Event Engine at stage boundaries and, in principle, by external callers
// for operational transfers.
package transfer

import (
	"fmt"
	"time"

	"github.com/aquamind/batchsim/pkg/ledger"
	"github.com/aquamind/batchsim/pkg/simerr"
	"github.com/google/uuid"
)

// WorkflowStatus is the TransferWorkflow header state.
type WorkflowStatus string

const (
	WorkflowDraft      WorkflowStatus = "DRAFT"
	WorkflowPlanned    WorkflowStatus = "PLANNED"
	WorkflowInProgress WorkflowStatus = "IN_PROGRESS"
	WorkflowCompleted  WorkflowStatus = "COMPLETED"
	WorkflowCancelled  WorkflowStatus = "CANCELLED"
)

// ActionStatus is a TransferAction line state.
type ActionStatus string

const (
	ActionPending    ActionStatus = "PENDING"
	ActionInProgress ActionStatus = "IN_PROGRESS"
	ActionCompleted  ActionStatus = "COMPLETED"
	ActionFailed     ActionStatus = "FAILED"
	ActionSkipped    ActionStatus = "SKIPPED"
)

// Action is one TransferAction line: a source assignment paired with an
// optional destination assignment.
type Action struct {
	ID                    string
	WorkflowID            string
	SourceAssignmentID    string
	DestAssignmentID      string
	PlannedDate           time.Time
	Status                ActionStatus
	TransferredCount      int64
	MortalityDuringTransfer int64
	TransferredBiomassKg  float64
	Method                string
	StartedAt             *time.Time
	CompletedAt           *time.Time
	FailureReason         string
}

// Workflow is the TransferWorkflow header grouping 1..N Actions.
type Workflow struct {
	ID          string
	BatchNumber string
	Status      WorkflowStatus
	Actions     []*Action
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelReason string
}

// ActionPlan pairs a source assignment with a destination assignment for
// Plan to construct a workflow from.
type ActionPlan struct {
	SourceAssignmentID string
	DestAssignmentID   string
	PlannedDate        time.Time
}

// Plan constructs a new Workflow in state DRAFT with one Action per pair in
// plans, all PENDING.
func Plan(batchNumber string, plans []ActionPlan, now time.Time) *Workflow {
	w := &Workflow{
		ID:          uuid.New().String(),
		BatchNumber: batchNumber,
		Status:      WorkflowDraft,
		CreatedAt:   now,
	}
	for _, p := range plans {
		w.Actions = append(w.Actions, &Action{
			ID:                 uuid.New().String(),
			WorkflowID:         w.ID,
			SourceAssignmentID: p.SourceAssignmentID,
			DestAssignmentID:   p.DestAssignmentID,
			PlannedDate:        p.PlannedDate,
			Status:             ActionPending,
		})
	}
	return w
}

// Finalize moves DRAFT -> PLANNED. Capacity/non-conflict validation is
// expected to have already happened at destination-assignment Open time
// (the Ledger enforces it atomically); Finalize only checks workflow state.
func (w *Workflow) Finalize() error {
	if w.Status != WorkflowDraft {
		return fmt.Errorf("%w: cannot finalize workflow in state %s", simerr.ErrNotFound, w.Status)
	}
	w.Status = WorkflowPlanned
	return nil
}

// ExecuteAction moves one PENDING action through to COMPLETED (or FAILED),
// crediting the destination and debiting the source atomically via the
// Ledger. mortality is the fish lost in transit, counted against the
// source. The workflow advances PLANNED -> IN_PROGRESS on the first
// success and to COMPLETED once no action remains PENDING/IN_PROGRESS.
func (w *Workflow) ExecuteAction(l *ledger.Ledger, action *Action, mortality int64, method string, now time.Time) error {
	if w.Status != WorkflowPlanned && w.Status != WorkflowInProgress {
		return fmt.Errorf("cannot execute action: workflow in state %s", w.Status)
	}
	if action.Status != ActionPending {
		return fmt.Errorf("cannot execute action: action in state %s", action.Status)
	}

	action.Status = ActionInProgress
	started := now
	action.StartedAt = &started

	src, err := l.Get(action.SourceAssignmentID)
	if err != nil {
		return w.failAction(action, err)
	}

	count := src.PopulationCount - mortality
	if count < 0 || mortality > src.PopulationCount {
		return w.failAction(action, fmt.Errorf("%w: transferred_count + mortality exceeds source population", simerr.ErrNegativePopulation))
	}

	transferredBiomass := float64(count) * src.AvgWeightG / 1000.0

	if action.DestAssignmentID != "" {
		if err := l.Credit(action.DestAssignmentID, count, transferredBiomass); err != nil {
			return w.failAction(action, err)
		}
	}
	if err := l.Debit(action.SourceAssignmentID, count+mortality, now); err != nil {
		return w.failAction(action, err)
	}

	action.Status = ActionCompleted
	action.TransferredCount = count
	action.MortalityDuringTransfer = mortality
	action.TransferredBiomassKg = transferredBiomass
	action.Method = method
	completed := now
	action.CompletedAt = &completed

	if w.Status == WorkflowPlanned {
		w.Status = WorkflowInProgress
		w.StartedAt = &started
	}
	w.maybeComplete(now)
	return nil
}

func (w *Workflow) failAction(action *Action, cause error) error {
	action.Status = ActionFailed
	action.FailureReason = cause.Error()
	w.maybeComplete(time.Now())
	return cause
}

func (w *Workflow) maybeComplete(now time.Time) {
	for _, a := range w.Actions {
		if a.Status == ActionPending || a.Status == ActionInProgress {
			return
		}
	}
	w.Status = WorkflowCompleted
	w.CompletedAt = &now
}

// Cancel transitions a DRAFT/PLANNED/IN_PROGRESS workflow to CANCELLED;
// remaining PENDING actions become SKIPPED. Completed workflows are
// immutable and cannot be cancelled.
func (w *Workflow) Cancel(reason string, now time.Time) error {
	switch w.Status {
	case WorkflowDraft, WorkflowPlanned, WorkflowInProgress:
	default:
		return fmt.Errorf("cannot cancel workflow in terminal state %s", w.Status)
	}
	for _, a := range w.Actions {
		if a.Status == ActionPending {
			a.Status = ActionSkipped
		}
	}
	w.Status = WorkflowCancelled
	w.CancelReason = reason
	w.CompletedAt = &now
	return nil
}

// TotalTransferred sums transferred_count across completed actions — the
// single source of truth for P1 (no-doubling) verification.
func (w *Workflow) TotalTransferred() int64 {
	var total int64
	for _, a := range w.Actions {
		if a.Status == ActionCompleted {
			total += a.TransferredCount
		}
	}
	return total
}
