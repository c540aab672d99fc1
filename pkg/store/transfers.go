package store

import (
	"context"
	"fmt"

	"github.com/aquamind/batchsim/pkg/transfer"
	"github.com/jackc/pgx/v5"
)

// InsertWorkflow persists a TransferWorkflow header and all of its
// TransferActions in one batch round trip.
func (s *Store) InsertWorkflow(ctx context.Context, w *transfer.Workflow) error {
	b := &pgx.Batch{}
	b.Queue(`
		INSERT INTO transfer_workflows (id, batch_number, status, created_at, started_at, completed_at, cancel_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			cancel_reason = EXCLUDED.cancel_reason`,
		w.ID, w.BatchNumber, string(w.Status), w.CreatedAt, w.StartedAt, w.CompletedAt, w.CancelReason,
	)
	for _, a := range w.Actions {
		b.Queue(`
			INSERT INTO transfer_actions
				(id, workflow_id, source_assignment_id, dest_assignment_id, planned_date, status,
				 transferred_count, mortality_during_transfer, transferred_biomass_kg, method,
				 started_at, completed_at, failure_reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				transferred_count = EXCLUDED.transferred_count,
				mortality_during_transfer = EXCLUDED.mortality_during_transfer,
				transferred_biomass_kg = EXCLUDED.transferred_biomass_kg,
				started_at = EXCLUDED.started_at,
				completed_at = EXCLUDED.completed_at,
				failure_reason = EXCLUDED.failure_reason`,
			a.ID, a.WorkflowID, a.SourceAssignmentID, a.DestAssignmentID, a.PlannedDate, string(a.Status),
			a.TransferredCount, a.MortalityDuringTransfer, a.TransferredBiomassKg, a.Method,
			a.StartedAt, a.CompletedAt, a.FailureReason,
		)
	}
	results := s.pool.SendBatch(ctx, b)
	defer results.Close()
	for range 1 + len(w.Actions) {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert transfer workflow: %w", err)
		}
	}
	return nil
}
