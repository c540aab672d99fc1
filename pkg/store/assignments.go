package store

import (
	"context"
	"fmt"

	"github.com/aquamind/batchsim/pkg/ledger"
	"github.com/jackc/pgx/v5"
)

// InsertAssignments upserts assignment snapshots by ID in one round trip.
// A row already present is updated in place with the snapshot's departure
// date, population, weight, biomass and active flag, so the table holds
// each assignment's latest state; earlier states are not kept.
func (s *Store) InsertAssignments(ctx context.Context, batch []ledger.Assignment) error {
	if len(batch) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, a := range batch {
		b.Queue(`
			INSERT INTO assignments
				(id, batch_number, container_id, stage, assignment_date, departure_date,
				 population_count, avg_weight_g, biomass_kg, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				departure_date = EXCLUDED.departure_date,
				population_count = EXCLUDED.population_count,
				avg_weight_g = EXCLUDED.avg_weight_g,
				biomass_kg = EXCLUDED.biomass_kg,
				is_active = EXCLUDED.is_active`,
			a.ID, a.BatchNumber, a.ContainerID, a.Stage.String(), a.AssignmentDate, a.DepartureDate,
			a.PopulationCount, a.AvgWeightG, a.BiomassKg, a.IsActive,
		)
	}
	results := s.pool.SendBatch(ctx, b)
	defer results.Close()
	for range batch {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}
