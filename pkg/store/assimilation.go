package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DailyState is one (batch, container, day) row of bulk-assimilated state,
// reconstructed by the Orchestrator's Post phase per spec §6:
//
//	population_d = population_{d-1} + transfers_in_d - transfers_out_d - mortality_d
type DailyState struct {
	BatchNumber  string
	ContainerID  string
	DayNumber    int
	StateDate    string // YYYY-MM-DD, matching the DATE column
	Population   int64
	TransfersIn  int64
	TransfersOut int64
	Mortality    int64
	AvgWeightG   float64
	BiomassKg    float64
}

// UpsertDailyStates writes assimilated daily state idempotently: re-running
// assimilation on the same event stream (R1) produces byte-identical rows,
// since every field is a deterministic function of the replayed events and
// the upsert overwrites rather than accumulates.
func (s *Store) UpsertDailyStates(ctx context.Context, states []DailyState) error {
	if len(states) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, d := range states {
		b.Queue(`
			INSERT INTO actual_daily_assignment_state
				(batch_number, container_id, day_number, state_date, population, transfers_in, transfers_out, mortality, avg_weight_g, biomass_kg)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (batch_number, container_id, day_number) DO UPDATE SET
				state_date = EXCLUDED.state_date,
				population = EXCLUDED.population,
				transfers_in = EXCLUDED.transfers_in,
				transfers_out = EXCLUDED.transfers_out,
				mortality = EXCLUDED.mortality,
				avg_weight_g = EXCLUDED.avg_weight_g,
				biomass_kg = EXCLUDED.biomass_kg`,
			d.BatchNumber, d.ContainerID, d.DayNumber, d.StateDate, d.Population,
			d.TransfersIn, d.TransfersOut, d.Mortality, d.AvgWeightG, d.BiomassKg,
		)
	}
	results := s.pool.SendBatch(ctx, b)
	defer results.Close()
	for range states {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert daily state: %w", err)
		}
	}
	return nil
}
