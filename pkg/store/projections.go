package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aquamind/batchsim/pkg/projection"
	"github.com/jackc/pgx/v5"
)

// InsertScenario persists a projection.Scenario header.
func (s *Store) InsertScenario(ctx context.Context, sc *projection.Scenario) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO projection_scenarios (id, batch_number, initial_count, initial_weight_g, start_date, duration_days, start_day_offset)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		sc.ID, sc.BatchNumber, sc.InitialCount, sc.InitialWeightG, sc.StartDate, sc.DurationDays, sc.StartDayOffset,
	)
	if err != nil {
		return fmt.Errorf("insert scenario: %w", err)
	}
	return nil
}

// InsertRun persists an immutable projection.Run and its per-day rows
// (P8: never updated once written — each call targets a new run_number).
func (s *Store) InsertRun(ctx context.Context, run *projection.Run) error {
	snapshot, err := json.Marshal(run.ParametersSnapshot)
	if err != nil {
		return fmt.Errorf("marshal parameters snapshot: %w", err)
	}

	b := &pgx.Batch{}
	b.Queue(`
		INSERT INTO projection_runs (id, scenario_id, run_number, parameters_snapshot, total_projections, final_weight_g, final_biomass_kg, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.ScenarioID, run.RunNumber, snapshot, run.TotalProjections, run.FinalWeightG, run.FinalBiomassKg, run.CreatedAt,
	)
	for _, p := range run.Projections {
		b.Queue(`
			INSERT INTO scenario_projections (run_id, day_number, projected_date, population, average_weight_g, biomass_kg, temperature_used_c, stage)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			run.ID, p.DayNumber, p.ProjectedDate, p.Population, p.AverageWeightG, p.BiomassKg, p.TemperatureUsedC, p.Stage.String(),
		)
	}
	results := s.pool.SendBatch(ctx, b)
	defer results.Close()
	for range 1 + len(run.Projections) {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert projection run: %w", err)
		}
	}
	return nil
}
