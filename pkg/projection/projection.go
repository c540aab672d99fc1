// Package projection is the Projection Engine (C6): given a Scenario,
// computes a deterministic forward growth trajectory and persists it as an
// immutable, versioned ProjectionRun.
package projection

import (
	"fmt"
	"sync"
	"time"

	"github.com/aquamind/batchsim/pkg/biology"
	"github.com/aquamind/batchsim/pkg/directory"
	"github.com/aquamind/batchsim/pkg/simerr"
	"github.com/google/uuid"
)

// Scenario declares the inputs to one projection computation.
type Scenario struct {
	ID              string
	BatchNumber     string
	InitialCount    int64
	InitialWeightG  float64
	StartDate       time.Time
	DurationDays    int
	// StartDayOffset is the batch's cumulative lifecycle day at scenario
	// start (e.g. 180 for the Fry->Parr "from-batch" scenario of §4.4),
	// so stage-for-day lookups continue the batch's own timeline instead
	// of restarting at Egg&Alevin.
	StartDayOffset  int
	TGCModel        biology.TGCModel
	FCRModel        biology.FCRModel
	MortalityModel  biology.MortalityModel
	// StageDurations lets the projection select the right stage per day;
	// defaults to directory.DefaultStageDurationDays when nil.
	StageDurations  map[directory.LifecycleStage]int
	// TemperatureProfile resolves seawater temperature by date; required
	// only once the projected stage reaches seawater (Post-Smolt/Adult).
	TemperatureProfile func(date time.Time) (float64, error)
}

// ParametersSnapshot freezes the model constants used at run time, so a
// later change to the live models does not retroactively alter a run.
type ParametersSnapshot struct {
	TGCDefaultPerThousand float64                                  `json:"tgc_default_per_thousand"`
	TGCStageOverride      map[directory.LifecycleStage]float64     `json:"tgc_stage_override,omitempty"`
	FCRStage              map[directory.LifecycleStage]float64     `json:"fcr_stage"`
	MortalityDailyRate    map[directory.LifecycleStage]float64     `json:"mortality_daily_rate"`
}

// ScenarioProjection is one per-day record within a run.
type ScenarioProjection struct {
	DayNumber        int
	ProjectedDate    time.Time
	Population       int64
	AverageWeightG   float64
	BiomassKg        float64
	TemperatureUsedC float64
	Stage            directory.LifecycleStage
}

// Run is an immutable, versioned execution of the engine against a Scenario.
type Run struct {
	ID                 string
	ScenarioID         string
	RunNumber          int
	ParametersSnapshot ParametersSnapshot
	Projections        []ScenarioProjection
	TotalProjections   int
	FinalWeightG       float64
	FinalBiomassKg     float64
	CreatedAt          time.Time
}

// Counter allocates a monotonic run_number per scenario (§5: "run_number is
// allocated via a monotonic counter scoped to (scenario_id)"). It is the
// one process-wide mutable the Projection Engine needs (§9); callers should
// hold a single shared Counter across all scenarios in a run.
type Counter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewCounter builds an empty run-number counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Next returns the next run_number for scenarioID, starting at 1.
func (c *Counter) Next(scenarioID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[scenarioID]++
	return c.counts[scenarioID]
}

// Execute runs the Projection Engine against a scenario, producing a new,
// immutable ProjectionRun. Re-running a scenario always creates a new run
// via counter.Next — it never overwrites ScenarioProjection rows from a
// prior run (P8).
func Execute(scenario Scenario, counter *Counter) (*Run, error) {
	durations := scenario.StageDurations
	if durations == nil {
		durations = directory.DefaultStageDurationDays
	}

	snapshot := ParametersSnapshot{
		TGCDefaultPerThousand: scenario.TGCModel.DefaultPerThousand,
		TGCStageOverride:      scenario.TGCModel.StageOverridePerThousand,
		FCRStage:              scenario.FCRModel.Stage,
		MortalityDailyRate:    scenario.MortalityModel.DailyRate,
	}

	run := &Run{
		ID:                 uuid.New().String(),
		ScenarioID:         scenario.ID,
		RunNumber:          counter.Next(scenario.ID),
		ParametersSnapshot: snapshot,
		CreatedAt:          scenario.StartDate,
	}

	weight := scenario.InitialWeightG
	population := scenario.InitialCount

	for d := 0; d < scenario.DurationDays; d++ {
		date := scenario.StartDate.AddDate(0, 0, d)
		stage := directory.StageForDay(scenario.StartDayOffset+d+1, durations)

		tempC := biology.FreshwaterTemperatureC
		if !stage.IsFreshwater() {
			if scenario.TemperatureProfile == nil {
				return nil, fmt.Errorf("%w: seawater stage %s", simerr.ErrNoTemperatureProfile, stage)
			}
			t, err := scenario.TemperatureProfile(date)
			if err != nil {
				return nil, err
			}
			tempC = t
		}

		growth := biology.StepGrowth(weight, stage, scenario.TGCModel.TGCFor(stage), tempC)
		weight = growth.NewWeightG

		lambda := scenario.MortalityModel.DailyRate[stage]
		expectedMortality := int64(float64(population) * lambda)
		if expectedMortality > population {
			expectedMortality = population
		}
		population -= expectedMortality

		biomass := float64(population) * weight / 1000.0

		run.Projections = append(run.Projections, ScenarioProjection{
			DayNumber:        d,
			ProjectedDate:    date,
			Population:       population,
			AverageWeightG:   weight,
			BiomassKg:        biomass,
			TemperatureUsedC: tempC,
			Stage:            stage,
		})
	}

	run.TotalProjections = len(run.Projections)
	if n := len(run.Projections); n > 0 {
		run.FinalWeightG = run.Projections[n-1].AverageWeightG
		run.FinalBiomassKg = run.Projections[n-1].BiomassKg
	}
	return run, nil
}
