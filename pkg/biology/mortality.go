package biology

import (
	"math"

	"github.com/aquamind/batchsim/pkg/directory"
)

// MortalityModel holds per-stage daily mortality rates (fractional, e.g.
// 0.0015 for 0.15%/day).
type MortalityModel struct {
	DailyRate map[directory.LifecycleStage]float64
}

// DefaultMortalityModel matches the illustrative rates in spec §4.3.
func DefaultMortalityModel() MortalityModel {
	return MortalityModel{DailyRate: map[directory.LifecycleStage]float64{
		directory.StageEggAlevin: 0.0015,
		directory.StageFry:       0.0003,
		directory.StageParr:      0.0002,
		directory.StageSmolt:     0.0002,
		directory.StagePostSmolt: 0.0001,
		directory.StageAdult:     0.00005,
	}}
}

// MortalityResult is the output of one day's mortality draw.
type MortalityResult struct {
	Count int64
}

// StepMortality draws a daily mortality count:
//
//	count = max(0, round(lambda*population + noise))
//
// where noise comes from a caller-supplied deterministic RNG (seeded per
// spec §9 from (batch_number, day, "mortality")), so repeated calls with
// the same rng state produce byte-identical results.
func StepMortality(population int64, lambda float64, rng *splitMix64) MortalityResult {
	if population <= 0 || lambda <= 0 {
		return MortalityResult{Count: 0}
	}
	expected := lambda * float64(population)
	// Deterministic small noise in [-0.5, 0.5] * sqrt(expected+1), modeling
	// sampling variance around the expected count without a full
	// binomial draw (the engine only needs a reproducible integer count).
	noise := (rng.Float64() - 0.5) * math.Sqrt(expected+1)
	count := math.Round(expected + noise)
	if count < 0 {
		count = 0
	}
	if count > float64(population) {
		count = float64(population)
	}
	return MortalityResult{Count: int64(count)}
}
