// Package biology is the Biology Kernel (C3): pure functions for growth,
// mortality and feed demand. No function in this package performs I/O or
// touches shared state; every draw of randomness is seeded explicitly by
// the caller via (batch_number, day, event_kind), per spec §9.
package biology

import (
	"math"

	"github.com/aquamind/batchsim/pkg/directory"
)

// TGCModel holds the thermal growth coefficient inputs for a stage.
type TGCModel struct {
	// DefaultPerThousand is the scenario-wide default TGC (2.0-3.5 typical).
	DefaultPerThousand float64
	// StageOverridePerThousand optionally overrides the default per stage.
	StageOverridePerThousand map[directory.LifecycleStage]float64
}

// TGCFor resolves the effective TGC value (per-1000) for a stage: the stage
// override if present, else the scenario default.
func (m TGCModel) TGCFor(stage directory.LifecycleStage) float64 {
	if m.StageOverridePerThousand != nil {
		if v, ok := m.StageOverridePerThousand[stage]; ok {
			return v
		}
	}
	return m.DefaultPerThousand
}

// FreshwaterTemperatureC is the fixed effective temperature for freshwater
// stages (Egg&Alevin, Fry, Parr, Smolt), per §4.3.
const FreshwaterTemperatureC = 12.0

// EffectiveTemperature selects T_eff per §4.3: a fixed 12°C for freshwater
// stages, or the supplied seawater profile temperature otherwise.
func EffectiveTemperature(stage directory.LifecycleStage, seawaterTempC float64) float64 {
	if stage.IsFreshwater() {
		return FreshwaterTemperatureC
	}
	return seawaterTempC
}

// GrowthResult is the output of one day's growth step.
type GrowthResult struct {
	NewWeightG float64
	CappedBySafetyLimit bool
}

// StepGrowth advances weight by one day using the cube-root TGC formula:
//
//	tgc = tgc_value_per_thousand / 1000
//	W_{t+1}^(1/3) = W_t^(1/3) + tgc * T_eff * 1
//	W_{t+1} = (W_{t+1}^(1/3))^3
//
// A permissive per-stage weight cap (§4.3) is applied as a safety limit,
// never as a transition trigger.
func StepGrowth(currentWeightG float64, stage directory.LifecycleStage, tgcPerThousand, effectiveTempC float64) GrowthResult {
	if currentWeightG < 0 {
		currentWeightG = 0
	}
	tgc := tgcPerThousand / 1000.0
	cubeRoot := math.Cbrt(currentWeightG) + tgc*effectiveTempC
	if cubeRoot < 0 {
		cubeRoot = 0
	}
	newWeight := cubeRoot * cubeRoot * cubeRoot

	capped := false
	if cap, ok := directory.StageSafetyWeightCapG[stage]; ok && newWeight > cap {
		newWeight = cap
		capped = true
	}
	return GrowthResult{NewWeightG: newWeight, CappedBySafetyLimit: capped}
}
