package biology

import "github.com/aquamind/batchsim/pkg/directory"

// FCRModel holds the per-stage feed conversion ratio table.
type FCRModel struct {
	Stage map[directory.LifecycleStage]float64
}

// DefaultFCRModel gives illustrative per-stage FCR values within the
// [0.8, 2.0] range required by P6.
func DefaultFCRModel() FCRModel {
	return FCRModel{Stage: map[directory.LifecycleStage]float64{
		directory.StageEggAlevin: 0, // no feeding at this stage
		directory.StageFry:       1.0,
		directory.StageParr:      1.1,
		directory.StageSmolt:     1.15,
		directory.StagePostSmolt: 1.2,
		directory.StageAdult:     1.25,
	}}
}

// FeedDemandKg computes the daily feed demand in kg for a container:
//
//	demand = fcr_stage * population * (W_{t+1} - W_t) / 1000
//
// Returns 0 for Egg&Alevin (spec §4.3: no feeding at that stage).
func FeedDemandKg(stage directory.LifecycleStage, fcr FCRModel, population int64, weightBeforeG, weightAfterG float64) float64 {
	if stage == directory.StageEggAlevin {
		return 0
	}
	growthKg := float64(population) * (weightAfterG - weightBeforeG) / 1000.0
	if growthKg <= 0 {
		return 0
	}
	return fcr.Stage[stage] * growthKg
}
