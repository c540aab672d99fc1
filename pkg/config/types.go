package config

import (
	"time"

	"github.com/aquamind/batchsim/pkg/directory"
)

// stageMapYAML is the on-disk shape for a per-stage float table, keyed by
// the snake_case stage names listed in stageYAMLKeys.
type stageMapYAML map[string]float64

// ModelProfileYAML is one override entry in the models.profiles list: a
// species/geography/release_period key plus whatever TGC/FCR/mortality
// fields it overrides from the default profile.
type ModelProfileYAML struct {
	Species         string       `yaml:"species"`
	Geography       string       `yaml:"geography"`
	ReleasePeriod   string       `yaml:"release_period"`
	TGCPerThousand  *float64     `yaml:"tgc_per_thousand,omitempty"`
	FCR             stageMapYAML `yaml:"fcr,omitempty"`
	MortalityDaily  stageMapYAML `yaml:"mortality_daily_rate,omitempty"`
}

// ModelsYAML is the top-level "models" section: a default profile plus a
// list of species/geography/release_period overrides.
type ModelsYAML struct {
	Default  ModelProfileYAML   `yaml:"default"`
	Profiles []ModelProfileYAML `yaml:"profiles"`
}

// OrchestratorYAML is the top-level "orchestrator" section (§6 Orchestrator
// defaults: saturation, worker count, stagger).
type OrchestratorYAML struct {
	Saturation        float64 `yaml:"saturation"`
	WorkerCount       int     `yaml:"worker_count"`
	StaggerDays       int     `yaml:"stagger_days"`
	BatchTimeout      string  `yaml:"batch_timeout"`
	OrphanSweepPeriod string  `yaml:"orphan_sweep_period"`
}

// TopologyYAML is the top-level "topology" section: an optional override
// path for the infrastructure seed file (empty uses directory.DefaultSeed()).
type TopologyYAML struct {
	SeedFile string `yaml:"seed_file"`
}

// FileYAML is the full on-disk batchsim.yaml structure.
type FileYAML struct {
	Models       ModelsYAML       `yaml:"models"`
	Orchestrator OrchestratorYAML `yaml:"orchestrator"`
	Topology     TopologyYAML     `yaml:"topology"`
}

// ProfileKey identifies one species/geography/release_period model profile.
type ProfileKey struct {
	Species       string
	Geography     string
	ReleasePeriod string
}

// OrchestratorConfig holds the resolved (defaults-applied) orchestrator
// settings used by pkg/orchestrator's Plan phase.
type OrchestratorConfig struct {
	Saturation        float64
	WorkerCount       int
	StaggerDays       int
	BatchTimeout      time.Duration
	OrphanSweepPeriod time.Duration
}

// DefaultOrchestratorConfig matches the illustrative defaults in spec §5.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Saturation:        0.8,
		WorkerCount:       8,
		StaggerDays:       30,
		BatchTimeout:      60 * time.Minute,
		OrphanSweepPeriod: 5 * time.Minute,
	}
}

// stageYAMLKeys maps each lifecycle stage to the snake_case key used in
// batchsim.yaml's stage-keyed tables (fcr, mortality_daily_rate);
// tgc_per_thousand is a single value with no per-stage table.
var stageYAMLKeys = map[directory.LifecycleStage]string{
	directory.StageEggAlevin: "egg_alevin",
	directory.StageFry:       "fry",
	directory.StageParr:      "parr",
	directory.StageSmolt:     "smolt",
	directory.StagePostSmolt: "post_smolt",
	directory.StageAdult:     "adult",
}

// stageFloatMap converts a YAML stage-name map into a
// map[directory.LifecycleStage]float64, skipping unrecognized keys.
func stageFloatMap(src stageMapYAML) map[directory.LifecycleStage]float64 {
	if len(src) == 0 {
		return nil
	}
	out := make(map[directory.LifecycleStage]float64, len(src))
	for _, stage := range directory.AllStages {
		if v, ok := src[stageYAMLKeys[stage]]; ok {
			out[stage] = v
		}
	}
	return out
}
