package orchestrator

import (
	"time"

	"github.com/aquamind/batchsim/pkg/engine"
	"gopkg.in/yaml.v3"
)

// scheduleEntryYAML is the on-disk form of one planned batch, written by
// --dry-run so a cohort can be reviewed (or handed to --execute later)
// without re-running Plan.
type scheduleEntryYAML struct {
	BatchNumber       string `yaml:"batch_number"`
	Geography         string `yaml:"geography"`
	Species           string `yaml:"species"`
	StartDate         string `yaml:"start_date"`
	InitialPopulation int64  `yaml:"initial_population"`
	DurationDays      int    `yaml:"duration_days"`
	StationIndex      int    `yaml:"station_index"`
}

// MarshalSchedule renders a planned cohort as YAML, one entry per batch in
// plan order.
func MarshalSchedule(plans []engine.BatchPlan) ([]byte, error) {
	entries := make([]scheduleEntryYAML, len(plans))
	for i, p := range plans {
		entries[i] = scheduleEntryYAML{
			BatchNumber:       p.BatchNumber,
			Geography:         p.Geography,
			Species:           p.Species,
			StartDate:         p.StartDate.Format("2006-01-02"),
			InitialPopulation: p.InitialPopulation,
			DurationDays:      p.DurationDays,
			StationIndex:      p.StationIndex,
		}
	}
	return yaml.Marshal(entries)
}

// UnmarshalSchedule parses a schedule written by MarshalSchedule back into
// batch plans, for --execute to pick up a previously reviewed --dry-run
// cohort.
func UnmarshalSchedule(data []byte) ([]engine.BatchPlan, error) {
	var entries []scheduleEntryYAML
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	plans := make([]engine.BatchPlan, len(entries))
	for i, e := range entries {
		startDate, err := time.Parse("2006-01-02", e.StartDate)
		if err != nil {
			return nil, err
		}
		plans[i] = engine.BatchPlan{
			BatchNumber:       e.BatchNumber,
			Geography:         e.Geography,
			Species:           e.Species,
			StartDate:         startDate,
			InitialPopulation: e.InitialPopulation,
			DurationDays:      e.DurationDays,
			StationIndex:      e.StationIndex,
		}
	}
	return plans, nil
}
