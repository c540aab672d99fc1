package orchestrator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aquamind/batchsim/pkg/directory"
	"github.com/aquamind/batchsim/pkg/engine"
	"github.com/aquamind/batchsim/pkg/simerr"
)

// containersPerBatch mirrors the Event Engine's fixed day-0 fan-out
// (§4.4/§4.7): a batch occupies 10 Hall-A containers for its first stage.
const containersPerBatch = 10

// defaultInitialPopulation is the illustrative day-0 egg count (§4.7's
// worked example uses a comparable multi-million-egg batch).
const defaultInitialPopulation = 3_500_000

// PlanOptions parameterizes the Plan phase; the zero value plans one
// cohort against every geography in the topology at the configured
// default saturation, starting today.
type PlanOptions struct {
	// Geographies restricts planning to these geographies; empty plans
	// across every geography the Directory knows about.
	Geographies []string
	Species     string

	// Saturation is the target fraction of Hall-A capacity to fill
	// (default container_per_batch occupancy of 0.8); ignored when
	// BatchCount > 0.
	Saturation float64
	// BatchCount overrides the saturation-derived count (the CLI's
	// --batches N flag).
	BatchCount int

	StartDate    time.Time
	DurationDays int // 0 -> the full lifecycle (directory.TotalDurationDays)
	StaggerDays  int // 0 -> Config.Orchestrator.StaggerDays

	InitialPopulation int64 // 0 -> defaultInitialPopulation
}

// Plan computes the batch cohort for this run (§4.7): the batch count
// from target saturation (or an explicit override), a 30-day stagger
// between successive batches reusing the same station, and round-robin
// station assignment within each geography.
func (o *Orchestrator) Plan(opts PlanOptions) ([]engine.BatchPlan, error) {
	dir := o.deps.directory()

	geos := opts.Geographies
	if len(geos) == 0 {
		geos = dir.Geographies()
	}
	if len(geos) == 0 {
		return nil, fmt.Errorf("%w: directory has no geographies to plan against", simerr.ErrNoPolicyFound)
	}

	staggerDays := opts.StaggerDays
	if staggerDays <= 0 {
		staggerDays = o.deps.Config.Orchestrator.StaggerDays
	}
	durationDays := opts.DurationDays
	if durationDays <= 0 {
		durationDays = directory.TotalDurationDays(directory.DefaultStageDurationDays)
	}
	startDate := opts.StartDate
	if startDate.IsZero() {
		startDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	initialPopulation := opts.InitialPopulation
	if initialPopulation <= 0 {
		initialPopulation = defaultInitialPopulation
	}

	batchCount, err := o.resolveBatchCount(dir, geos, opts)
	if err != nil {
		return nil, err
	}

	plans := make([]engine.BatchPlan, 0, batchCount)
	perGeoIndex := make(map[string]int, len(geos))
	for i := 0; i < batchCount; i++ {
		geo := geos[i%len(geos)]
		stationCount := dir.StationCount(geo)
		if stationCount == 0 {
			return nil, fmt.Errorf("%w: geography %q has no stations", simerr.ErrNoPolicyFound, geo)
		}

		idx := perGeoIndex[geo]
		perGeoIndex[geo] = idx + 1
		stationIdx := idx % stationCount
		round := idx / stationCount

		plans = append(plans, engine.BatchPlan{
			BatchNumber:       fmt.Sprintf("%s-%04d", geoSlug(geo), idx+1),
			Geography:         geo,
			Species:           opts.Species,
			StartDate:         startDate.AddDate(0, 0, round*staggerDays),
			InitialPopulation: initialPopulation,
			DurationDays:      durationDays,
			StationIndex:      stationIdx,
		})
	}
	return plans, nil
}

// resolveBatchCount applies the explicit BatchCount override, or derives
// one from target saturation over the total Hall-A (day-0 placement)
// container count across the planned geographies.
func (o *Orchestrator) resolveBatchCount(dir *directory.Directory, geos []string, opts PlanOptions) (int, error) {
	if opts.BatchCount > 0 {
		return opts.BatchCount, nil
	}

	saturation := opts.Saturation
	if saturation <= 0 {
		saturation = o.deps.Config.Orchestrator.Saturation
	}

	totalContainers := 0
	for _, geo := range geos {
		for _, st := range dir.StationsInGeography(geo) {
			containers, err := dir.ContainersForStage(st, directory.StageEggAlevin)
			if err != nil {
				return 0, err
			}
			totalContainers += len(containers)
		}
	}

	count := int(math.Floor(float64(totalContainers) * saturation / containersPerBatch))
	if count < 1 {
		count = 1
	}
	return count, nil
}

// geoSlug renders a short, uppercase batch-number prefix from a
// geography name ("Faroe Islands" -> "FAROEIS").
func geoSlug(geography string) string {
	var b strings.Builder
	for _, r := range geography {
		if r == ' ' {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= 7 {
			break
		}
	}
	return strings.ToUpper(b.String())
}
