// Package engine is the Event Engine (C4): the day-stepped, deterministic
// simulator that advances a single batch through its full lifecycle,
// applying the Biology Kernel and driving the Assignment Ledger and
// Transfer Workflow at stage boundaries. One Engine instance is safe to
// share across concurrently-running batches — Run constructs a private
// per-call state struct rather than mutating the Engine itself, the same
// way the reference codebase's worker pool hands each job a fresh
// execution context instead of mutating shared worker state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aquamind/batchsim/pkg/biology"
	"github.com/aquamind/batchsim/pkg/directory"
	"github.com/aquamind/batchsim/pkg/events"
	"github.com/aquamind/batchsim/pkg/feedstock"
	"github.com/aquamind/batchsim/pkg/ledger"
	"github.com/aquamind/batchsim/pkg/projection"
	"github.com/aquamind/batchsim/pkg/simerr"
	"github.com/aquamind/batchsim/pkg/transfer"
	"github.com/google/uuid"
)

// containersPerBatch is the fixed fan-out of the initial placement (§4.4).
const containersPerBatch = 10

// BatchPlan is the Event Engine's input contract, normally produced by the
// Orchestrator's Plan phase.
type BatchPlan struct {
	BatchNumber       string
	Geography         string
	Species           string
	StartDate         time.Time
	InitialPopulation int64
	DurationDays      int
	StationIndex      int
}

// Status is the terminal or in-flight lifecycle state of a batch run.
type Status string

const (
	StatusRunning    Status = "RUNNING"
	StatusCompleted  Status = "COMPLETED"
	StatusTerminated Status = "TERMINATED"
)

// Deps wires the Event Engine to the subsystems it coordinates.
type Deps struct {
	Directory          *directory.Directory
	Ledger             *ledger.Ledger
	Feed               *feedstock.Store
	Publisher          events.Publisher
	ProjectionCounter  *projection.Counter
	TGCModel           biology.TGCModel
	FCRModel           biology.FCRModel
	MortalityModel     biology.MortalityModel
	StageDurations     map[directory.LifecycleStage]int // nil -> directory.DefaultStageDurationDays
	TemperatureProfile func(date time.Time) (float64, error)
	Log                *slog.Logger
}

// Result reports the outcome of one Engine.Run call.
type Result struct {
	BatchNumber        string
	Status             Status
	DaysCompleted      int
	TerminationReason  string
	CreatedScenario    *projection.Scenario
	ProjectionRun      *projection.Run
	// InitialAssignments snapshots the day-0 placement (10 Hall-A
	// containers), for callers that need to seed a per-container population
	// baseline without re-deriving it from the event stream (Orchestrator
	// Post-phase bulk assimilation).
	InitialAssignments []ledger.Assignment
	// Workflows lists every TransferWorkflow this run finalized, for
	// callers persisting the full transfer audit trail alongside the
	// event stream.
	Workflows []*transfer.Workflow
}

// Engine is a stateless factory for batch runs; all mutable state lives
// in Ledger/Feed/Publisher, which are themselves safe for concurrent use.
type Engine struct {
	deps Deps
}

// New builds an Engine against a fixed set of dependencies.
func New(deps Deps) *Engine {
	return &Engine{deps: deps}
}

// Run executes one batch's full event stream from day 0 through
// completion, cancellation, or termination. ctx is checked at day
// boundaries only (§5: "Biology and loop control never suspend").
func (e *Engine) Run(ctx context.Context, plan BatchPlan) (*Result, error) {
	durations := e.deps.StageDurations
	if durations == nil {
		durations = directory.DefaultStageDurationDays
	}
	r := &run{
		deps:      e.deps,
		plan:      plan,
		durations: durations,
		log:       e.logger().With("batch_number", plan.BatchNumber),
		result:    &Result{BatchNumber: plan.BatchNumber, Status: StatusRunning},
	}
	return r.execute(ctx)
}

func (e *Engine) logger() *slog.Logger {
	if e.deps.Log != nil {
		return e.deps.Log
	}
	return slog.Default()
}

// run holds the per-call mutable state for a single Run invocation.
type run struct {
	deps      Deps
	plan      BatchPlan
	durations map[directory.LifecycleStage]int
	log       *slog.Logger
	station   directory.Station
	result    *Result
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	station, err := r.deps.Directory.ResolveStation(r.plan.Geography, r.plan.StationIndex)
	if err != nil {
		return r.terminate(r.plan.StartDate, err)
	}
	r.station = station

	if err := r.placeInitial(r.plan.StartDate); err != nil {
		return r.terminate(r.plan.StartDate, err)
	}
	for _, a := range r.deps.Ledger.ActiveForBatch(r.plan.BatchNumber) {
		r.result.InitialAssignments = append(r.result.InitialAssignments, *a)
	}

	for d := 1; d <= r.plan.DurationDays; d++ {
		select {
		case <-ctx.Done():
			return r.terminate(r.dateFor(d-1), fmt.Errorf("%w: %v", simerr.ErrCancelled, ctx.Err()))
		default:
		}

		date := r.dateFor(d - 1)
		active := r.deps.Ledger.ActiveForBatch(r.plan.BatchNumber)
		if len(active) == 0 {
			break
		}
		currentStage := active[0].Stage
		transitionToday := d == directory.CumulativeStageEndDay(currentStage, r.durations)

		dayEvents, err := r.stepDay(d, date, transitionToday)
		if err != nil {
			return r.terminate(date, err)
		}

		if transitionToday {
			nextStage, ok := currentStage.Next()
			if !ok {
				if err := r.closeAll(date); err != nil {
					return r.terminate(date, err)
				}
				r.flush(dayEvents)
				r.result.Status = StatusCompleted
				r.result.DaysCompleted = d
				r.log.Info("batch completed", "day", d)
				return r.result, nil
			}

			w, err := r.transitionStage(currentStage, nextStage, date)
			if err != nil {
				return r.terminate(date, err)
			}
			r.result.Workflows = append(r.result.Workflows, w)
			dayEvents = append(dayEvents, r.workflowEvents(d, date, w)...)

			if currentStage == directory.StageFry && nextStage == directory.StageParr {
				scenario, prun, err := r.createParrScenario(date, d)
				if err != nil {
					r.log.Warn("parr-stage scenario creation failed", "error", err)
				} else {
					r.result.CreatedScenario = scenario
					r.result.ProjectionRun = prun
					dayEvents = append(dayEvents, events.Envelope{
						Topic: events.TopicProjectionRunCreated, BatchNumber: r.plan.BatchNumber, DayNumber: d, Date: date,
						Payload: events.ProjectionRunCreatedPayload{
							ScenarioID: scenario.ID, RunID: prun.ID, RunNumber: prun.RunNumber, DurationDays: prun.TotalProjections,
						},
					})
				}
			}
		}

		r.flush(dayEvents)
		r.result.DaysCompleted = d
	}

	r.result.Status = StatusCompleted
	return r.result, nil
}

func (r *run) dateFor(daysElapsed int) time.Time {
	return r.plan.StartDate.AddDate(0, 0, daysElapsed)
}

// placeInitial opens the day-0 assignments: 10 Hall-A containers,
// initial_population/10 eggs each at 0.1g. This is the one place
// pre-population is correct — no transfer is involved (§4.4, §9).
func (r *run) placeInitial(date time.Time) error {
	containers, err := r.destinationsForStage(directory.StageEggAlevin)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		return fmt.Errorf("%w: no Hall-A containers available for initial placement", simerr.ErrNoPolicyFound)
	}
	n := len(containers)
	if n > containersPerBatch {
		n = containersPerBatch
	}
	perContainer := r.plan.InitialPopulation / int64(n)
	for i := 0; i < n; i++ {
		if _, err := r.deps.Ledger.Open(ledger.OpenParams{
			BatchNumber:     r.plan.BatchNumber,
			ContainerID:     containers[i].ID,
			Stage:           directory.StageEggAlevin,
			Date:            date,
			PopulationCount: perContainer,
			AvgWeightG:      0.1,
		}); err != nil {
			return err
		}
	}
	return nil
}

var envSensorTypes = []string{
	"temperature", "dissolved_oxygen", "salinity", "ph", "turbidity", "current_speed", "light_hours",
}

var envReadingTimes = []string{"00:00", "04:00", "08:00", "12:00", "16:00", "20:00"}

var envSensorBaseline = map[string]float64{
	"temperature": 12, "dissolved_oxygen": 9, "salinity": 0, "ph": 7.2,
	"turbidity": 2, "current_speed": 0.3, "light_hours": 12,
}

func feedNameForStage(stage directory.LifecycleStage) string {
	switch stage {
	case directory.StageFry:
		return "Starter Feed 1.0mm"
	case directory.StageParr:
		return "Grower Feed 2.0mm"
	case directory.StageSmolt:
		return "Grower Feed 3.0mm"
	case directory.StagePostSmolt:
		return "Sea Feed 4.5mm"
	case directory.StageAdult:
		return "Sea Feed 7.0mm"
	default:
		return ""
	}
}

// stepDay runs one day's environmental readings, growth, and (unless
// skipMortalityAndFeed, i.e. a stage-transition day) mortality, feeding,
// growth sampling, and lice sampling, for every active assignment.
func (r *run) stepDay(day int, date time.Time, skipMortalityAndFeed bool) ([]events.Envelope, error) {
	active := r.deps.Ledger.ActiveForBatch(r.plan.BatchNumber)
	sort.Slice(active, func(i, j int) bool { return active[i].ContainerID < active[j].ContainerID })

	var out []events.Envelope
	out = append(out, r.environmentalReadings(active, day, date)...)

	for _, a := range active {
		stage := a.Stage
		var seaTempC float64
		if !stage.IsFreshwater() {
			if r.deps.TemperatureProfile == nil {
				return nil, fmt.Errorf("%w: seawater stage %s", simerr.ErrNoTemperatureProfile, stage)
			}
			t, err := r.deps.TemperatureProfile(date)
			if err != nil {
				return nil, err
			}
			seaTempC = t
		}
		tempC := biology.EffectiveTemperature(stage, seaTempC)

		beforeWeight := a.AvgWeightG
		growth := biology.StepGrowth(beforeWeight, stage, r.deps.TGCModel.TGCFor(stage), tempC)
		if err := r.deps.Ledger.UpdateGrowth(a.ID, growth.NewWeightG); err != nil {
			return nil, err
		}

		if skipMortalityAndFeed {
			continue
		}

		if env, err := r.mortalityStep(a, stage, day, date); err != nil {
			return nil, err
		} else {
			out = append(out, env...)
		}

		if env, err := r.feedingStep(a, stage, beforeWeight, growth.NewWeightG, day, date); err != nil {
			return nil, err
		} else {
			out = append(out, env...)
		}

		out = append(out, r.weeklySamples(a, stage, growth.NewWeightG, day, date)...)
	}
	return out, nil
}

func (r *run) environmentalReadings(active []*ledger.Assignment, day int, date time.Time) []events.Envelope {
	seen := make(map[string]bool, len(active))
	var containers []string
	for _, a := range active {
		if !seen[a.ContainerID] {
			seen[a.ContainerID] = true
			containers = append(containers, a.ContainerID)
		}
	}
	sort.Strings(containers)

	out := make([]events.Envelope, 0, len(containers)*len(envReadingTimes)*len(envSensorTypes))
	for _, cid := range containers {
		for _, t := range envReadingTimes {
			for _, sensor := range envSensorTypes {
				rng := biology.NewDeterministicRNG(r.plan.BatchNumber, day, "env_"+sensor+"_"+cid+"_"+t)
				value := envSensorBaseline[sensor] + (rng.Float64()-0.5)
				out = append(out, events.Envelope{
					Topic: events.TopicEnvironmentalReading, BatchNumber: r.plan.BatchNumber, DayNumber: day, Date: date,
					Payload: events.EnvironmentalReadingPayload{ContainerID: cid, SensorType: sensor, Time: t, Value: value},
				})
			}
		}
	}
	return out
}

func (r *run) mortalityStep(a *ledger.Assignment, stage directory.LifecycleStage, day int, date time.Time) ([]events.Envelope, error) {
	lambda := r.deps.MortalityModel.DailyRate[stage]
	rng := biology.NewDeterministicRNG(r.plan.BatchNumber, day, "mortality")
	mres := biology.StepMortality(a.PopulationCount, lambda, rng)
	if mres.Count <= 0 {
		return nil, nil
	}
	if err := r.deps.Ledger.RecordMortality(a.ID, mres.Count, date); err != nil {
		return nil, err
	}
	return []events.Envelope{{
		Topic: events.TopicMortality, BatchNumber: r.plan.BatchNumber, DayNumber: day, Date: date,
		Payload: events.MortalityPayload{ContainerID: a.ContainerID, AssignmentID: a.ID, Count: mres.Count, Cause: "background"},
	}}, nil
}

func (r *run) feedingStep(a *ledger.Assignment, stage directory.LifecycleStage, beforeWeightG, afterWeightG float64, day int, date time.Time) ([]events.Envelope, error) {
	if stage == directory.StageEggAlevin {
		return nil, nil
	}
	demandKg := biology.FeedDemandKg(stage, r.deps.FCRModel, a.PopulationCount, beforeWeightG, afterWeightG)
	if demandKg <= 0 {
		return nil, nil
	}
	feedName := feedNameForStage(stage)
	capKg, err := r.deps.Directory.CapacityOf(a.ContainerID)
	if err != nil {
		return nil, err
	}
	half := demandKg / 2

	var out []events.Envelope
	for _, slot := range []string{"morning", "afternoon"} {
		if _, err := r.deps.Feed.Reserve(feedName, a.ContainerID, half, capKg); err != nil {
			return nil, err
		}
		out = append(out, events.Envelope{
			Topic: events.TopicFeeding, BatchNumber: r.plan.BatchNumber, DayNumber: day, Date: date,
			Payload: events.FeedingPayload{
				ContainerID: a.ContainerID, FeedName: feedName, Time: slot, AmountKg: half,
				BatchBiomassKg: a.BiomassKg, Method: "automatic", RecordedBy: "engine",
			},
		})
	}
	return out, nil
}

func (r *run) weeklySamples(a *ledger.Assignment, stage directory.LifecycleStage, currentWeightG float64, day int, date time.Time) []events.Envelope {
	if day%7 != 0 {
		return nil
	}
	var out []events.Envelope

	rngSample := biology.NewDeterministicRNG(r.plan.BatchNumber, day, "growth_sample")
	sampleSize := 30
	if a.PopulationCount < int64(sampleSize) {
		sampleSize = int(a.PopulationCount)
	}
	noise := (rngSample.Float64() - 0.5) * 0.02 * currentWeightG
	out = append(out, events.Envelope{
		Topic: events.TopicGrowthSample, BatchNumber: r.plan.BatchNumber, DayNumber: day, Date: date,
		Payload: events.GrowthSamplePayload{ContainerID: a.ContainerID, AssignmentID: a.ID, SampleSize: sampleSize, MeanWeightG: currentWeightG + noise},
	})

	if stage == directory.StageAdult {
		rngLice := biology.NewDeterministicRNG(r.plan.BatchNumber, day, "lice_count")
		out = append(out, events.Envelope{
			Topic: events.TopicLiceCount, BatchNumber: r.plan.BatchNumber, DayNumber: day, Date: date,
			Payload: events.LiceCountPayload{ContainerID: a.ContainerID, AdultFemaleAvg: rngLice.Float64() * 0.5, MobileAvg: rngLice.Float64() * 1.5},
		})
	}
	return out
}

// destinationsForStage resolves the physical containers a stage is reared
// in: Hall-role lookup for freshwater-administered stages (Egg&Alevin
// through Post-Smolt), sea-ring lookup for Adult.
func (r *run) destinationsForStage(stage directory.LifecycleStage) ([]directory.Container, error) {
	if stage == directory.StageAdult {
		areas := r.deps.Directory.SeaAreasForStation(r.station)
		if len(areas) == 0 {
			return nil, fmt.Errorf("%w: no sea areas for station %q", simerr.ErrNoPolicyFound, r.station.ID)
		}
		return r.deps.Directory.SeaContainersInArea(r.station, areas[0])
	}
	return r.deps.Directory.ContainersForStage(r.station, stage)
}

// transitionStage moves every active assignment in currentStage to
// nextStage via a TransferWorkflow, per the stage-transition protocol of
// §4.4: destinations are opened zero-populated, and fish move by
// credit+debit, never by re-stating the destination's initial count.
func (r *run) transitionStage(currentStage, nextStage directory.LifecycleStage, date time.Time) (*transfer.Workflow, error) {
	all := r.deps.Ledger.ActiveForBatch(r.plan.BatchNumber)
	var sources []*ledger.Assignment
	for _, a := range all {
		if a.Stage == currentStage {
			sources = append(sources, a)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].ContainerID < sources[j].ContainerID })
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no active assignments in stage %s to transfer", simerr.ErrNoPolicyFound, currentStage)
	}

	destContainers, err := r.destinationsForStage(nextStage)
	if err != nil {
		return nil, err
	}
	if len(destContainers) == 0 {
		return nil, fmt.Errorf("%w: no destination containers for stage %s", simerr.ErrNoPolicyFound, nextStage)
	}

	destAssignmentIDs := make(map[string]string, len(destContainers))
	var plans []transfer.ActionPlan
	for i, src := range sources {
		destIdx := i % len(destContainers)
		destContainer := destContainers[destIdx]
		destID, ok := destAssignmentIDs[destContainer.ID]
		if !ok {
			opened, err := r.openDestination(destContainers, destIdx, nextStage, date)
			if err != nil {
				return nil, err
			}
			destID = opened.ID
			destAssignmentIDs[destContainer.ID] = destID
		}
		plans = append(plans, transfer.ActionPlan{SourceAssignmentID: src.ID, DestAssignmentID: destID, PlannedDate: date})
	}

	w := transfer.Plan(r.plan.BatchNumber, plans, date)
	if err := w.Finalize(); err != nil {
		return nil, err
	}
	for i, action := range w.Actions {
		src := sources[i]
		rng := biology.NewDeterministicRNG(r.plan.BatchNumber, 0, "transfer_mortality_"+src.ID)
		mortality := int64(float64(src.PopulationCount) * 0.001 * rng.Float64())
		if err := w.ExecuteAction(r.deps.Ledger, action, mortality, "net_transfer", date); err != nil {
			return nil, err
		}
	}
	r.log.Info("stage transition complete", "from_stage", currentStage, "to_stage", nextStage, "actions", len(w.Actions))
	return w, nil
}

// openDestination opens a zero-population destination assignment,
// retrying once against the next candidate container in the list on a
// retryable (capacity/contention) error, per §4.4's failure semantics.
func (r *run) openDestination(candidates []directory.Container, startIdx int, stage directory.LifecycleStage, date time.Time) (*ledger.Assignment, error) {
	tried := make(map[string]bool, 2)
	idx := startIdx
	for attempt := 0; attempt < 2; attempt++ {
		c := candidates[idx]
		if tried[c.ID] {
			idx = (idx + 1) % len(candidates)
			continue
		}
		tried[c.ID] = true

		a, err := r.deps.Ledger.Open(ledger.OpenParams{
			BatchNumber: r.plan.BatchNumber,
			ContainerID: c.ID,
			Stage:       stage,
			Date:        date,
			ForTransfer: true,
		})
		if err == nil {
			return a, nil
		}
		if !simerr.IsRetryable(err) {
			return nil, err
		}
		idx = (idx + 1) % len(candidates)
	}
	return nil, fmt.Errorf("%w: exhausted destination retry for stage %s", simerr.ErrContainerBusy, stage)
}

func (r *run) workflowEvents(day int, date time.Time, w *transfer.Workflow) []events.Envelope {
	var out []events.Envelope
	for _, a := range w.Actions {
		if a.Status != transfer.ActionCompleted {
			continue
		}
		out = append(out, events.Envelope{
			Topic: events.TopicTransferActionCompleted, BatchNumber: r.plan.BatchNumber, DayNumber: day, Date: date,
			Payload: events.TransferActionCompletedPayload{
				WorkflowID: a.WorkflowID, ActionID: a.ID,
				SourceAssignmentID: a.SourceAssignmentID, DestAssignmentID: a.DestAssignmentID,
				TransferredCount: a.TransferredCount, MortalityDuring: a.MortalityDuringTransfer,
				TransferredBiomassKg: a.TransferredBiomassKg,
			},
		})
	}
	if w.Status == transfer.WorkflowCompleted {
		out = append(out, events.Envelope{
			Topic: events.TopicWorkflowCompleted, BatchNumber: r.plan.BatchNumber, DayNumber: day, Date: date,
			Payload: events.WorkflowCompletedPayload{WorkflowID: w.ID, ActionCount: len(w.Actions), CompletedAt: date},
		})
	}
	return out
}

// createParrScenario builds and executes the "from-batch" Scenario
// triggered on completing the Fry->Parr transition (§4.4): a forward
// projection seeded from the batch's current aggregate state, continuing
// the batch's own day count via StartDayOffset rather than restarting the
// lifecycle clock at Egg&Alevin.
func (r *run) createParrScenario(date time.Time, day int) (*projection.Scenario, *projection.Run, error) {
	active := r.deps.Ledger.ActiveForBatch(r.plan.BatchNumber)
	var population int64
	var biomass float64
	for _, a := range active {
		population += a.PopulationCount
		biomass += a.BiomassKg
	}
	if population == 0 {
		return nil, nil, fmt.Errorf("%w: no active population to seed Parr-stage scenario", simerr.ErrNoPolicyFound)
	}
	avgWeight := biomass * 1000.0 / float64(population)

	scenario := projection.Scenario{
		ID:                 uuid.New().String(),
		BatchNumber:        r.plan.BatchNumber,
		InitialCount:       population,
		InitialWeightG:     avgWeight,
		StartDate:          date,
		DurationDays:       r.plan.DurationDays - day,
		StartDayOffset:     day,
		TGCModel:           r.deps.TGCModel,
		FCRModel:           r.deps.FCRModel,
		MortalityModel:     r.deps.MortalityModel,
		StageDurations:     r.durations,
		TemperatureProfile: r.deps.TemperatureProfile,
	}
	prun, err := projection.Execute(scenario, r.deps.ProjectionCounter)
	if err != nil {
		return nil, nil, err
	}
	return &scenario, prun, nil
}

func (r *run) closeAll(date time.Time) error {
	for _, a := range r.deps.Ledger.ActiveForBatch(r.plan.BatchNumber) {
		if err := r.deps.Ledger.Close(a.ID, date); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) terminate(date time.Time, cause error) (*Result, error) {
	if err := r.closeAll(date); err != nil {
		r.log.Error("failed to close assignments during termination", "error", err)
	}
	r.result.Status = StatusTerminated
	r.result.TerminationReason = cause.Error()
	r.log.Warn("batch terminated", "reason", cause)
	return r.result, cause
}

func (r *run) flush(envs []events.Envelope) {
	if len(envs) == 0 {
		return
	}
	if err := r.deps.Publisher.PublishBulk(envs); err != nil {
		r.log.Warn("event publish failed", "count", len(envs), "error", err)
	}
}
