package orchestrator

import (
	"sort"

	"github.com/aquamind/batchsim/pkg/events"
	"github.com/aquamind/batchsim/pkg/ledger"
	"github.com/aquamind/batchsim/pkg/store"
)

// containerRunningState is the per-container population/weight carried
// forward across days while replaying one batch's event stream.
type containerRunningState struct {
	population int64
	avgWeightG float64
}

// assimilate reconstructs one actual_daily_assignment_state row per
// (container, day) the batch touched, replaying its emitted event stream
// in order (§6):
//
//	population_d = population_{d-1} + transfers_in_d - transfers_out_d - mortality_d
//
// Average weight is carried forward from the last weekly GrowthSample —
// the only weight signal the event stream itself carries — so daily rows
// between samples repeat the most recently sampled weight rather than
// interpolating the Engine's actual (unpublished) daily growth step. This
// is the one approximation bulk assimilation makes versus reading the
// Ledger directly; P1/R1 verification relies on the Ledger, not this
// reconstruction.
func assimilate(initial []ledger.Assignment, envs []events.Envelope, l *ledger.Ledger) []store.DailyState {
	if len(envs) == 0 {
		return nil
	}
	batchNumber := envs[0].BatchNumber

	running := make(map[string]*containerRunningState, len(initial))
	for _, a := range initial {
		running[a.ContainerID] = &containerRunningState{population: a.PopulationCount, avgWeightG: a.AvgWeightG}
	}

	var out []store.DailyState
	currentDay := -1
	currentDate := ""
	dayRows := make(map[string]*store.DailyState)

	flushDay := func() {
		if currentDay < 0 {
			return
		}
		containerIDs := make([]string, 0, len(dayRows))
		for cid := range dayRows {
			containerIDs = append(containerIDs, cid)
		}
		sort.Strings(containerIDs)
		for _, cid := range containerIDs {
			row := dayRows[cid]
			rs := running[cid]
			row.Population = rs.population
			row.AvgWeightG = rs.avgWeightG
			row.BiomassKg = float64(rs.population) * rs.avgWeightG / 1000.0
			out = append(out, *row)
		}
		dayRows = make(map[string]*store.DailyState)
	}

	ensure := func(containerID string) *store.DailyState {
		row, ok := dayRows[containerID]
		if !ok {
			row = &store.DailyState{BatchNumber: batchNumber, ContainerID: containerID, DayNumber: currentDay, StateDate: currentDate}
			dayRows[containerID] = row
		}
		if _, ok := running[containerID]; !ok {
			running[containerID] = &containerRunningState{}
		}
		return row
	}

	for _, e := range envs {
		if e.DayNumber != currentDay {
			flushDay()
			currentDay = e.DayNumber
			currentDate = e.Date.Format("2006-01-02")
		}

		switch p := e.Payload.(type) {
		case events.EnvironmentalReadingPayload:
			ensure(p.ContainerID)

		case events.MortalityPayload:
			row := ensure(p.ContainerID)
			row.Mortality += p.Count
			running[p.ContainerID].population -= p.Count

		case events.GrowthSamplePayload:
			ensure(p.ContainerID)
			running[p.ContainerID].avgWeightG = p.MeanWeightG

		case events.TransferActionCompletedPayload:
			if srcContainer := containerOf(l, p.SourceAssignmentID); srcContainer != "" {
				row := ensure(srcContainer)
				row.TransfersOut += p.TransferredCount
				row.Mortality += p.MortalityDuring
				running[srcContainer].population -= p.TransferredCount + p.MortalityDuring
			}
			if p.DestAssignmentID != "" {
				if dstContainer := containerOf(l, p.DestAssignmentID); dstContainer != "" {
					row := ensure(dstContainer)
					row.TransfersIn += p.TransferredCount
					rs := running[dstContainer]
					rs.population += p.TransferredCount
					if p.TransferredCount > 0 {
						rs.avgWeightG = p.TransferredBiomassKg * 1000.0 / float64(p.TransferredCount)
					}
				}
			}
		}
	}
	flushDay()
	return out
}

func containerOf(l *ledger.Ledger, assignmentID string) string {
	if assignmentID == "" {
		return ""
	}
	a, err := l.Get(assignmentID)
	if err != nil {
		return ""
	}
	return a.ContainerID
}

func groupEnvelopesByBatch(envs []events.Envelope) map[string][]events.Envelope {
	out := make(map[string][]events.Envelope)
	for _, e := range envs {
		out[e.BatchNumber] = append(out[e.BatchNumber], e)
	}
	return out
}
