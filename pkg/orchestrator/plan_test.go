package orchestrator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aquamind/batchsim/pkg/config"
	"github.com/aquamind/batchsim/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if body != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "batchsim.yaml"), []byte(body), 0o644))
	}
	cfg, err := config.Initialize(context.Background(), dir)
	require.NoError(t, err)
	return cfg
}

func singleStationConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	seedBody := `
geographies: ["Testland"]
stations:
  - id: "TL-ST01"
    geography: "Testland"
    index: 0
    halls:
      - {id: "TL-ST01-HA", name: "Hall A", stage_role: "A", tanks: 10, tank_max_biomass_kg: 5000, tank_volume_m3: 200}
      - {id: "TL-ST01-HB", name: "Hall B", stage_role: "B", tanks: 10, tank_max_biomass_kg: 5000, tank_volume_m3: 200}
      - {id: "TL-ST01-HC", name: "Hall C", stage_role: "C", tanks: 10, tank_max_biomass_kg: 5000, tank_volume_m3: 200}
      - {id: "TL-ST01-HD", name: "Hall D", stage_role: "D", tanks: 10, tank_max_biomass_kg: 5000, tank_volume_m3: 200}
    areas:
      - {id: "TL-ST01-SEA", name: "Sea Area", rings: 10, ring_max_biomass_kg: 250000, ring_volume_m3: 20000}
  - id: "TL-ST02"
    geography: "Testland"
    index: 1
    halls:
      - {id: "TL-ST02-HA", name: "Hall A", stage_role: "A", tanks: 10, tank_max_biomass_kg: 5000, tank_volume_m3: 200}
      - {id: "TL-ST02-HB", name: "Hall B", stage_role: "B", tanks: 10, tank_max_biomass_kg: 5000, tank_volume_m3: 200}
      - {id: "TL-ST02-HC", name: "Hall C", stage_role: "C", tanks: 10, tank_max_biomass_kg: 5000, tank_volume_m3: 200}
      - {id: "TL-ST02-HD", name: "Hall D", stage_role: "D", tanks: 10, tank_max_biomass_kg: 5000, tank_volume_m3: 200}
    areas:
      - {id: "TL-ST02-SEA", name: "Sea Area", rings: 10, ring_max_biomass_kg: 250000, ring_volume_m3: 20000}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.yaml"), []byte(seedBody), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "batchsim.yaml"), []byte("topology:\n  seed_file: seed.yaml\n"), 0o644))
	cfg, err := config.Initialize(context.Background(), dir)
	require.NoError(t, err)
	return cfg
}

func TestPlan_DerivesBatchCountFromDefaultSaturation(t *testing.T) {
	cfg := testConfig(t, "") // default seed: 14 Faroe + 10 Scotland stations, saturation 0.8
	o := orchestrator.New(orchestrator.Deps{Config: cfg})

	plans, err := o.Plan(orchestrator.PlanOptions{})
	require.NoError(t, err)

	// floor((14+10) stations * 10 Hall-A tanks * 0.8 / 10 containers_per_batch)
	assert.Len(t, plans, 19)
}

func TestPlan_BatchCountOverrideBypassesSaturation(t *testing.T) {
	cfg := testConfig(t, "")
	o := orchestrator.New(orchestrator.Deps{Config: cfg})

	plans, err := o.Plan(orchestrator.PlanOptions{BatchCount: 3})
	require.NoError(t, err)
	assert.Len(t, plans, 3)
}

func TestPlan_RoundRobinStationsAndStagger(t *testing.T) {
	cfg := singleStationConfig(t) // 2 stations in "Testland"
	o := orchestrator.New(orchestrator.Deps{Config: cfg})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	plans, err := o.Plan(orchestrator.PlanOptions{
		Geographies: []string{"Testland"},
		BatchCount:  4,
		StartDate:   start,
		StaggerDays: 30,
	})
	require.NoError(t, err)
	require.Len(t, plans, 4)

	// Round 0 (indices 0,1) hits distinct stations and shares the start date.
	assert.Equal(t, 0, plans[0].StationIndex)
	assert.Equal(t, 1, plans[1].StationIndex)
	assert.True(t, plans[0].StartDate.Equal(start))
	assert.True(t, plans[1].StartDate.Equal(start))

	// Round 1 (indices 2,3) reuses the same two stations, staggered 30 days out.
	assert.Equal(t, 0, plans[2].StationIndex)
	assert.Equal(t, 1, plans[3].StationIndex)
	assert.True(t, plans[2].StartDate.Equal(start.AddDate(0, 0, 30)))
	assert.True(t, plans[3].StartDate.Equal(start.AddDate(0, 0, 30)))
}

func TestPlan_UnknownGeographyFails(t *testing.T) {
	cfg := testConfig(t, "")
	o := orchestrator.New(orchestrator.Deps{Config: cfg})

	_, err := o.Plan(orchestrator.PlanOptions{Geographies: []string{"Nowhere"}})
	assert.Error(t, err)
}

func TestPlan_DistinctBatchNumbers(t *testing.T) {
	cfg := singleStationConfig(t)
	o := orchestrator.New(orchestrator.Deps{Config: cfg})

	plans, err := o.Plan(orchestrator.PlanOptions{Geographies: []string{"Testland"}, BatchCount: 4})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, p := range plans {
		assert.False(t, seen[p.BatchNumber], "duplicate batch number %s", p.BatchNumber)
		seen[p.BatchNumber] = true
	}
}
