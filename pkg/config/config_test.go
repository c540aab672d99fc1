package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aquamind/batchsim/pkg/config"
	"github.com/aquamind/batchsim/pkg/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "batchsim.yaml"), []byte(body), 0o644))
	return dir
}

func TestInitialize_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.Orchestrator.Saturation)
	assert.Equal(t, 8, cfg.Orchestrator.WorkerCount)
	assert.NotNil(t, cfg.Directory)

	set := cfg.ResolveModels(config.ProfileKey{Species: "Atlantic Salmon", Geography: "Faroe Islands"})
	assert.Equal(t, 2.8, set.TGC.DefaultPerThousand)
}

func TestInitialize_ProfileOverrideAppliesOnTopOfDefault(t *testing.T) {
	dir := writeConfig(t, `
models:
  default:
    tgc_per_thousand: 2.8
  profiles:
    - species: "Atlantic Salmon"
      geography: "Scotland"
      tgc_per_thousand: 3.1
      mortality_daily_rate:
        adult: 0.0001
orchestrator:
  saturation: 0.5
  worker_count: 4
  stagger_days: 15
  batch_timeout: 45m
`)
	cfg, err := config.Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Orchestrator.Saturation)
	assert.Equal(t, 4, cfg.Orchestrator.WorkerCount)
	assert.Equal(t, 15, cfg.Orchestrator.StaggerDays)

	scotland := cfg.ResolveModels(config.ProfileKey{Species: "Atlantic Salmon", Geography: "Scotland"})
	assert.Equal(t, 3.1, scotland.TGC.DefaultPerThousand)
	assert.Equal(t, 0.0001, scotland.Mortality.DailyRate[directory.StageAdult])
	// fry rate falls through untouched since only adult was overridden.
	assert.Equal(t, 0.0003, scotland.Mortality.DailyRate[directory.StageFry])

	faroe := cfg.ResolveModels(config.ProfileKey{Species: "Atlantic Salmon", Geography: "Faroe Islands"})
	assert.Equal(t, 2.8, faroe.TGC.DefaultPerThousand, "Scotland override must not leak into other geographies")
}

func TestInitialize_InvalidSaturationFailsValidation(t *testing.T) {
	dir := writeConfig(t, `
orchestrator:
  saturation: 1.5
  worker_count: 4
`)
	_, err := config.Initialize(context.Background(), dir)
	assert.ErrorIs(t, err, config.ErrValidationFailed)
}

func TestInitialize_TopologySeedFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	seedBody := `
geographies: ["Testland"]
stations:
  - id: "TL-ST01"
    geography: "Testland"
    index: 0
    halls:
      - id: "TL-ST01-HA"
        name: "Hall A"
        stage_role: "A"
        tanks: 1
        tank_max_biomass_kg: 5000
        tank_volume_m3: 200
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.yaml"), []byte(seedBody), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "batchsim.yaml"), []byte("topology:\n  seed_file: seed.yaml\n"), 0o644))

	cfg, err := config.Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Directory.StationCount("Testland"))
}
