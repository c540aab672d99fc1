package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aquamind/batchsim/pkg/directory"
	"gopkg.in/yaml.v3"
)

// fileName is the single config file Initialize loads, mirroring the
// reference codebase's single tarsy.yaml entry point.
const fileName = "batchsim.yaml"

// Initialize loads, validates, and returns ready-to-use configuration from
// configDir. This is the primary entry point, matching the reference
// codebase's config.Initialize(ctx, configDir) shape.
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	loader := &configLoader{configDir: configDir}
	raw, err := loader.loadFileYAML()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	models := newModelRegistry(raw.Models)

	orch := DefaultOrchestratorConfig()
	if raw.Orchestrator.Saturation > 0 {
		orch.Saturation = raw.Orchestrator.Saturation
	}
	if raw.Orchestrator.WorkerCount > 0 {
		orch.WorkerCount = raw.Orchestrator.WorkerCount
	}
	if raw.Orchestrator.StaggerDays > 0 {
		orch.StaggerDays = raw.Orchestrator.StaggerDays
	}
	if raw.Orchestrator.BatchTimeout != "" {
		if d, perr := time.ParseDuration(raw.Orchestrator.BatchTimeout); perr == nil {
			orch.BatchTimeout = d
		} else {
			log.Warn("invalid batch_timeout, using default", "value", raw.Orchestrator.BatchTimeout, "error", perr)
		}
	}
	if raw.Orchestrator.OrphanSweepPeriod != "" {
		if d, perr := time.ParseDuration(raw.Orchestrator.OrphanSweepPeriod); perr == nil {
			orch.OrphanSweepPeriod = d
		} else {
			log.Warn("invalid orphan_sweep_period, using default", "value", raw.Orchestrator.OrphanSweepPeriod, "error", perr)
		}
	}
	if err := validateOrchestratorConfig(orch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	dir, err := loadTopology(raw.Topology, configDir)
	if err != nil {
		return nil, fmt.Errorf("load topology: %w", err)
	}

	cfg := &Config{
		configDir:    configDir,
		Models:       models,
		Orchestrator: orch,
		Directory:    dir,
	}
	log.Info("configuration initialized")
	return cfg, nil
}

func validateOrchestratorConfig(o OrchestratorConfig) error {
	if o.Saturation <= 0 || o.Saturation > 1 {
		return fmt.Errorf("%w: saturation must be in (0,1], got %v", ErrValidationFailed, o.Saturation)
	}
	if o.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrValidationFailed, o.WorkerCount)
	}
	return nil
}

// loadTopology resolves the infrastructure directory: the YAML seed_file
// if one is configured, or directory.DefaultSeed() otherwise.
func loadTopology(t TopologyYAML, configDir string) (*directory.Directory, error) {
	if t.SeedFile == "" {
		return directory.BuildFromSeed(directory.DefaultSeed()), nil
	}
	path := t.SeedFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(configDir, path)
	}
	doc, err := directory.LoadSeedFile(path)
	if err != nil {
		return nil, err
	}
	return directory.BuildFromSeed(doc), nil
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadFileYAML() (*FileYAML, error) {
	path := filepath.Join(l.configDir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No batchsim.yaml present: every field defaults, same as the
			// reference loader's "missing optional file" tolerance for
			// llm-providers.yaml.
			return &FileYAML{}, nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var doc FileYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &doc, nil
}
