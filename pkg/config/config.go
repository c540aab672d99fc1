// Package config loads batchsim.yaml (biology model profiles, orchestrator
// defaults, topology seed path) plus .env-provided environment overrides,
// the way the reference codebase's pkg/config loads tarsy.yaml.
package config

import "github.com/aquamind/batchsim/pkg/directory"

// Config is the umbrella object returned by Initialize: the resolved model
// registry, orchestrator defaults, and the infrastructure topology loaded
// or defaulted from the seed file.
type Config struct {
	configDir string

	Models       ModelRegistry
	Orchestrator OrchestratorConfig
	Directory    *directory.Directory
}

// ConfigDir returns the directory Initialize loaded from.
func (c *Config) ConfigDir() string { return c.configDir }

// ResolveModels returns the TGC/FCR/mortality model set for one batch's
// species/geography/release_period.
func (c *Config) ResolveModels(key ProfileKey) ModelSet {
	return c.Models.Resolve(key)
}
