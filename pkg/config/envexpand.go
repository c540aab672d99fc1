package config

import "os"

// ExpandEnv expands ${VAR}/$VAR references in YAML content before parsing,
// so model/orchestrator config files can reference environment-provided
// values (e.g. a DSN fragment) without baking them into the repo.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
