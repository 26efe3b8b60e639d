package engine

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the engine's YAML-loadable configuration, following the
// struct-tag convention of the teacher's config.go (optional fields tagged
// `omitempty`, loaded with gopkg.in/yaml.v3).
type Config struct {
	// MaxBackendRetries bounds how many times a read-only query retries a
	// transient graph.Backend error before surfacing it (spec.md §7).
	MaxBackendRetries int `yaml:"max_backend_retries,omitempty"`

	// VarLenExpansionCeiling caps the traversal depth of an unbounded
	// ExpandVarLen (`-[*..]-` with no upper bound), since spec.md §4.3
	// allows "the backend may impose a configured ceiling". Zero means
	// unbounded.
	VarLenExpansionCeiling int `yaml:"var_len_expansion_ceiling,omitempty"`
}

// DefaultConfig is the configuration an Engine uses when none is supplied.
func DefaultConfig() Config {
	return Config{
		MaxBackendRetries:      3,
		VarLenExpansionCeiling: 0,
	}
}

// LoadConfig reads a YAML configuration file, starting from DefaultConfig
// so an absent field keeps its default rather than zeroing out, mirroring
// `scaf.LoadConfig`'s convention of a base config merged with file content.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
