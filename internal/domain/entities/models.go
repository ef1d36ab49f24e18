package entities

import "fmt"

// ModelConfig identifies a model and how it may be called.
type ModelConfig struct {
	Model          string  `yaml:"model" json:"model"`
	Temperature    float64 `yaml:"temperature" json:"temperature"`
	MaxConcurrency int     `yaml:"max_concurrency" json:"max_concurrency"`
}

// Key identifies the configuration for per-configuration admission control.
// Configurations that differ only in their ceiling get separate keys.
func (c ModelConfig) Key() string {
	return fmt.Sprintf("%s@%.2f/%d", c.Model, c.Temperature, c.MaxConcurrency)
}

// ModelRoles is the named set of model configurations the engine uses.
// Map is cheap and parallel, Reduce and Fact are strong, Classifier is the strongest and deterministic.
type ModelRoles struct {
	Classifier ModelConfig `yaml:"classifier" json:"classifier"`
	Fact       ModelConfig `yaml:"fact" json:"fact"`
	Map        ModelConfig `yaml:"map" json:"map"`
	Reduce     ModelConfig `yaml:"reduce" json:"reduce"`
}

// DefaultModelRoles mirrors the deployment the service was tuned against.
func DefaultModelRoles() ModelRoles {
	return ModelRoles{
		Classifier: ModelConfig{Model: "gpt-4", Temperature: 0, MaxConcurrency: 1},
		Fact:       ModelConfig{Model: "gpt-4", Temperature: 0, MaxConcurrency: 1},
		Map:        ModelConfig{Model: "gpt-3.5-turbo", Temperature: 0, MaxConcurrency: 3},
		Reduce:     ModelConfig{Model: "gpt-4", Temperature: 0, MaxConcurrency: 1},
	}
}
