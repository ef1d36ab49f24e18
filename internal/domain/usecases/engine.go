package usecases

import "github.com/0xcro3dile/metarag-go/internal/domain/entities"

// Defaults for EngineConfig.
const (
	DefaultMaxChunks = 30
)

// EngineConfig holds everything the router and executors need besides their collaborators.
type EngineConfig struct {
	Roles entities.ModelRoles

	// MaxChunks caps how many chunks the meta path retrieves and maps.
	MaxChunks int

	// MetaQuery is the retrieval query of the meta path. Empty samples the corpus in order.
	MetaQuery string

	// ReturnIntermediateSteps attaches the map outputs to meta answers.
	ReturnIntermediateSteps bool
}

// DefaultEngineConfig returns the configuration the service ships with.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Roles:                   entities.DefaultModelRoles(),
		MaxChunks:               DefaultMaxChunks,
		ReturnIntermediateSteps: true,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.MaxChunks <= 0 {
		c.MaxChunks = DefaultMaxChunks
	}
	if c.Roles.Map.MaxConcurrency <= 0 {
		c.Roles.Map.MaxConcurrency = 1
	}
	return c
}
