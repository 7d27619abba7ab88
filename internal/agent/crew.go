package agent

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewkit/internal/evaluation"
	"github.com/fyrsmithlabs/crewkit/internal/memory"
)

// DefaultCrew builds a registry with all built-in agents wrapped in runners
// sharing one memory store and evaluation system.
func DefaultCrew(store *memory.Store, eval *evaluation.System, logger *zap.Logger) (*Registry, error) {
	registry := NewRegistry()

	agents := []Agent{
		NewProductAgent(store),
		NewArchitectAgent(store),
		NewImplementationAgent(store),
		NewReviewerAgent(store),
		NewBuildTestAgent(store),
		NewIntegratorAgent(store),
		NewInfraAgent(store),
	}
	for _, a := range agents {
		if err := registry.Register(NewRunner(a, store, eval, logger)); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
