package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/crewkit/internal/contract"
	"github.com/fyrsmithlabs/crewkit/internal/evaluation"
	"github.com/fyrsmithlabs/crewkit/internal/memory"
)

func registryWith(t *testing.T, agents ...Agent) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, a := range agents {
		runner, _, _ := newTestRunner(t, a)
		require.NoError(t, reg.Register(runner))
	}
	return reg
}

func noopExecute(ctx context.Context, in contract.Input) (contract.Output, error) {
	return testOutput{Meta: contract.NewMeta(in.RequestID(), "")}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := registryWith(t, &stubAgent{name: "a", authority: 5, execute: noopExecute})

	runner, ok := reg.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", runner.Name())

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := registryWith(t, &stubAgent{name: "a", authority: 5, execute: noopExecute})

	dup, _, _ := newTestRunner(t, &stubAgent{name: "a", authority: 7, execute: noopExecute})
	err := reg.Register(dup)
	assert.Error(t, err)
}

func TestRegistryListOrdering(t *testing.T) {
	reg := registryWith(t,
		&stubAgent{name: "beta", authority: 5, execute: noopExecute},
		&stubAgent{name: "alpha", authority: 5, execute: noopExecute},
		&stubAgent{name: "chief", authority: 10, execute: noopExecute},
	)

	infos := reg.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "chief", infos[0].Name)
	assert.Equal(t, "alpha", infos[1].Name, "equal authority sorts by name")
	assert.Equal(t, "beta", infos[2].Name)
}

func TestRegistryHighestAuthority(t *testing.T) {
	empty := NewRegistry()
	_, ok := empty.HighestAuthority()
	assert.False(t, ok)

	reg := registryWith(t,
		&stubAgent{name: "low", authority: 3, execute: noopExecute},
		&stubAgent{name: "high", authority: 9, execute: noopExecute},
	)
	top, ok := reg.HighestAuthority()
	require.True(t, ok)
	assert.Equal(t, "high", top.Name())
}

func TestDefaultCrewRoster(t *testing.T) {
	store, err := memory.NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	eval, err := evaluation.NewSystem(t.TempDir(), nil)
	require.NoError(t, err)

	reg, err := DefaultCrew(store, eval, nil)
	require.NoError(t, err)

	names := reg.Names()
	assert.Equal(t, []string{
		"ArchitectAgent", "BuildTestAgent", "ImplementationAgent", "InfraAgent",
		"IntegratorAgent", "ProductAgent", "ReviewerAgent",
	}, names)

	top, ok := reg.HighestAuthority()
	require.True(t, ok)
	assert.Equal(t, "ArchitectAgent", top.Name())
	assert.Equal(t, 10, top.Authority())
}
