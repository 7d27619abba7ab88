package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the runners for a crew of agents. It is built explicitly at
// composition time; there is no package-level instance.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]*Runner
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]*Runner)}
}

// Register adds a runner. Registering the same agent name twice is an error.
func (r *Registry) Register(runner *Runner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := runner.Name()
	if _, exists := r.runners[name]; exists {
		return fmt.Errorf("agent %q already registered", name)
	}
	r.runners[name] = runner
	return nil
}

// Get returns the runner for an agent name.
func (r *Registry) Get(name string) (*Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.runners[name]
	return runner, ok
}

// Info describes a registered agent.
type Info struct {
	Name        string `json:"name"`
	Authority   int    `json:"authority"`
	Description string `json:"description"`
}

// List returns all registered agents, highest authority first.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.runners))
	for _, runner := range r.runners {
		a := runner.Agent()
		infos = append(infos, Info{
			Name:        a.Name(),
			Authority:   a.Authority(),
			Description: a.Description(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Authority != infos[j].Authority {
			return infos[i].Authority > infos[j].Authority
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// HighestAuthority returns the registered agent with the greatest authority,
// ties broken by name. False when the registry is empty.
func (r *Registry) HighestAuthority() (*Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *Runner
	for _, runner := range r.runners {
		switch {
		case best == nil:
			best = runner
		case runner.Authority() > best.Authority():
			best = runner
		case runner.Authority() == best.Authority() && runner.Name() < best.Name():
			best = runner
		}
	}
	return best, best != nil
}

// Names returns the registered agent names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
