package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/crewkit/internal/contract"
	"github.com/fyrsmithlabs/crewkit/internal/memory"
)

// ArchitectAgent carries the highest authority in the crew. It designs
// components from requirements, defines invariants, and documents design
// decisions. Its authority also makes it the default escalation owner.
type ArchitectAgent struct {
	mem *memory.AgentMemory
}

// NewArchitectAgent creates the design authority.
func NewArchitectAgent(store *memory.Store) *ArchitectAgent {
	a := &ArchitectAgent{}
	if store != nil {
		a.mem = memory.NewAgentMemory(a.Name(), store)
	}
	return a
}

func (a *ArchitectAgent) Name() string   { return "ArchitectAgent" }
func (a *ArchitectAgent) Authority() int { return 10 }
func (a *ArchitectAgent) Description() string {
	return "Defines architecture, enforces invariants, resolves conflicts"
}

func (a *ArchitectAgent) Execute(ctx context.Context, in contract.Input) (contract.Output, error) {
	input, ok := in.(*contract.ArchitectureInput)
	if !ok {
		return nil, fmt.Errorf("unexpected input type %T", in)
	}

	components := designComponents(input.Requirements)
	invariants := defineInvariants(components)
	decisions := makeDesignDecisions()
	contracts := defineAPIContracts(components)

	if a.mem != nil {
		names := make([]string, len(components))
		for i, c := range components {
			names[i] = c.Name
		}
		if _, err := a.mem.Remember(map[string]any{
			"components":     names,
			"invariants":     invariants,
			"decision_count": len(decisions),
		}, memory.ScopeProject, memory.WithTags("architecture", "design")); err != nil {
			return nil, err
		}
	}

	return &contract.ArchitectureOutput{
		Meta:            contract.NewMeta(input.RequestID(), a.Name()),
		Components:      components,
		Invariants:      invariants,
		DesignDecisions: decisions,
		APIContracts:    contracts,
		Risks:           identifyArchitectureRisks(components),
	}, nil
}

func designComponents(requirements []contract.Requirement) []contract.Component {
	components := []contract.Component{{
		Name:           "core",
		Responsibility: "Core infrastructure and shared utilities",
		Interfaces:     []string{"logging", "configuration", "events"},
	}}

	has := func(name string) bool {
		for _, c := range components {
			if c.Name == name {
				return true
			}
		}
		return false
	}

	for _, req := range requirements {
		desc := strings.ToLower(req.Description)

		if (strings.Contains(desc, "api") || strings.Contains(desc, "endpoint")) && !has("api") {
			components = append(components, contract.Component{
				Name:           "api",
				Responsibility: "External API layer",
				Interfaces:     []string{"rest", "validation", "auth"},
			})
		}
		if (strings.Contains(desc, "data") || strings.Contains(desc, "storage") || strings.Contains(desc, "persist")) && !has("storage") {
			components = append(components, contract.Component{
				Name:           "storage",
				Responsibility: "Data persistence layer",
				Interfaces:     []string{"crud", "query", "migration"},
			})
		}
		if (strings.Contains(desc, "auth") || strings.Contains(desc, "user") || strings.Contains(desc, "permission")) && !has("auth") {
			components = append(components, contract.Component{
				Name:           "auth",
				Responsibility: "Authentication and authorization",
				Interfaces:     []string{"login", "verify", "permissions"},
			})
		}
	}

	return components
}

func defineInvariants(components []contract.Component) []string {
	invariants := []string{
		"All inter-component communication must use defined interfaces",
		"No circular dependencies between components",
		"All public APIs must be versioned",
		"All operations must be idempotent where possible",
		"Error handling must be explicit and logged",
	}

	for _, c := range components {
		switch c.Name {
		case "storage":
			invariants = append(invariants, "All data modifications must be transactional")
		case "auth":
			invariants = append(invariants, "Authentication tokens must expire within 24 hours")
		case "api":
			invariants = append(invariants, "All API endpoints must validate input before processing")
		}
	}

	return invariants
}

func makeDesignDecisions() []contract.DesignDecision {
	return []contract.DesignDecision{{
		ID:           fmt.Sprintf("DD-%s-001", time.Now().Format("20060102")),
		Decision:     "Use layered architecture with dependency injection",
		Rationale:    "Promotes testability and loose coupling",
		Alternatives: []string{"Monolithic", "Microservices", "Event-driven"},
		Status:       "accepted",
	}}
}

func defineAPIContracts(components []contract.Component) []contract.APIContract {
	var contracts []contract.APIContract
	for _, c := range components {
		for _, iface := range c.Interfaces {
			contracts = append(contracts, contract.APIContract{
				Component: c.Name,
				Interface: iface,
				Version:   "1.0",
			})
		}
	}
	return contracts
}

func identifyArchitectureRisks(components []contract.Component) []string {
	var risks []string

	if len(components) > 5 {
		risks = append(risks, "Complex component graph may increase integration challenges")
	}
	for _, c := range components {
		if c.Name == "auth" {
			risks = append(risks, "Security-critical authentication component requires thorough review")
			break
		}
	}

	return risks
}
