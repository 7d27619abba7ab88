package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/crewkit/internal/contract"
	"github.com/fyrsmithlabs/crewkit/internal/memory"
)

// ProductAgent owns requirements: it turns a raw user request into structured
// requirements with acceptance criteria, constraints, and risks.
type ProductAgent struct {
	mem *memory.AgentMemory
}

// NewProductAgent creates the requirements owner. The store may be nil for
// memory-less use.
func NewProductAgent(store *memory.Store) *ProductAgent {
	a := &ProductAgent{}
	if store != nil {
		a.mem = memory.NewAgentMemory(a.Name(), store)
	}
	return a
}

func (a *ProductAgent) Name() string      { return "ProductAgent" }
func (a *ProductAgent) Authority() int    { return 9 }
func (a *ProductAgent) Description() string {
	return "Defines requirements, acceptance criteria, and priorities"
}

func (a *ProductAgent) Execute(ctx context.Context, in contract.Input) (contract.Output, error) {
	input, ok := in.(*contract.RequirementsInput)
	if !ok {
		return nil, fmt.Errorf("unexpected input type %T", in)
	}

	requirements := parseRequirements(input.UserRequest)
	criteria := defineAcceptanceCriteria(requirements)
	constraints := identifyConstraints(input.Constraints)
	risks := identifyRequirementRisks(requirements)

	if a.mem != nil {
		preview := input.UserRequest
		if len(preview) > 200 {
			preview = preview[:200]
		}
		if _, err := a.mem.Remember(map[string]any{
			"requirements_count": len(requirements),
			"user_request":       preview,
		}, memory.ScopeProject, memory.WithTags("requirements", "product")); err != nil {
			return nil, err
		}
	}

	return &contract.RequirementsOutput{
		Meta:               contract.NewMeta(input.RequestID(), a.Name()),
		Requirements:       requirements,
		AcceptanceCriteria: criteria,
		Constraints:        constraints,
		Risks:              risks,
	}, nil
}

// parseRequirements splits the request on sentence and clause boundaries and
// keeps fragments long enough to stand alone as requirements.
func parseRequirements(userRequest string) []contract.Requirement {
	var requirements []contract.Requirement
	reqID := 1

	normalized := strings.NewReplacer(".", "\n", ",", "\n").Replace(userRequest)
	for _, part := range strings.Split(normalized, "\n") {
		part = strings.TrimSpace(part)
		if len(part) <= 10 {
			continue
		}

		priority := "medium"
		lower := strings.ToLower(part)
		for _, w := range []string{"must", "critical", "essential"} {
			if strings.Contains(lower, w) {
				priority = "high"
				break
			}
		}

		requirements = append(requirements, contract.Requirement{
			ID:          fmt.Sprintf("REQ-%03d", reqID),
			Description: part,
			Priority:    priority,
			Status:      "proposed",
		})
		reqID++
	}

	if len(requirements) == 0 {
		requirements = append(requirements, contract.Requirement{
			ID:          "REQ-001",
			Description: userRequest,
			Priority:    "high",
			Status:      "proposed",
		})
	}

	return requirements
}

func defineAcceptanceCriteria(requirements []contract.Requirement) []string {
	var criteria []string

	for _, req := range requirements {
		desc := strings.ToLower(req.Description)
		before := len(criteria)

		if strings.Contains(desc, "api") || strings.Contains(desc, "endpoint") {
			criteria = append(criteria,
				fmt.Sprintf("AC-%s-01: API returns valid JSON response", req.ID),
				fmt.Sprintf("AC-%s-02: API validates all input parameters", req.ID))
		}
		if strings.Contains(desc, "auth") || strings.Contains(desc, "login") {
			criteria = append(criteria,
				fmt.Sprintf("AC-%s-01: User can authenticate with valid credentials", req.ID),
				fmt.Sprintf("AC-%s-02: Invalid credentials return appropriate error", req.ID))
		}
		if strings.Contains(desc, "data") || strings.Contains(desc, "save") || strings.Contains(desc, "store") {
			criteria = append(criteria,
				fmt.Sprintf("AC-%s-01: Data persists correctly after save", req.ID),
				fmt.Sprintf("AC-%s-02: Data can be retrieved after storage", req.ID))
		}

		if len(criteria) == before {
			criteria = append(criteria,
				fmt.Sprintf("AC-%s-01: Requirement is implemented as specified", req.ID),
				fmt.Sprintf("AC-%s-02: Implementation passes all tests", req.ID))
		}
	}

	return criteria
}

func identifyConstraints(given []string) []string {
	constraints := append([]string(nil), given...)

	defaults := []string{
		"Must target a supported Go release",
		"Must follow project coding standards",
		"Must include unit tests for all new code",
	}
	for _, c := range defaults {
		found := false
		for _, existing := range constraints {
			if existing == c {
				found = true
				break
			}
		}
		if !found {
			constraints = append(constraints, c)
		}
	}

	return constraints
}

func identifyRequirementRisks(requirements []contract.Requirement) []string {
	var risks []string

	for _, req := range requirements {
		desc := strings.ToLower(req.Description)

		if strings.Contains(desc, "security") || strings.Contains(desc, "auth") {
			risks = append(risks, fmt.Sprintf("R-%s: Security-critical functionality requires thorough review", req.ID))
		}
		if strings.Contains(desc, "performance") || strings.Contains(desc, "scale") {
			risks = append(risks, fmt.Sprintf("R-%s: Performance requirements need benchmarking", req.ID))
		}
		if strings.Contains(desc, "integrat") || strings.Contains(desc, "external") {
			risks = append(risks, fmt.Sprintf("R-%s: External dependencies may introduce compatibility issues", req.ID))
		}
	}

	return risks
}
