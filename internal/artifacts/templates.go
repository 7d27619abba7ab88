package artifacts

import "strings"

// Template returns the seed content for an artifact type.
func Template(t Type) string {
	if tmpl, ok := templates[t]; ok {
		return tmpl
	}
	return "# " + titleWords(string(t))
}

func titleWords(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

var templates = map[Type]string{
	TypeRequirements: `# Requirements

## Functional Requirements
- [ ] FR-001: [Description]

## Non-Functional Requirements
- [ ] NFR-001: [Description]

## Acceptance Criteria
- [ ] AC-001: [Criterion]
`,
	TypeArchitecture: `# Architecture

## Overview
[System overview]

## Components
### Component 1
- Responsibility:
- Interfaces:

## Invariants
1. [Invariant description]

## Design Decisions
See DESIGN_DECISIONS.log
`,
	TypeDesignDecisions: `# Design Decisions Log

## DD-001: [Title]
- Date:
- Status: proposed | accepted | rejected
- Context:
- Decision:
- Rationale:
- Alternatives Considered:
`,
	TypeAPIContracts: `# API Contracts

contracts:
  - name: ExampleContract
    version: "1.0"
    input:
      type: object
      properties:
        request_id:
          type: string
    output:
      type: object
      properties:
        success:
          type: boolean
`,
	TypeCodingStandards: `# Coding Standards

## General
- Use clear, descriptive names
- Keep functions small and focused
- Write tests for all new code

## Go
- Run gofmt before committing
- Handle every returned error
- Maximum line length: 100

## Documentation
- All exported identifiers must have doc comments
`,
	TypeRiskRegister: `# Risk Register

## R-001: [Risk Title]
- Probability: Low | Medium | High
- Impact: Low | Medium | High
- Mitigation:
- Status: Open | Mitigated | Closed
`,
}
