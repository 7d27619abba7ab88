// Package schema loads YAML schemas for contracts and artifacts and
// validates data against them. Loaders are constructed explicitly and can
// watch their schema directory for changes.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// ValidationResult reports the outcome of a schema validation.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Loader caches contract and artifact schemas from a directory tree with
// contracts/ and artifacts/ subdirectories.
type Loader struct {
	mu        sync.RWMutex
	dir       string
	contracts map[string]map[string]any
	artifacts map[string]map[string]any
	logger    *zap.Logger
}

// NewLoader reads every schema under dir. Files that fail to parse are
// skipped with a warning.
func NewLoader(dir string, logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "schemas"
	}

	l := &Loader{
		dir:       dir,
		contracts: make(map[string]map[string]any),
		artifacts: make(map[string]map[string]any),
		logger:    logger,
	}
	l.reload()
	return l, nil
}

// reload re-reads both schema subdirectories.
func (l *Loader) reload() {
	contracts := l.loadDir(filepath.Join(l.dir, "contracts"))
	artifacts := l.loadDir(filepath.Join(l.dir, "artifacts"))

	l.mu.Lock()
	l.contracts = contracts
	l.artifacts = artifacts
	l.mu.Unlock()
}

func (l *Loader) loadDir(dir string) map[string]map[string]any {
	schemas := make(map[string]map[string]any)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return schemas
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("failed to read schema", zap.String("path", path), zap.Error(err))
			continue
		}

		k := koanf.New(".")
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			l.logger.Warn("failed to parse schema", zap.String("path", path), zap.Error(err))
			continue
		}

		schema := k.Raw()
		name, _ := schema["name"].(string)
		if name == "" {
			name = strings.TrimSuffix(entry.Name(), ".yaml")
		}
		schemas[name] = schema
	}

	return schemas
}

// ContractSchema returns a contract schema by name.
func (l *Loader) ContractSchema(name string) (map[string]any, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	schema, ok := l.contracts[name]
	return schema, ok
}

// ArtifactSchema returns an artifact schema by name.
func (l *Loader) ArtifactSchema(name string) (map[string]any, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	schema, ok := l.artifacts[name]
	return schema, ok
}

// ListContracts returns the loaded contract schema names.
func (l *Loader) ListContracts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.contracts))
	for name := range l.contracts {
		names = append(names, name)
	}
	return names
}

// ListArtifacts returns the loaded artifact schema names.
func (l *Loader) ListArtifacts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.artifacts))
	for name := range l.artifacts {
		names = append(names, name)
	}
	return names
}

// ValidateContractInput checks data against a contract's input schema.
func (l *Loader) ValidateContractInput(contractName string, data map[string]any) ValidationResult {
	schema, ok := l.ContractSchema(contractName)
	if !ok {
		return ValidationResult{Errors: []string{fmt.Sprintf("Unknown contract: %s", contractName)}}
	}
	inputSchema, _ := schema["input"].(map[string]any)
	return validateAgainstSchema(data, inputSchema)
}

// ValidateContractOutput checks data against a contract's output schema and
// its extra validation rules.
func (l *Loader) ValidateContractOutput(contractName string, data map[string]any) ValidationResult {
	schema, ok := l.ContractSchema(contractName)
	if !ok {
		return ValidationResult{Errors: []string{fmt.Sprintf("Unknown contract: %s", contractName)}}
	}

	outputSchema, _ := schema["output"].(map[string]any)
	result := validateAgainstSchema(data, outputSchema)

	rules, _ := schema["validation_rules"].([]any)
	for _, raw := range rules {
		rule, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if msg := applyValidationRule(data, rule); msg != "" {
			if severity, _ := rule["severity"].(string); severity == "error" {
				result.Errors = append(result.Errors, msg)
				result.Valid = false
			} else {
				result.Warnings = append(result.Warnings, msg)
			}
		}
	}

	return result
}

// ValidateArtifact checks markdown artifact content for required sections.
func (l *Loader) ValidateArtifact(artifactName, content string) ValidationResult {
	schema, ok := l.ArtifactSchema(artifactName)
	if !ok {
		return ValidationResult{Errors: []string{fmt.Sprintf("Unknown artifact: %s", artifactName)}}
	}

	var errors []string
	if format, _ := schema["format"].(string); format == "markdown" {
		structure, _ := schema["structure"].(map[string]any)
		sections, _ := structure["sections"].([]any)
		for _, raw := range sections {
			section, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			required, _ := section["required"].(bool)
			heading, _ := section["heading"].(string)
			if required && heading != "" && !strings.Contains(content, heading) {
				errors = append(errors, fmt.Sprintf("Missing required section: %s", heading))
			}
		}
	}

	return ValidationResult{Valid: len(errors) == 0, Errors: errors}
}

func validateAgainstSchema(data map[string]any, schema map[string]any) ValidationResult {
	var errors []string

	required, _ := schema["required"].([]any)
	for _, raw := range required {
		field, ok := raw.(string)
		if !ok {
			continue
		}
		if value, present := data[field]; !present || value == nil {
			errors = append(errors, fmt.Sprintf("Missing required field: %s", field))
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for propName, rawProp := range properties {
		propSchema, ok := rawProp.(map[string]any)
		if !ok {
			continue
		}
		value, present := data[propName]
		if !present {
			continue
		}

		if expectedType, _ := propSchema["type"].(string); expectedType != "" {
			if msg := checkType(propName, value, expectedType); msg != "" {
				errors = append(errors, msg)
			}
		}

		if pattern, _ := propSchema["pattern"].(string); pattern != "" {
			if str, ok := value.(string); ok {
				if matched, err := regexp.MatchString(pattern, str); err == nil && !matched {
					errors = append(errors, fmt.Sprintf("Field %s does not match pattern %s", propName, pattern))
				}
			}
		}

		if enum, ok := propSchema["enum"].([]any); ok {
			found := false
			for _, allowed := range enum {
				if value == allowed {
					found = true
					break
				}
			}
			if !found {
				errors = append(errors, fmt.Sprintf("Field %s must be one of %v", propName, enum))
			}
		}
	}

	return ValidationResult{Valid: len(errors) == 0, Errors: errors}
}

func checkType(name string, value any, expectedType string) string {
	ok := true
	switch expectedType {
	case "string":
		_, ok = value.(string)
	case "array":
		_, ok = value.([]any)
	case "object":
		_, ok = value.(map[string]any)
	case "boolean":
		_, ok = value.(bool)
	case "number":
		switch value.(type) {
		case int, int64, float64:
		default:
			ok = false
		}
	}
	if !ok {
		article := "a"
		if expectedType == "array" || expectedType == "object" {
			article = "an"
		}
		return fmt.Sprintf("Field %s must be %s %s", name, article, expectedType)
	}
	return ""
}

var lenRulePattern = regexp.MustCompile(`len\((\w+)\)`)

// applyValidationRule evaluates the small rule language used by contract
// schemas. Only non-empty length conditions are supported.
func applyValidationRule(data map[string]any, rule map[string]any) string {
	condition, _ := rule["condition"].(string)
	message, _ := rule["message"].(string)
	if message == "" {
		message = "Validation failed"
	}

	if strings.Contains(condition, "len(") && strings.Contains(condition, ") > 0") {
		if m := lenRulePattern.FindStringSubmatch(condition); m != nil {
			if value, ok := data[m[1]]; ok {
				switch v := value.(type) {
				case string:
					if len(v) == 0 {
						return message
					}
				case []any:
					if len(v) == 0 {
						return message
					}
				}
			}
		}
	}

	return ""
}
