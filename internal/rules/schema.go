package rules

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Schema is the schema document every rule file is validated against before
// compilation. It lives next to the rule file and is hot-reloaded with it,
// so projects can restrict the rule surface without rebuilding the tool.
type Schema struct {
	Rule struct {
		Required   []string `yaml:"required"`
		Severity   []string `yaml:"severity"`
		Scope      []string `yaml:"scope"`
		MaxExprLen int      `yaml:"max-expression-length"`
	} `yaml:"rule"`
}

// ParseSchema decodes and sanity-checks a schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema document: %w", err)
	}
	if len(s.Rule.Severity) == 0 {
		return nil, fmt.Errorf("schema document declares no severities")
	}
	if len(s.Rule.Scope) == 0 {
		return nil, fmt.Errorf("schema document declares no scopes")
	}
	return &s, nil
}

// ValidateRecord checks one rule record against the schema: required fields
// present, severity and scope within the declared domains, expression within
// the length cap.
func (s *Schema) ValidateRecord(r RuleRecord) error {
	fields := map[string]string{
		"id":          r.ID,
		"description": r.Description,
		"severity":    r.Severity,
		"scope":       r.Scope,
		"when":        r.When,
	}
	for _, name := range s.Rule.Required {
		if fields[name] == "" {
			return fmt.Errorf("rule %q: missing required field %q", r.ID, name)
		}
	}
	if r.Severity != "" && !slices.Contains(s.Rule.Severity, r.Severity) {
		return fmt.Errorf("rule %q: severity %q not in %v", r.ID, r.Severity, s.Rule.Severity)
	}
	if r.Scope != "" && !slices.Contains(s.Rule.Scope, r.Scope) {
		return fmt.Errorf("rule %q: scope %q not in %v", r.ID, r.Scope, s.Rule.Scope)
	}
	if s.Rule.MaxExprLen > 0 && len(r.When) > s.Rule.MaxExprLen {
		return fmt.Errorf("rule %q: expression exceeds %d characters", r.ID, s.Rule.MaxExprLen)
	}
	return nil
}
