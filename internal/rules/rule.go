package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"yangls/internal/diag"
)

// RuleRecord is one declarative rule as spelled in the rule file.
type RuleRecord struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Severity    string `yaml:"severity"`
	Scope       string `yaml:"scope"`
	When        string `yaml:"when"`
}

// CompiledRule pairs a record with its compiled predicate.
type CompiledRule struct {
	Record   RuleRecord
	Severity diag.Severity
	pred     Expr
}

type ruleFile struct {
	Rules []RuleRecord `yaml:"rules"`
}

// ParseRules decodes a YAML rule file into its ordered records. Rule order
// in the file is evaluation order.
func ParseRules(data []byte) ([]RuleRecord, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rule file declares no rules")
	}
	return f.Rules, nil
}
