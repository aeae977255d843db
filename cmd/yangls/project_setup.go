package main

import (
	"fmt"

	"yangls/internal/driver"
	"yangls/internal/project"
	"yangls/internal/rules"
)

// setupEngine walks up from startDir looking for a yangls.toml manifest and
// installs the rule set it names, falling back to the built-in defaults.
func setupEngine(startDir string) (*rules.Engine, *project.Manifest, error) {
	manifest, ok, err := project.LoadNearest(startDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	if !ok {
		manifest = nil
	}
	engine := rules.NewEngine()
	if err := driver.LoadProjectRules(engine, manifest); err != nil {
		return nil, nil, fmt.Errorf("failed to load rule set: %w", err)
	}
	return engine, manifest, nil
}
