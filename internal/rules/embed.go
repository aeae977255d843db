package rules

import "embed"

// Built-in rule set and schema, used when a project does not carry its own.
//
//go:embed defaults/rules.yaml defaults/rules-schema.yaml
var defaultsFS embed.FS

// DefaultRules returns the embedded rule file.
func DefaultRules() []byte {
	data, err := defaultsFS.ReadFile("defaults/rules.yaml")
	if err != nil {
		panic(err) // embedded file, cannot fail
	}
	return data
}

// DefaultSchema returns the embedded schema document.
func DefaultSchema() []byte {
	data, err := defaultsFS.ReadFile("defaults/rules-schema.yaml")
	if err != nil {
		panic(err)
	}
	return data
}
