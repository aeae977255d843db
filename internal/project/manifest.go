package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the parsed content of a yangls.toml manifest.
type Config struct {
	Project ProjectConfig `toml:"project"`
	Rules   RulesConfig   `toml:"rules"`
	Lint    LintConfig    `toml:"lint"`
}

// ProjectConfig is the [project] section.
type ProjectConfig struct {
	Name string `toml:"name"`
}

// RulesConfig is the [rules] section. Paths are relative to the manifest
// directory; empty paths fall back to the embedded defaults.
type RulesConfig struct {
	Path   string `toml:"path"`
	Schema string `toml:"schema"`
}

// LintConfig is the [lint] section.
type LintConfig struct {
	MaxDiagnostics int      `toml:"max-diagnostics"`
	Exclude        []string `toml:"exclude"`
}

// DefaultMaxDiagnostics bounds a lint run when the manifest does not say.
const DefaultMaxDiagnostics = 1000

// Manifest is a located and parsed yangls.toml.
type Manifest struct {
	Path   string // absolute path of yangls.toml
	Root   string // directory containing it
	Config Config
}

// Load parses the manifest at path and validates the fields it understands.
func Load(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if meta.IsDefined("project", "name") && strings.TrimSpace(cfg.Project.Name) == "" {
		return nil, fmt.Errorf("%s: [project].name is empty", path)
	}
	if meta.IsDefined("lint", "max-diagnostics") && cfg.Lint.MaxDiagnostics <= 0 {
		return nil, fmt.Errorf("%s: [lint].max-diagnostics must be positive", path)
	}
	if !meta.IsDefined("lint", "max-diagnostics") {
		cfg.Lint.MaxDiagnostics = DefaultMaxDiagnostics
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve path: %w", path, err)
	}
	return &Manifest{
		Path:   abs,
		Root:   filepath.Dir(abs),
		Config: cfg,
	}, nil
}

// RulesPath returns the absolute path of the project rule file, "" when the
// manifest does not name one.
func (m *Manifest) RulesPath() string {
	return m.resolve(m.Config.Rules.Path)
}

// SchemaPath returns the absolute path of the project rule schema, "" when
// the manifest does not name one.
func (m *Manifest) SchemaPath() string {
	return m.resolve(m.Config.Rules.Schema)
}

func (m *Manifest) resolve(rel string) string {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return ""
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(m.Root, filepath.FromSlash(rel))
}
