// Package rules loads, compiles, and evaluates the declarative rule set
// against extracted document models.
//
// The engine is an explicit, instantiable handle: construct one with
// NewEngine and share it between the server and CLI paths. There is no
// package-level rule state. Load replaces the active rule set wholesale; a
// failed load always leaves the engine with zero rules, never a partial or
// stale set, so the worst failure mode is "no diagnostics".
package rules

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sync"

	"yangls/internal/diag"
	"yangls/internal/source"
	"yangls/internal/yang"
)

// Engine holds the active compiled rule set and the per-document deviation
// index used by the merge quick-fix.
type Engine struct {
	mu          sync.Mutex
	rules       []CompiledRule
	rulesetHash [32]byte
	deviations  map[string]map[string][]source.Span // doc key -> target path -> spans
}

func NewEngine() *Engine {
	return &Engine{
		deviations: make(map[string]map[string][]source.Span),
	}
}

// Load validates rulesData against schemaData, compiles every expression,
// and atomically swaps in the new rule set. Any failure (malformed YAML,
// schema violation, compile error) empties the active set and is returned
// to the caller; the caller reports it once per reload attempt.
func (e *Engine) Load(rulesData, schemaData []byte) error {
	schema, err := ParseSchema(schemaData)
	if err != nil {
		e.install(nil, [32]byte{})
		return err
	}
	records, err := ParseRules(rulesData)
	if err != nil {
		e.install(nil, [32]byte{})
		return err
	}
	compiled := make([]CompiledRule, 0, len(records))
	for _, rec := range records {
		if err := schema.ValidateRecord(rec); err != nil {
			e.install(nil, [32]byte{})
			return err
		}
		sev, err := diag.ParseSeverity(rec.Severity)
		if err != nil {
			e.install(nil, [32]byte{})
			return fmt.Errorf("rule %q: %w", rec.ID, err)
		}
		pred, err := Compile(rec.When)
		if err != nil {
			e.install(nil, [32]byte{})
			return fmt.Errorf("rule %q: %w", rec.ID, err)
		}
		compiled = append(compiled, CompiledRule{Record: rec, Severity: sev, pred: pred})
	}
	e.install(compiled, sha256.Sum256(rulesData))
	return nil
}

// LoadFiles reads the rule and schema documents from disk and calls Load.
// Read failures empty the active set, same as content failures.
func (e *Engine) LoadFiles(rulesPath, schemaPath string) error {
	rulesData, err := os.ReadFile(rulesPath)
	if err != nil {
		e.install(nil, [32]byte{})
		return fmt.Errorf("read rule file: %w", err)
	}
	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		e.install(nil, [32]byte{})
		return fmt.Errorf("read schema document: %w", err)
	}
	return e.Load(rulesData, schemaData)
}

func (e *Engine) install(rules []CompiledRule, hash [32]byte) {
	e.mu.Lock()
	e.rules = rules
	e.rulesetHash = hash
	e.mu.Unlock()
}

// RuleCount returns the number of active compiled rules.
func (e *Engine) RuleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rules)
}

// RulesetHash identifies the active rule set; the lint cache keys on it.
func (e *Engine) RulesetHash() [32]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rulesetHash
}

// Result is the outcome of one validation pass.
type Result struct {
	Diagnostics []diag.Diagnostic
	// Suppressed counts (rule, node) evaluations skipped because the
	// expression errored on that node. Each skip drops exactly one
	// potential diagnostic; all other pairs still run.
	Suppressed int
}

type candidate struct {
	span    source.Span
	binding map[string]any
	group   string // deviation target path, "" for other scopes
}

// Validate evaluates the active rule set against one document's model.
// It first rebuilds the deviation index for docKey from ast.Deviations,
// then walks rules in definition order and each rule's candidate nodes in
// collection order. Diagnostics come out in that enumeration order; they
// are not sorted by source position.
func (e *Engine) Validate(docKey string, ast *yang.Ast) Result {
	e.mu.Lock()
	rules := e.rules
	e.rebuildDeviationIndexLocked(docKey, ast)
	e.mu.Unlock()

	astBinding := bindAst(ast)
	var res Result
	for _, rule := range rules {
		scope := rule.Record.Scope
		for _, cand := range candidatesFor(scope, ast) {
			env := Env{"ast": astBinding, scope: cand.binding}
			v, err := rule.pred.Eval(env)
			if err != nil {
				res.Suppressed++
				continue
			}
			if !Truthy(v) {
				continue
			}
			res.Diagnostics = append(res.Diagnostics, diag.Diagnostic{
				Severity: rule.Severity,
				Code:     diag.RuleViolation,
				RuleID:   rule.Record.ID,
				Message:  rule.Record.Description,
				Primary:  cand.span,
				GroupID:  cand.group,
			})
		}
	}
	return res
}

func (e *Engine) rebuildDeviationIndexLocked(docKey string, ast *yang.Ast) {
	index := make(map[string][]source.Span, len(ast.Deviations))
	for _, d := range ast.Deviations {
		index[d.Target] = append(index[d.Target], d.Span)
	}
	e.deviations[docKey] = index
}

// IndexDeviations rebuilds the deviation index for docKey without running
// any rules. Used when a document's findings come from the lint cache but
// fix synthesis still needs the occurrence spans.
func (e *Engine) IndexDeviations(docKey string, ast *yang.Ast) {
	e.mu.Lock()
	e.rebuildDeviationIndexLocked(docKey, ast)
	e.mu.Unlock()
}

// DeviationGroup returns the occurrence spans recorded for target in
// docKey's most recent validation pass, in document order.
func (e *Engine) DeviationGroup(docKey, target string) ([]source.Span, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	index, ok := e.deviations[docKey]
	if !ok {
		return nil, false
	}
	spans, ok := index[target]
	if !ok {
		return nil, false
	}
	out := make([]source.Span, len(spans))
	copy(out, spans)
	return out, true
}

// DropDocument forgets the deviation index for a closed document.
func (e *Engine) DropDocument(docKey string) {
	e.mu.Lock()
	delete(e.deviations, docKey)
	e.mu.Unlock()
}

func candidatesFor(scope string, ast *yang.Ast) []candidate {
	var out []candidate
	switch scope {
	case "module":
		// 0-or-1 element scope
		if ast.Module != nil {
			out = append(out, candidate{span: ast.Module.Span, binding: bindModule(*ast.Module)})
		}
	case "import":
		for _, n := range ast.Imports {
			out = append(out, candidate{span: n.Span, binding: bindImport(n)})
		}
	case "typedef":
		for _, n := range ast.Typedefs {
			out = append(out, candidate{span: n.Span, binding: bindTypedef(n)})
		}
	case "status":
		for _, n := range ast.Statuses {
			out = append(out, candidate{span: n.Span, binding: bindStatus(n)})
		}
	case "list":
		for _, n := range ast.Lists {
			out = append(out, candidate{span: n.Span, binding: bindList(n)})
		}
	case "deviation":
		for _, n := range ast.Deviations {
			out = append(out, candidate{span: n.Span, binding: bindDeviation(n), group: n.Target})
		}
	case "constraint":
		for _, n := range ast.Constraints {
			out = append(out, candidate{span: n.Span, binding: bindConstraint(n)})
		}
	default:
		// the generic block keywords share one dispatch path, filtered by
		// keyword equality
		for _, n := range ast.Blocks {
			if n.Keyword == scope {
				out = append(out, candidate{span: n.Span, binding: bindBlock(n)})
			}
		}
	}
	return out
}
