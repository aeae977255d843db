package rules

import (
	"strings"

	"yangls/internal/yang"
)

// Bindings expose extracted nodes to rule expressions as plain maps. The
// conversion is explicit so the expression language never sees a Go value it
// was not meant to: what is listed here is the whole rule-visible surface.

func bindAst(ast *yang.Ast) map[string]any {
	m := map[string]any{
		"module":      nil,
		"imports":     bindEach(ast.Imports, bindImport),
		"typedefs":    bindEach(ast.Typedefs, bindTypedef),
		"statuses":    bindEach(ast.Statuses, bindStatus),
		"lists":       bindEach(ast.Lists, bindList),
		"blocks":      bindEach(ast.Blocks, bindBlock),
		"deviations":  bindEach(ast.Deviations, bindDeviation),
		"constraints": bindEach(ast.Constraints, bindConstraint),
	}
	if ast.Module != nil {
		m["module"] = bindModule(*ast.Module)
	}
	return m
}

func bindEach[T any](nodes []T, bind func(T) map[string]any) []any {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = bind(n)
	}
	return out
}

func bindModule(h yang.ModuleHeader) map[string]any {
	return map[string]any{
		"name":      h.Name,
		"namespace": h.Namespace,
		"line":      h.Line,
	}
}

func bindImport(n yang.ImportNode) map[string]any {
	return map[string]any{
		"name": n.Name,
		"line": n.Line,
	}
}

func bindTypedef(n yang.TypedefNode) map[string]any {
	return map[string]any{
		"name": n.Name,
		"line": n.Line,
		"body": strings.Join(n.Body, "\n"),
	}
}

func bindStatus(n yang.StatusNode) map[string]any {
	return map[string]any{
		"value":     string(n.Value),
		"line":      n.Line,
		"following": strings.Join(n.Following, "\n"),
	}
}

func bindList(n yang.ListNode) map[string]any {
	return map[string]any{
		"name":     n.Name,
		"line":     n.Line,
		"key":      n.Keys,
		"children": n.Children,
		"body":     strings.Join(n.Body, "\n"),
	}
}

func bindBlock(n yang.BlockNode) map[string]any {
	return map[string]any{
		"keyword": n.Keyword,
		"name":    n.Name,
		"line":    n.Line,
		"body":    strings.Join(n.Body, "\n"),
	}
}

func bindDeviation(n yang.DeviationNode) map[string]any {
	return map[string]any{
		"target":    n.Target,
		"duplicate": n.Duplicate,
	}
}

func bindConstraint(n yang.ConstraintNode) map[string]any {
	return map[string]any{
		"keyword":        n.Keyword,
		"name":           n.Name,
		"hasMust":        n.HasMust,
		"hasWhen":        n.HasWhen,
		"hasDescription": n.HasDescription,
	}
}
