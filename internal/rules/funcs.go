package rules

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
)

// builtins is the fixed function registry exposed to rule expressions.
// Rules can only call what is listed here; the registry is not extensible
// from rule files.
type builtin struct {
	arity int // -1 for variadic
	call  func(args []any) (any, error)
}

var builtins = map[string]builtin{
	"missing":          {arity: 1, call: fnMissing},
	"match":            {arity: 2, call: fnMatch},
	"withinFirstLines": {arity: 3, call: fnWithinFirstLines},
	"keyOrderInvalid":  {arity: 1, call: fnKeyOrderInvalid},
	"len":              {arity: 1, call: fnLen},
	"contains":         {arity: 2, call: fnContains},
}

// fnMissing reports whether v is undefined, null, or the empty string.
func fnMissing(args []any) (any, error) {
	switch x := args[0].(type) {
	case nil:
		return true, nil
	case string:
		return x == "", nil
	}
	return false, nil
}

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp2.Regexp{}
)

func compilePattern(pattern string) (*regexp2.Regexp, error) {
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	patternCache[pattern] = re
	return re, nil
}

// fnMatch reports whether the stringified first argument matches the given
// regular expression.
func fnMatch(args []any) (any, error) {
	pattern, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("match: pattern must be a string")
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	ok, err = re.MatchString(stringify(args[0]))
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	return ok, nil
}

// fnWithinFirstLines reports whether any of the first n newline-split lines
// of text contains keyword, case-insensitively.
func fnWithinFirstLines(args []any) (any, error) {
	text := stringify(args[0])
	keyword := strings.ToLower(stringify(args[1]))
	n, ok := args[2].(float64)
	if !ok {
		return nil, fmt.Errorf("withinFirstLines: line count must be a number")
	}
	lines := strings.Split(text, "\n")
	limit := int(n)
	if limit > len(lines) {
		limit = len(lines)
	}
	for i := 0; i < limit; i++ {
		if strings.Contains(strings.ToLower(lines[i]), keyword) {
			return true, nil
		}
	}
	return false, nil
}

// fnKeyOrderInvalid compares key-leaf names against child-leaf names
// position by position: any mismatch at the same index is invalid. The
// comparison is positional, not set-based, so extra child leafs after the
// key prefix are fine.
func fnKeyOrderInvalid(args []any) (any, error) {
	node, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("keyOrderInvalid: argument must be a list node")
	}
	keys, _ := node["key"].([]string)
	children, _ := node["children"].([]string)
	for i, key := range keys {
		if i >= len(children) || children[i] != key {
			return true, nil
		}
	}
	return false, nil
}

func fnLen(args []any) (any, error) {
	switch x := args[0].(type) {
	case nil:
		return float64(0), nil
	case string:
		return float64(len(x)), nil
	case []string:
		return float64(len(x)), nil
	case []any:
		return float64(len(x)), nil
	}
	return nil, fmt.Errorf("len: unsupported value")
}

func fnContains(args []any) (any, error) {
	switch x := args[0].(type) {
	case []string:
		needle := stringify(args[1])
		for _, s := range x {
			if s == needle {
				return true, nil
			}
		}
		return false, nil
	default:
		return strings.Contains(stringify(x), stringify(args[1])), nil
	}
}
