package diag

import "fmt"

// Code is a compact identifier for engine-internal diagnostic conditions.
// Rule-sourced diagnostics are identified by Diagnostic.RuleID instead and
// all share RuleViolation.
type Code uint16

// Rule-set load failures and predicate evaluation errors never become
// diagnostics (loads fail the command or clear the active set, evaluation
// errors only bump the suppressed counter), so no codes exist for them.
const (
	UnknownCode Code = 0

	// Rule evaluation
	RuleViolation Code = 3000

	// I/O
	IOLoadFileError Code = 4000
)

var codeNames = map[Code]string{
	UnknownCode:     "UNKNOWN",
	RuleViolation:   "RULE",
	IOLoadFileError: "IO_LOAD_FILE",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE%04d", uint16(c))
}

// ID returns the stable wire form, e.g. "YLS3000".
func (c Code) ID() string {
	return fmt.Sprintf("YLS%04d", uint16(c))
}
