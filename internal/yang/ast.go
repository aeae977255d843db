package yang

import "yangls/internal/source"

// previewLines caps the body previews stored on extracted nodes.
const previewLines = 10

// ModuleHeader describes the document's module statement, when present.
type ModuleHeader struct {
	Name      string
	Namespace string
	Span      source.Span
	Line      string // raw first line of the module statement
}

// ImportNode is one import statement, in document order.
type ImportNode struct {
	Name string
	Span source.Span
	Line string
}

// TypedefNode is one typedef block.
type TypedefNode struct {
	Name string
	Span source.Span // whole block
	Line string      // raw first line
	Body []string    // first previewLines lines of the block body
}

// StatusValue enumerates the legal status arguments.
type StatusValue string

const (
	StatusCurrent    StatusValue = "current"
	StatusDeprecated StatusValue = "deprecated"
	StatusObsolete   StatusValue = "obsolete"
)

// StatusNode is one status statement.
type StatusNode struct {
	Value     StatusValue
	Span      source.Span
	Line      string
	Following []string // up to previewLines lines after the statement
}

// ListNode is one list block with its key and declared child leafs.
type ListNode struct {
	Name     string
	Line     string // declaration line
	Span     source.Span
	Keys     []string // key-leaf names, declaration order
	Children []string // declared child-leaf names, document order
	Body     []string
}

// BlockKeywords are the generic brace-delimited constructs extracted as
// BlockNodes. A list nested inside one of these appears in both the
// BlockNode and ListNode collections; there is no cross-linking.
var BlockKeywords = []string{
	"anyxml", "augment", "choice", "container",
	"extension", "feature", "notification", "rpc",
}

// BlockNode is one generic construct block.
type BlockNode struct {
	Keyword string
	Name    string
	Span    source.Span
	Line    string
	Body    []string
}

// DeviationNode is one deviation block. Duplicate is true iff the node is
// not the document-order-first deviation sharing its target path.
type DeviationNode struct {
	Target    string
	Span      source.Span
	Duplicate bool
}

// ConstraintNode is a leaf or leaf-list declaration with its constraint
// substatement presence recorded.
type ConstraintNode struct {
	Keyword        string // "leaf" or "leaf-list"
	Name           string
	Span           source.Span
	HasMust        bool
	HasWhen        bool
	HasDescription bool
}

// Ast is the lightweight structural model of one document. Absent
// categories stay nil; the extractor never materializes empty slices.
type Ast struct {
	Module      *ModuleHeader
	Imports     []ImportNode
	Typedefs    []TypedefNode
	Statuses    []StatusNode
	Lists       []ListNode
	Blocks      []BlockNode
	Deviations  []DeviationNode
	Constraints []ConstraintNode
}
