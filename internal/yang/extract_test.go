package yang

import (
	"reflect"
	"strings"
	"testing"

	"yangls/internal/source"
)

func parseText(t *testing.T, text string) (*source.File, *Ast) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.yang", []byte(text))
	f := fs.Get(id)
	return f, Parse(f)
}

func TestExtractModuleHeader(t *testing.T) {
	_, ast := parseText(t, `module foo { namespace "urn:x"; }`)
	if ast.Module == nil {
		t.Fatal("module header missing")
	}
	if ast.Module.Name != "foo" {
		t.Errorf("name = %q, want foo", ast.Module.Name)
	}
	if ast.Module.Namespace != "urn:x" {
		t.Errorf("namespace = %q, want urn:x", ast.Module.Namespace)
	}
}

func TestMissingModuleIsNotAnError(t *testing.T) {
	_, ast := parseText(t, "// just a comment\ncontainer c {\n}\n")
	if ast.Module != nil {
		t.Fatalf("expected nil module header, got %+v", ast.Module)
	}
}

func TestExtractImports(t *testing.T) {
	f, ast := parseText(t, strings.Join([]string{
		"module foo {",
		"  import ietf-yang-types;",
		"  import ietf-interfaces {",
		"    prefix if;",
		"  }",
		"}",
	}, "\n"))
	if len(ast.Imports) != 2 {
		t.Fatalf("imports = %d, want 2", len(ast.Imports))
	}
	if ast.Imports[0].Name != "ietf-yang-types" || ast.Imports[1].Name != "ietf-interfaces" {
		t.Errorf("import names = %q, %q", ast.Imports[0].Name, ast.Imports[1].Name)
	}
	// braced import spans its whole block
	text := string(f.Content)
	sp := ast.Imports[1].Span
	if got := text[sp.Start:sp.End]; !strings.HasSuffix(got, "}") || !strings.Contains(got, "prefix if;") {
		t.Errorf("braced import span = %q", got)
	}
}

func TestExtractListKeysAndChildren(t *testing.T) {
	_, ast := parseText(t, strings.Join([]string{
		"module foo {",
		"  list endpoint {",
		`    key "name address";`,
		"    leaf name { type string; }",
		"    leaf address { type string; }",
		"    leaf-list tag { type string; }",
		"  }",
		"}",
	}, "\n"))
	if len(ast.Lists) != 1 {
		t.Fatalf("lists = %d, want 1", len(ast.Lists))
	}
	l := ast.Lists[0]
	if !reflect.DeepEqual(l.Keys, []string{"name", "address"}) {
		t.Errorf("keys = %v", l.Keys)
	}
	// leaf-list is not a child leaf
	if !reflect.DeepEqual(l.Children, []string{"name", "address"}) {
		t.Errorf("children = %v", l.Children)
	}
}

func TestNestedListAppearsInBothCollections(t *testing.T) {
	_, ast := parseText(t, strings.Join([]string{
		"module foo {",
		"  container conns {",
		"    list conn {",
		`      key "id";`,
		"      leaf id { type uint32; }",
		"    }",
		"  }",
		"}",
	}, "\n"))
	if len(ast.Blocks) != 1 || ast.Blocks[0].Keyword != "container" {
		t.Fatalf("blocks = %+v", ast.Blocks)
	}
	if len(ast.Lists) != 1 || ast.Lists[0].Name != "conn" {
		t.Fatalf("lists = %+v", ast.Lists)
	}
}

func TestDeviationDuplicateFlags(t *testing.T) {
	_, ast := parseText(t, strings.Join([]string{
		"module foo {",
		`  deviation "/if:interfaces" {`,
		"    deviate add { max-elements 10; }",
		"  }",
		`  deviation "/sys:system" {`,
		"    deviate not-supported;",
		"  }",
		`  deviation "/if:interfaces" {`,
		"    deviate add { min-elements 1; }",
		"  }",
		`  deviation "/if:interfaces" {`,
		"    deviate replace { config false; }",
		"  }",
		"}",
	}, "\n"))
	if len(ast.Deviations) != 4 {
		t.Fatalf("deviations = %d, want 4", len(ast.Deviations))
	}
	wantDup := []bool{false, false, true, true}
	for i, d := range ast.Deviations {
		if d.Duplicate != wantDup[i] {
			t.Errorf("deviation %d (%s) duplicate = %v, want %v", i, d.Target, d.Duplicate, wantDup[i])
		}
	}
	if ast.Deviations[0].Target != "/if:interfaces" {
		t.Errorf("target = %q", ast.Deviations[0].Target)
	}
}

func TestExtractStatusAndConstraints(t *testing.T) {
	_, ast := parseText(t, strings.Join([]string{
		"module foo {",
		"  typedef percent {",
		"    type uint8;",
		"    status deprecated;",
		"  }",
		"  leaf load {",
		`    when "../enabled";`,
		`    must ". <= 100";`,
		"    type percent;",
		"  }",
		"  leaf-list names {",
		`    description "Bare names.";`,
		"    type string;",
		"  }",
		"}",
	}, "\n"))
	if len(ast.Statuses) != 1 || ast.Statuses[0].Value != StatusDeprecated {
		t.Fatalf("statuses = %+v", ast.Statuses)
	}
	if len(ast.Typedefs) != 1 || ast.Typedefs[0].Name != "percent" {
		t.Fatalf("typedefs = %+v", ast.Typedefs)
	}
	if len(ast.Constraints) != 2 {
		t.Fatalf("constraints = %d, want 2", len(ast.Constraints))
	}
	leaf := ast.Constraints[0]
	if leaf.Keyword != "leaf" || !leaf.HasMust || !leaf.HasWhen || leaf.HasDescription {
		t.Errorf("leaf constraint = %+v", leaf)
	}
	ll := ast.Constraints[1]
	if ll.Keyword != "leaf-list" || ll.HasMust || ll.HasWhen || !ll.HasDescription {
		t.Errorf("leaf-list constraint = %+v", ll)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	text := strings.Join([]string{
		"module det {",
		`  namespace "urn:det";`,
		"  import a;",
		"  import b;",
		"  container c { leaf x { type string; } }",
		`  deviation "/d:x" { deviate not-supported; }`,
		"}",
	}, "\n")
	_, first := parseText(t, text)
	_, second := parseText(t, text)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical text produced different models")
	}
}

func TestBodyPreviewCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("module foo {\n  typedef big {\n")
	for i := 0; i < 30; i++ {
		b.WriteString("    // filler\n")
	}
	b.WriteString("  }\n}\n")
	_, ast := parseText(t, b.String())
	if len(ast.Typedefs) != 1 {
		t.Fatalf("typedefs = %d", len(ast.Typedefs))
	}
	if len(ast.Typedefs[0].Body) != previewLines {
		t.Fatalf("body preview = %d lines, want %d", len(ast.Typedefs[0].Body), previewLines)
	}
}
