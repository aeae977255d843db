package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// The rule expression language is a small, sandboxed predicate language:
// literals, dotted identifier paths, unary !, the binary operators
// && || == != < <= > >=, and calls into the fixed function registry in
// funcs.go. There is no assignment, no iteration, and no way to reach
// outside the evaluation environment, so rule files stay auditable and safe
// to hot-reload.

// Env is the evaluation environment: the full document model under "ast"
// plus a scope-named binding for the node under evaluation.
type Env map[string]any

// Expr is a compiled predicate tree node.
type Expr interface {
	Eval(env Env) (any, error)
}

// Compile parses src and verifies every referenced function exists with the
// right arity.
func Compile(src string) (Expr, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.next(); err != nil {
		return nil, err
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q after expression", p.tok.text)
	}
	return expr, nil
}

// Truthy defines the language's boolean coercion: nil and empty values are
// false, everything else is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case []string:
		return len(x) > 0
	case []any:
		return len(x) > 0
	default:
		return true
	}
}

// ---- tree nodes ----

type litExpr struct{ val any }

func (e litExpr) Eval(Env) (any, error) { return e.val, nil }

type identExpr struct{ path []string }

func (e identExpr) Eval(env Env) (any, error) {
	cur, ok := env[e.path[0]]
	if !ok {
		return nil, fmt.Errorf("unknown identifier %q", e.path[0])
	}
	for _, seg := range e.path[1:] {
		if cur == nil {
			// field access on an absent node stays undefined rather than failing
			return nil, nil
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%q has no field %q", strings.Join(e.path, "."), seg)
		}
		cur = m[seg]
	}
	return cur, nil
}

type callExpr struct {
	name string
	args []Expr
}

func (e callExpr) Eval(env Env) (any, error) {
	vals := make([]any, len(e.args))
	for i, arg := range e.args {
		v, err := arg.Eval(env)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	fn := builtins[e.name]
	return fn.call(vals)
}

type notExpr struct{ x Expr }

func (e notExpr) Eval(env Env) (any, error) {
	v, err := e.x.Eval(env)
	if err != nil {
		return nil, err
	}
	return !Truthy(v), nil
}

type logicalExpr struct {
	op   string // "&&" or "||"
	x, y Expr
}

func (e logicalExpr) Eval(env Env) (any, error) {
	left, err := e.x.Eval(env)
	if err != nil {
		return nil, err
	}
	if e.op == "&&" {
		if !Truthy(left) {
			return false, nil
		}
	} else if Truthy(left) {
		return true, nil
	}
	right, err := e.y.Eval(env)
	if err != nil {
		return nil, err
	}
	return Truthy(right), nil
}

type cmpExpr struct {
	op   string
	x, y Expr
}

func (e cmpExpr) Eval(env Env) (any, error) {
	left, err := e.x.Eval(env)
	if err != nil {
		return nil, err
	}
	right, err := e.y.Eval(env)
	if err != nil {
		return nil, err
	}
	switch e.op {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	}
	return order(e.op, left, right)
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	if aNum && bNum {
		return af == bf
	}
	ab, aBool := a.(bool)
	bb, bBool := b.(bool)
	if aBool && bBool {
		return ab == bb
	}
	return stringify(a) == stringify(b)
}

func order(op string, a, b any) (any, error) {
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	var cmp int
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			cmp = -1
		case af > bf:
			cmp = 1
		}
	case a == nil || b == nil:
		return nil, fmt.Errorf("cannot order %v against %v", a, b)
	default:
		cmp = strings.Compare(stringify(a), stringify(b))
	}
	switch op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []string:
		return strings.Join(x, " ")
	default:
		return fmt.Sprint(x)
	}
}

// ---- lexer ----

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokComma
	tokOp // ! && || == != < <= > >=
)

type token struct {
	kind tokKind
	text string
}

type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (lx *lexer) lex() (token, error) {
	for lx.pos < len(lx.src) && (lx.src[lx.pos] == ' ' || lx.src[lx.pos] == '\t' || lx.src[lx.pos] == '\n' || lx.src[lx.pos] == '\r') {
		lx.pos++
	}
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF}, nil
	}
	c := lx.src[lx.pos]
	switch {
	case isIdentStart(c):
		start := lx.pos
		for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
			lx.pos++
		}
		return token{kind: tokIdent, text: lx.src[start:lx.pos]}, nil
	case c >= '0' && c <= '9':
		start := lx.pos
		for lx.pos < len(lx.src) && (lx.src[lx.pos] >= '0' && lx.src[lx.pos] <= '9' || lx.src[lx.pos] == '.') {
			lx.pos++
		}
		return token{kind: tokNumber, text: lx.src[start:lx.pos]}, nil
	case c == '"' || c == '\'':
		return lx.lexString(c)
	case c == '(':
		lx.pos++
		return token{kind: tokLParen, text: "("}, nil
	case c == ')':
		lx.pos++
		return token{kind: tokRParen, text: ")"}, nil
	case c == ',':
		lx.pos++
		return token{kind: tokComma, text: ","}, nil
	case c == '&' || c == '|':
		if lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == c {
			op := lx.src[lx.pos : lx.pos+2]
			lx.pos += 2
			return token{kind: tokOp, text: op}, nil
		}
		return token{}, fmt.Errorf("unexpected character %q", string(c))
	case c == '=' || c == '!' || c == '<' || c == '>':
		if lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '=' {
			op := lx.src[lx.pos : lx.pos+2]
			lx.pos += 2
			return token{kind: tokOp, text: op}, nil
		}
		if c == '=' {
			return token{}, fmt.Errorf("single '=' is not an operator, use '=='")
		}
		lx.pos++
		return token{kind: tokOp, text: string(c)}, nil
	}
	return token{}, fmt.Errorf("unexpected character %q", string(c))
}

func (lx *lexer) lexString(quote byte) (token, error) {
	lx.pos++ // opening quote
	var b strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == quote {
			lx.pos++
			return token{kind: tokString, text: b.String()}, nil
		}
		if c == '\\' && lx.pos+1 < len(lx.src) {
			lx.pos++
			switch lx.src[lx.pos] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(lx.src[lx.pos])
			}
			lx.pos++
			continue
		}
		b.WriteByte(c)
		lx.pos++
	}
	return token{}, fmt.Errorf("unterminated string literal")
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.' || c == '-'
}

// ---- parser ----

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) next() error {
	tok, err := p.lex.lex()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && p.tok.text == "||" {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logicalExpr{op: "||", x: left, y: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && p.tok.text == "&&" {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		left = logicalExpr{op: "&&", x: left, y: right}
	}
	return left, nil
}

func (p *parser) parseCmp() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp {
		op := p.tok.text
		switch op {
		case "==", "!=", "<", "<=", ">", ">=":
		default:
			return left, nil
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = cmpExpr{op: op, x: left, y: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.tok.kind == tokOp && p.tok.text == "!" {
		if err := p.next(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	switch p.tok.kind {
	case tokString:
		val := p.tok.text
		if err := p.next(); err != nil {
			return nil, err
		}
		return litExpr{val: val}, nil
	case tokNumber:
		f, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", p.tok.text)
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return litExpr{val: f}, nil
	case tokLParen:
		if err := p.next(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("expected ')', got %q", p.tok.text)
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		name := p.tok.text
		if err := p.next(); err != nil {
			return nil, err
		}
		switch name {
		case "true":
			return litExpr{val: true}, nil
		case "false":
			return litExpr{val: false}, nil
		}
		if p.tok.kind == tokLParen {
			return p.parseCall(name)
		}
		if strings.Contains(name, ".") {
			return identExpr{path: strings.Split(name, ".")}, nil
		}
		return identExpr{path: []string{name}}, nil
	}
	return nil, fmt.Errorf("unexpected %q", p.tok.text)
}

func (p *parser) parseCall(name string) (Expr, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	if err := p.next(); err != nil { // consume '('
		return nil, err
	}
	var args []Expr
	if p.tok.kind != tokRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.tok.kind != tokComma {
				break
			}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if p.tok.kind != tokRParen {
		return nil, fmt.Errorf("expected ')' in call to %q, got %q", name, p.tok.text)
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	if fn.arity >= 0 && len(args) != fn.arity {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", name, fn.arity, len(args))
	}
	return callExpr{name: name, args: args}, nil
}
