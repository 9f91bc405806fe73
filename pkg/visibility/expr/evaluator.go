package expr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/visibility"
)

// Evaluator is a small, dependency-free condition evaluator.
//
// Supported operators:
// - boolean checks: `receive_report`, `!has_mentor`
// - comparisons: `job_title == "Other"`, `province != "Harare"`
// - case-insensitive substring: `receive_report ~= "yes"`
// - membership: `province in ["Diaspora", "diaspora"]`
// - boolean composition with `&&`, `||` and parentheses
//
// List values match a comparison when any item matches. Extras are read via
// the `extras.` prefix. Compiled programs are cached per rule string.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*Program
}

func New() *Evaluator { return &Evaluator{cache: make(map[string]*Program)} }

// Eval compiles rule (once) and evaluates it against ctx. An empty rule holds.
func (e *Evaluator) Eval(rule string, ctx visibility.Context) (bool, error) {
	prog, err := e.program(rule)
	if err != nil {
		return false, err
	}
	return prog.Eval(ctx)
}

func (e *Evaluator) program(rule string) (*Program, error) {
	e.mu.RLock()
	prog, ok := e.cache[rule]
	e.mu.RUnlock()
	if ok {
		return prog, nil
	}
	prog, err := Compile(rule)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.cache == nil {
		e.cache = make(map[string]*Program)
	}
	e.cache[rule] = prog
	e.mu.Unlock()
	return prog, nil
}

// Program is a parsed rule.
type Program struct {
	rule   string
	root   exprNode
	fields []string
}

// Compile parses rule into a reusable Program.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	prog := &Program{rule: trimmed}
	if trimmed == "" {
		return prog, nil
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return prog, nil
	}

	root, err := parseExpression(tokens)
	if err != nil {
		return nil, err
	}
	prog.root = root

	seen := make(map[string]struct{})
	for _, tok := range tokens {
		if tok.kind != tokenIdentifier || tok.literal {
			continue
		}
		if strings.HasPrefix(strings.ToLower(tok.raw), "extras.") {
			continue
		}
		if _, ok := seen[tok.raw]; !ok {
			seen[tok.raw] = struct{}{}
			prog.fields = append(prog.fields, tok.raw)
		}
	}
	sort.Strings(prog.fields)
	return prog, nil
}

// MustCompile panics when rule does not parse.
func MustCompile(rule string) *Program {
	prog, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return prog
}

// Eval evaluates the program. An empty program holds.
func (p *Program) Eval(ctx visibility.Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(ctx)
}

// Fields lists the form fields the rule reads, sorted.
func (p *Program) Fields() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.fields))
	copy(out, p.fields)
	return out
}

func (p *Program) String() string {
	if p == nil {
		return ""
	}
	return p.rule
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenContains
	tokenIn
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
)

type token struct {
	kind tokenKind
	raw  string
	// literal marks identifiers consumed as bare string literals.
	literal bool
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '[', ']', ',', '!', '=', '&', '|', '~':
		return true
	}
	return false
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	next := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	consume := func() byte {
		if i >= len(input) {
			return 0
		}
		ch := input[i]
		i++
		return ch
	}

	single := map[byte]tokenKind{
		'(': tokenLParen,
		')': tokenRParen,
		'[': tokenLBracket,
		']': tokenRBracket,
		',': tokenComma,
	}

	for i < len(input) {
		ch := next()
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}

		if kind, ok := single[ch]; ok {
			consume()
			tokens = append(tokens, token{kind: kind, raw: string(ch)})
			continue
		}

		switch ch {
		case '!':
			consume()
			if next() == '=' {
				consume()
				tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
				continue
			}
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
		case '=':
			consume()
			if next() != '=' {
				return nil, fmt.Errorf("visibility/expr: unexpected '='; use '=='")
			}
			consume()
			tokens = append(tokens, token{kind: tokenEq, raw: "=="})
		case '~':
			consume()
			if next() != '=' {
				return nil, fmt.Errorf("visibility/expr: unexpected '~'; use '~='")
			}
			consume()
			tokens = append(tokens, token{kind: tokenContains, raw: "~="})
		case '&':
			consume()
			if next() != '&' {
				return nil, fmt.Errorf("visibility/expr: unexpected '&'; use '&&'")
			}
			consume()
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
		case '|':
			consume()
			if next() != '|' {
				return nil, fmt.Errorf("visibility/expr: unexpected '|'; use '||'")
			}
			consume()
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
		case '"', '\'':
			value, err := readString(input, &i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, raw: value})
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			raw := input[start:i]
			switch strings.ToLower(raw) {
			case "true", "false":
				tokens = append(tokens, token{kind: tokenBool, raw: strings.ToLower(raw)})
			case "null", "nil":
				tokens = append(tokens, token{kind: tokenNull, raw: "null"})
			case "in":
				tokens = append(tokens, token{kind: tokenIn, raw: "in"})
			default:
				if looksLikeNumber(raw) {
					tokens = append(tokens, token{kind: tokenNumber, raw: raw})
				} else {
					tokens = append(tokens, token{kind: tokenIdentifier, raw: raw})
				}
			}
		}
	}

	return tokens, nil
}

func readString(input string, pos *int) (string, error) {
	i := *pos
	quote := input[i]
	i++
	start := i
	escaped := false
	for i < len(input) {
		c := input[i]
		i++
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := input[start : i-1]
		if quote == '\'' {
			body = strings.ReplaceAll(body, `\'`, `'`)
			body = strings.ReplaceAll(body, `"`, `\"`)
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return "", fmt.Errorf("visibility/expr: invalid string literal: %w", err)
		}
		*pos = i
		return value, nil
	}
	return "", errors.New("visibility/expr: unterminated string literal")
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	ch := raw[0]
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+'
}

type exprNode interface {
	eval(ctx visibility.Context) (bool, error)
}

type exprOr struct {
	left  exprNode
	right exprNode
}

func (n exprOr) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return n.right.eval(ctx)
}

type exprAnd struct {
	left  exprNode
	right exprNode
}

func (n exprAnd) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return n.right.eval(ctx)
}

type exprNot struct {
	inner exprNode
}

func (n exprNot) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type literalKind int

const (
	litString literalKind = iota
	litNumber
	litBool
	litNull
)

type literal struct {
	kind literalKind
	raw  string
}

type exprCompare struct {
	identifier string
	op         tokenKind
	literal    literal
}

func (n exprCompare) eval(ctx visibility.Context) (bool, error) {
	value := lookup(ctx, n.identifier)

	var matched bool
	switch n.literal.kind {
	case litNull:
		if n.op == tokenContains {
			return false, fmt.Errorf("visibility/expr: unsupported operator %q for null literal", n.opString())
		}
		matched = value.Empty()
	case litBool:
		if n.op == tokenContains {
			return false, fmt.Errorf("visibility/expr: unsupported operator %q for bool literal", n.opString())
		}
		matched = coerceBool(value) == (n.literal.raw == "true")
	case litNumber:
		want, err := strconv.ParseFloat(n.literal.raw, 64)
		if err != nil {
			return false, fmt.Errorf("visibility/expr: invalid number literal %q", n.literal.raw)
		}
		if n.op == tokenContains {
			return false, fmt.Errorf("visibility/expr: unsupported operator %q for number literal", n.opString())
		}
		matched = anyItem(value, func(item string) bool {
			got, err := strconv.ParseFloat(strings.TrimSpace(item), 64)
			return err == nil && got == want
		})
	case litString:
		want := n.literal.raw
		if n.op == tokenContains {
			needle := strings.ToLower(want)
			return anyItem(value, func(item string) bool {
				return strings.Contains(strings.ToLower(item), needle)
			}), nil
		}
		matched = anyItem(value, func(item string) bool { return item == want })
		if !matched && want == "" {
			matched = value.Empty()
		}
	default:
		return false, fmt.Errorf("visibility/expr: unsupported literal")
	}

	if n.op == tokenNeq {
		return !matched, nil
	}
	return matched, nil
}

func (n exprCompare) opString() string {
	switch n.op {
	case tokenEq:
		return "=="
	case tokenNeq:
		return "!="
	case tokenContains:
		return "~="
	default:
		return "?"
	}
}

type exprIn struct {
	identifier string
	set        []string
}

func (n exprIn) eval(ctx visibility.Context) (bool, error) {
	value := lookup(ctx, n.identifier)
	return anyItem(value, func(item string) bool {
		for _, candidate := range n.set {
			if item == candidate {
				return true
			}
		}
		return false
	}), nil
}

type exprTruthy struct {
	identifier string
}

func (n exprTruthy) eval(ctx visibility.Context) (bool, error) {
	return coerceBool(lookup(ctx, n.identifier)), nil
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (exprNode, error) {
	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseOr(stream *tokenStream) (exprNode, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = exprOr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (exprNode, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = exprAnd{left: left, right: right}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := stream.consume(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, errors.New("visibility/expr: empty expression")
		}
		return nil, fmt.Errorf("visibility/expr: expected identifier, got %q", stream.tokens[stream.pos].raw)
	}

	for _, op := range []tokenKind{tokenEq, tokenNeq, tokenContains} {
		if stream.match(op) {
			lit, err := stream.consumeLiteral()
			if err != nil {
				return nil, err
			}
			if op == tokenContains && lit.kind != litString {
				return nil, fmt.Errorf("visibility/expr: '~=' needs a string, got %q", lit.raw)
			}
			return exprCompare{identifier: ident.raw, op: op, literal: lit}, nil
		}
	}
	if stream.match(tokenIn) {
		set, err := stream.consumeList()
		if err != nil {
			return nil, err
		}
		return exprIn{identifier: ident.raw, set: set}, nil
	}

	return exprTruthy{identifier: ident.raw}, nil
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) {
		return false
	}
	if s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	if s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

func (s *tokenStream) consumeLiteral() (literal, error) {
	if s.pos >= len(s.tokens) {
		return literal{}, errors.New("visibility/expr: missing literal")
	}
	tok := &s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokenString:
		return literal{kind: litString, raw: tok.raw}, nil
	case tokenNumber:
		return literal{kind: litNumber, raw: tok.raw}, nil
	case tokenBool:
		return literal{kind: litBool, raw: tok.raw}, nil
	case tokenNull:
		return literal{kind: litNull, raw: "null"}, nil
	case tokenIdentifier:
		// Bare words compare as strings.
		tok.literal = true
		return literal{kind: litString, raw: tok.raw}, nil
	default:
		return literal{}, fmt.Errorf("visibility/expr: expected literal, got %q", tok.raw)
	}
}

func (s *tokenStream) consumeList() ([]string, error) {
	if !s.match(tokenLBracket) {
		return nil, errors.New("visibility/expr: expected '[' after in")
	}
	var out []string
	if s.match(tokenRBracket) {
		return out, nil
	}
	for {
		lit, err := s.consumeLiteral()
		if err != nil {
			return nil, err
		}
		out = append(out, lit.raw)
		if s.match(tokenComma) {
			continue
		}
		if s.match(tokenRBracket) {
			return out, nil
		}
		return nil, errors.New("visibility/expr: missing closing ']'")
	}
}

func lookup(ctx visibility.Context, key string) model.Value {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(strings.ToLower(key), "extras.") {
		path := strings.TrimSpace(key[len("extras."):])
		return model.Text(ctx.Extras[path])
	}
	v, _ := ctx.Value(key)
	return v
}

func anyItem(value model.Value, fn func(string) bool) bool {
	for _, item := range value.Items() {
		if fn(item) {
			return true
		}
	}
	return false
}

func coerceBool(value model.Value) bool {
	if value.IsList() {
		return value.Len() > 0
	}
	text := strings.TrimSpace(value.Text())
	if parsed, err := strconv.ParseBool(text); err == nil {
		return parsed
	}
	return text != ""
}
