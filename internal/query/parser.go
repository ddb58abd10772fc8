package query

import (
	"strings"

	"github.com/fsindex/fsindex/internal/ferrors"
)

type groupDelimiter int

const (
	delimParenthesis groupDelimiter = iota
	delimAngle
)

func (d groupDelimiter) closeChar() byte {
	if d == delimAngle {
		return '>'
	}
	return ')'
}

type parser struct {
	tokens []token
	index  int
}

// Parse parses a raw query string into an expression tree. An
// all-whitespace or empty query yields no tokens and is rejected up
// front with the "at least one term" error; a query whose tokens
// reduce to no terms at all (such as an empty group) is rejected with
// the same error after parsing.
func Parse(input string) (Expr, error) {
	tokens := lex(input)
	if len(tokens) == 0 {
		return nil, ferrors.QueryParse(0, "query must contain at least one term")
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseAnd(nil)
	if err != nil {
		return nil, err
	}
	if !p.isEnd() {
		t := p.peek()
		return nil, ferrors.QueryParse(t.pos, "unexpected token")
	}
	if !hasExprTerms(expr) {
		return nil, ferrors.QueryParse(p.lastPos(), "query must contain at least one term")
	}
	return expr, nil
}

func (p *parser) parseAnd(closing *groupDelimiter) (Expr, error) {
	var parts []Expr
	for !p.isEnd() && !p.nextIsGroupClose(closing) {
		if p.consumeAnd() {
			continue
		}
		part, err := p.parseOr(closing)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
		if p.consumeAnd() {
			continue
		}
		if p.nextStartsOperand() {
			continue
		}
		break
	}
	switch len(parts) {
	case 0:
		return AndExpr{}, nil
	case 1:
		return parts[0], nil
	default:
		return AndExpr{Parts: parts}, nil
	}
}

func (p *parser) parseOr(closing *groupDelimiter) (Expr, error) {
	first, err := p.parseNot(closing)
	if err != nil {
		return nil, err
	}
	parts := []Expr{first}
	for {
		if !p.consumeOrSeparator() {
			break
		}
		if p.isEnd() || p.nextIsGroupClose(closing) {
			break
		}
		if p.peekIsOrSeparator() {
			continue
		}
		part, err := p.parseNot(closing)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return OrExpr{Parts: parts}, nil
}

func (p *parser) parseNot(closing *groupDelimiter) (Expr, error) {
	negate := false
	for p.consumeNotPrefix() {
		negate = !negate
	}
	expr, err := p.parsePrimary(closing)
	if err != nil {
		return nil, err
	}
	if negate {
		return NotExpr{Inner: expr}, nil
	}
	return expr, nil
}

func (p *parser) parsePrimary(closing *groupDelimiter) (Expr, error) {
	if p.consumeGroupOpen(delimParenthesis) {
		return p.parseGroup(delimParenthesis)
	}
	if p.consumeGroupOpen(delimAngle) {
		return p.parseGroup(delimAngle)
	}

	t, ok := p.peekToken()
	if !ok {
		return nil, ferrors.QueryParse(p.lastPos(), "expected query term but reached end of query")
	}
	switch t.kind {
	case tokRParen, tokRAngle:
		delim := byte(')')
		if t.kind == tokRAngle {
			delim = '>'
		}
		return nil, ferrors.QueryParse(t.pos, "unexpected '%c'", delim)
	case tokWord, tokPhrase:
		p.index++
		term, err := parseQueryTerm(t)
		if err != nil {
			return nil, err
		}
		return TermExpr{Term: term}, nil
	default:
		return nil, ferrors.QueryParse(t.pos, "expected query term")
	}
}

func (p *parser) parseGroup(delim groupDelimiter) (Expr, error) {
	d := delim
	expr, err := p.parseAnd(&d)
	if err != nil {
		return nil, err
	}
	if p.consumeGroupClose(delim) {
		return expr, nil
	}
	pos := p.lastPos()
	if t, ok := p.peekToken(); ok {
		pos = t.pos
	}
	return nil, ferrors.QueryParse(pos, "missing closing '%c'", delim.closeChar())
}

func (p *parser) nextStartsOperand() bool {
	t, ok := p.peekToken()
	if !ok {
		return false
	}
	switch t.kind {
	case tokWord, tokPhrase, tokLParen, tokLAngle, tokBang, tokNot:
		return true
	default:
		return false
	}
}

func (p *parser) consumeAnd() bool {
	if t, ok := p.peekToken(); ok && t.kind == tokAnd {
		p.index++
		return true
	}
	return false
}

func (p *parser) consumeOrSeparator() bool {
	if t, ok := p.peekToken(); ok && (t.kind == tokPipe || t.kind == tokOr) {
		p.index++
		return true
	}
	return false
}

func (p *parser) peekIsOrSeparator() bool {
	t, ok := p.peekToken()
	return ok && (t.kind == tokPipe || t.kind == tokOr)
}

func (p *parser) consumeNotPrefix() bool {
	if t, ok := p.peekToken(); ok && (t.kind == tokBang || t.kind == tokNot) {
		p.index++
		return true
	}
	return false
}

func (p *parser) consumeGroupOpen(delim groupDelimiter) bool {
	want := tokLParen
	if delim == delimAngle {
		want = tokLAngle
	}
	if t, ok := p.peekToken(); ok && t.kind == want {
		p.index++
		return true
	}
	return false
}

func (p *parser) consumeGroupClose(delim groupDelimiter) bool {
	want := tokRParen
	if delim == delimAngle {
		want = tokRAngle
	}
	if t, ok := p.peekToken(); ok && t.kind == want {
		p.index++
		return true
	}
	return false
}

func (p *parser) nextIsGroupClose(delim *groupDelimiter) bool {
	if delim == nil {
		return false
	}
	want := tokRParen
	if *delim == delimAngle {
		want = tokRAngle
	}
	t, ok := p.peekToken()
	return ok && t.kind == want
}

func (p *parser) isEnd() bool { return p.index >= len(p.tokens) }

func (p *parser) peek() token { return p.tokens[p.index] }

func (p *parser) peekToken() (token, bool) {
	if p.isEnd() {
		return token{}, false
	}
	return p.tokens[p.index], true
}

func (p *parser) lastPos() int {
	if len(p.tokens) == 0 {
		return 0
	}
	return p.tokens[len(p.tokens)-1].pos
}

// parseQueryTerm classifies a single Word/Phrase token into a free
// text term or a structured filter, dispatching on the prefix before
// the first ':'. An unrecognized prefix
// or a colon-free word is plain text, searched against names/paths.
func parseQueryTerm(t token) (Term, error) {
	if t.kind == tokPhrase {
		return Term{Kind: TermText, Text: t.text, IsPhrase: true}, nil
	}

	raw := t.text
	split := strings.IndexByte(raw, ':')
	if split <= 0 {
		return Term{Kind: TermText, Text: raw}, nil
	}
	name := strings.ToLower(raw[:split])
	argument := strings.TrimSpace(raw[split+1:])

	switch name {
	case "ext":
		if argument == "" {
			return Term{}, ferrors.InvalidInput("ext: requires at least one extension")
		}
		var values []string
		for _, part := range strings.Split(argument, ";") {
			if v, ok := normalizeExtension(part); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return Term{}, ferrors.InvalidInput("ext: requires non-empty extensions")
		}
		return Term{Kind: TermFilter, Filter: Filter{Kind: FilterExtension, Extensions: values}}, nil

	case "type":
		if argument == "" {
			return Term{}, ferrors.InvalidInput("type: requires a category")
		}
		target, ok := lookupTypeFilterTarget(strings.ToLower(argument))
		if !ok {
			return Term{}, ferrors.InvalidInput("unknown type category: %s", argument)
		}
		return Term{Kind: TermFilter, Filter: Filter{Kind: FilterType, Type: target}}, nil

	case "size":
		pred, err := ParseSizePredicate(argument)
		if err != nil {
			return Term{}, err
		}
		return Term{Kind: TermFilter, Filter: Filter{Kind: FilterSize, Size: pred}}, nil

	case "audio", "video", "doc", "exe":
		target, ok := lookupTypeFilterTarget(name)
		if !ok {
			return Term{}, ferrors.Internal(nil, "missing built-in type macro mapping: %s", name)
		}
		f := Filter{Kind: FilterTypeMacro, Type: target}
		if argument != "" {
			f.MacroArgument, f.HasMacroArg = argument, true
		}
		return Term{Kind: TermFilter, Filter: f}, nil

	case "file":
		f := Filter{Kind: FilterFile}
		if argument != "" {
			f.Argument, f.HasArgument = argument, true
		}
		return Term{Kind: TermFilter, Filter: f}, nil

	case "folder":
		f := Filter{Kind: FilterFolder}
		if argument != "" {
			f.Argument, f.HasArgument = argument, true
		}
		return Term{Kind: TermFilter, Filter: f}, nil

	case "parent":
		p, err := normalizeScopeFilterPath(argument, "parent")
		if err != nil {
			return Term{}, err
		}
		return Term{Kind: TermFilter, Filter: Filter{Kind: FilterParent, Path: p}}, nil

	case "in", "infolder":
		p, err := normalizeScopeFilterPath(argument, name)
		if err != nil {
			return Term{}, err
		}
		return Term{Kind: TermFilter, Filter: Filter{Kind: FilterInFolder, Path: p}}, nil

	case "nosubfolders":
		p, err := normalizeScopeFilterPath(argument, "nosubfolders")
		if err != nil {
			return Term{}, err
		}
		return Term{Kind: TermFilter, Filter: Filter{Kind: FilterNoSubfolders, Path: p}}, nil

	case "content":
		if argument == "" {
			return Term{}, ferrors.InvalidInput("content: requires a search value")
		}
		return Term{Kind: TermFilter, Filter: Filter{Kind: FilterContent, Needle: argument}}, nil

	case "tag", "tags":
		if argument == "" {
			return Term{}, ferrors.InvalidInput("tag: requires at least one tag name")
		}
		var tags []string
		for _, part := range strings.Split(argument, ";") {
			part = strings.TrimSpace(part)
			if part != "" {
				tags = append(tags, part)
			}
		}
		if len(tags) == 0 {
			return Term{}, ferrors.InvalidInput("tag: requires non-empty tag names")
		}
		return Term{Kind: TermFilter, Filter: Filter{Kind: FilterTag, Tags: tags}}, nil

	case "dm", "datemodified":
		pred, err := ParseDatePredicate(argument)
		if err != nil {
			return Term{}, err
		}
		return Term{Kind: TermFilter, Filter: Filter{Kind: FilterDateModified, Date: pred}}, nil

	case "dc", "datecreated":
		pred, err := ParseDatePredicate(argument)
		if err != nil {
			return Term{}, err
		}
		return Term{Kind: TermFilter, Filter: Filter{Kind: FilterDateCreated, Date: pred}}, nil

	default:
		return Term{Kind: TermText, Text: raw}, nil
	}
}

func normalizeExtension(raw string) (string, bool) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), ".")
	if trimmed == "" {
		return "", false
	}
	return strings.ToLower(trimmed), true
}
