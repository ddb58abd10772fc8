package query

import "strings"

// Matcher is a parsed, ready-to-evaluate query: the expression tree
// plus the case-sensitivity policy every text/segment comparison in
// it was compiled under.
type Matcher struct {
	Expr          Expr
	CaseSensitive bool
}

// CompileQuery parses raw and wraps the result with the case-
// sensitivity policy the search engine will evaluate it under.
func CompileQuery(raw string, caseSensitive bool) (*Matcher, error) {
	expr, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Matcher{Expr: expr, CaseSensitive: caseSensitive}, nil
}

// MatchesSingleSegmentName reports whether name satisfies a text term
// that has no '/' in it (the common case of a bare search word),
// without needing any tree navigation: build the compiled segment
// once and test it directly against the candidate name.
func MatchesSingleSegmentName(term Term, name string, caseSensitive bool) bool {
	segs := SegmentQueryText(term.Text, term.IsPhrase)
	if len(segs) != 1 || segs[0].Kind != SegmentConcrete {
		// A stray "*"/"**" alone as the whole term matches everything.
		return true
	}
	return segs[0].Matcher.Matches(name, caseSensitive)
}

// RequiredNameTerms extracts the literal (non-wildcard, non-phrase,
// single-segment) text terms that must match some node's name
// somewhere in the tree for the expression to have any chance of
// matching. This is a conservative prefilter
// seed, not a full re-implementation of the evaluator: it only
// descends into conjunctions (And, and the implicit top-level
// And-of-one), since a term's absence only provably dooms the whole
// expression when every other part of the tree must also hold. Terms
// reachable only through a Not or an Or contribute nothing, even
// though in principle some Or-of-literals cases could; the
// correctness of the final match never depends on this set being
// complete, only on it never containing a term whose absence doesn't
// actually rule out a match.
func (m *Matcher) RequiredNameTerms() []string {
	var out []string
	collectRequiredTerms(m.Expr, m.CaseSensitive, &out)
	return out
}

// HighlightTerms collects every literal text term in the expression,
// including ones reachable only through Or or Not, for UI highlighting
// purposes: a term that did not end up constraining the result set is
// still worth highlighting wherever it happens to appear. Negated
// terms are skipped since they name text the results are guaranteed
// not to contain.
func (m *Matcher) HighlightTerms() []string {
	var out []string
	collectHighlightTerms(m.Expr, m.CaseSensitive, false, &out)
	return out
}

func collectHighlightTerms(e Expr, caseSensitive bool, negated bool, out *[]string) {
	switch v := e.(type) {
	case TermExpr:
		if negated || v.Term.Kind != TermText {
			return
		}
		text := v.Term.Text
		if !caseSensitive {
			text = asciiLower(text)
		}
		if text != "" {
			*out = append(*out, text)
		}
	case NotExpr:
		collectHighlightTerms(v.Inner, caseSensitive, !negated, out)
	case AndExpr:
		for _, p := range v.Parts {
			collectHighlightTerms(p, caseSensitive, negated, out)
		}
	case OrExpr:
		for _, p := range v.Parts {
			collectHighlightTerms(p, caseSensitive, negated, out)
		}
	}
}

func collectRequiredTerms(e Expr, caseSensitive bool, out *[]string) {
	switch v := e.(type) {
	case TermExpr:
		t := v.Term
		if t.Kind != TermText || t.IsPhrase {
			return
		}
		if strings.ContainsAny(t.Text, "*?/") {
			return
		}
		text := t.Text
		if !caseSensitive {
			text = asciiLower(text)
		}
		if text != "" {
			*out = append(*out, text)
		}
	case AndExpr:
		for _, p := range v.Parts {
			collectRequiredTerms(p, caseSensitive, out)
		}
	}
}
