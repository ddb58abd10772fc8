package query

import "strings"

// SegmentKind classifies one path segment of a compiled text query: a
// literal structural marker ("*" for exactly one
// segment, "**" for zero or more) or a concrete pattern to test
// against a single segment/name.
type SegmentKind int

const (
	SegmentStar SegmentKind = iota
	SegmentGlobStar
	SegmentConcrete
)

// TextQuerySegment is one element of a text term split on '/'.
type TextQuerySegment struct {
	Kind    SegmentKind
	Matcher ConcreteMatcher // SegmentConcrete only
}

// SegmentQueryText splits a text term's raw pattern into path
// segments, compiling each non-marker segment into a ConcreteMatcher.
// A quoted phrase (isPhrase) is never split or treated as a glob: it
// becomes a single literal segment, matched the same way a plain
// top-level word is (substring against the full candidate name).
func SegmentQueryText(value string, isPhrase bool) []TextQuerySegment {
	if isPhrase {
		return []TextQuerySegment{{Kind: SegmentConcrete, Matcher: ConcreteMatcher{Kind: MatchSubstring, Pattern: value}}}
	}
	parts := strings.Split(strings.Trim(value, "/"), "/")
	segs := make([]TextQuerySegment, 0, len(parts))
	singleSegment := len(parts) == 1
	for _, part := range parts {
		switch part {
		case "**":
			segs = append(segs, TextQuerySegment{Kind: SegmentGlobStar})
		case "*":
			segs = append(segs, TextQuerySegment{Kind: SegmentStar})
		default:
			segs = append(segs, TextQuerySegment{Kind: SegmentConcrete, Matcher: compileConcreteMatcher(part, singleSegment)})
		}
	}
	return segs
}

// ConcreteMatcherKind is how a single compiled segment pattern tests a
// candidate segment/name.
type ConcreteMatcherKind int

const (
	MatchLiteral ConcreteMatcherKind = iota
	MatchSubstring
	MatchPrefix
	MatchSuffix
	MatchGlob
)

// ConcreteMatcher is a compiled non-marker segment: a literal
// full-segment match, a substring ("contains") match used for
// single-segment top-level terms, a prefix/suffix anchor, or a
// general glob pattern ('*'/'?') for anything more complex.
type ConcreteMatcher struct {
	Kind    ConcreteMatcherKind
	Pattern string // lowercased iff the query's case sensitivity is off
}

// compileConcreteMatcher compiles one non-marker segment. asSubstring
// selects the "literal substring" reading over "literal full-segment"
// for a plain (no-wildcard) pattern: set for single-segment top-level
// terms ("foo" matches "foo.txt" and "foobar.txt"), unset for an
// interior segment of a slash-containing
// path query, where a bare segment must equal the path component
// exactly.
func compileConcreteMatcher(raw string, asSubstring bool) ConcreteMatcher {
	hasStar := strings.ContainsRune(raw, '*')
	hasQuestion := strings.ContainsRune(raw, '?')

	if !hasStar && !hasQuestion {
		if asSubstring {
			return ConcreteMatcher{Kind: MatchSubstring, Pattern: raw}
		}
		return ConcreteMatcher{Kind: MatchLiteral, Pattern: raw}
	}

	if !hasQuestion {
		starCount := strings.Count(raw, "*")
		switch {
		case starCount == 1 && strings.HasPrefix(raw, "*"):
			return ConcreteMatcher{Kind: MatchSuffix, Pattern: raw[1:]}
		case starCount == 1 && strings.HasSuffix(raw, "*"):
			return ConcreteMatcher{Kind: MatchPrefix, Pattern: raw[:len(raw)-1]}
		case starCount == 2 && strings.HasPrefix(raw, "*") && strings.HasSuffix(raw, "*") && len(raw) >= 2:
			return ConcreteMatcher{Kind: MatchSubstring, Pattern: raw[1 : len(raw)-1]}
		}
	}
	return ConcreteMatcher{Kind: MatchGlob, Pattern: raw}
}

// Matches tests name against the compiled pattern. caseSensitive
// selects exact comparison over ASCII-only case folding on both
// sides; Unicode case folding is deliberately not attempted.
func (m ConcreteMatcher) Matches(name string, caseSensitive bool) bool {
	pattern := m.Pattern
	if !caseSensitive {
		name = asciiLower(name)
		pattern = asciiLower(pattern)
	}
	switch m.Kind {
	case MatchLiteral:
		return name == pattern
	case MatchSubstring:
		return pattern == "" || strings.Contains(name, pattern)
	case MatchPrefix:
		return strings.HasPrefix(name, pattern)
	case MatchSuffix:
		return strings.HasSuffix(name, pattern)
	case MatchGlob:
		return globMatch(pattern, name)
	default:
		return false
	}
}

// ASCIILower exposes the package's ASCII-only case folding for callers
// (such as the search engine's content/tag filters) that need to apply
// the same case-insensitivity policy outside a compiled matcher.
func ASCIILower(s string) string { return asciiLower(s) }

// asciiLower lowercases only ASCII letters, leaving every other byte
// (including multi-byte UTF-8 sequences) untouched.
func asciiLower(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// globMatch implements '*' (any run, including empty) and '?' (any
// single byte) glob matching with the classic two-pointer backtracking
// algorithm, avoiding a regex engine entirely.
func globMatch(pattern, name string) bool {
	var pIdx, nIdx int
	starIdx, match := -1, 0
	for nIdx < len(name) {
		switch {
		case pIdx < len(pattern) && (pattern[pIdx] == '?' || pattern[pIdx] == name[nIdx]):
			pIdx++
			nIdx++
		case pIdx < len(pattern) && pattern[pIdx] == '*':
			starIdx = pIdx
			match = nIdx
			pIdx++
		case starIdx != -1:
			pIdx = starIdx + 1
			match++
			nIdx = match
		default:
			return false
		}
	}
	for pIdx < len(pattern) && pattern[pIdx] == '*' {
		pIdx++
	}
	return pIdx == len(pattern)
}
