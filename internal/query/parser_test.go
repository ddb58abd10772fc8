package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleText(t *testing.T) {
	expr, err := Parse("foo")
	require.NoError(t, err)
	term, ok := expr.(TermExpr)
	require.True(t, ok)
	assert.Equal(t, TermText, term.Term.Kind)
	assert.Equal(t, "foo", term.Term.Text)
}

func TestParseAndOfTwoWords(t *testing.T) {
	expr, err := Parse("foo bar")
	require.NoError(t, err)
	and, ok := expr.(AndExpr)
	require.True(t, ok)
	require.Len(t, and.Parts, 2)
}

func TestParseExplicitAndKeyword(t *testing.T) {
	expr, err := Parse("foo AND bar")
	require.NoError(t, err)
	and, ok := expr.(AndExpr)
	require.True(t, ok)
	require.Len(t, and.Parts, 2)
}

func TestParseOrPipeAndKeyword(t *testing.T) {
	for _, q := range []string{"foo OR bar", "foo | bar"} {
		expr, err := Parse(q)
		require.NoError(t, err, q)
		or, ok := expr.(OrExpr)
		require.True(t, ok, q)
		assert.Len(t, or.Parts, 2)
	}
}

func TestParseNotBang(t *testing.T) {
	for _, q := range []string{"NOT foo", "!foo"} {
		expr, err := Parse(q)
		require.NoError(t, err, q)
		_, ok := expr.(NotExpr)
		assert.True(t, ok, q)
	}
}

func TestParseDoubleNegationCancels(t *testing.T) {
	expr, err := Parse("NOT NOT foo")
	require.NoError(t, err)
	_, ok := expr.(NotExpr)
	assert.False(t, ok, "double negation should not wrap in Not")
}

func TestParseGroupParenthesis(t *testing.T) {
	expr, err := Parse("foo AND NOT (bar OR baz)")
	require.NoError(t, err)
	and, ok := expr.(AndExpr)
	require.True(t, ok)
	require.Len(t, and.Parts, 2)
	not, ok := and.Parts[1].(NotExpr)
	require.True(t, ok)
	or, ok := not.Inner.(OrExpr)
	require.True(t, ok)
	assert.Len(t, or.Parts, 2)
}

func TestParseMissingClosingParen(t *testing.T) {
	_, err := Parse("(foo AND bar")
	assert.Error(t, err)
}

func TestParseQuotedPhrase(t *testing.T) {
	expr, err := Parse(`"hello world"`)
	require.NoError(t, err)
	term, ok := expr.(TermExpr)
	require.True(t, ok)
	assert.True(t, term.Term.IsPhrase)
	assert.Equal(t, "hello world", term.Term.Text)
}

func TestParseEmptyQueryErrors(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)
	_, err = Parse("   ")
	assert.Error(t, err)
}

func TestParseExtensionFilter(t *testing.T) {
	expr, err := Parse("ext:md")
	require.NoError(t, err)
	term := expr.(TermExpr).Term
	require.Equal(t, TermFilter, term.Kind)
	require.Equal(t, FilterExtension, term.Filter.Kind)
	assert.Equal(t, []string{"md"}, term.Filter.Extensions)
}

func TestParseExtensionFilterMultipleSemicolonSeparated(t *testing.T) {
	expr, err := Parse("ext:.md;.TXT;")
	require.NoError(t, err)
	term := expr.(TermExpr).Term
	assert.Equal(t, []string{"md", "txt"}, term.Filter.Extensions)
}

func TestParseTypeMacro(t *testing.T) {
	expr, err := Parse("audio")
	require.NoError(t, err)
	// bare word "audio" with no colon is plain text, not a macro.
	term := expr.(TermExpr).Term
	assert.Equal(t, TermText, term.Kind)

	expr, err = Parse("audio:")
	require.NoError(t, err)
	term = expr.(TermExpr).Term
	require.Equal(t, FilterTypeMacro, term.Filter.Kind)
	assert.Equal(t, TypeTargetExtensions, term.Filter.Type.Kind)
	assert.False(t, term.Filter.HasMacroArg)
}

func TestParseSizeFilterComparison(t *testing.T) {
	expr, err := Parse("size:>10mb")
	require.NoError(t, err)
	term := expr.(TermExpr).Term
	require.Equal(t, FilterSize, term.Filter.Kind)
	require.NotNil(t, term.Filter.Size.Min)
	assert.Equal(t, uint64(10_000_001), *term.Filter.Size.Min)
}

func TestParseScopeFilters(t *testing.T) {
	expr, err := Parse("in:<root>/a foo")
	require.NoError(t, err)
	and := expr.(AndExpr)
	require.Len(t, and.Parts, 2)
	scope := and.Parts[0].(TermExpr).Term
	require.Equal(t, FilterInFolder, scope.Filter.Kind)
	assert.Equal(t, "<root>/a", scope.Filter.Path)
}

func TestParseUnknownFilterPrefixIsText(t *testing.T) {
	expr, err := Parse("weird:thing")
	require.NoError(t, err)
	term := expr.(TermExpr).Term
	assert.Equal(t, TermText, term.Kind)
	assert.Equal(t, "weird:thing", term.Text)
}
