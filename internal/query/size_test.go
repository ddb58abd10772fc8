package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizePredicateComparisons(t *testing.T) {
	p, err := ParseSizePredicate(">=1mb")
	require.NoError(t, err)
	assert.False(t, p.Matches(999_999))
	assert.True(t, p.Matches(1_000_000))

	p, err = ParseSizePredicate("<1kb")
	require.NoError(t, err)
	assert.True(t, p.Matches(999))
	assert.False(t, p.Matches(1000))
}

func TestSizePredicateRange(t *testing.T) {
	p, err := ParseSizePredicate("10mb..20mb")
	require.NoError(t, err)
	assert.True(t, p.Matches(15_000_000))
	assert.False(t, p.Matches(25_000_000))
	assert.True(t, p.Matches(10_000_000))
	assert.True(t, p.Matches(20_000_000))
}

func TestSizePredicateNotEqual(t *testing.T) {
	p, err := ParseSizePredicate("!=0")
	require.NoError(t, err)
	assert.False(t, p.Matches(0))
	assert.True(t, p.Matches(1))
}

func TestSizePredicateBareNumberIsExact(t *testing.T) {
	p, err := ParseSizePredicate("42")
	require.NoError(t, err)
	assert.True(t, p.Matches(42))
	assert.False(t, p.Matches(43))
}

func TestSizePredicateInvalid(t *testing.T) {
	_, err := ParseSizePredicate("not-a-size")
	assert.Error(t, err)
	_, err = ParseSizePredicate("")
	assert.Error(t, err)
}
