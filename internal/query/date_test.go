package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatePredicateTodayKeyword(t *testing.T) {
	p, err := ParseDatePredicate("today")
	require.NoError(t, err)
	assert.True(t, p.Matches(time.Now().Unix()))
}

func TestDatePredicateYesterdayKeyword(t *testing.T) {
	p, err := ParseDatePredicate("yesterday")
	require.NoError(t, err)
	assert.True(t, p.Matches(time.Now().AddDate(0, 0, -1).Unix()))
}

func TestDatePredicateAbsoluteYMD(t *testing.T) {
	p, err := ParseDatePredicate("2024-06-15")
	require.NoError(t, err)
	noon := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	assert.True(t, p.Matches(noon.Unix()))
}

func TestDatePredicateAbsoluteSlash(t *testing.T) {
	p, err := ParseDatePredicate("2024/06/15")
	require.NoError(t, err)
	noon := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	assert.True(t, p.Matches(noon.Unix()))
}

func TestDatePredicateGreaterThan(t *testing.T) {
	p, err := ParseDatePredicate(">2024-01-01")
	require.NoError(t, err)
	after := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	before := time.Date(2023, 12, 31, 12, 0, 0, 0, time.Local)
	assert.True(t, p.Matches(after.Unix()))
	assert.False(t, p.Matches(before.Unix()))
}

func TestDatePredicateRange(t *testing.T) {
	p, err := ParseDatePredicate("2024-01-01..2024-12-31")
	require.NoError(t, err)
	inside := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	outside := time.Date(2023, 6, 15, 12, 0, 0, 0, time.Local)
	assert.True(t, p.Matches(inside.Unix()))
	assert.False(t, p.Matches(outside.Unix()))
}

func TestDatePredicateOpenEndedRanges(t *testing.T) {
	before, err := ParseDatePredicate("..2024-06-30")
	require.NoError(t, err)
	assert.True(t, before.Matches(time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local).Unix()))

	after, err := ParseDatePredicate("2024-06-01..")
	require.NoError(t, err)
	assert.True(t, after.Matches(time.Date(2024, 12, 31, 12, 0, 0, 0, time.Local).Unix()))
}

func TestDatePredicateNotEqual(t *testing.T) {
	p, err := ParseDatePredicate("!=2024-06-15")
	require.NoError(t, err)
	assert.True(t, p.Matches(time.Date(2024, 6, 14, 12, 0, 0, 0, time.Local).Unix()))
	assert.False(t, p.Matches(time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local).Unix()))
}

func TestDatePredicateInvalidInputs(t *testing.T) {
	_, err := ParseDatePredicate("")
	assert.Error(t, err)
	_, err = ParseDatePredicate("notadate")
	assert.Error(t, err)
	_, err = ParseDatePredicate("2024-12-31..2024-01-01")
	assert.Error(t, err)
}

func TestDatePredicateLastDayOfMonthLeapYear(t *testing.T) {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, -1)
	assert.Equal(t, 29, end.Day())
}
