package query

import (
	"strconv"
	"strings"

	"github.com/fsindex/fsindex/internal/ferrors"
)

// SizePredicateKind distinguishes a closed inclusive range from a
// single excluded value (the only shape "!=" can express).
type SizePredicateKind int

const (
	SizeRange SizePredicateKind = iota
	SizeNotEqual
)

// SizePredicate is a compiled "size:" argument. Range bounds are
// inclusive on both ends; a nil bound means unbounded in that
// direction.
type SizePredicate struct {
	Kind SizePredicateKind
	Min  *uint64
	Max  *uint64
	// NotValue holds the excluded value for SizeNotEqual.
	NotValue uint64
}

// Matches reports whether size (in bytes) satisfies the predicate.
func (p SizePredicate) Matches(size uint64) bool {
	switch p.Kind {
	case SizeNotEqual:
		return size != p.NotValue
	default:
		if p.Min != nil && size < *p.Min {
			return false
		}
		if p.Max != nil && size > *p.Max {
			return false
		}
		return true
	}
}

// ParseSizePredicate parses the argument of "size:", accepting a
// single comparison ("<10mb", ">=1gb", "=0", "!=0") or an inclusive
// range ("10mb..1gb"). A bare number with no comparator or range is
// treated as an exact match, i.e. "size:0" is "=0".
func ParseSizePredicate(argument string) (SizePredicate, error) {
	arg := strings.TrimSpace(argument)
	if arg == "" {
		return SizePredicate{}, ferrors.InvalidInput("size: requires an argument")
	}

	if idx := strings.Index(arg, ".."); idx >= 0 {
		lo := strings.TrimSpace(arg[:idx])
		hi := strings.TrimSpace(arg[idx+2:])
		min, err := parseSizeValue(lo)
		if err != nil {
			return SizePredicate{}, err
		}
		max, err := parseSizeValue(hi)
		if err != nil {
			return SizePredicate{}, err
		}
		return SizePredicate{Kind: SizeRange, Min: &min, Max: &max}, nil
	}

	op, rest := splitSizeComparator(arg)
	value, err := parseSizeValue(rest)
	if err != nil {
		return SizePredicate{}, err
	}
	switch op {
	case "<":
		if value == 0 {
			// "size:<0" can never match a real (unsigned) size.
			one, zero := uint64(1), uint64(0)
			return SizePredicate{Kind: SizeRange, Min: &one, Max: &zero}, nil
		}
		max := value - 1
		return SizePredicate{Kind: SizeRange, Max: &max}, nil
	case "<=":
		return SizePredicate{Kind: SizeRange, Max: &value}, nil
	case ">":
		min := value + 1
		return SizePredicate{Kind: SizeRange, Min: &min}, nil
	case ">=":
		return SizePredicate{Kind: SizeRange, Min: &value}, nil
	case "!=":
		return SizePredicate{Kind: SizeNotEqual, NotValue: value}, nil
	default: // "=" or bare value
		return SizePredicate{Kind: SizeRange, Min: &value, Max: &value}, nil
	}
}

func splitSizeComparator(arg string) (op, rest string) {
	switch {
	case strings.HasPrefix(arg, "<="):
		return "<=", strings.TrimSpace(arg[2:])
	case strings.HasPrefix(arg, ">="):
		return ">=", strings.TrimSpace(arg[2:])
	case strings.HasPrefix(arg, "!="):
		return "!=", strings.TrimSpace(arg[2:])
	case strings.HasPrefix(arg, "<"):
		return "<", strings.TrimSpace(arg[1:])
	case strings.HasPrefix(arg, ">"):
		return ">", strings.TrimSpace(arg[1:])
	case strings.HasPrefix(arg, "="):
		return "=", strings.TrimSpace(arg[1:])
	default:
		return "=", arg
	}
}

// parseSizeValue parses a number with an optional decimal (1000-based)
// unit suffix: b, k, m, g, t (case-insensitive; a trailing "b" on a
// two-letter suffix like "kb"/"mb" is accepted too).
func parseSizeValue(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ferrors.InvalidInput("size: missing numeric value")
	}
	lower := strings.ToLower(raw)
	multiplier := uint64(1)
	numeric := lower
	suffixes := []struct {
		suffix string
		mult   uint64
	}{
		{"tb", 1_000_000_000_000},
		{"gb", 1_000_000_000},
		{"mb", 1_000_000},
		{"kb", 1_000},
		{"t", 1_000_000_000_000},
		{"g", 1_000_000_000},
		{"m", 1_000_000},
		{"k", 1_000},
		{"b", 1},
	}
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			multiplier = s.mult
			numeric = strings.TrimSpace(lower[:len(lower)-len(s.suffix)])
			break
		}
	}
	if numeric == "" {
		return 0, ferrors.InvalidInput("size: %q has a unit but no number", raw)
	}
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, ferrors.InvalidInput("size: invalid numeric value %q", raw)
	}
	if value < 0 {
		return 0, ferrors.InvalidInput("size: negative value %q", raw)
	}
	return uint64(value * float64(multiplier)), nil
}
