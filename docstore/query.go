package docstore

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"golang.org/x/text/cases"
)

// Op is a comparison operator of a Condition.
type Op int

// Supported operators.
const (
	// OpEq matches documents whose field equals the value. A nil value
	// matches documents where the field is null or missing.
	OpEq Op = iota + 1
	// OpContainsFold matches documents whose string field contains the value,
	// ignoring case.
	OpContainsFold
)

// String implements fmt.Stringer.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpContainsFold:
		return "contains_fold"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Condition is a single filter predicate on a top-level document field.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Eq returns an equality condition.
func Eq(field string, v any) Condition {
	return Condition{Field: field, Op: OpEq, Value: v}
}

// ContainsFold returns a case-insensitive substring condition.
func ContainsFold(field, s string) Condition {
	return Condition{Field: field, Op: OpContainsFold, Value: s}
}

// Query selects documents of a collection. All conditions must hold.
// Documents are returned in insertion order. A Limit of zero or less means no
// limit.
type Query struct {
	Where  []Condition
	Offset int
	Limit  int
}

// Validate checks that every condition can be evaluated by a backend.
func (q Query) Validate() error {
	if q.Offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrUnsupportedFilter, q.Offset)
	}
	for _, c := range q.Where {
		if err := CheckIdentifier(c.Field); err != nil {
			return err
		}
		switch c.Op {
		case OpEq:
			if !scalar(c.Value) {
				return fmt.Errorf("%w: non-scalar value for %q", ErrUnsupportedFilter, c.Field)
			}
		case OpContainsFold:
			if _, ok := c.Value.(string); !ok {
				return fmt.Errorf("%w: %s on %q requires a string", ErrUnsupportedFilter, c.Op, c.Field)
			}
		default:
			return fmt.Errorf("%w: unknown operator %s", ErrUnsupportedFilter, c.Op)
		}
	}
	return nil
}

func scalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// Fold returns the Unicode case folding of s used by ContainsFold. Every
// store folds both sides of the comparison with it.
func Fold(s string) string { return cases.Fold().String(s) }

// Match reports whether doc satisfies every condition.
func Match(doc Document, conds []Condition) bool {
	for _, c := range conds {
		v, ok := doc[c.Field]
		switch c.Op {
		case OpEq:
			if c.Value == nil {
				if ok && v != nil {
					return false
				}
				continue
			}
			if !ok || !Equal(v, c.Value) {
				return false
			}
		case OpContainsFold:
			s, isStr := v.(string)
			sub, _ := c.Value.(string)
			if !isStr || !strings.Contains(Fold(s), Fold(sub)) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Equal compares two JSON values. Numbers compare by value regardless of
// their Go type.
func Equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, !math.IsNaN(n)
	default:
		return 0, false
	}
}
