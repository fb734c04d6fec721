package payment

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ConditionKind is the kind of a declarative predicate
type ConditionKind string

const (
	// ConditionNotNull matches when the tested value is defined and non-empty
	ConditionNotNull ConditionKind = "not_null"
	// ConditionEqual matches when the tested value equals the operand
	ConditionEqual ConditionKind = "equal"
	// ConditionNotEqual matches when the tested value is defined and differs
	// from the operand
	ConditionNotEqual ConditionKind = "not_equal"
)

// CheckCondition evaluates a predicate kind against a value and operand.
// Unknown kinds evaluate to false: config rows are edited out-of-band, and a
// typo in a condition kind must fail the check rather than pass it.
func CheckCondition(kind ConditionKind, value, operand any) bool {
	switch kind {
	case ConditionNotNull:
		return defined(value)
	case ConditionEqual:
		return defined(value) && scalarEqual(value, operand)
	case ConditionNotEqual:
		return defined(value) && !scalarEqual(value, operand)
	default:
		return false
	}
}

// defined reports whether a value is present. Empty strings count as absent
// so that a blanked-out token triggers an auth refresh instead of being sent.
func defined(value any) bool {
	if value == nil {
		return false
	}
	if s, ok := value.(string); ok {
		return s != ""
	}
	return true
}

// scalarEqual compares two scalars loosely: JSON decoding yields float64 for
// numbers while config operands are often strings, so numeric values compare
// by decimal value and everything else by string form.
func scalarEqual(a, b any) bool {
	da, aNum := toDecimal(a)
	db, bNum := toDecimal(b)
	if aNum && bNum {
		return da.Equal(db)
	}
	return stringify(a) == stringify(b)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case float64:
		return decimal.NewFromFloat(t), true
	case decimal.Decimal:
		return t, true
	case string:
		d, err := decimal.NewFromString(t)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// stringify renders a scalar the way it appears on the wire
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return decimal.NewFromFloat(t).String()
	case decimal.Decimal:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
