package alerts

import (
	"strconv"
	"strings"

	"github.com/quietmark/quietmark/pkg/types"
)

// evalCondition evaluates a rule condition string against an audit record.
//
// Supported expressions (field operator value):
//
//	score < 50
//	tti_ms > 10000
//	rating == poor
//	failed == true
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is
// unknown. Records that failed to produce a metric (Score < 0) only match
// the "failed" field — their score and elapsed time are meaningless.
func evalCondition(cond string, rec *types.AuditRecord) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	switch field {
	case "rating":
		if op == "==" {
			return rec.Rating == rhs && rec.Score >= 0, 0
		}
		return false, 0

	case "failed":
		if op == "==" {
			want := rhs == "true"
			return (rec.Score < 0) == want, 0
		}
		return false, 0

	default:
		if rec.Score < 0 {
			return false, 0
		}
		v, ok := numericField(field, rec)
		if !ok {
			return false, 0
		}
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0
		}
		return compareFloat(v, op, threshold), v
	}
}

// numericField maps a field name to its value in the record.
func numericField(field string, rec *types.AuditRecord) (float64, bool) {
	switch field {
	case "score":
		return float64(rec.Score), true
	case "tti_ms":
		return rec.RawValue, true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
