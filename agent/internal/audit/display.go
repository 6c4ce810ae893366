package audit

import (
	"math"
	"strconv"
)

// formatMs renders an elapsed time for humans: rounded to the nearest 10 ms
// with thousands separators, e.g. 8132.4 -> "8,130 ms".
func formatMs(ms float64) string {
	n := int64(math.Round(ms/10) * 10)
	if n < 0 {
		n = 0
	}
	return groupThousands(n) + " ms"
}

// groupThousands formats a non-negative integer with comma separators.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
