package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders prefix + n zero-filled to padding digits. Numbers that need
// more digits than padding widen the field instead of being truncated.
func Format(prefix string, n int64, padding int) string {
	if padding < 1 {
		padding = 1
	}
	return fmt.Sprintf("%s%0*d", prefix, padding, n)
}

// Parse extracts the numeric suffix of a formatted number. It reports false
// when the number does not carry prefix, when the suffix is empty or holds
// anything but ASCII digits, or when it overflows int64. Padding is ignored.
func Parse(prefix, formatted string) (int64, bool) {
	if !strings.HasPrefix(formatted, prefix) {
		return 0, false
	}
	digits := formatted[len(prefix):]
	if digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
