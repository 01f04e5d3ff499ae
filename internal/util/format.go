package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	exp := int(math.Log(float64(size)) / math.Log(unit))
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	if exp >= len(units) {
		exp = len(units) - 1
	}

	// Integer arithmetic keeps the decimals exact.
	div := int64(math.Pow(unit, float64(exp)))
	value := size / div
	if size%div == 0 {
		return fmt.Sprintf("%d %s", value, units[exp])
	}

	remainder := size % div
	decimal := (remainder * 10) / div
	return fmt.Sprintf("%d.%d %s", value, decimal, units[exp])
}

// FormatIndices renders a list of packet indices for logs, keeping at most
// limit entries and marking the rest with "...". limit <= 0 means no limit.
func FormatIndices(indices []int, limit int) string {
	if len(indices) == 0 {
		return "[]"
	}
	shown := indices
	truncated := false
	if limit > 0 && len(indices) > limit {
		shown = indices[:limit]
		truncated = true
	}

	var sb strings.Builder
	sb.WriteByte('[')
	for i, idx := range shown {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	if truncated {
		sb.WriteString(", ...")
	}
	sb.WriteByte(']')
	return sb.String()
}
