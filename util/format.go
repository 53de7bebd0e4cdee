package util

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count for log output, e.g. "1.0 MiB (1,048,576 bytes)".
// Negative values keep their sign.
func FormatBytes(b int64) string {
	if b == 0 {
		return "0 bytes"
	}

	sign := ""
	abs := uint64(b)
	if b < 0 {
		sign = "-"
		abs = uint64(-b)
	}

	return fmt.Sprintf("%s%s (%s%s bytes)", sign, humanize.IBytes(abs), sign, humanize.Comma(int64(abs)))
}

// ParseBytes accepts human readable sizes like "8kB", "10 MiB" or a plain
// number of bytes.
func ParseBytes(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return int64(n), nil
}

// FormatPercent returns part/total as a whole percentage, or "N/A" when total is zero
func FormatPercent(part int64, total int64) string {
	if total == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%", float64(part)*100/float64(total))
}
