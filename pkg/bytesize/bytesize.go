// Package bytesize parses and formats human-readable byte sizes for
// configuration values such as transcode cache limits. Units are
// 1024-based and case-insensitive; a bare number is a byte count.
package bytesize

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is a byte count.
type Size int64

// Binary units.
const (
	B  Size = 1
	KB      = 1024 * B
	MB      = 1024 * KB
	GB      = 1024 * MB
	TB      = 1024 * GB
)

var units = map[string]Size{
	"":    B,
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"kib": KB,
	"m":   MB,
	"mb":  MB,
	"mib": MB,
	"g":   GB,
	"gb":  GB,
	"gib": GB,
	"t":   TB,
	"tb":  TB,
	"tib": TB,
}

// Parse converts strings like "512MB", "1.5 GiB", or "4096" into a Size.
func Parse(s string) (Size, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("bytesize: empty value")
	}

	// Split the leading number from the unit suffix.
	split := len(trimmed)
	for i, r := range trimmed {
		if (r < '0' || r > '9') && r != '.' {
			split = i
			break
		}
	}

	value, err := strconv.ParseFloat(trimmed[:split], 64)
	if err != nil {
		return 0, fmt.Errorf("bytesize: invalid value %q", s)
	}

	unit := strings.ToLower(strings.TrimSpace(trimmed[split:]))
	mult, ok := units[unit]
	if !ok {
		return 0, fmt.Errorf("bytesize: unknown unit %q in %q", unit, s)
	}

	return Size(value * float64(mult)), nil
}

// Format renders a size using the largest unit that keeps the value at or
// above one, so Parse(Format(s)) round-trips for whole-unit sizes.
func Format(s Size) string {
	if s < 0 {
		return "-" + Format(-s)
	}
	switch {
	case s >= TB:
		return trimFloat(float64(s)/float64(TB)) + "TB"
	case s >= GB:
		return trimFloat(float64(s)/float64(GB)) + "GB"
	case s >= MB:
		return trimFloat(float64(s)/float64(MB)) + "MB"
	case s >= KB:
		return trimFloat(float64(s)/float64(KB)) + "KB"
	default:
		return strconv.FormatInt(int64(s), 10) + "B"
	}
}

func trimFloat(v float64) string {
	out := strconv.FormatFloat(v, 'f', 2, 64)
	out = strings.TrimRight(out, "0")
	return strings.TrimRight(out, ".")
}

// Bytes returns the size in bytes as int64.
func (s Size) Bytes() int64 {
	return int64(s)
}

// String returns the human-readable form.
func (s Size) String() string {
	return Format(s)
}
