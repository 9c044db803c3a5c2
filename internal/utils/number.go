package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reKeepNums = regexp.MustCompile(`[^\d.\-]`)
	reGrouped  = regexp.MustCompile(`^\d{1,3}(?:[,.]\d{3})+$`)
)

// ParseDecimal parses spreadsheet numbers as they arrive from different
// locales: "3.1390", "3,1390", "1,234.50", "1 234,50" (NBSP/NNBSP included).
// A lone comma is a decimal separator; next to a dot it groups thousands.
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "\t", "").Replace(s)
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ",") == 1:
		s = strings.ReplaceAll(s, ",", ".")
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	s = reKeepNums.ReplaceAllString(s, "")
	if s == "" || s == "-" || s == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseCount parses a head count. "1,234" and "1.234" are grouped thousands;
// fractions are truncated, garbage is 0.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	if reGrouped.MatchString(s) {
		n, _ := strconv.Atoi(strings.NewReplacer(",", "", ".", "").Replace(s))
		return n
	}
	f, ok := ParseDecimal(s)
	if !ok {
		return 0
	}
	return int(f)
}

// ParseCoordinate returns nil for empty, unparsable or zero cells; the source
// sheets use 0 for "no coordinate".
func ParseCoordinate(s string) *float64 {
	f, ok := ParseDecimal(s)
	if !ok || f == 0 {
		return nil
	}
	return &f
}
