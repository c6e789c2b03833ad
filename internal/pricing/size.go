package pricing

import (
	"strconv"
	"strings"
)

// count-based category tags, compared lower-cased. ConeCandy is matched
// separately and only in that exact spelling.
var countCategories = map[string]struct{}{
	"cone":  {},
	"candy": {},
	"stick": {},
	"cup":   {},
}

const coneCandyTag = "ConeCandy"

// IsCountBased reports whether a category is sold by the piece rather than by
// volume.
func IsCountBased(category string) bool {
	lower := strings.ToLower(category)
	if lower == "conecandy" {
		return category == coneCandyTag
	}
	_, ok := countCategories[lower]
	return ok
}

// Liters converts a size label to liters. Labels containing "ml" are read as
// milliliters. ok is false when no number can be read from the label.
func Liters(size string) (float64, bool) {
	lower := strings.ToLower(size)
	n, ok := leadingFloat(numericOnly(lower))
	if !ok {
		return 0, false
	}
	if strings.Contains(lower, "ml") {
		return n / 1000, true
	}
	return n, true
}

// IsFiveLiterTier reports whether the size label names the 5-liter tier.
// "15 liter" also matches since the check is a substring test.
func IsFiveLiterTier(size string) bool {
	s := strings.TrimSpace(strings.ToLower(size))
	switch s {
	case "5", "5l", "5 l", "5 litre":
		return true
	}
	return strings.Contains(s, "5 liter")
}

func numericOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// leadingFloat parses the longest "digits[.digits]" prefix, so "5.5.1" reads
// as 5.5 and "." fails.
func leadingFloat(s string) (float64, bool) {
	end, digits := 0, 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
