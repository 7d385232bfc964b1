package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// FirstNonEmpty returns the first value that is not blank once cleaned.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = CleanString(v); v != "" {
			return v
		}
	}
	return ""
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	s = CleanString(s)
	if s == "" {
		return nil
	}
	return &s
}

// StringVal dereferences p, or returns "".
func StringVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
