package utils

import "strings"

const maskKeep = 6

// MaskSecret keeps a short prefix of s so log lines can be correlated
// without printing the whole value. Short values are masked completely.
func MaskSecret(s string) string {
	if len(s) <= maskKeep*2 {
		return strings.Repeat("*", len(s))
	}
	return s[:maskKeep] + "*****"
}
