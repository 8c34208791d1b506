package core

import (
	"crypto/rand"
	"math"
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NowFunc returns the current UTC time. mockable
var NowFunc = func() time.Time { return time.Now().UTC() }

// RandomPassword returns a random password of n printable ASCII characters (33-126).
func RandomPassword(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = 33 + b%94
	}
	return string(buf), nil
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}

// StringInSlice reports whether s is in list.
func StringInSlice(s string, list []string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func StringPtr(s string) *string { return &s }
func BoolPtr(b bool) *bool       { return &b }
func TimePtr(t time.Time) *time.Time {
	return &t
}
