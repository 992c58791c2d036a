// Package core holds the domain model, the transaction aggregation engine,
// and the calendar grid builder.
//
// This file contains amount parsing and formatting. The backend serializes
// amounts as decimal strings; this is where they are coerced to numeric form
// on the way in and rendered with exactly two decimal places on the way out.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts a backend amount value to a float64 magnitude.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Negative
// values are rejected: amounts are magnitudes, the sign lives in the
// transaction type.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	if v < 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders an amount for transmission with exactly two decimal
// places, matching what the backend's decimal fields expect.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(RoundAmount(v), 'f', 2, 64)
}

// RoundAmount rounds to two decimal places, half away from zero.
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
