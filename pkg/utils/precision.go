package utils

import (
	"math"
	"strconv"
	"strings"
)

// RoundToDecimalPlaces rounds half away from zero to the given places.
func RoundToDecimalPlaces(value float64, places int) float64 {
	multiplier := math.Pow(10, float64(places))
	return math.Round(value*multiplier) / multiplier
}

// RoundedPtr rounds a finite value and returns a pointer to it; NaN and Inf give nil.
func RoundedPtr(value float64, places int) *float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	rounded := RoundToDecimalPlaces(value, places)
	return &rounded
}

// ParseFloatPtr nil for blank, "." or malformed input.
func ParseFloatPtr(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return nil
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &val
}
