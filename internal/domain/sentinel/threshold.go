package sentinel

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultThreshold is the pressure alarm threshold in mbar used at startup.
const DefaultThreshold = 2500.0

var (
	// ErrThresholdRejected is wrapped by every threshold update rejection.
	ErrThresholdRejected = errors.New("threshold rejected")
	// ErrThresholdNotNumeric means the input is not a finite number.
	ErrThresholdNotNumeric = fmt.Errorf("%w: not a finite number", ErrThresholdRejected)
	// ErrThresholdZero means the input parsed to exactly zero.
	ErrThresholdZero = fmt.Errorf("%w: zero is not a valid threshold", ErrThresholdRejected)
)

// ThresholdStore holds the pressure alarm threshold.
// It is not safe for concurrent use; the device state serializes access.
type ThresholdStore struct {
	value float64
}

// NewThresholdStore returns a store holding initial, or DefaultThreshold when
// initial is zero.
func NewThresholdStore(initial float64) *ThresholdStore {
	if initial == 0 {
		initial = DefaultThreshold
	}

	return &ThresholdStore{value: initial}
}

// Get returns the current threshold.
func (s *ThresholdStore) Get() float64 {
	return s.value
}

// Set parses text and stores the result.
// Non-numeric input and zero are rejected and leave the stored value unchanged.
func (s *ThresholdStore) Set(text string) (float64, error) {
	value, err := ParseThreshold(text)
	if err != nil {
		return s.value, err
	}

	s.value = value

	return value, nil
}

// ParseThreshold converts text to a threshold value.
func ParseThreshold(text string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("parse %q: %w", text, ErrThresholdNotNumeric)
	}

	if value == 0 {
		return 0, ErrThresholdZero
	}

	return value, nil
}

// ThresholdCode is the integer returned to remote callers for a threshold:
// the value truncated toward zero, clamped to the int64 range.
func ThresholdCode(value float64) int64 {
	switch {
	case value >= math.MaxInt64:
		return math.MaxInt64
	case value <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(value)
	}
}
