package bellchoir

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is the length of a note as a fraction of a measure.
type Duration uint8

const (
	Whole Duration = iota
	Half
	Quarter
	Eighth

	numDurations = iota
)

var durationDenominators = [numDurations]int{1, 2, 4, 8}

// ParseDuration returns the duration whose denominator is given by token,
// i.e. "1", "2", "4" or "8". Anything else returns Whole and false.
func ParseDuration(token string) (Duration, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return Whole, false
	}
	for i, d := range durationDenominators {
		if d == n {
			return Duration(i), true
		}
	}
	return Whole, false
}

// Denominator returns 1, 2, 4 or 8 for whole, half, quarter and eighth notes.
func (d Duration) Denominator() int {
	if !d.Valid() {
		return 1
	}
	return durationDenominators[d]
}

// Valid reports if d is one of the defined durations.
func (d Duration) Valid() bool { return d < numDurations }

// Ms returns the nominal length of the note in milliseconds: the fraction of
// a measure times MeasureLengthMs.
func (d Duration) Ms() int {
	return MeasureLengthMs / d.Denominator()
}

// Time is Ms as a time.Duration.
func (d Duration) Time() time.Duration {
	return time.Duration(d.Ms()) * time.Millisecond
}

// Samples returns how many samples of a pitch buffer a note of this duration
// plays. It never exceeds one measure.
func (d Duration) Samples() int {
	ms := min(d.Ms(), MeasureLengthMs)
	return SampleRate * ms / 1000
}

func (d Duration) String() string {
	switch d {
	case Whole:
		return "whole"
	case Half:
		return "half"
	case Quarter:
		return "quarter"
	case Eighth:
		return "eighth"
	}
	return fmt.Sprintf("Duration(%d)", uint8(d))
}

// MarshalText writes the duration as its denominator.
func (d Duration) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid duration %d", uint8(d))
	}
	return []byte(strconv.Itoa(d.Denominator())), nil
}

// UnmarshalText reads a denominator; unknown values become Whole.
func (d *Duration) UnmarshalText(text []byte) error {
	*d, _ = ParseDuration(string(text))
	return nil
}

// MarshalJSON writes the denominator as a json number.
func (d Duration) MarshalJSON() ([]byte, error) {
	return d.MarshalText()
}

// UnmarshalJSON accepts the denominator either as a number or as a string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	return d.UnmarshalText(bytes.Trim(data, `"`))
}

// MarshalYAML writes the denominator as a yaml integer.
func (d Duration) MarshalYAML() (any, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid duration %d", uint8(d))
	}
	return d.Denominator(), nil
}
