package bellchoir

import (
	"fmt"
	"math"
	"strings"
)

// Pitch is one tone a bell can ring, or Rest for silence. The zero value is
// Rest; the other pitches are chromatic steps upwards from A4 (440 Hz), so the
// frequency of a pitch with ordinal n is 440 * 2^((n-1)/12).
type Pitch uint8

const (
	Rest Pitch = iota
	A4
	A4S
	B4
	C4
	C4S
	D4
	D4S
	E4
	F4
	F4S
	G4
	G4S
	A5
	A5S
	B5
	C5
	C5S
	D5
	D5S
	E5
	F5
	F5S
	G5
	G5S
	A6

	numPitches = iota
)

const (
	// SampleRate is the fixed rate of the output line, in samples per second.
	SampleRate = 48 * 1024
	// MeasureLengthSec is the length of one measure. No more than one measure
	// of waveform exists per pitch.
	MeasureLengthSec = 1
	MeasureLengthMs  = MeasureLengthSec * 1000
	// MeasureSamples is the length of every pitch buffer.
	MeasureSamples = SampleRate * MeasureLengthSec

	// ReferenceFrequency is the frequency of A4, the first pitch after Rest.
	ReferenceFrequency = 440.0
	// MaxAmplitude is the peak magnitude of a signed 8-bit sample.
	MaxAmplitude = 127.0
)

var pitchNames = [numPitches]string{
	"REST", "A4", "A4S", "B4", "C4", "C4S", "D4", "D4S", "E4", "F4", "F4S", "G4", "G4S",
	"A5", "A5S", "B5", "C5", "C5S", "D5", "D5S", "E5", "F5", "F5S", "G5", "G5S", "A6",
}

// sampleTable holds one measure of samples per pitch. It is filled once at
// package initialization and never written afterwards.
var sampleTable = func() (ret [numPitches][]byte) {
	for p := range ret {
		ret[p] = sineSamples(Pitch(p))
	}
	return
}()

// Pitches returns every pitch, Rest first.
func Pitches() []Pitch {
	ret := make([]Pitch, numPitches)
	for i := range ret {
		ret[i] = Pitch(i)
	}
	return ret
}

// ParsePitch returns the pitch named by token, ignoring case and surrounding
// whitespace. The second return value is false, and the pitch Rest, if the
// token names no pitch.
func ParsePitch(token string) (Pitch, bool) {
	token = strings.ToUpper(strings.TrimSpace(token))
	for i, name := range pitchNames {
		if name == token {
			return Pitch(i), true
		}
	}
	return Rest, false
}

func (p Pitch) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Pitch(%d)", uint8(p))
	}
	return pitchNames[p]
}

// Valid reports if p is one of the defined pitches.
func (p Pitch) Valid() bool { return p < numPitches }

// Frequency returns the frequency of the pitch in Hz, or 0 for Rest.
func (p Pitch) Frequency() float64 {
	if p == Rest || !p.Valid() {
		return 0
	}
	return ReferenceFrequency * math.Pow(2, float64(p-1)/12)
}

// MIDIKey returns the MIDI note number of the pitch; A4 is key 69. Rest has
// no key and returns 0.
func (p Pitch) MIDIKey() uint8 {
	if p == Rest || !p.Valid() {
		return 0
	}
	return 69 + uint8(p-1)
}

// Samples returns one measure of signed 8-bit samples for the pitch. The
// returned slice is shared by every caller and must not be modified.
func (p Pitch) Samples() []byte {
	if !p.Valid() {
		return sampleTable[Rest]
	}
	return sampleTable[p]
}

// MarshalText implements encoding.TextMarshaler so pitches appear by name in
// json and yaml scores.
func (p Pitch) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid pitch %d", uint8(p))
	}
	return []byte(pitchNames[p]), nil
}

// UnmarshalText decodes a pitch name. Unknown names decode to Rest, the same
// way the text score parser treats them.
func (p *Pitch) UnmarshalText(text []byte) error {
	*p, _ = ParsePitch(string(text))
	return nil
}

func sineSamples(p Pitch) []byte {
	ret := make([]byte, MeasureSamples)
	freq := p.Frequency()
	if freq == 0 {
		return ret
	}
	step := freq * 2 * math.Pi / SampleRate
	for i := range ret {
		ret[i] = byte(int8(math.Sin(float64(i)*step) * MaxAmplitude))
	}
	return ret
}
