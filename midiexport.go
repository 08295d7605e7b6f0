package bellchoir

import (
	"bytes"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	ticksPerQuarter = 960
	ticksPerMeasure = 4 * ticksPerQuarter
	// in 4/4, 240 quarters per minute makes a measure last exactly
	// MeasureLengthSec
	midiBPM      = 240 / MeasureLengthSec
	midiChannel  = 0
	midiVelocity = 100
)

// SMF converts the score into a single track Standard MIDI File. Every pitch
// is held for its full nominal length; rests only advance time.
func SMF(score Score) ([]byte, error) {
	if err := score.Validate(); err != nil {
		return nil, fmt.Errorf("cannot export score to midi: %w", err)
	}
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerQuarter)
	var track smf.Track
	track.Add(0, smf.MetaMeter(4, 4))
	track.Add(0, smf.MetaTempo(float64(midiBPM)))
	var delta uint32
	for _, n := range score.Notes {
		ticks := uint32(ticksPerMeasure / n.Length.Denominator())
		if n.Pitch == Rest {
			delta += ticks
			continue
		}
		track.Add(delta, midi.NoteOn(midiChannel, n.Pitch.MIDIKey(), midiVelocity))
		track.Add(ticks, midi.NoteOff(midiChannel, n.Pitch.MIDIKey()))
		delta = 0
	}
	track.Close(delta)
	if err := sm.Add(track); err != nil {
		return nil, fmt.Errorf("error adding track: %w", err)
	}
	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("error writing midi file: %w", err)
	}
	return buf.Bytes(), nil
}
