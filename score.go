package bellchoir

import (
	"errors"
	"fmt"
	"time"
)

type (
	// Note is a single entry of a score: which pitch rings and for how long.
	Note struct {
		Pitch  Pitch    `json:"pitch" yaml:"pitch"`
		Length Duration `json:"length" yaml:"length"`
	}

	// Score is the list of notes of a song, in the order they are played. The
	// same pitch can appear many times; every occurrence is rung by the same
	// bell.
	//
	// Invalid is set by loaders that could not produce a usable score at all,
	// e.g. because the file was missing. An invalid score is never played.
	Score struct {
		Notes   []Note `json:"notes" yaml:"notes"`
		Invalid bool   `json:"-" yaml:"-"`
	}
)

var (
	ErrEmptyScore   = errors.New("score has no notes")
	ErrInvalidScore = errors.New("score was marked invalid")
)

// Copy makes a deep copy of a Score.
func (s Score) Copy() Score {
	notes := make([]Note, len(s.Notes))
	copy(notes, s.Notes)
	return Score{Notes: notes, Invalid: s.Invalid}
}

// Validate returns ErrInvalidScore if the score was flagged invalid by its
// loader, ErrEmptyScore if it has no notes, or an error describing the first
// note with a pitch or length out of range.
func (s Score) Validate() error {
	if s.Invalid {
		return ErrInvalidScore
	}
	if len(s.Notes) == 0 {
		return ErrEmptyScore
	}
	for i, n := range s.Notes {
		if !n.Pitch.Valid() {
			return fmt.Errorf("note %d: invalid pitch %v", i, n.Pitch)
		}
		if !n.Length.Valid() {
			return fmt.Errorf("note %d: invalid length %v", i, n.Length)
		}
	}
	return nil
}

// Pitches returns the distinct pitches of the score in the order they first
// appear.
func (s Score) Pitches() []Pitch {
	var seen [numPitches]bool
	ret := make([]Pitch, 0, numPitches)
	for _, n := range s.Notes {
		if n.Pitch.Valid() && !seen[n.Pitch] {
			seen[n.Pitch] = true
			ret = append(ret, n.Pitch)
		}
	}
	return ret
}

// Length returns the summed nominal duration of all the notes, i.e. how long
// the conductor spends dispatching them.
func (s Score) Length() time.Duration {
	var ret time.Duration
	for _, n := range s.Notes {
		ret += n.Length.Time()
	}
	return ret
}
