package bellchoir

import (
	"errors"
	"sync"
)

type (
	// AudioWriter is the part of an output line that bells are allowed to
	// use. WriteAudio blocks until the line has accepted the whole buffer of
	// signed 8-bit mono samples at SampleRate.
	AudioWriter interface {
		WriteAudio(buffer []byte) error
	}

	// AudioSink is an opened and started output line.
	AudioSink interface {
		AudioWriter
		// Drain blocks until everything written has been played.
		Drain() error
		Close() error
	}

	// AudioContext opens output lines. Output opens a new line and starts it,
	// so it is ready to be written to.
	AudioContext interface {
		Output() (AudioSink, error)
		Close() error
	}
)

var ErrSinkClosed = errors.New("audio sink is closed")

// Recorder is an AudioContext that plays nothing but keeps everything written
// to its outputs, in the order it was written. It is used for exporting and in
// tests.
type Recorder struct {
	mu      sync.Mutex
	buffer  []byte
	opened  int
	drained int
}

type recorderOutput struct {
	recorder *Recorder
	closed   bool
}

func (r *Recorder) Output() (AudioSink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
	return &recorderOutput{recorder: r}, nil
}

func (r *Recorder) Close() error { return nil }

// Bytes returns a copy of everything recorded so far.
func (r *Recorder) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.buffer...)
}

// Opened returns how many outputs have been opened.
func (r *Recorder) Opened() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened
}

// Drained returns how many times an output has been drained.
func (r *Recorder) Drained() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drained
}

func (o *recorderOutput) WriteAudio(buffer []byte) error {
	o.recorder.mu.Lock()
	defer o.recorder.mu.Unlock()
	if o.closed {
		return ErrSinkClosed
	}
	o.recorder.buffer = append(o.recorder.buffer, buffer...)
	return nil
}

func (o *recorderOutput) Drain() error {
	o.recorder.mu.Lock()
	defer o.recorder.mu.Unlock()
	if o.closed {
		return ErrSinkClosed
	}
	o.recorder.drained++
	return nil
}

func (o *recorderOutput) Close() error {
	o.recorder.mu.Lock()
	defer o.recorder.mu.Unlock()
	o.closed = true
	return nil
}
