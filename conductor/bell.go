package conductor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vsariola/bellchoir"
)

type (
	// Bell rings a single pitch on command. It runs in its own goroutine from
	// Start until Stop, spending most of its life waiting for the next command.
	//
	// Commands are handed over through an unbuffered channel, so a command is
	// only ever accepted by a bell that is waiting: a bell never has a queue of
	// notes. The output line is handed over with each command and dropped
	// after the note, the bell never keeps a reference to it.
	Bell struct {
		pitch    bellchoir.Pitch
		gap      int
		commands chan command
		stop     chan struct{}
		done     chan struct{}
		reports  chan<- BellError
		state    atomic.Int32

		mu      sync.Mutex // guards the start and stop transitions
		stopped bool
	}

	// BellState is the lifecycle state of a Bell.
	BellState int32

	// BellError is pushed by a bell to its reports channel when writing a
	// note to the output fails.
	BellError struct {
		Pitch  bellchoir.Pitch
		Length bellchoir.Duration
		Err    error
	}

	command struct {
		length bellchoir.Duration
		out    bellchoir.AudioWriter
	}
)

const (
	Idle BellState = iota
	Waiting
	Playing
	Stopped
)

var (
	ErrBellIdle    = errors.New("bell has not been started")
	ErrBellStarted = errors.New("bell has already been started")
	ErrBellStopped = errors.New("bell has stopped")
)

// NewBell creates an idle bell for pitch. gap is the number of silent samples
// written after every note. Write failures are sent to reports without
// blocking; a nil reports discards them.
func NewBell(pitch bellchoir.Pitch, gap int, reports chan<- BellError) *Bell {
	return &Bell{
		pitch:    pitch,
		gap:      min(max(gap, 0), bellchoir.MeasureSamples),
		commands: make(chan command),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		reports:  reports,
	}
}

func (b *Bell) Pitch() bellchoir.Pitch { return b.pitch }

func (b *Bell) State() BellState { return BellState(b.state.Load()) }

// Start launches the goroutine of the bell, which immediately starts waiting
// for commands.
func (b *Bell) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return ErrBellStopped
	}
	if b.State() != Idle {
		return ErrBellStarted
	}
	b.state.Store(int32(Waiting))
	go b.run()
	return nil
}

// Play commands the bell to ring for length, writing to out. Play returns as
// soon as the bell has taken the command; it does not wait for the samples to
// be written. If the bell is still busy with the previous note, Play blocks
// until the bell is waiting again or ctx is done.
func (b *Bell) Play(ctx context.Context, length bellchoir.Duration, out bellchoir.AudioWriter) error {
	switch b.State() {
	case Idle:
		return ErrBellIdle
	case Stopped:
		return ErrBellStopped
	}
	select {
	case b.commands <- command{length: length, out: out}:
		return nil
	case <-b.stop:
		return ErrBellStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop tells the bell to quit. A waiting bell quits right away; a playing bell
// finishes writing its note first. Stop does not wait; use Wait for that.
// Stopping a bell that was never started moves it directly to Stopped.
func (b *Bell) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	close(b.stop)
	if b.State() == Idle {
		b.state.Store(int32(Stopped))
		close(b.done)
	}
}

// Wait blocks until the bell has stopped.
func (b *Bell) Wait() {
	<-b.done
}

// Done returns a channel that is closed when the bell has stopped.
func (b *Bell) Done() <-chan struct{} {
	return b.done
}

func (b *Bell) run() {
	defer func() {
		b.state.Store(int32(Stopped))
		close(b.done)
	}()
	for {
		select {
		case <-b.stop:
			return
		case cmd := <-b.commands:
			// the command and the stop may have arrived together; a stopped
			// bell must not write anything
			select {
			case <-b.stop:
				return
			default:
			}
			b.state.Store(int32(Playing))
			b.ring(cmd)
			b.state.Store(int32(Waiting))
		}
	}
}

func (b *Bell) ring(cmd command) {
	err := cmd.out.WriteAudio(b.pitch.Samples()[:cmd.length.Samples()])
	if err == nil && b.gap > 0 {
		err = cmd.out.WriteAudio(bellchoir.Rest.Samples()[:b.gap])
	}
	if err != nil && b.reports != nil {
		select {
		case b.reports <- BellError{Pitch: b.pitch, Length: cmd.length, Err: err}:
		default:
		}
	}
}

func (s BellState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Playing:
		return "playing"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("BellState(%d)", int32(s))
}

func (e BellError) Error() string {
	return fmt.Sprintf("bell %v could not ring a %v note: %v", e.Pitch, e.Length, e.Err)
}

func (e BellError) Unwrap() error { return e.Err }
