// Package conductor plays a bellchoir.Score with one Bell goroutine per
// distinct pitch. The Conductor owns the output line and the bells, hands the
// notes of the score to the bells in order and keeps the tempo by sleeping
// for the nominal length of each note after dispatching it.
package conductor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vsariola/bellchoir"
)

type (
	// Conductor plays one prepared score at a time. Its methods must not be
	// called concurrently.
	Conductor struct {
		audio     bellchoir.AudioContext
		logger    *slog.Logger
		announcer io.Writer
		gap       int
		wait      func(ctx context.Context, d time.Duration) error

		score      bellchoir.Score
		unplayable error
		bells      map[bellchoir.Pitch]*Bell
		order      []bellchoir.Pitch // first-seen order, for deterministic start and stop
		reports    chan BellError
		failures   int
	}

	// Option configures a Conductor.
	Option func(*Conductor)

	// guardedLine is the write capability given to the bells. The protocol
	// already keeps two bells from writing at once; the mutex makes sure of
	// it. After revoke, writes fail.
	guardedLine struct {
		mu      sync.Mutex
		sink    bellchoir.AudioWriter
		revoked bool
	}
)

var ErrUnplayableScore = errors.New("score is not playable")

// WithLogger sets the logger receiving diagnostics. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conductor) { c.logger = logger }
}

// WithAnnouncer makes the conductor write the name of each pitch to w, one
// per line, as it is dispatched.
func WithAnnouncer(w io.Writer) Option {
	return func(c *Conductor) { c.announcer = w }
}

// WithGap sets how many silent samples each bell writes after a note.
func WithGap(samples int) Option {
	return func(c *Conductor) { c.gap = samples }
}

// New returns a conductor that opens its output line from audio. Prepare must
// be called before Play.
func New(audio bellchoir.AudioContext, opts ...Option) *Conductor {
	c := &Conductor{
		audio:      audio,
		logger:     slog.Default(),
		gap:        bellchoir.GapSamples,
		wait:       sleep,
		unplayable: fmt.Errorf("%w: no score prepared", ErrUnplayableScore),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Prepare checks that score can be played and creates one bell for every
// distinct pitch in it. An empty score, or one flagged invalid by its loader,
// returns an error wrapping ErrUnplayableScore and creates no bells.
func (c *Conductor) Prepare(score bellchoir.Score) error {
	c.bells = nil
	c.order = nil
	c.score = score.Copy()
	if err := score.Validate(); err != nil {
		c.unplayable = fmt.Errorf("%w: %w", ErrUnplayableScore, err)
		return c.unplayable
	}
	c.order = score.Pitches()
	// a bell reports at most once per note, so the reports never block
	c.reports = make(chan BellError, len(score.Notes))
	c.bells = make(map[bellchoir.Pitch]*Bell, len(c.order))
	for _, p := range c.order {
		c.bells[p] = NewBell(p, c.gap, c.reports)
	}
	c.unplayable = nil
	return nil
}

// Bells returns the number of bells created by the last Prepare.
func (c *Conductor) Bells() int { return len(c.bells) }

// Failures returns how many notes of the last Play could not be written.
func (c *Conductor) Failures() int { return c.failures }

// Play plays the prepared score and returns when every bell has stopped.
//
// If the score is not playable, Play reports it once to the logger and
// returns an error wrapping ErrUnplayableScore without touching the audio
// output. Notes that fail to be written are logged and counted, but the song
// goes on. If ctx is cancelled, no more notes are dispatched, the bells are
// stopped and ctx.Err() is returned.
//
// A score is played once; Prepare it again to replay it.
func (c *Conductor) Play(ctx context.Context) error {
	if c.unplayable != nil {
		c.logger.Warn("not playing score", "reason", c.unplayable)
		return c.unplayable
	}
	logger := c.logger.With("session", uuid.NewString())
	sink, err := c.audio.Output()
	if err != nil {
		logger.Error("no line for audio", "err", err)
		return fmt.Errorf("could not open audio output: %w", err)
	}
	c.failures = 0
	c.unplayable = fmt.Errorf("%w: score already played", ErrUnplayableScore)
	line := &guardedLine{sink: sink}
	logger.Debug("playing score", "notes", len(c.score.Notes), "bells", len(c.order), "length", c.score.Length())
	playErr := c.start()
	if playErr == nil {
		playErr = c.conduct(ctx, line, logger)
	}
	c.stopBells()
	line.revoke()
	c.collectReports(logger)
	if playErr == nil {
		if err := sink.Drain(); err != nil {
			playErr = fmt.Errorf("could not drain audio output: %w", err)
		}
	}
	if err := sink.Close(); err != nil && playErr == nil {
		playErr = fmt.Errorf("could not close audio output: %w", err)
	}
	if playErr != nil {
		logger.Error("playing stopped", "err", playErr)
		return playErr
	}
	logger.Debug("score played", "failures", c.failures)
	return nil
}

func (c *Conductor) start() error {
	for _, p := range c.order {
		if err := c.bells[p].Start(); err != nil {
			return fmt.Errorf("could not start bell %v: %w", p, err)
		}
	}
	return nil
}

func (c *Conductor) conduct(ctx context.Context, line bellchoir.AudioWriter, logger *slog.Logger) error {
	for i, n := range c.score.Notes {
		c.collectReports(logger)
		bell := c.bells[n.Pitch]
		if err := bell.Play(ctx, n.Length, line); err != nil {
			return fmt.Errorf("note %d (%v): %w", i, n.Pitch, err)
		}
		if c.announcer != nil {
			fmt.Fprintln(c.announcer, n.Pitch)
		}
		logger.Debug("dispatched", "index", i, "pitch", n.Pitch, "length", n.Length)
		// the tempo is kept by the nominal length, whether or not the bell
		// has finished writing
		if err := c.wait(ctx, n.Length.Time()); err != nil {
			return err
		}
	}
	return nil
}

// stopBells stops every bell and waits for all of them. Bells busy with a
// note finish it first.
func (c *Conductor) stopBells() {
	for _, p := range c.order {
		c.bells[p].Stop()
	}
	for _, p := range c.order {
		c.bells[p].Wait()
	}
}

func (c *Conductor) collectReports(logger *slog.Logger) {
	for {
		select {
		case r := <-c.reports:
			c.failures++
			logger.Warn("bell could not write note", "pitch", r.Pitch, "length", r.Length, "err", r.Err)
		default:
			return
		}
	}
}

func (l *guardedLine) WriteAudio(buffer []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.revoked {
		return bellchoir.ErrSinkClosed
	}
	return l.sink.WriteAudio(buffer)
}

func (l *guardedLine) revoke() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked = true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
