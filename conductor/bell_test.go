package conductor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/vsariola/bellchoir"
)

func TestBellLifecycle(t *testing.T) {
	sink := newRecordingSink()
	b := NewBell(bellchoir.A4, bellchoir.GapSamples, nil)
	require.Equal(t, Idle, b.State())
	require.ErrorIs(t, b.Play(context.Background(), bellchoir.Quarter, sink), ErrBellIdle)

	require.NoError(t, b.Start())
	require.Equal(t, Waiting, b.State())
	require.ErrorIs(t, b.Start(), ErrBellStarted)

	require.NoError(t, b.Play(context.Background(), bellchoir.Quarter, sink))
	require.NoError(t, sink.waitWrites(2))

	b.Stop()
	b.Stop()
	b.Wait()
	require.Equal(t, Stopped, b.State())
	require.ErrorIs(t, b.Play(context.Background(), bellchoir.Quarter, sink), ErrBellStopped)
	require.ErrorIs(t, b.Start(), ErrBellStopped)
	require.Equal(t, []int{bellchoir.SampleRate / 4, bellchoir.GapSamples}, sink.lengths())
}

func TestBellStopBeforeStart(t *testing.T) {
	b := NewBell(bellchoir.C5, 0, nil)
	b.Stop()
	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("an idle bell should stop without being started")
	}
	require.Equal(t, Stopped, b.State())
}

func TestBellWritesOnlyWhilePlaying(t *testing.T) {
	sink := newRecordingSink()
	b := NewBell(bellchoir.E5, bellchoir.GapSamples, nil)
	var states []BellState
	sink.onWrite = func([]byte) { states = append(states, b.State()) }
	require.NoError(t, b.Start())
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Play(context.Background(), bellchoir.Eighth, sink))
		require.NoError(t, sink.waitWrites(2*(i+1)))
	}
	b.Stop()
	b.Wait()
	require.Len(t, states, 6)
	for i, s := range states {
		require.Equal(t, Playing, s, "write %d", i)
	}
}

func TestBellWriteNeverExceedsMeasure(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		length := rapid.SampledFrom([]bellchoir.Duration{bellchoir.Whole, bellchoir.Half, bellchoir.Quarter, bellchoir.Eighth}).Draw(t, "length")
		pitch := rapid.SampledFrom(bellchoir.Pitches()).Draw(t, "pitch")
		sink := newRecordingSink()
		b := NewBell(pitch, 0, nil)
		if err := b.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}
		defer func() {
			b.Stop()
			b.Wait()
		}()
		if err := b.Play(context.Background(), length, sink); err != nil {
			t.Fatalf("Play: %v", err)
		}
		if err := sink.waitWrites(1); err != nil {
			t.Fatal(err)
		}
		n := sink.lengths()[0]
		if n > bellchoir.MeasureSamples {
			t.Fatalf("wrote %d samples, more than one measure", n)
		}
		if n != length.Samples() {
			t.Fatalf("wrote %d samples for a %v note, expected %d", n, length, length.Samples())
		}
		if got := sink.bytes(); string(got) != string(pitch.Samples()[:n]) {
			t.Fatalf("bell wrote samples that are not its pitch")
		}
	})
}

// blockedSink holds every write until release is closed.
func blockedSink() (sink *recordingSink, entered chan struct{}, release chan struct{}) {
	sink = newRecordingSink()
	entered = make(chan struct{}, 16)
	release = make(chan struct{})
	sink.onWrite = func([]byte) {
		entered <- struct{}{}
		<-release
	}
	return sink, entered, release
}

func TestBellStopWaitsForWrite(t *testing.T) {
	sink, entered, release := blockedSink()
	b := NewBell(bellchoir.G4, bellchoir.GapSamples, nil)
	require.NoError(t, b.Start())
	require.NoError(t, b.Play(context.Background(), bellchoir.Half, sink))
	<-entered
	require.Equal(t, Playing, b.State())

	b.Stop()
	select {
	case <-b.Done():
		t.Fatal("stop must not interrupt a note being written")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	b.Wait()
	require.Equal(t, Stopped, b.State())
	require.Equal(t, []int{bellchoir.SampleRate / 2, bellchoir.GapSamples}, sink.lengths(), "the note is finished, gap included")
}

func TestBellDoesNotQueueCommands(t *testing.T) {
	sink, entered, release := blockedSink()
	b := NewBell(bellchoir.D4, 0, nil)
	require.NoError(t, b.Start())
	defer func() {
		b.Stop()
		b.Wait()
	}()
	require.NoError(t, b.Play(context.Background(), bellchoir.Eighth, sink))
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, b.Play(ctx, bellchoir.Eighth, sink), context.DeadlineExceeded, "a busy bell must not accept another note")

	close(release)
	require.NoError(t, b.Play(context.Background(), bellchoir.Eighth, sink))
	require.NoError(t, sink.waitWrites(2))
}

func TestBellReportsWriteFailure(t *testing.T) {
	errDevice := errors.New("device gone")
	sink := newRecordingSink()
	sink.fail = func(n int) error {
		if n == 0 {
			return errDevice
		}
		return nil
	}
	reports := make(chan BellError, 1)
	b := NewBell(bellchoir.F5, bellchoir.GapSamples, reports)
	require.NoError(t, b.Start())
	require.NoError(t, b.Play(context.Background(), bellchoir.Quarter, sink))

	select {
	case r := <-reports:
		require.Equal(t, bellchoir.F5, r.Pitch)
		require.Equal(t, bellchoir.Quarter, r.Length)
		require.ErrorIs(t, r, errDevice)
	case <-time.After(5 * time.Second):
		t.Fatal("no report of the failed write")
	}
	require.Equal(t, []int{bellchoir.SampleRate / 4}, sink.lengths(), "no gap and no retry after a failed write")

	// the bell goes back to waiting and plays the next note
	require.NoError(t, b.Play(context.Background(), bellchoir.Eighth, sink))
	require.NoError(t, sink.waitWrites(3))
	b.Stop()
	b.Wait()
}
