package oto

import (
	"io"
	"sync"
	"time"

	"github.com/vsariola/bellchoir"
)

// silence is the unsigned 8-bit sample value of zero amplitude.
const silence = 0x80

// lineBuffer turns the pull-based players of the audio backends into a line
// that is written to, like a hardware output line: WriteAudio blocks while the
// buffer is full, and the player side never blocks, reading silence when
// nothing has been written.
//
// Samples are stored converted from signed to unsigned 8-bit.
type lineBuffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	data     []byte
	capacity int
	closed   bool
}

func newLineBuffer(capacity int) *lineBuffer {
	l := &lineBuffer{capacity: max(capacity, 1)}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *lineBuffer) WriteAudio(buffer []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(buffer) > 0 {
		for len(l.data) >= l.capacity && !l.closed {
			l.cond.Wait()
		}
		if l.closed {
			return bellchoir.ErrSinkClosed
		}
		n := min(len(buffer), l.capacity-len(l.data))
		for _, v := range buffer[:n] {
			l.data = append(l.data, v^0x80)
		}
		buffer = buffer[n:]
	}
	return nil
}

// Read implements io.Reader for the player. It fills p completely, padding
// with silence, until the line is closed.
func (l *lineBuffer) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed && len(l.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, l.data)
	l.data = l.data[n:]
	for i := n; i < len(p); i++ {
		p[i] = silence
	}
	l.cond.Broadcast()
	return len(p), nil
}

// Buffered returns the number of samples written but not yet read.
func (l *lineBuffer) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.data)
}

// drain blocks until every written sample has been read or the line is
// closed.
func (l *lineBuffer) drain() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.data) > 0 && !l.closed {
		l.cond.Wait()
	}
	if l.closed {
		return bellchoir.ErrSinkClosed
	}
	return nil
}

func (l *lineBuffer) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.data = nil
	l.cond.Broadcast()
}

func samplesToDuration(samples int) time.Duration {
	return time.Duration(samples) * time.Second / bellchoir.SampleRate
}
