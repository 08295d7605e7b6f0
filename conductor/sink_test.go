package conductor

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vsariola/bellchoir"
)

// recordingSink is an AudioSink recording every write and how many writers were
// inside WriteAudio at the same time.
type recordingSink struct {
	mu      sync.Mutex
	cond    *sync.Cond
	writes  [][]byte
	drained int
	closed  int

	active    atomic.Int32
	maxActive atomic.Int32

	// fail returns the error for the n:th write (counting from 0).
	fail func(n int) error
	// onWrite is called inside WriteAudio before the write is recorded.
	onWrite func(buffer []byte)
}

type fakeAudio struct {
	sink    *recordingSink
	openErr error
	opened  atomic.Int32
}

func newRecordingSink() *recordingSink {
	s := &recordingSink{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (a *fakeAudio) Output() (bellchoir.AudioSink, error) {
	if a.openErr != nil {
		return nil, a.openErr
	}
	a.opened.Add(1)
	return a.sink, nil
}

func (a *fakeAudio) Close() error { return nil }

func (s *recordingSink) WriteAudio(buffer []byte) error {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if s.onWrite != nil {
		s.onWrite(buffer)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	index := len(s.writes)
	s.writes = append(s.writes, append([]byte(nil), buffer...))
	s.cond.Broadcast()
	if s.fail != nil {
		return s.fail(index)
	}
	return nil
}

func (s *recordingSink) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drained++
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// waitWrites blocks until at least n writes have been recorded.
func (s *recordingSink) waitWrites(n int) error {
	timeout := time.AfterFunc(5*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cond.Broadcast()
	})
	defer timeout.Stop()
	deadline := time.Now().Add(5 * time.Second)
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.writes) < n {
		if time.Now().After(deadline) {
			return errors.New("timed out waiting for writes")
		}
		s.cond.Wait()
	}
	return nil
}

func (s *recordingSink) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret []byte
	for _, w := range s.writes {
		ret = append(ret, w...)
	}
	return ret
}

func (s *recordingSink) lengths() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]int, len(s.writes))
	for i, w := range s.writes {
		ret[i] = len(w)
	}
	return ret
}

func (s *recordingSink) counts() (writes, drained, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes), s.drained, s.closed
}
