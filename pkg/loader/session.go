package loader

import (
	"sync"

	"go.uber.org/atomic"
)

// Session is the context loaders run in. It owns a single event loop:
// every transport callback, timer expiry and notification of the loaders
// bound to it runs there, one at a time, in posting order.
// Closing the session tears the context down; loaders bound to a closed
// session deliver no further notifications.
type Session struct {
	alive *atomic.Bool

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewSession starts a session and its event loop.
func NewSession() *Session {
	s := &Session{
		alive: atomic.NewBool(true),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Alive reports whether the session has not been closed.
func (s *Session) Alive() bool {
	return s.alive.Load()
}

// Post queues fn on the event loop. It returns false if the session is closed.
func (s *Session) Post(fn func()) bool {
	if !s.Alive() {
		return false
	}
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Close stops the event loop and drops any queued callbacks.
func (s *Session) Close() {
	s.once.Do(func() {
		s.alive.Store(false)
		close(s.done)
	})
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.pending) == 0 || !s.Alive() {
				s.pending = nil
				s.mu.Unlock()
				break
			}
			fn := s.pending[0]
			s.pending[0] = nil
			s.pending = s.pending[1:]
			s.mu.Unlock()
			fn()
		}
	}
}
