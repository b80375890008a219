package sim

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-testbench/internal/pool"
)

type pendingReply struct {
	data    []byte
	readyAt time.Time
}

// stream is the in-memory visa.Stream of one simulated session.
type stream struct {
	dev *device

	mu       sync.Mutex
	input    strings.Builder
	replies  []pendingReply
	deadline time.Time
	notify   chan struct{}
	done     chan struct{}
	closed   bool
}

func newStream(dev *device) *stream {
	return &stream{
		dev:    dev,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (s *stream) SetDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deadline = t

	return nil
}

// Write feeds complete command lines to the device, a partial line is kept until its terminator arrives.
func (s *stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	s.input.Write(p)
	buffered := s.input.String()
	cut := strings.LastIndexAny(buffered, "\r\n")
	if cut < 0 {
		s.mu.Unlock()
		return len(p), nil
	}
	s.input.Reset()
	s.input.WriteString(buffered[cut+1:])
	s.mu.Unlock()

	lines := strings.FieldsFunc(buffered[:cut], func(r rune) bool { return r == '\r' || r == '\n' })
	for _, line := range lines {
		reply := s.dev.respond(line)
		if reply == nil {
			continue
		}

		s.mu.Lock()
		s.replies = append(s.replies, pendingReply{data: reply, readyAt: time.Now().Add(s.dev.Latency)})
		s.mu.Unlock()

		select {
		case s.notify <- struct{}{}:
		default:
		}
	}

	return len(p), nil
}

func (s *stream) Read(p []byte) (int, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return 0, io.EOF
		}

		now := time.Now()
		deadline := s.deadline
		if !deadline.IsZero() && !now.Before(deadline) {
			s.mu.Unlock()
			return 0, os.ErrDeadlineExceeded
		}

		var wait time.Duration
		if len(s.replies) > 0 {
			head := &s.replies[0]
			if !now.Before(head.readyAt) {
				n := copy(p, head.data)
				head.data = head.data[n:]
				if len(head.data) == 0 {
					s.replies = s.replies[1:]
				}
				s.mu.Unlock()

				return n, nil
			}
			wait = head.readyAt.Sub(now)
		}
		if !deadline.IsZero() && (wait == 0 || deadline.Sub(now) < wait) {
			wait = deadline.Sub(now)
		}
		s.mu.Unlock()

		if !s.wait(wait) {
			return 0, io.EOF
		}
	}
}

// wait blocks until a reply may be ready, d is 0 for no time limit.
// It returns false when the stream is closed.
func (s *stream) wait(d time.Duration) bool {
	return pool.Wait(d, s.notify, s.done) != pool.Cancelled
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.done)
	}

	return nil
}
