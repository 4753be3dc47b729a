package events

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Stream is an ordered, unbounded event queue between one run and one
// consumer. Emit never blocks. After Detach the queue is dropped and later
// events are only kept in the history. Nothing is accepted after a terminal
// event.
type Stream struct {
	mu       sync.Mutex
	queue    []Event
	history  []Event
	seq      int
	closed   bool
	detached bool
	notify   chan struct{}
	done     chan struct{}
	now      func() time.Time
}

func NewStream() *Stream {
	return &Stream{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		now:    time.Now,
	}
}

// Emit stamps the event with the next sequence number and queues it. It
// returns false if the stream already carried a terminal event.
func (s *Stream) Emit(e Event) (Event, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		slog.Warn("Event dropped after terminal event", "type", e.Type)
		return e, false
	}

	s.seq++
	e.Seq = s.seq
	e.Timestamp = s.now().UTC()
	s.history = append(s.history, e)
	if !s.detached {
		s.queue = append(s.queue, e)
	}
	if e.Terminal() {
		s.closed = true
		close(s.done)
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return e, true
}

// Detach marks the consumer as gone. The run keeps emitting; events are no
// longer queued for delivery.
func (s *Stream) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	s.detached = true
	s.queue = nil
	slog.Debug("Event consumer detached", "emitted", s.seq)

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Stream) Detached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached
}

// Next blocks until an event is available. It returns io.EOF once the
// terminal event has been delivered, or when the stream was detached.
func (s *Stream) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			e := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return e, nil
		}
		if s.closed || s.detached {
			s.mu.Unlock()
			return Event{}, io.EOF
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.notify:
		}
	}
}

// Done is closed when the terminal event is emitted.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// History returns every event emitted so far, delivered or not.
func (s *Stream) History() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.history))
	copy(out, s.history)
	return out
}

// Terminal returns the terminal event, if one was emitted.
func (s *Stream) Terminal() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		return Event{}, false
	}
	return s.history[len(s.history)-1], true
}
