package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Task is a unit of offloaded work
type Task func(ctx context.Context)

// Serial runs submitted tasks one at a time in submission order.
// The queue is unbounded so Submit never blocks the caller.
type Serial struct {
	mu     sync.Mutex
	queue  []Task
	wake   chan struct{}
	closed bool
	done   chan struct{}
	logger *slog.Logger
}

// NewSerial creates a Serial executor. Call Run to start draining it.
func NewSerial(logger *slog.Logger) *Serial {
	return &Serial{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Submit queues a task. It reports false if the executor has been closed.
func (s *Serial) Submit(task Task) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, task)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Run drains the queue until ctx is cancelled or Close is called.
// Tasks queued before Close still run; tasks left when ctx ends are dropped.
func (s *Serial) Run(ctx context.Context) {
	defer close(s.done)
	for {
		task, ok, closed := s.next()
		if ok {
			s.runTask(ctx, task)
			continue
		}
		if closed {
			return
		}
		select {
		case <-s.wake:
		case <-ctx.Done():
			s.mu.Lock()
			dropped := len(s.queue)
			s.queue = nil
			s.closed = true
			s.mu.Unlock()
			if dropped > 0 {
				s.logger.Warn("worker stopped with queued tasks", slog.Int("dropped", dropped))
			}
			return
		}
	}
}

func (s *Serial) next() (Task, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false, s.closed
	}
	task := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return task, true, s.closed
}

func (s *Serial) runTask(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("worker task panicked", slog.Any("panic", r))
		}
	}()
	task(ctx)
}

// Close stops accepting tasks. Run returns once the queue is drained.
func (s *Serial) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Done is closed when Run has returned
func (s *Serial) Done() <-chan struct{} {
	return s.done
}
