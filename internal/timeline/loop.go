// Package timeline provides the single event goroutine that owns all
// coordination state. Every event handler step, guard mutation and
// presentation side effect runs here, one at a time.
package timeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/hardcorelimbo/internal/dependencies/clock"
	"github.com/mcoot/hardcorelimbo/internal/worker"
)

// Loop executes posted functions in FIFO order on one goroutine
type Loop struct {
	clock  clock.Clock
	queue  *worker.Serial
	logger *slog.Logger

	mu     sync.Mutex
	timers map[*scheduled]struct{}
}

type scheduled struct {
	timer clock.Timer
}

// Cancel stops a delayed post before it fires
type Cancel func()

// New creates a Loop. Call Run to start executing.
func New(clk clock.Clock, logger *slog.Logger) *Loop {
	logger = logger.With(slog.String("component", "timeline"))
	return &Loop{
		clock:  clk,
		queue:  worker.NewSerial(logger),
		logger: logger,
		timers: make(map[*scheduled]struct{}),
	}
}

// Run executes posted functions until ctx ends or Stop is called
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("timeline started")
	l.queue.Run(ctx)
	l.stopTimers()
	l.logger.Info("timeline stopped")
}

// Post queues fn to run on the loop
func (l *Loop) Post(fn func()) {
	if !l.queue.Submit(func(context.Context) { fn() }) {
		l.logger.Debug("post after stop dropped")
	}
}

// After posts fn to the loop once d has elapsed on the clock
func (l *Loop) After(d time.Duration, fn func()) Cancel {
	s := &scheduled{}
	l.mu.Lock()
	l.timers[s] = struct{}{}
	s.timer = l.clock.AfterFunc(d, func() {
		l.forget(s)
		l.Post(fn)
	})
	l.mu.Unlock()

	return func() {
		if s.timer.Stop() {
			l.forget(s)
		}
	}
}

func (l *Loop) forget(s *scheduled) {
	l.mu.Lock()
	delete(l.timers, s)
	l.mu.Unlock()
}

func (l *Loop) stopTimers() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for s := range l.timers {
		s.timer.Stop()
		delete(l.timers, s)
	}
}

// Stop stops accepting posts; Run returns after already-queued work finishes
func (l *Loop) Stop() {
	l.queue.Close()
}

// Done is closed when Run has returned
func (l *Loop) Done() <-chan struct{} {
	return l.queue.Done()
}
