package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Pool is a fixed set of Serial executors. Tasks sharing a key always land on
// the same executor, so work for one key runs in submission order while
// different keys proceed in parallel.
type Pool struct {
	shards []*Serial
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPool creates a pool with the given number of shards (at least one)
func NewPool(size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{shards: make([]*Serial, size)}
	for i := range p.shards {
		p.shards[i] = NewSerial(logger.With(slog.Int("shard", i)))
	}
	return p
}

// Start launches one goroutine per shard. The shards stop when ctx ends.
func (p *Pool) Start(ctx context.Context) {
	for _, shard := range p.shards {
		p.wg.Add(1)
		go func(s *Serial) {
			defer p.wg.Done()
			s.Run(ctx)
		}(shard)
	}
}

// Submit queues task on the shard owning key
func (p *Pool) Submit(key string, task Task) bool {
	return p.shards[p.shardFor(key)].Submit(task)
}

func (p *Pool) shardFor(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(p.shards)))
}

// Size returns the number of shards
func (p *Pool) Size() int {
	return len(p.shards)
}

// Close stops accepting work and waits for queued tasks to finish
func (p *Pool) Close() {
	p.once.Do(func() {
		for _, shard := range p.shards {
			shard.Close()
		}
	})
	p.wg.Wait()
}
