package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/mcoot/hardcorelimbo/internal/config"
	"github.com/mcoot/hardcorelimbo/internal/dependencies/mocks"
	"github.com/mcoot/hardcorelimbo/internal/gameserver"
	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/services/release"
	"github.com/mcoot/hardcorelimbo/internal/storage"
	"github.com/mcoot/hardcorelimbo/internal/storage/memory"
	"github.com/mcoot/hardcorelimbo/internal/testutil"
)

// settleTimeout bounds how long Settle waits for queued work
const settleTimeout = 2 * time.Second

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	Server    *testutil.FakeServer
}

// NewTestApp creates a started App for mode with an in-memory store,
// a mock clock and a fake game server.
func NewTestApp(mode string) *TestApp {
	return NewTestAppWithStore(mode, memory.New(),
		mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)))
}

// NewTestAppWithStore is NewTestApp over a shared store and clock, so a
// main and a limbo app can run against the same players.
func NewTestAppWithStore(mode string, store storage.PlayerStore, clk *mocks.MockClock) *TestApp {
	cfg := config.Default()
	cfg.Mode = mode
	cfg.Storage.Type = config.StorageMemory
	cfg.Workers = 4

	server := testutil.NewFakeServer()
	app, err := newWithDependencies(cfg, store, clk, server, server, nil, testutil.NopLogger())
	if err != nil {
		panic(fmt.Sprintf("build test app: %v", err))
	}
	app.Start(context.Background())

	t := &TestApp{
		App:       app,
		MockClock: clk,
		Server:    server,
	}
	t.Settle()
	return t
}

// Join marks p online and delivers the join event
func (t *TestApp) Join(p gameserver.Presence) {
	t.Server.SetOnline(p)
	t.Handler.PlayerJoined(p)
	t.Settle(p.ID)
}

// Quit marks id offline and delivers the quit event
func (t *TestApp) Quit(id model.PlayerID) {
	t.Server.SetOffline(id)
	t.Handler.PlayerQuit(id)
	t.Settle(id)
}

// Die delivers a death event for id
func (t *TestApp) Die(id model.PlayerID) {
	t.Handler.PlayerDied(id)
	t.Settle(id)
}

// Advance moves the mock clock forward and runs whatever became due
func (t *TestApp) Advance(d time.Duration) {
	t.MockClock.Advance(d)
	t.Settle()
}

// Settle waits until work for ids has passed through the timeline, the
// owning workers and back onto the timeline. In limbo mode the poll
// shard is always included.
func (t *TestApp) Settle(ids ...model.PlayerID) {
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, string(id))
	}
	if t.Release != nil {
		keys = append(keys, release.TickKey)
	}

	t.waitLoop()
	for _, key := range keys {
		t.waitWorker(key)
	}
	t.waitLoop()
}

func (t *TestApp) waitLoop() {
	done := make(chan struct{})
	t.Loop.Post(func() { close(done) })
	wait(done, "timeline")
}

func (t *TestApp) waitWorker(key string) {
	done := make(chan struct{})
	t.Workers.Submit(key, func(context.Context) { close(done) })
	wait(done, "worker "+key)
}

func wait(done <-chan struct{}, what string) {
	select {
	case <-done:
	case <-time.After(settleTimeout):
		panic(what + " did not drain")
	}
}
