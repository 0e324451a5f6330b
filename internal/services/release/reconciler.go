package release

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/hardcorelimbo/internal/gameserver"
	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/storage"
	"github.com/mcoot/hardcorelimbo/internal/timeline"
	"github.com/mcoot/hardcorelimbo/internal/transfer"
	"github.com/mcoot/hardcorelimbo/internal/worker"
)

const (
	// TickKey is the worker key poll queries run under so ticks never overlap there
	TickKey = "release-tick"

	// queryConcurrency bounds parallel dead-flag reads within one tick
	queryConcurrency = 8

	storeTimeout = 5 * time.Second
)

// Settings configures the limbo-side release polling
type Settings struct {
	MainServer    string
	CheckInterval time.Duration
	InitialDelay  time.Duration
	ReleaseDelay  time.Duration
}

// Reconciler polls the store for revived players held in limbo and sends
// them back to the main server. It also handles players joining limbo.
//
// All fields below logger are owned by the timeline goroutine.
type Reconciler struct {
	gameserver.BaseHandler

	store    storage.PlayerStore
	server   gameserver.Server
	sink     transfer.Sink
	loop     *timeline.Loop
	workers  *worker.Pool
	settings Settings
	logger   *slog.Logger

	inFlight   bool
	releasing  map[model.PlayerID]struct{}
	cancelTick timeline.Cancel
	stopped    bool
}

// New creates a Reconciler. Call Start to begin polling.
func New(
	store storage.PlayerStore,
	server gameserver.Server,
	sink transfer.Sink,
	loop *timeline.Loop,
	workers *worker.Pool,
	settings Settings,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		store:     store,
		server:    server,
		sink:      sink,
		loop:      loop,
		workers:   workers,
		settings:  settings,
		logger:    logger.With(slog.String("component", "release")),
		releasing: make(map[model.PlayerID]struct{}),
	}
}

// Start arms the first tick after the initial delay
func (r *Reconciler) Start() {
	r.loop.Post(func() {
		r.stopped = false
		r.schedule(r.settings.InitialDelay)
		r.logger.Info("release polling started", slog.Duration("interval", r.settings.CheckInterval))
	})
}

// Stop cancels the next tick. A tick already querying still delivers its results.
func (r *Reconciler) Stop() {
	r.loop.Post(func() {
		r.stopped = true
		if r.cancelTick != nil {
			r.cancelTick()
			r.cancelTick = nil
		}
	})
}

func (r *Reconciler) schedule(d time.Duration) {
	if r.cancelTick != nil {
		r.cancelTick()
	}
	r.cancelTick = r.loop.After(d, r.tick)
}

// tick runs on the loop every CheckInterval
func (r *Reconciler) tick() {
	if r.stopped {
		return
	}
	r.schedule(r.settings.CheckInterval)

	if r.inFlight {
		r.logger.Debug("previous release check still running, skipping tick")
		return
	}

	var ids []model.PlayerID
	for _, p := range r.server.OnlinePlayers() {
		if p.Bypass {
			continue
		}
		if _, busy := r.releasing[p.ID]; busy {
			continue
		}
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return
	}

	r.inFlight = true
	r.workers.Submit(TickKey, func(ctx context.Context) {
		released := r.queryReleased(ctx, ids)
		r.loop.Post(func() { r.finishTick(released) })
	})
}

// queryReleased returns the ids whose records are no longer dead.
// Unknown players count as released and store failures skip the player.
func (r *Reconciler) queryReleased(ctx context.Context, ids []model.PlayerID) []model.PlayerID {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	alive := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(queryConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			dead, err := r.store.IsDead(gctx, id)
			switch {
			case errors.Is(err, model.ErrPlayerNotFound):
				alive[i] = true
			case err != nil:
				r.logger.Warn("failed to check dead flag",
					slog.String("player_id", string(id)),
					slog.String("error", err.Error()),
				)
			default:
				alive[i] = !dead
			}
			return nil
		})
	}
	_ = g.Wait()

	var released []model.PlayerID
	for i, id := range ids {
		if alive[i] {
			released = append(released, id)
		}
	}
	return released
}

func (r *Reconciler) finishTick(released []model.PlayerID) {
	r.inFlight = false
	for _, id := range released {
		r.release(id)
	}
}

// release notifies id and transfers it to main after the release delay
func (r *Reconciler) release(id model.PlayerID) {
	if !r.server.IsOnline(id) {
		return
	}
	if _, busy := r.releasing[id]; busy {
		return
	}
	r.releasing[id] = struct{}{}

	r.logger.Info("player released from limbo", slog.String("player_id", string(id)))
	r.server.Notify(id, model.Notice{Kind: model.NoticeReleased})

	r.loop.After(r.settings.ReleaseDelay, func() {
		delete(r.releasing, id)
		if !r.server.IsOnline(id) {
			r.logger.Debug("player left before release transfer", slog.String("player_id", string(id)))
			return
		}
		r.sink.Send(transfer.Signal{PlayerID: id, Server: r.settings.MainServer})
	})
}

// PlayerJoined locks dead players into limbo and sends living ones back
func (r *Reconciler) PlayerJoined(p gameserver.Presence) {
	r.loop.Post(func() {
		if p.Bypass || r.server.HasBypass(p.ID) {
			r.logger.Debug("bypass player joined limbo", slog.String("player_id", string(p.ID)))
			return
		}
		r.workers.Submit(string(p.ID), func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, storeTimeout)
			defer cancel()
			dead, err := r.store.IsDead(ctx, p.ID)
			r.loop.Post(func() { r.finishJoin(p, dead, err) })
		})
	})
}

func (r *Reconciler) finishJoin(p gameserver.Presence, dead bool, err error) {
	if !r.server.IsOnline(p.ID) {
		return
	}
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		r.release(p.ID)
	case err != nil:
		// Keep the player held until a later check succeeds
		r.logger.Warn("failed to check joining player, holding in limbo",
			slog.String("player_id", string(p.ID)),
			slog.String("error", err.Error()),
		)
		r.lockDown(p.ID)
	case dead:
		r.lockDown(p.ID)
	default:
		r.logger.Debug("living player joined limbo", slog.String("player_id", string(p.ID)))
		r.release(p.ID)
	}
}

func (r *Reconciler) lockDown(id model.PlayerID) {
	r.server.ApplyLimboState(id)
	r.server.Notify(id, model.Notice{Kind: model.NoticeLimboWelcome})
}
