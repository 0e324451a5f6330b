package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/hardcorelimbo/internal/dependencies/clock"
	"github.com/mcoot/hardcorelimbo/internal/gameserver"
	"github.com/mcoot/hardcorelimbo/internal/guard"
	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/storage"
	"github.com/mcoot/hardcorelimbo/internal/timeline"
	"github.com/mcoot/hardcorelimbo/internal/transfer"
	"github.com/mcoot/hardcorelimbo/internal/worker"
)

// storeTimeout bounds a single offloaded store round-trip
const storeTimeout = 5 * time.Second

// Settings configures the main-server death handling
type Settings struct {
	Rules       model.Rules
	LimboServer string

	SendToLimboDelay  time.Duration
	JoinTransferDelay time.Duration
	RespawnModeDelay  time.Duration

	SpectatorOnDeath     bool
	DetectExternalRevive bool
}

// Controller turns main-server player events into life accounting and
// transfers to limbo. Event methods may be called from any goroutine; all
// guard and presentation work happens on the timeline.
type Controller struct {
	store    storage.PlayerStore
	server   gameserver.Server
	sink     transfer.Sink
	loop     *timeline.Loop
	workers  *worker.Pool
	guards   *guard.Registry
	clock    clock.Clock
	settings Settings
	logger   *slog.Logger
}

// Ensure Controller handles game server events
var _ gameserver.EventHandler = (*Controller)(nil)

// NewController creates a new lifecycle Controller
func NewController(
	store storage.PlayerStore,
	server gameserver.Server,
	sink transfer.Sink,
	loop *timeline.Loop,
	workers *worker.Pool,
	clock clock.Clock,
	settings Settings,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		store:    store,
		server:   server,
		sink:     sink,
		loop:     loop,
		workers:  workers,
		guards:   guard.New(),
		clock:    clock,
		settings: settings,
		logger:   logger.With(slog.String("component", "lifecycle")),
	}
}

// submit runs fn on the worker owning id with a bounded context
func (c *Controller) submit(id model.PlayerID, fn func(ctx context.Context)) {
	c.workers.Submit(string(id), func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		fn(ctx)
	})
}

// Join

func (c *Controller) PlayerJoined(p gameserver.Presence) {
	c.loop.Post(func() { c.onJoin(p) })
}

func (c *Controller) onJoin(p gameserver.Presence) {
	if p.Bypass || c.server.HasBypass(p.ID) {
		c.logger.Debug("bypass player joined, skipping checks", slog.String("player_id", string(p.ID)))
		return
	}

	now := c.clock.Now()
	c.submit(p.ID, func(ctx context.Context) {
		rec, created, err := c.recordJoin(ctx, p, now)
		c.loop.Post(func() { c.finishJoin(p, rec, created, err) })
	})
}

func (c *Controller) recordJoin(ctx context.Context, p gameserver.Presence, now time.Time) (model.PlayerRecord, bool, error) {
	rec, err := c.store.Get(ctx, p.ID)
	created := false
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		rec = model.NewPlayerRecord(p.ID, p.Name, c.settings.Rules, now)
		created = true
	case err != nil:
		return rec, false, err
	default:
		if renamed, changed := model.Rename(rec, p.Name); changed {
			c.logger.Info("player renamed",
				slog.String("player_id", string(p.ID)),
				slog.String("old_name", rec.DisplayName),
				slog.String("new_name", p.Name),
			)
			rec = renamed
		}
		rec = model.BeginSession(rec, now)
	}

	if err := c.store.Upsert(ctx, rec); err != nil {
		return rec, created, err
	}
	return rec, created, nil
}

func (c *Controller) finishJoin(p gameserver.Presence, rec model.PlayerRecord, created bool, err error) {
	if err != nil {
		c.logger.Warn("failed to record join",
			slog.String("player_id", string(p.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	if !c.server.IsOnline(p.ID) {
		return
	}

	now := c.clock.Now()
	if created {
		c.logger.Info("created player record",
			slog.String("player_id", string(p.ID)),
			slog.String("name", p.Name),
			slog.Int("lives", rec.Lives),
		)
		if model.InGracePeriod(rec, c.settings.Rules, now) {
			c.server.Notify(p.ID, model.Notice{
				Kind:          model.NoticeGracePeriod,
				TimeRemaining: model.FormatGraceRemaining(model.GraceRemaining(rec, c.settings.Rules, now)),
			})
		}
		return
	}

	if rec.Dead {
		c.logger.Info("dead player joined main, sending to limbo", slog.String("player_id", string(p.ID)))
		c.exile(p.ID, c.settings.JoinTransferDelay, false)
	}
}

// Quit

func (c *Controller) PlayerQuit(id model.PlayerID) {
	now := c.clock.Now()
	c.loop.Post(func() {
		c.submit(id, func(ctx context.Context) {
			if err := c.recordQuit(ctx, id, now); err != nil {
				c.logger.Warn("failed to record quit",
					slog.String("player_id", string(id)),
					slog.String("error", err.Error()),
				)
			}
		})
	})
}

func (c *Controller) recordQuit(ctx context.Context, id model.PlayerID, now time.Time) error {
	rec, err := c.store.Get(ctx, id)
	if errors.Is(err, model.ErrPlayerNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !rec.Online() {
		return nil
	}
	return c.store.Upsert(ctx, model.EndSession(rec, now))
}

// Death

func (c *Controller) PlayerDied(id model.PlayerID) {
	c.loop.Post(func() { c.onDeath(id) })
}

func (c *Controller) onDeath(id model.PlayerID) {
	if c.server.HasBypass(id) {
		return
	}
	if c.guards.IsPendingTransfer(id) {
		c.logger.Debug("death absorbed while transfer pending",
			slog.String("player_id", string(id)),
			slog.String("reason", model.ErrDuplicateTransition.Error()),
		)
		return
	}

	now := c.clock.Now()
	c.submit(id, func(ctx context.Context) {
		rec, outcome, err := c.recordDeath(ctx, id, now)
		c.loop.Post(func() { c.finishDeath(id, rec, outcome, now, err) })
	})
}

func (c *Controller) recordDeath(ctx context.Context, id model.PlayerID, now time.Time) (model.PlayerRecord, model.DeathOutcome, error) {
	rec, err := c.store.Get(ctx, id)
	if errors.Is(err, model.ErrPlayerNotFound) {
		// Normally created on join
		rec = model.NewPlayerRecord(id, "", c.settings.Rules, now)
		if err := c.store.Upsert(ctx, rec); err != nil {
			return rec, model.DeathOutcome{}, err
		}
	} else if err != nil {
		return rec, model.DeathOutcome{}, err
	}

	updated, outcome := model.ApplyDeath(rec, c.settings.Rules, now)
	if outcome.Mutated() {
		if err := c.store.Upsert(ctx, updated); err != nil {
			return rec, outcome, err
		}
	}
	return updated, outcome, nil
}

func (c *Controller) finishDeath(id model.PlayerID, rec model.PlayerRecord, outcome model.DeathOutcome, now time.Time, err error) {
	if err != nil {
		c.logger.Warn("failed to record death",
			slog.String("player_id", string(id)),
			slog.String("error", err.Error()),
		)
		return
	}

	c.logger.Debug("player died",
		slog.String("player_id", string(id)),
		slog.String("outcome", string(outcome.Kind)),
		slog.Int("lives", rec.Lives),
	)

	switch outcome.Kind {
	case model.OutcomeOutOfLives:
		c.logger.Info("player out of lives", slog.String("player_id", string(id)))
		c.exile(id, c.settings.SendToLimboDelay, true)
		return
	case model.OutcomeAlreadyDead:
		if c.guards.IsPendingTransfer(id) {
			c.logger.Debug("duplicate death absorbed",
				slog.String("player_id", string(id)),
				slog.String("reason", model.ErrDuplicateTransition.Error()),
			)
			return
		}
		c.exile(id, c.settings.SendToLimboDelay, true)
		return
	}

	if !c.server.IsOnline(id) {
		return
	}
	remaining := model.FormatGraceRemaining(model.GraceRemaining(rec, c.settings.Rules, now))
	if notice, ok := model.NoticeForOutcome(outcome, remaining); ok {
		c.server.Notify(id, notice)
	}
}

// exile marks id as pending and transfers it to limbo after delay.
// Both guard entries are cleared when the delay ends, whether or not the
// transfer was sent.
func (c *Controller) exile(id model.PlayerID, delay time.Duration, spectate bool) {
	if !c.guards.MarkPendingTransfer(id) {
		return
	}
	if !c.server.IsOnline(id) {
		c.guards.ClearPendingTransfer(id)
		return
	}

	c.server.Notify(id, model.Notice{Kind: model.NoticeSentToLimbo})
	if spectate && c.settings.SpectatorOnDeath {
		c.guards.ExpectStateChange(id)
		c.server.SetGameMode(id, model.GameModeSpectator)
	}

	c.loop.After(delay, func() {
		if c.server.IsOnline(id) {
			c.sink.Send(transfer.Signal{PlayerID: id, Server: c.settings.LimboServer})
			c.logger.Info("sent player to limbo",
				slog.String("player_id", string(id)),
				slog.String("server", c.settings.LimboServer),
			)
		} else {
			c.logger.Debug("player left before limbo transfer", slog.String("player_id", string(id)))
		}
		c.guards.Clear(id)
	})
}

// Respawn

func (c *Controller) PlayerRespawned(id model.PlayerID) {
	c.loop.Post(func() {
		if !c.settings.SpectatorOnDeath || !c.guards.IsPendingTransfer(id) {
			return
		}
		// Respawning resets the game mode, so put the player back in spectator
		c.loop.After(c.settings.RespawnModeDelay, func() {
			if c.server.IsOnline(id) && c.guards.IsPendingTransfer(id) {
				c.guards.ExpectStateChange(id)
				c.server.SetGameMode(id, model.GameModeSpectator)
			}
		})
	})
}

// Game mode

func (c *Controller) GameModeChanged(id model.PlayerID, from, to model.GameMode) {
	c.loop.Post(func() { c.onGameModeChange(id, from, to) })
}

func (c *Controller) onGameModeChange(id model.PlayerID, from, to model.GameMode) {
	if !c.settings.DetectExternalRevive || c.server.HasBypass(id) {
		return
	}
	if c.guards.ConsumeExpectedStateChange(id) {
		return
	}
	if !LooksLikeRevive(from, to) {
		return
	}

	c.logger.Debug("possible external revive",
		slog.String("player_id", string(id)),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
	lives := c.settings.Rules.LivesOnRevive
	c.submit(id, func(ctx context.Context) {
		dead, err := c.store.IsDead(ctx, id)
		if err != nil {
			if !errors.Is(err, model.ErrPlayerNotFound) {
				c.logger.Warn("failed to check revive", slog.String("player_id", string(id)), slog.String("error", err.Error()))
			}
			return
		}
		if !dead {
			return
		}
		if err := c.store.ApplyRevive(ctx, id, lives); err != nil {
			c.logger.Warn("failed to apply external revive", slog.String("player_id", string(id)), slog.String("error", err.Error()))
			return
		}
		c.logger.Info("external revive detected", slog.String("player_id", string(id)), slog.Int("lives", lives))
	})
}

// LooksLikeRevive classifies a mode change as an out-of-band revive.
// It can miss revives done some other way and is only a heuristic.
func LooksLikeRevive(from, to model.GameMode) bool {
	return from == model.GameModeSpectator && to == model.GameModeSurvival
}
