package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/hardcorelimbo/internal/dependencies/clock"
	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/storage"
	"github.com/mcoot/hardcorelimbo/internal/worker"
)

// Status is a read-only snapshot of a player's life state
type Status struct {
	Record         model.PlayerRecord
	State          model.LifeState
	GraceRemaining time.Duration
}

// Service implements the administrative commands. Every command validates
// its input before touching the store and reports failures to the caller.
// Writes run on the worker owning the player so they serialize with the
// event handlers' read-modify-write cycles.
type Service struct {
	store   storage.PlayerStore
	workers *worker.Pool
	rules   model.Rules
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new admin Service
func New(store storage.PlayerStore, workers *worker.Pool, rules model.Rules, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		workers: workers,
		rules:   rules,
		clock:   clock,
		logger:  logger.With(slog.String("component", "admin")),
	}
}

// Status returns the current state of the named player
func (s *Service) Status(ctx context.Context, name string) (Status, error) {
	rec, err := s.store.GetByDisplayName(ctx, name)
	if err != nil {
		return Status{}, err
	}
	return s.status(rec), nil
}

func (s *Service) status(rec model.PlayerRecord) Status {
	now := s.clock.Now()
	return Status{
		Record:         rec,
		State:          model.Evaluate(rec, s.rules, now),
		GraceRemaining: model.GraceRemaining(rec, s.rules, now),
	}
}

// onPlayerQueue runs fn on the worker owning id and waits for it
func (s *Service) onPlayerQueue(ctx context.Context, id model.PlayerID, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	queued := s.workers.Submit(string(id), func(context.Context) {
		if err := ctx.Err(); err != nil {
			result <- err
			return
		}
		result <- fn(ctx)
	})
	if !queued {
		return fmt.Errorf("%w: player queue closed", model.ErrStoreUnavailable)
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Revive restores a dead player to the configured revive lives
func (s *Service) Revive(ctx context.Context, actor, name string) (Status, error) {
	found, err := s.store.GetByDisplayName(ctx, name)
	if err != nil {
		return Status{}, err
	}

	lives := s.rules.LivesOnRevive
	var rec model.PlayerRecord
	err = s.onPlayerQueue(ctx, found.ID, func(ctx context.Context) error {
		current, err := s.store.Get(ctx, found.ID)
		if err != nil {
			return err
		}
		if !current.Dead {
			return model.ErrPlayerNotDead
		}
		if err := s.store.ApplyRevive(ctx, current.ID, lives); err != nil {
			s.logger.Error("failed to revive player",
				slog.String("player_id", string(current.ID)),
				slog.String("error", err.Error()),
			)
			return err
		}
		rec = model.ApplyRevive(current, lives)
		return nil
	})
	if err != nil {
		return Status{}, err
	}

	s.logger.Info("player revived",
		slog.String("actor", actor),
		slog.String("player_id", string(rec.ID)),
		slog.String("name", rec.DisplayName),
		slog.Int("lives", lives),
	)
	return s.status(rec), nil
}

// SetLives overrides a player's life count. Zero kills the player and any
// positive count revives them.
func (s *Service) SetLives(ctx context.Context, actor, name string, lives int) (Status, error) {
	if err := model.ValidateLives(lives, s.rules.MaxLives); err != nil {
		return Status{}, err
	}

	found, err := s.store.GetByDisplayName(ctx, name)
	if err != nil {
		return Status{}, err
	}

	var rec model.PlayerRecord
	err = s.onPlayerQueue(ctx, found.ID, func(ctx context.Context) error {
		current, err := s.store.Get(ctx, found.ID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if err := s.store.ApplyLivesOverride(ctx, current.ID, lives, now); err != nil {
			s.logger.Error("failed to set lives",
				slog.String("player_id", string(current.ID)),
				slog.String("error", err.Error()),
			)
			return err
		}
		rec = model.ApplyLivesOverride(current, lives, now)
		return nil
	})
	if err != nil {
		return Status{}, err
	}

	s.logger.Info("player lives set",
		slog.String("actor", actor),
		slog.String("player_id", string(rec.ID)),
		slog.String("name", rec.DisplayName),
		slog.Int("lives", lives),
	)
	return s.status(rec), nil
}
