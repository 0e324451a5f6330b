package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/mcoot/hardcorelimbo/internal/model"
)

// PlayerStore persists player records shared by the main and limbo servers.
//
// Records are keyed by PlayerID and never deleted. Get and IsDead return
// model.ErrPlayerNotFound for unknown players; other failures wrap
// model.ErrStoreUnavailable.
type PlayerStore interface {
	Get(ctx context.Context, id model.PlayerID) (model.PlayerRecord, error)

	// GetByDisplayName finds a record by its last observed name, ignoring case
	GetByDisplayName(ctx context.Context, name string) (model.PlayerRecord, error)

	// Upsert writes the whole record, replacing any existing one
	Upsert(ctx context.Context, rec model.PlayerRecord) error

	// IsDead reads only the dead flag
	IsDead(ctx context.Context, id model.PlayerID) (bool, error)

	// ApplyRevive atomically sets dead=false and lives=n on an existing record
	ApplyRevive(ctx context.Context, id model.PlayerID, lives int) error

	// ApplyLivesOverride atomically sets lives=n and dead=(n==0) on an existing
	// record, stamping the death time with now if this kills the player
	ApplyLivesOverride(ctx context.Context, id model.PlayerID, lives int, now time.Time) error

	Close() error
}

// Unavailable wraps a backend failure for op
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}
