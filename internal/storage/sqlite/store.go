// Package sqlite provides a SQLite-backed player store for deployments where
// the main and limbo servers share one host.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/storage"
	"github.com/mcoot/hardcorelimbo/internal/storage/sqlite/migrations"
)

const selectColumns = `id, display_name, lives, dead, first_seen_ms, last_death_ms, play_time_ms, last_login_ms`

// Store persists player records in SQLite
type Store struct {
	db *sql.DB

	closeOnce sync.Once
	closeErr  error
}

// Ensure Store implements the interface
var _ storage.PlayerStore = (*Store)(nil)

// Open opens the database at path and applies embedded migrations
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storage.Unavailable("open sqlite db", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storage.Unavailable("ping sqlite db", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *Store) Get(ctx context.Context, id model.PlayerID) (model.PlayerRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM players WHERE id = ?`, string(id))
	return scanRecord(row, "get player")
}

func (s *Store) GetByDisplayName(ctx context.Context, name string) (model.PlayerRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+selectColumns+` FROM player_names n
JOIN players p ON p.id = n.player_id
WHERE n.name = ?`, name)
	return scanRecord(row, "get player by name")
}

// Upsert writes rec and hands its display name to rec.ID, releasing the
// previous name if this player still held it
func (s *Store) Upsert(ctx context.Context, rec model.PlayerRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Unavailable("begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	var oldName string
	err = tx.QueryRowContext(ctx, `SELECT display_name FROM players WHERE id = ?`, string(rec.ID)).Scan(&oldName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return storage.Unavailable("read previous name", err)
	}
	if oldName != "" && !strings.EqualFold(oldName, rec.DisplayName) {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM player_names WHERE name = ? AND player_id = ?`, oldName, string(rec.ID)); err != nil {
			return storage.Unavailable("release previous name", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO players (id, display_name, lives, dead, first_seen_ms, last_death_ms, play_time_ms, last_login_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    display_name = excluded.display_name,
    lives = excluded.lives,
    dead = excluded.dead,
    first_seen_ms = excluded.first_seen_ms,
    last_death_ms = excluded.last_death_ms,
    play_time_ms = excluded.play_time_ms,
    last_login_ms = excluded.last_login_ms`,
		string(rec.ID),
		rec.DisplayName,
		rec.Lives,
		boolToInt(rec.Dead),
		storage.ToMillis(rec.FirstSeenAt),
		storage.ToMillis(rec.LastDeathAt),
		rec.PlayTime.Milliseconds(),
		storage.ToMillis(rec.LastLoginAt),
	)
	if err != nil {
		return storage.Unavailable("upsert player", err)
	}

	if rec.DisplayName != "" {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO player_names (name, player_id) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET player_id = excluded.player_id`,
			rec.DisplayName, string(rec.ID)); err != nil {
			return storage.Unavailable("claim name", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.Unavailable("commit upsert", err)
	}
	return nil
}

func (s *Store) IsDead(ctx context.Context, id model.PlayerID) (bool, error) {
	var dead int
	err := s.db.QueryRowContext(ctx, `SELECT dead FROM players WHERE id = ?`, string(id)).Scan(&dead)
	if errors.Is(err, sql.ErrNoRows) {
		return false, model.ErrPlayerNotFound
	}
	if err != nil {
		return false, storage.Unavailable("read dead flag", err)
	}
	return dead != 0, nil
}

func (s *Store) ApplyRevive(ctx context.Context, id model.PlayerID, lives int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE players SET lives = ?, dead = 0 WHERE id = ?`, lives, string(id))
	return checkUpdated(res, err, "revive player")
}

func (s *Store) ApplyLivesOverride(ctx context.Context, id model.PlayerID, lives int, now time.Time) error {
	// SET expressions see the row as it was before the update
	res, err := s.db.ExecContext(ctx, `
UPDATE players SET
    lives = ?,
    dead = CASE WHEN ? = 0 THEN 1 ELSE 0 END,
    last_death_ms = CASE WHEN ? = 0 AND dead = 0 THEN ? ELSE last_death_ms END
WHERE id = ?`,
		lives, lives, lives, storage.ToMillis(now), string(id))
	return checkUpdated(res, err, "override lives")
}

func checkUpdated(res sql.Result, err error, op string) error {
	if err != nil {
		return storage.Unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Unavailable(op, err)
	}
	if n == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, op string) (model.PlayerRecord, error) {
	var (
		id, name                                  string
		lives, dead                               int
		firstSeen, lastDeath, playTime, lastLogin int64
	)
	err := row.Scan(&id, &name, &lives, &dead, &firstSeen, &lastDeath, &playTime, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlayerRecord{}, model.ErrPlayerNotFound
	}
	if err != nil {
		return model.PlayerRecord{}, storage.Unavailable(op, err)
	}
	return model.PlayerRecord{
		ID:          model.PlayerID(id),
		DisplayName: name,
		Lives:       lives,
		Dead:        dead != 0,
		FirstSeenAt: storage.FromMillis(firstSeen),
		LastDeathAt: storage.FromMillis(lastDeath),
		PlayTime:    time.Duration(playTime) * time.Millisecond,
		LastLoginAt: storage.FromMillis(lastLogin),
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
