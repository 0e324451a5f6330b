package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/storage"
)

// upsertRetries bounds optimistic retries when a watched record changes mid-write
const upsertRetries = 5

// reviveScript sets lives and clears the dead flag only if the record exists
var reviveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'lives', ARGV[1], 'dead', '0')
return 1
`)

// overrideScript sets lives and derives the dead flag, stamping the death time
// when it transitions a living record to dead
var overrideScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
local dead = '0'
if tonumber(ARGV[1]) == 0 then
	dead = '1'
	if redis.call('HGET', KEYS[1], 'dead') ~= '1' then
		redis.call('HSET', KEYS[1], 'last_death_ms', ARGV[2])
	end
end
redis.call('HSET', KEYS[1], 'lives', ARGV[1], 'dead', dead)
return 1
`)

// Storage is a Redis-backed PlayerStore. Each player is one HASH.
type Storage struct {
	client *redis.Client
	cfg    Config

	closeOnce sync.Once
	closeErr  error
}

// New creates a new Redis storage instance, failing if the server is unreachable
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, storage.Unavailable("ping", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}

// Ensure Storage implements the interface
var _ storage.PlayerStore = (*Storage)(nil)

func (s *Storage) Get(ctx context.Context, id model.PlayerID) (model.PlayerRecord, error) {
	fields, err := s.client.HGetAll(ctx, playerKey(id)).Result()
	if err != nil {
		return model.PlayerRecord{}, storage.Unavailable("get player", err)
	}
	if len(fields) == 0 {
		return model.PlayerRecord{}, model.ErrPlayerNotFound
	}
	rec, err := decodeRecord(id, fields)
	if err != nil {
		return model.PlayerRecord{}, storage.Unavailable("decode player", err)
	}
	return rec, nil
}

func (s *Storage) GetByDisplayName(ctx context.Context, name string) (model.PlayerRecord, error) {
	// Look up player ID from name index
	id, err := s.client.Get(ctx, nameIndexKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PlayerRecord{}, model.ErrPlayerNotFound
		}
		return model.PlayerRecord{}, storage.Unavailable("get player by name", err)
	}
	return s.Get(ctx, model.PlayerID(id))
}

func (s *Storage) Upsert(ctx context.Context, rec model.PlayerRecord) error {
	key := playerKey(rec.ID)

	// The record and its name index entry change together. WATCH makes the
	// transaction fail if another writer touched the record in between.
	txf := func(tx *redis.Tx) error {
		oldName, err := tx.HGet(ctx, key, fieldName).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		staleIndex := false
		if oldName != "" && !strings.EqualFold(oldName, rec.DisplayName) {
			owner, err := tx.Get(ctx, nameIndexKey(oldName)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			staleIndex = owner == string(rec.ID)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if staleIndex {
				pipe.Del(ctx, nameIndexKey(oldName))
			}
			pipe.HSet(ctx, key, encodeRecord(rec))
			if rec.DisplayName != "" {
				pipe.Set(ctx, nameIndexKey(rec.DisplayName), string(rec.ID), 0)
			}
			return nil
		})
		return err
	}

	for i := 0; i < upsertRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return storage.Unavailable("upsert player", err)
	}
	return storage.Unavailable("upsert player", redis.TxFailedErr)
}

func (s *Storage) IsDead(ctx context.Context, id model.PlayerID) (bool, error) {
	dead, err := s.client.HGet(ctx, playerKey(id), fieldDead).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, model.ErrPlayerNotFound
		}
		return false, storage.Unavailable("read dead flag", err)
	}
	return dead == "1", nil
}

func (s *Storage) ApplyRevive(ctx context.Context, id model.PlayerID, lives int) error {
	found, err := reviveScript.Run(ctx, s.client, []string{playerKey(id)}, lives).Int()
	if err != nil {
		return storage.Unavailable("revive player", err)
	}
	if found == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

func (s *Storage) ApplyLivesOverride(ctx context.Context, id model.PlayerID, lives int, now time.Time) error {
	found, err := overrideScript.Run(ctx, s.client, []string{playerKey(id)}, lives, storage.ToMillis(now)).Int()
	if err != nil {
		return storage.Unavailable("override lives", err)
	}
	if found == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

func encodeRecord(rec model.PlayerRecord) map[string]interface{} {
	dead := "0"
	if rec.Dead {
		dead = "1"
	}
	return map[string]interface{}{
		fieldName:      rec.DisplayName,
		fieldLives:     rec.Lives,
		fieldDead:      dead,
		fieldFirstSeen: storage.ToMillis(rec.FirstSeenAt),
		fieldLastDeath: storage.ToMillis(rec.LastDeathAt),
		fieldPlayTime:  rec.PlayTime.Milliseconds(),
		fieldLastLogin: storage.ToMillis(rec.LastLoginAt),
	}
}

func decodeRecord(id model.PlayerID, fields map[string]string) (model.PlayerRecord, error) {
	rec := model.PlayerRecord{
		ID:          id,
		DisplayName: fields[fieldName],
		Dead:        fields[fieldDead] == "1",
	}

	var err error
	if rec.Lives, err = strconv.Atoi(fields[fieldLives]); err != nil {
		return rec, fmt.Errorf("field %s: %w", fieldLives, err)
	}

	millis := make(map[string]int64, 4)
	for _, f := range []string{fieldFirstSeen, fieldLastDeath, fieldPlayTime, fieldLastLogin} {
		raw, ok := fields[f]
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return rec, fmt.Errorf("field %s: %w", f, err)
		}
		millis[f] = v
	}

	rec.FirstSeenAt = storage.FromMillis(millis[fieldFirstSeen])
	rec.LastDeathAt = storage.FromMillis(millis[fieldLastDeath])
	rec.PlayTime = time.Duration(millis[fieldPlayTime]) * time.Millisecond
	rec.LastLoginAt = storage.FromMillis(millis[fieldLastLogin])
	return rec, nil
}
