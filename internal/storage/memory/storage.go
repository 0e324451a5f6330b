package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players   map[model.PlayerID]model.PlayerRecord
	nameIndex map[string]model.PlayerID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:   make(map[model.PlayerID]model.PlayerRecord),
		nameIndex: make(map[string]model.PlayerID),
	}
}

// Ensure Storage implements the interface
var _ storage.PlayerStore = (*Storage)(nil)

func (s *Storage) Get(ctx context.Context, id model.PlayerID) (model.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.players[id]
	if !ok {
		return model.PlayerRecord{}, model.ErrPlayerNotFound
	}
	return rec, nil
}

func (s *Storage) GetByDisplayName(ctx context.Context, name string) (model.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.nameIndex[strings.ToLower(name)]
	if !ok {
		return model.PlayerRecord{}, model.ErrPlayerNotFound
	}
	rec, ok := s.players[id]
	if !ok {
		return model.PlayerRecord{}, model.ErrPlayerNotFound
	}
	return rec, nil
}

func (s *Storage) Upsert(ctx context.Context, rec model.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.players[rec.ID]; ok && old.DisplayName != rec.DisplayName {
		oldKey := strings.ToLower(old.DisplayName)
		if s.nameIndex[oldKey] == rec.ID {
			delete(s.nameIndex, oldKey)
		}
	}
	s.players[rec.ID] = rec
	if rec.DisplayName != "" {
		s.nameIndex[strings.ToLower(rec.DisplayName)] = rec.ID
	}
	return nil
}

func (s *Storage) IsDead(ctx context.Context, id model.PlayerID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.players[id]
	if !ok {
		return false, model.ErrPlayerNotFound
	}
	return rec.Dead, nil
}

func (s *Storage) ApplyRevive(ctx context.Context, id model.PlayerID, lives int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	s.players[id] = model.ApplyRevive(rec, lives)
	return nil
}

func (s *Storage) ApplyLivesOverride(ctx context.Context, id model.PlayerID, lives int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	s.players[id] = model.ApplyLivesOverride(rec, lives, now)
	return nil
}

// Close is a no-op for memory storage
func (s *Storage) Close() error {
	return nil
}
