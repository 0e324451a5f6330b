// Package storagetest holds the behaviour every PlayerStore backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/storage"
)

const (
	SteveID model.PlayerID = "5b7c1a64-3a4e-4a43-9f36-1f0f1c6f2b11"
	AlexID  model.PlayerID = "0d3f9a1e-8c55-4c2a-9d1e-6b2a7f3e4c10"
)

// Suite runs the shared PlayerStore tests against the store built by NewStore.
// NewStore is called once per test and must return an empty store.
type Suite struct {
	suite.Suite
	NewStore func() storage.PlayerStore

	store storage.PlayerStore
	ctx   context.Context
	now   time.Time
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.store = s.NewStore()
}

func (s *Suite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *Suite) record(id model.PlayerID, name string) model.PlayerRecord {
	return model.NewPlayerRecord(id, name, model.DefaultRules(), s.now)
}

// requireSameRecord compares records field by field, times by instant
func (s *Suite) requireSameRecord(want, got model.PlayerRecord) {
	s.Equal(want.ID, got.ID)
	s.Equal(want.DisplayName, got.DisplayName)
	s.Equal(want.Lives, got.Lives)
	s.Equal(want.Dead, got.Dead)
	s.Equal(want.PlayTime, got.PlayTime)
	s.True(want.FirstSeenAt.Equal(got.FirstSeenAt), "first seen: want %v got %v", want.FirstSeenAt, got.FirstSeenAt)
	s.True(want.LastDeathAt.Equal(got.LastDeathAt), "last death: want %v got %v", want.LastDeathAt, got.LastDeathAt)
	s.True(want.LastLoginAt.Equal(got.LastLoginAt), "last login: want %v got %v", want.LastLoginAt, got.LastLoginAt)
	s.Equal(want.HasDied(), got.HasDied())
	s.Equal(want.Online(), got.Online())
}

func (s *Suite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, SteveID)
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.store.IsDead(s.ctx, SteveID)
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.store.GetByDisplayName(s.ctx, "Steve")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestUpsertAndGet() {
	rec := s.record(SteveID, "Steve")
	rec.PlayTime = 90 * time.Minute
	s.Require().NoError(s.store.Upsert(s.ctx, rec))

	got, err := s.store.Get(s.ctx, SteveID)
	s.Require().NoError(err)
	s.requireSameRecord(rec, got)
	s.False(got.HasDied())

	dead, err := s.store.IsDead(s.ctx, SteveID)
	s.Require().NoError(err)
	s.False(dead)
}

func (s *Suite) TestUpsertReplacesWholeRecord() {
	rec := s.record(SteveID, "Steve")
	s.Require().NoError(s.store.Upsert(s.ctx, rec))

	rec, _ = model.ApplyDeath(rec, model.Rules{DefaultLives: 2}, s.now.Add(time.Hour))
	rec, _ = model.ApplyDeath(rec, model.Rules{DefaultLives: 2}, s.now.Add(2*time.Hour))
	rec = model.EndSession(rec, s.now.Add(3*time.Hour))
	s.Require().True(rec.Dead)
	s.Require().NoError(s.store.Upsert(s.ctx, rec))

	got, err := s.store.Get(s.ctx, SteveID)
	s.Require().NoError(err)
	s.requireSameRecord(rec, got)
	s.True(got.HasDied())
	s.False(got.Online())

	dead, err := s.store.IsDead(s.ctx, SteveID)
	s.Require().NoError(err)
	s.True(dead)
}

func (s *Suite) TestGetByDisplayNameIgnoresCase() {
	s.Require().NoError(s.store.Upsert(s.ctx, s.record(SteveID, "Steve")))
	s.Require().NoError(s.store.Upsert(s.ctx, s.record(AlexID, "Alex")))

	got, err := s.store.GetByDisplayName(s.ctx, "sTEVE")
	s.Require().NoError(err)
	s.Equal(SteveID, got.ID)

	got, err = s.store.GetByDisplayName(s.ctx, "alex")
	s.Require().NoError(err)
	s.Equal(AlexID, got.ID)
}

func (s *Suite) TestRenameMovesNameIndex() {
	rec := s.record(SteveID, "Steve")
	s.Require().NoError(s.store.Upsert(s.ctx, rec))

	rec, _ = model.Rename(rec, "Herobrine")
	s.Require().NoError(s.store.Upsert(s.ctx, rec))

	_, err := s.store.GetByDisplayName(s.ctx, "Steve")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	got, err := s.store.GetByDisplayName(s.ctx, "herobrine")
	s.Require().NoError(err)
	s.Equal(SteveID, got.ID)
}

func (s *Suite) TestNewestNameHolderWins() {
	s.Require().NoError(s.store.Upsert(s.ctx, s.record(AlexID, "Alex")))
	s.Require().NoError(s.store.Upsert(s.ctx, s.record(SteveID, "alex")))

	got, err := s.store.GetByDisplayName(s.ctx, "ALEX")
	s.Require().NoError(err)
	s.Equal(SteveID, got.ID)

	// Reporting the name again takes it back
	s.Require().NoError(s.store.Upsert(s.ctx, s.record(AlexID, "Alex")))
	got, err = s.store.GetByDisplayName(s.ctx, "alex")
	s.Require().NoError(err)
	s.Equal(AlexID, got.ID)
}

func (s *Suite) TestReleasedNameStaysWithNewHolder() {
	s.Require().NoError(s.store.Upsert(s.ctx, s.record(AlexID, "Alex")))
	s.Require().NoError(s.store.Upsert(s.ctx, s.record(SteveID, "Alex")))

	// Alex renaming away must not drop the name Steve now holds
	s.Require().NoError(s.store.Upsert(s.ctx, s.record(AlexID, "Herobrine")))

	got, err := s.store.GetByDisplayName(s.ctx, "Alex")
	s.Require().NoError(err)
	s.Equal(SteveID, got.ID)
}

func (s *Suite) TestApplyRevive() {
	rec := model.ApplyLivesOverride(s.record(SteveID, "Steve"), 0, s.now)
	s.Require().NoError(s.store.Upsert(s.ctx, rec))

	s.Require().NoError(s.store.ApplyRevive(s.ctx, SteveID, 3))

	got, err := s.store.Get(s.ctx, SteveID)
	s.Require().NoError(err)
	s.Equal(3, got.Lives)
	s.False(got.Dead)
	s.True(got.LastDeathAt.Equal(s.now), "revive keeps the death time")
	s.Equal("Steve", got.DisplayName, "revive only touches lives and dead")
}

func (s *Suite) TestApplyReviveMissing() {
	err := s.store.ApplyRevive(s.ctx, SteveID, 1)
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.store.Get(s.ctx, SteveID)
	s.ErrorIs(err, model.ErrPlayerNotFound, "revive must not create records")
}

func (s *Suite) TestApplyLivesOverride() {
	s.Require().NoError(s.store.Upsert(s.ctx, s.record(SteveID, "Steve")))

	killedAt := s.now.Add(time.Hour)
	s.Require().NoError(s.store.ApplyLivesOverride(s.ctx, SteveID, 0, killedAt))
	got, err := s.store.Get(s.ctx, SteveID)
	s.Require().NoError(err)
	s.True(got.Dead)
	s.Equal(0, got.Lives)
	s.True(got.LastDeathAt.Equal(killedAt))

	s.Require().NoError(s.store.ApplyLivesOverride(s.ctx, SteveID, 4, s.now.Add(2*time.Hour)))
	got, err = s.store.Get(s.ctx, SteveID)
	s.Require().NoError(err)
	s.False(got.Dead)
	s.Equal(4, got.Lives)
	s.True(got.LastDeathAt.Equal(killedAt))
}

func (s *Suite) TestApplyLivesOverrideOnDeadKeepsDeathTime() {
	rec := model.ApplyLivesOverride(s.record(SteveID, "Steve"), 0, s.now)
	s.Require().NoError(s.store.Upsert(s.ctx, rec))

	s.Require().NoError(s.store.ApplyLivesOverride(s.ctx, SteveID, 0, s.now.Add(time.Hour)))
	got, err := s.store.Get(s.ctx, SteveID)
	s.Require().NoError(err)
	s.True(got.LastDeathAt.Equal(s.now))
}

func (s *Suite) TestApplyLivesOverrideMissing() {
	err := s.store.ApplyLivesOverride(s.ctx, SteveID, 2, s.now)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestRecordsAreIndependent() {
	s.Require().NoError(s.store.Upsert(s.ctx, s.record(SteveID, "Steve")))
	s.Require().NoError(s.store.Upsert(s.ctx, s.record(AlexID, "Alex")))

	s.Require().NoError(s.store.ApplyLivesOverride(s.ctx, SteveID, 0, s.now))

	dead, err := s.store.IsDead(s.ctx, AlexID)
	s.Require().NoError(err)
	s.False(dead)
}

func (s *Suite) TestCloseIsIdempotent() {
	store := s.NewStore()
	s.NoError(store.Close())
	s.NoError(store.Close())
}
