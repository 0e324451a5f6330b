package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type LifecycleSuite struct {
	suite.Suite
	now   time.Time
	rules Rules
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.rules = DefaultRules()
}

// noGrace returns rules with the grace period disabled
func (s *LifecycleSuite) noGrace() Rules {
	r := s.rules
	r.GracePeriod = 0
	return r
}

func (s *LifecycleSuite) record(lives int) PlayerRecord {
	rec := NewPlayerRecord("5b7c1a64-3a4e-4a43-9f36-1f0f1c6f2b11", "Steve", s.rules, s.now)
	rec.Lives = lives
	return rec
}

func (s *LifecycleSuite) assertInvariant(rec PlayerRecord) {
	s.Equal(rec.Lives == 0, rec.Dead, "lives == 0 must match dead: %s", rec)
}

// NewPlayerRecord tests

func (s *LifecycleSuite) TestNewPlayerRecordDefaults() {
	rec := NewPlayerRecord("id-1", "Alex", s.rules, s.now)

	s.Equal(2, rec.Lives)
	s.False(rec.Dead)
	s.Equal(s.now, rec.FirstSeenAt)
	s.False(rec.HasDied())
	s.True(rec.Online())
	s.assertInvariant(rec)
}

// Grace period tests

func (s *LifecycleSuite) TestInGracePeriodForNewPlayer() {
	rec := s.record(2)
	s.True(InGracePeriod(rec, s.rules, s.now.Add(time.Hour)))
	s.False(InGracePeriod(rec, s.rules, s.now.Add(24*time.Hour)))
}

func (s *LifecycleSuite) TestGracePeriodDisabled() {
	rec := s.record(2)
	s.False(InGracePeriod(rec, s.noGrace(), s.now))
	s.Equal(time.Duration(0), GraceRemaining(rec, s.noGrace(), s.now))

	negative := s.rules
	negative.GracePeriod = -time.Hour
	s.False(InGracePeriod(rec, negative, s.now))
}

func (s *LifecycleSuite) TestGraceTimeDoesNotRunWhileOffline() {
	rec := s.record(2)
	rec = EndSession(rec, s.now.Add(2*time.Hour))
	s.Equal(2*time.Hour, rec.PlayTime)

	// A week offline does not consume grace time
	later := s.now.Add(7 * 24 * time.Hour)
	s.Equal(22*time.Hour, GraceRemaining(rec, s.rules, later))

	rec = BeginSession(rec, later)
	s.Equal(21*time.Hour, GraceRemaining(rec, s.rules, later.Add(time.Hour)))
}

func (s *LifecycleSuite) TestGraceRemainingIsMonotonicAndReachesZero() {
	rec := s.record(2)
	previous := GraceRemaining(rec, s.rules, s.now)
	s.Equal(24*time.Hour, previous)

	for offset := time.Duration(0); offset <= 30*time.Hour; offset += 17 * time.Minute {
		remaining := GraceRemaining(rec, s.rules, s.now.Add(offset))
		s.LessOrEqual(remaining, previous)
		s.GreaterOrEqual(remaining, time.Duration(0))
		previous = remaining
	}

	s.Equal(time.Duration(0), GraceRemaining(rec, s.rules, s.now.Add(24*time.Hour)))
	s.Equal(time.Duration(0), GraceRemaining(rec, s.rules, s.now.Add(48*time.Hour)))
}

func (s *LifecycleSuite) TestGraceRemainingIgnoresClockSkew() {
	rec := s.record(2)
	s.Equal(24*time.Hour, GraceRemaining(rec, s.rules, s.now.Add(-time.Hour)))
}

func (s *LifecycleSuite) TestFormatGraceRemaining() {
	s.Equal("3h 12m", FormatGraceRemaining(3*time.Hour+12*time.Minute+30*time.Second))
	s.Equal("45m", FormatGraceRemaining(45*time.Minute))
	s.Equal("0m", FormatGraceRemaining(59*time.Second))
	s.Equal("0m", FormatGraceRemaining(0))
	s.Equal("0m", FormatGraceRemaining(-time.Minute))
	s.Equal("24h 0m", FormatGraceRemaining(24*time.Hour))
}

// ApplyDeath tests

func (s *LifecycleSuite) TestApplyDeathDuringGraceIsNoop() {
	for _, lives := range []int{1, 2, 5} {
		rec := s.record(lives)
		updated, outcome := ApplyDeath(rec, s.rules, s.now.Add(time.Minute))

		s.Equal(OutcomeGracePeriodProtected, outcome.Kind)
		s.Equal(rec, updated)
		s.False(outcome.Mutated())
	}
}

func (s *LifecycleSuite) TestApplyDeathFromTwoLivesWarns() {
	updated, outcome := ApplyDeath(s.record(2), s.noGrace(), s.now)

	s.Equal(OutcomeLastLifeWarning, outcome.Kind)
	s.Equal(1, updated.Lives)
	s.False(updated.Dead)
	s.True(outcome.Mutated())
	s.assertInvariant(updated)
}

func (s *LifecycleSuite) TestApplyDeathFromLastLifeKills() {
	deathAt := s.now.Add(time.Minute)
	updated, outcome := ApplyDeath(s.record(1), s.noGrace(), deathAt)

	s.Equal(OutcomeOutOfLives, outcome.Kind)
	s.Equal(0, updated.Lives)
	s.True(updated.Dead)
	s.Equal(deathAt, updated.LastDeathAt)
	s.assertInvariant(updated)
}

func (s *LifecycleSuite) TestApplyDeathWithManyLives() {
	updated, outcome := ApplyDeath(s.record(4), s.noGrace(), s.now)

	s.Equal(OutcomeLivesRemaining, outcome.Kind)
	s.Equal(3, outcome.Lives)
	s.Equal(3, updated.Lives)
	s.assertInvariant(updated)
}

func (s *LifecycleSuite) TestApplyDeathOnDeadRecordIsDuplicate() {
	dead, _ := ApplyDeath(s.record(1), s.noGrace(), s.now)

	again, outcome := ApplyDeath(dead, s.noGrace(), s.now.Add(time.Second))
	s.Equal(OutcomeAlreadyDead, outcome.Kind)
	s.Equal(dead, again)
	s.False(outcome.Mutated())
}

func (s *LifecycleSuite) TestInvariantHoldsAcrossDeaths() {
	rec := s.record(5)
	for i := 0; i < 7; i++ {
		rec, _ = ApplyDeath(rec, s.noGrace(), s.now)
		s.assertInvariant(rec)
	}
	s.True(rec.Dead)
}

// ApplyRevive tests

func (s *LifecycleSuite) TestApplyReviveRestoresLives() {
	dead, _ := ApplyDeath(s.record(1), s.noGrace(), s.now)
	revived := ApplyRevive(dead, 1)

	s.Equal(1, revived.Lives)
	s.False(revived.Dead)
	s.Equal(dead.LastDeathAt, revived.LastDeathAt, "revive keeps the last death time")
	s.assertInvariant(revived)
}

// Reviving to zero lives leaves a living record with no lives. It is not
// dead until the next death is evaluated, which then kills outright.
func (s *LifecycleSuite) TestApplyReviveToZeroRequalifiesOnNextDeath() {
	dead, _ := ApplyDeath(s.record(1), s.noGrace(), s.now)
	revived := ApplyRevive(dead, 0)

	s.Equal(0, revived.Lives)
	s.False(revived.Dead)

	after, outcome := ApplyDeath(revived, s.noGrace(), s.now.Add(time.Hour))
	s.Equal(OutcomeOutOfLives, outcome.Kind)
	s.True(after.Dead)
	s.assertInvariant(after)
}

// ApplyLivesOverride tests

func (s *LifecycleSuite) TestApplyLivesOverride() {
	rec := ApplyLivesOverride(s.record(2), 0, s.now)
	s.True(rec.Dead)
	s.Equal(s.now, rec.LastDeathAt)
	s.assertInvariant(rec)

	rec = ApplyLivesOverride(rec, 3, s.now.Add(time.Hour))
	s.False(rec.Dead)
	s.Equal(3, rec.Lives)
	s.Equal(s.now, rec.LastDeathAt)
}

// Evaluate tests

func (s *LifecycleSuite) TestEvaluate() {
	rec := s.record(2)
	s.Equal(LifeStateGrace, Evaluate(rec, s.rules, s.now))
	s.Equal(LifeStateAlive, Evaluate(rec, s.rules, s.now.Add(25*time.Hour)))

	rec.Dead, rec.Lives = true, 0
	s.Equal(LifeStateDead, Evaluate(rec, s.rules, s.now))
}

// Session and rename tests

func (s *LifecycleSuite) TestBeginSessionClosesOpenSession() {
	rec := s.record(2)
	rec = BeginSession(rec, s.now.Add(time.Hour))

	s.Equal(time.Hour, rec.PlayTime)
	s.Equal(s.now.Add(time.Hour), rec.LastLoginAt)
}

func (s *LifecycleSuite) TestEndSessionWhenOfflineIsNoop() {
	rec := EndSession(s.record(2), s.now.Add(time.Hour))
	again := EndSession(rec, s.now.Add(2*time.Hour))
	s.Equal(rec, again)
}

func (s *LifecycleSuite) TestRename() {
	rec, changed := Rename(s.record(2), "Steve")
	s.False(changed)

	rec, changed = Rename(rec, "Herobrine")
	s.True(changed)
	s.Equal("Herobrine", rec.DisplayName)

	_, changed = Rename(rec, "")
	s.False(changed)
}

// Notice mapping tests

func (s *LifecycleSuite) TestNoticeForOutcome() {
	n, ok := NoticeForOutcome(DeathOutcome{Kind: OutcomeLivesRemaining, Lives: 3}, "")
	s.True(ok)
	s.Equal(Notice{Kind: NoticeLifeLost, Lives: 3}, n)

	n, ok = NoticeForOutcome(DeathOutcome{Kind: OutcomeGracePeriodProtected}, "2h 5m")
	s.True(ok)
	s.Equal("2h 5m", n.TimeRemaining)

	_, ok = NoticeForOutcome(DeathOutcome{Kind: OutcomeOutOfLives}, "")
	s.False(ok)
}
