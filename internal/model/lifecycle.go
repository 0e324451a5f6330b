package model

import (
	"fmt"
	"time"
)

// OutcomeKind classifies what a death did to a player record
type OutcomeKind string

const (
	OutcomeGracePeriodProtected OutcomeKind = "grace_period_protected"
	OutcomeLivesRemaining       OutcomeKind = "lives_remaining"
	OutcomeLastLifeWarning      OutcomeKind = "last_life_warning"
	OutcomeOutOfLives           OutcomeKind = "out_of_lives"
	OutcomeAlreadyDead          OutcomeKind = "already_dead" // no-op, the record was dead before this death
)

// DeathOutcome is the result of applying a death to a record
type DeathOutcome struct {
	Kind  OutcomeKind
	Lives int // lives left after the death
}

// Mutated reports whether the record changed and must be persisted
func (o DeathOutcome) Mutated() bool {
	return o.Kind != OutcomeGracePeriodProtected && o.Kind != OutcomeAlreadyDead
}

// LifeState is the coarse status shown to admins
type LifeState string

const (
	LifeStateAlive LifeState = "alive"
	LifeStateGrace LifeState = "grace"
	LifeStateDead  LifeState = "dead"
)

// NewPlayerRecord creates the record for a player seen for the first time.
// The first contact also opens a session, so grace time starts counting.
func NewPlayerRecord(id PlayerID, name string, rules Rules, now time.Time) PlayerRecord {
	return PlayerRecord{
		ID:          id,
		DisplayName: name,
		Lives:       rules.DefaultLives,
		Dead:        false,
		FirstSeenAt: now,
		LastLoginAt: now,
	}
}

// AtRiskTime returns the total main-server time counted against the grace period
func AtRiskTime(rec PlayerRecord, now time.Time) time.Duration {
	elapsed := rec.PlayTime
	if rec.Online() {
		if session := now.Sub(rec.LastLoginAt); session > 0 {
			elapsed += session
		}
	}
	return elapsed
}

// InGracePeriod reports whether deaths are currently suppressed for the record
func InGracePeriod(rec PlayerRecord, rules Rules, now time.Time) bool {
	if rules.GracePeriod <= 0 {
		return false
	}
	return AtRiskTime(rec, now) < rules.GracePeriod
}

// GraceRemaining returns how long the grace period still lasts, never negative
func GraceRemaining(rec PlayerRecord, rules Rules, now time.Time) time.Duration {
	if rules.GracePeriod <= 0 {
		return 0
	}
	remaining := rules.GracePeriod - AtRiskTime(rec, now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FormatGraceRemaining renders a remaining duration as "3h 12m" or "45m"
func FormatGraceRemaining(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	hours := int64(d / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// Evaluate returns the admin-facing state of a record
func Evaluate(rec PlayerRecord, rules Rules, now time.Time) LifeState {
	switch {
	case rec.Dead:
		return LifeStateDead
	case InGracePeriod(rec, rules, now):
		return LifeStateGrace
	default:
		return LifeStateAlive
	}
}

// ApplyDeath applies one in-game death to the record.
// Grace-protected and already-dead records are returned unchanged.
func ApplyDeath(rec PlayerRecord, rules Rules, now time.Time) (PlayerRecord, DeathOutcome) {
	if rec.Dead {
		return rec, DeathOutcome{Kind: OutcomeAlreadyDead, Lives: rec.Lives}
	}
	if InGracePeriod(rec, rules, now) {
		return rec, DeathOutcome{Kind: OutcomeGracePeriodProtected, Lives: rec.Lives}
	}

	if rec.Lives > 0 {
		rec.Lives--
	}

	switch rec.Lives {
	case 0:
		rec.Dead = true
		rec.LastDeathAt = now
		return rec, DeathOutcome{Kind: OutcomeOutOfLives, Lives: 0}
	case 1:
		return rec, DeathOutcome{Kind: OutcomeLastLifeWarning, Lives: 1}
	default:
		return rec, DeathOutcome{Kind: OutcomeLivesRemaining, Lives: rec.Lives}
	}
}

// ApplyRevive restores lives and clears the dead flag.
// Reviving to zero lives is allowed: the record is alive until its next death,
// which then immediately runs out of lives.
func ApplyRevive(rec PlayerRecord, lives int) PlayerRecord {
	rec.Lives = lives
	rec.Dead = false
	return rec
}

// ApplyLivesOverride sets the life count, killing the player at zero
func ApplyLivesOverride(rec PlayerRecord, lives int, now time.Time) PlayerRecord {
	wasDead := rec.Dead
	rec.Lives = lives
	rec.Dead = lives == 0
	if rec.Dead && !wasDead {
		rec.LastDeathAt = now
	}
	return rec
}

// BeginSession opens a main-server session for grace accounting
func BeginSession(rec PlayerRecord, now time.Time) PlayerRecord {
	if rec.Online() {
		rec = EndSession(rec, now)
	}
	rec.LastLoginAt = now
	return rec
}

// EndSession folds the open session into the accumulated play time
func EndSession(rec PlayerRecord, now time.Time) PlayerRecord {
	if !rec.Online() {
		return rec
	}
	if session := now.Sub(rec.LastLoginAt); session > 0 {
		rec.PlayTime += session
	}
	rec.LastLoginAt = time.Time{}
	return rec
}

// Rename updates the display name, reporting whether it changed
func Rename(rec PlayerRecord, name string) (PlayerRecord, bool) {
	if name == "" || rec.DisplayName == name {
		return rec, false
	}
	rec.DisplayName = name
	return rec, true
}
