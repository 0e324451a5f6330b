package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlayerID uniquely identifies a player across sessions and servers
type PlayerID string

// ParsePlayerID validates a raw identity token and returns it in canonical form
func ParsePlayerID(raw string) (PlayerID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlayerID, raw)
	}
	return PlayerID(id.String()), nil
}

// PlayerRecord is the persistent life/death state of one player.
// It is the only state shared between the main and limbo processes.
type PlayerRecord struct {
	ID          PlayerID
	DisplayName string // last observed name, rewritten on join
	Lives       int
	Dead        bool
	FirstSeenAt time.Time
	LastDeathAt time.Time // zero if the player never ran out of lives

	// Grace period anchor: at-risk time accumulated over finished sessions on the
	// main server, plus the start of the current session (zero while offline).
	PlayTime    time.Duration
	LastLoginAt time.Time
}

// Online reports whether the record has an open main-server session
func (r PlayerRecord) Online() bool {
	return !r.LastLoginAt.IsZero()
}

// HasDied reports whether the player has ever run out of lives
func (r PlayerRecord) HasDied() bool {
	return !r.LastDeathAt.IsZero()
}

func (r PlayerRecord) String() string {
	return fmt.Sprintf("PlayerRecord{id=%s, name=%s, lives=%d, dead=%t}", r.ID, r.DisplayName, r.Lives, r.Dead)
}

// GameMode is the in-game interaction mode reported by the game server
type GameMode string

const (
	GameModeSurvival  GameMode = "survival"
	GameModeSpectator GameMode = "spectator"
	GameModeAdventure GameMode = "adventure"
	GameModeCreative  GameMode = "creative"
)
