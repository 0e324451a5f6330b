package response

import (
	"time"

	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/services/admin"
)

// PlayerStatus represents a player's life state in API responses
type PlayerStatus struct {
	ID             string     `json:"id"`
	DisplayName    string     `json:"display_name"`
	Lives          int        `json:"lives"`
	Dead           bool       `json:"dead"`
	State          string     `json:"state"`
	GraceRemaining string     `json:"grace_remaining,omitempty"`
	FirstSeenAt    time.Time  `json:"first_seen_at"`
	LastDeathAt    *time.Time `json:"last_death_at,omitempty"`
	PlayTime       string     `json:"play_time"`
	Online         bool       `json:"online"`
}

// PlayerStatusFromAdmin converts an admin.Status
func PlayerStatusFromAdmin(s admin.Status) PlayerStatus {
	rec := s.Record

	var lastDeath *time.Time
	if rec.HasDied() {
		t := rec.LastDeathAt
		lastDeath = &t
	}

	var grace string
	if s.State == model.LifeStateGrace {
		grace = model.FormatGraceRemaining(s.GraceRemaining)
	}

	return PlayerStatus{
		ID:             string(rec.ID),
		DisplayName:    rec.DisplayName,
		Lives:          rec.Lives,
		Dead:           rec.Dead,
		State:          string(s.State),
		GraceRemaining: grace,
		FirstSeenAt:    rec.FirstSeenAt,
		LastDeathAt:    lastDeath,
		PlayTime:       rec.PlayTime.Round(time.Second).String(),
		Online:         rec.Online(),
	}
}

// Health is the response for the health endpoint
type Health struct {
	Status          string `json:"status"`
	Mode            string `json:"mode,omitempty"`
	BridgeConnected bool   `json:"bridge_connected"`
}
