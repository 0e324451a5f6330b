// Package gameserver defines the boundary between the life-tracking core and
// the game server it runs beside: the events the server reports and the
// presentation calls it accepts.
package gameserver

import "github.com/mcoot/hardcorelimbo/internal/model"

// Presence describes a connected player
type Presence struct {
	ID     model.PlayerID `json:"id"`
	Name   string         `json:"name"`
	Bypass bool           `json:"bypass,omitempty"` // exempt from all life tracking
}

// Server is what the core can ask of, or do to, the local game server.
// Implementations must not block: calls are made from the timeline goroutine.
type Server interface {
	IsOnline(id model.PlayerID) bool
	HasBypass(id model.PlayerID) bool
	OnlinePlayers() []Presence

	Notify(id model.PlayerID, notice model.Notice)
	SetGameMode(id model.PlayerID, mode model.GameMode)

	// ApplyLimboState restricts a player who is held in limbo
	ApplyLimboState(id model.PlayerID)
}

// EventHandler receives player events from the game server
type EventHandler interface {
	PlayerJoined(p Presence)
	PlayerQuit(id model.PlayerID)
	PlayerDied(id model.PlayerID)
	PlayerRespawned(id model.PlayerID)
	GameModeChanged(id model.PlayerID, from, to model.GameMode)
}

// BaseHandler ignores every event. Embed it to implement only some events.
type BaseHandler struct{}

func (BaseHandler) PlayerJoined(Presence)                                          {}
func (BaseHandler) PlayerQuit(model.PlayerID)                                      {}
func (BaseHandler) PlayerDied(model.PlayerID)                                      {}
func (BaseHandler) PlayerRespawned(model.PlayerID)                                 {}
func (BaseHandler) GameModeChanged(model.PlayerID, model.GameMode, model.GameMode) {}

var _ EventHandler = BaseHandler{}
