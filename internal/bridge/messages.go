package bridge

import (
	"github.com/mcoot/hardcorelimbo/internal/model"
)

// Inbound message types sent by the game server plugin
const (
	TypeHello    = "hello"
	TypeJoin     = "join"
	TypeQuit     = "quit"
	TypeDeath    = "death"
	TypeRespawn  = "respawn"
	TypeGameMode = "gamemode"
)

// Outbound message types sent to the game server plugin
const (
	TypeNotify     = "notify"
	TypeTransfer   = "transfer"
	TypeSetMode    = "gamemode"
	TypeLimboState = "limbo_state"
)

// PresenceMessage describes one connected player
type PresenceMessage struct {
	Player string `json:"player"`
	Name   string `json:"name"`
	Bypass bool   `json:"bypass,omitempty"`
}

// InboundMessage is any event from the plugin. Which fields are set depends on Type.
type InboundMessage struct {
	Type   string `json:"type"`
	Player string `json:"player,omitempty"`
	Name   string `json:"name,omitempty"`
	Bypass bool   `json:"bypass,omitempty"`

	// gamemode
	From model.GameMode `json:"from,omitempty"`
	To   model.GameMode `json:"to,omitempty"`

	// hello: everyone currently connected
	Players []PresenceMessage `json:"players,omitempty"`
}

// OutboundMessage is a presentation or transfer request for one player
type OutboundMessage struct {
	Type   string         `json:"type"`
	Player model.PlayerID `json:"player"`
	Notice *model.Notice  `json:"notice,omitempty"`
	Server string         `json:"server,omitempty"`
	Mode   model.GameMode `json:"mode,omitempty"`
}
