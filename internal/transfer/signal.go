package transfer

import "github.com/mcoot/hardcorelimbo/internal/model"

// Signal asks the proxy to move a connected player to another backend server.
// Delivery is best effort and nothing is acknowledged.
type Signal struct {
	PlayerID model.PlayerID `json:"player_id"`
	Server   string         `json:"server"`
}

// Sink delivers transfer signals. Send must not block.
type Sink interface {
	Send(sig Signal)
}
