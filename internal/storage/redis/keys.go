package redis

import (
	"fmt"
	"strings"

	"github.com/mcoot/hardcorelimbo/internal/model"
)

// Key prefix for all life tracking data
const keyPrefix = "hlimbo"

// Hash fields of a player record
const (
	fieldName      = "name"
	fieldLives     = "lives"
	fieldDead      = "dead"
	fieldFirstSeen = "first_seen_ms"
	fieldLastDeath = "last_death_ms"
	fieldPlayTime  = "play_time_ms"
	fieldLastLogin = "last_login_ms"
)

// playerKey returns the Redis key for a player's HASH
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// nameIndexKey returns the Redis key for the lower-cased name -> player_id index
func nameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:name:%s", keyPrefix, strings.ToLower(name))
}
