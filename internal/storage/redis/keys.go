package redis

import (
	"fmt"

	"github.com/mcoot/blockbattle/internal/model"
)

// Key prefix for all blockbattle data
const keyPrefix = "bbattle"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// registeredPlayerKey returns the Redis key for a RegisteredPlayer
func registeredPlayerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:registered_player:%s", keyPrefix, playerID)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// rankingsKey returns the Redis key for the ZSET of best scores by player
func rankingsKey() string {
	return fmt.Sprintf("%s:rankings", keyPrefix)
}

// rankingMetaKey returns the Redis key for the HASH holding a ranked
// player's nickname and last update time
func rankingMetaKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:ranking:%s", keyPrefix, playerID)
}
