package model

import "time"

// Ranking is a player's best recorded score
type Ranking struct {
	PlayerID  PlayerID
	Nickname  string
	Score     int
	Position  int // 1-based place on the leaderboard, 0 if unknown
	UpdatedAt time.Time
}
