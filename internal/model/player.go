package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// ConnectionID identifies one live transport connection. A player may
// reconnect under a new ConnectionID.
type ConnectionID string

// Player represents an authenticated participant
type Player struct {
	ID        PlayerID
	Nickname  string
	IsGuest   bool // true for unregistered players
	CreatedAt time.Time
}

// RegisteredPlayer extends Player with authentication data
// Stored separately so the password hash never travels with a session
type RegisteredPlayer struct {
	PlayerID     PlayerID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
