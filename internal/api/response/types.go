package response

import (
	"time"

	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	IsGuest  bool   `json:"is_guest"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:       string(p.ID),
		Nickname: p.Nickname,
		IsGuest:  p.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Ranking is one leaderboard line
type Ranking struct {
	PlayerID  string    `json:"player_id"`
	Nickname  string    `json:"nickname"`
	Score     int       `json:"score"`
	Position  int       `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RankingFromModel converts a model.Ranking
func RankingFromModel(r *model.Ranking) Ranking {
	return Ranking{
		PlayerID:  string(r.PlayerID),
		Nickname:  r.Nickname,
		Score:     r.Score,
		Position:  r.Position,
		UpdatedAt: r.UpdatedAt,
	}
}

// Leaderboard is the response for the top rankings
type Leaderboard struct {
	Rankings []Ranking `json:"rankings"`
}

// LeaderboardFromModel converts a list of rankings
func LeaderboardFromModel(rankings []*model.Ranking) Leaderboard {
	out := make([]Ranking, len(rankings))
	for i, r := range rankings {
		out[i] = RankingFromModel(r)
	}
	return Leaderboard{Rankings: out}
}

// RoomList is the response for the public room list. Rooms use the same
// shape as the websocket roomListUpdated event.
type RoomList struct {
	Rooms []model.RoomSummary `json:"rooms"`
}

// RoomStats summarises live rooms
type RoomStats struct {
	Rooms         int `json:"rooms"`
	PlayingRooms  int `json:"playing_rooms"`
	ActivePlayers int `json:"active_players"`
}

// Health is the response of the health check
type Health struct {
	Status string `json:"status"`
}
