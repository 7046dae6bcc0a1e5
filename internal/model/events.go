package model

import "time"

// EventType names an outbound event as clients see it
type EventType string

const (
	// Global events
	EventRoomListUpdated EventType = "roomListUpdated"

	// Room events
	EventPlayerJoined      EventType = "playerJoined"
	EventPlayerLeft        EventType = "playerLeft"
	EventReadyStateChanged EventType = "readyStateChanged"
	EventGameStarted       EventType = "gameStarted"
	EventChatMessage       EventType = "chatMessage"

	// Match events
	EventGameStateUpdated EventType = "gameStateUpdated"
	EventAttacked         EventType = "attacked"
	EventPlayerGameOver   EventType = "playerGameOver"
	EventGameEnded        EventType = "gameEnded"
)

// RoomListUpdatedPayload is broadcast to everyone when the public list changes
type RoomListUpdatedPayload struct {
	Rooms []RoomSummary `json:"rooms"`
}

// NewRoomListUpdated wraps a list, rendering nil as an empty array
func NewRoomListUpdated(rooms []RoomSummary) RoomListUpdatedPayload {
	if rooms == nil {
		rooms = []RoomSummary{}
	}
	return RoomListUpdatedPayload{Rooms: rooms}
}

// PlayerJoinedPayload is sent to the rest of the room when someone joins
type PlayerJoinedPayload struct {
	Player RoomPlayer `json:"player"`
	Room   RoomDetail `json:"room"`
}

// PlayerLeftPayload is sent to the room when someone leaves or drops
type PlayerLeftPayload struct {
	PlayerID  PlayerID   `json:"playerId"`
	Nickname  string     `json:"nickname"`
	NewHostID PlayerID   `json:"newHostId,omitempty"`
	Room      RoomDetail `json:"room"`
}

// ReadyStateChangedPayload is sent after a member toggles ready
type ReadyStateChangedPayload struct {
	PlayerID PlayerID   `json:"playerId"`
	IsReady  bool       `json:"isReady"`
	Room     RoomDetail `json:"room"`
}

// GameStartedPayload is sent when the host starts the match
type GameStartedPayload struct {
	Room RoomDetail `json:"room"`
}

// ChatMessagePayload relays a chat line to the room
type ChatMessagePayload struct {
	PlayerID  PlayerID  `json:"playerId"`
	Nickname  string    `json:"nickname"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// GameStateUpdatedPayload relays one player's progress to opponents
type GameStateUpdatedPayload struct {
	PlayerID     PlayerID `json:"playerId"`
	Nickname     string   `json:"nickname"`
	Score        int      `json:"score"`
	Level        int      `json:"level"`
	LinesCleared int      `json:"linesCleared"`
	Board        Board    `json:"board,omitempty"`
}

// AttackedPayload tells the room that TargetID receives garbage lines
type AttackedPayload struct {
	TargetID         PlayerID `json:"targetId"`
	AttackerID       PlayerID `json:"attackerId"`
	AttackerNickname string   `json:"attackerNickname"`
	AttackLines      int      `json:"attackLines"`
}

// PlayerGameOverPayload announces an elimination
type PlayerGameOverPayload struct {
	PlayerID PlayerID `json:"playerId"`
	Nickname string   `json:"nickname"`
	Rank     int      `json:"rank"`
}

// GameEndedPayload carries the final ranking, best rank first
type GameEndedPayload struct {
	FinalRanking []RankingEntry `json:"finalRanking"`
}
