package model

import "time"

// RoomID uniquely identifies a room for the lifetime of the registry
type RoomID string

// Room size bounds
const (
	MinRoomPlayers = 2
	MaxRoomPlayers = 8
)

// RoomMember is a player's membership in a room
type RoomMember struct {
	ID           PlayerID
	Nickname     string
	IsHost       bool
	IsReady      bool // the host is always ready
	ConnectionID ConnectionID
	JoinedAt     time.Time
}

// Room is a lobby grouping players before and during a match.
// Members are kept in join order; host migration relies on it.
type Room struct {
	ID           RoomID
	Title        string
	MaxPlayers   int
	PasswordHash string // bcrypt hash, empty for public rooms
	IsPlaying    bool
	HostID       PlayerID
	Members      []*RoomMember
	CreatedAt    time.Time
}

// NewRoom creates a room with the host as its sole, ready member
func NewRoom(id RoomID, title string, maxPlayers int, host Player, conn ConnectionID, passwordHash string, now time.Time) *Room {
	return &Room{
		ID:           id,
		Title:        title,
		MaxPlayers:   maxPlayers,
		PasswordHash: passwordHash,
		HostID:       host.ID,
		Members: []*RoomMember{
			{
				ID:           host.ID,
				Nickname:     host.Nickname,
				IsHost:       true,
				IsReady:      true,
				ConnectionID: conn,
				JoinedAt:     now,
			},
		},
		CreatedAt: now,
	}
}

// IsPrivate reports whether joining requires a password
func (r *Room) IsPrivate() bool {
	return r.PasswordHash != ""
}

// MemberCount returns the number of members
func (r *Room) MemberCount() int {
	return len(r.Members)
}

// IsFull reports whether the room has reached MaxPlayers
func (r *Room) IsFull() bool {
	return len(r.Members) >= r.MaxPlayers
}

// IsEmpty reports whether the room has no members left
func (r *Room) IsEmpty() bool {
	return len(r.Members) == 0
}

// Member returns the member with the given ID, or nil if not found
func (r *Room) Member(id PlayerID) *RoomMember {
	for _, m := range r.Members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// MemberByConnection returns the member bound to conn, or nil
func (r *Room) MemberByConnection(conn ConnectionID) *RoomMember {
	for _, m := range r.Members {
		if m.ConnectionID == conn {
			return m
		}
	}
	return nil
}

// Host returns the current host, or nil if the room is empty
func (r *Room) Host() *RoomMember {
	return r.Member(r.HostID)
}

// AddMember appends a new, not-ready member.
// Returns false without changing anything if the room is full or the
// player is already a member.
func (r *Room) AddMember(id PlayerID, nickname string, conn ConnectionID, now time.Time) bool {
	if r.IsFull() || r.Member(id) != nil {
		return false
	}
	r.Members = append(r.Members, &RoomMember{
		ID:           id,
		Nickname:     nickname,
		ConnectionID: conn,
		JoinedAt:     now,
	})
	return true
}

// RemoveMember removes a member. When the host leaves a non-empty room,
// the earliest-joined remaining member becomes host and is made ready.
func (r *Room) RemoveMember(id PlayerID) bool {
	idx := -1
	for i, m := range r.Members {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	wasHost := r.Members[idx].IsHost
	r.Members = append(r.Members[:idx], r.Members[idx+1:]...)

	if len(r.Members) == 0 {
		r.HostID = ""
		return true
	}

	if wasHost {
		next := r.Members[0]
		next.IsHost = true
		next.IsReady = true
		r.HostID = next.ID
	}
	return true
}

// ToggleReady flips a non-host member's ready flag.
// Returns false for the host or an unknown player.
func (r *Room) ToggleReady(id PlayerID) bool {
	m := r.Member(id)
	if m == nil || m.IsHost {
		return false
	}
	m.IsReady = !m.IsReady
	return true
}

// CanStart reports whether there are at least two members and every
// non-host member is ready
func (r *Room) CanStart() bool {
	if len(r.Members) < MinRoomPlayers {
		return false
	}
	for _, m := range r.Members {
		if !m.IsHost && !m.IsReady {
			return false
		}
	}
	return true
}

// Start marks the room as playing if CanStart allows it
func (r *Room) Start() bool {
	if !r.CanStart() {
		return false
	}
	r.IsPlaying = true
	return true
}

// End returns the room to the waiting state and clears non-host
// readiness so a rematch needs a fresh ready check
func (r *Room) End() {
	r.IsPlaying = false
	for _, m := range r.Members {
		if !m.IsHost {
			m.IsReady = false
		}
	}
}

// Players returns the members as Players, in join order
func (r *Room) Players() []Player {
	players := make([]Player, len(r.Members))
	for i, m := range r.Members {
		players[i] = Player{ID: m.ID, Nickname: m.Nickname}
	}
	return players
}

// RoomSummary is the public projection used in room listings
type RoomSummary struct {
	ID             RoomID    `json:"id"`
	Title          string    `json:"title"`
	CurrentPlayers int       `json:"currentPlayers"`
	MaxPlayers     int       `json:"maxPlayers"`
	IsPrivate      bool      `json:"isPrivate"`
	IsPlaying      bool      `json:"isPlaying"`
	HostNickname   string    `json:"hostNickname"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RoomPlayer is a member as seen by clients
type RoomPlayer struct {
	ID       PlayerID `json:"id"`
	Nickname string   `json:"nickname"`
	IsHost   bool     `json:"isHost"`
	IsReady  bool     `json:"isReady"`
}

// RoomDetail is the summary plus the member list
type RoomDetail struct {
	RoomSummary
	Players []RoomPlayer `json:"players"`
}

// Summary builds the public projection. The password never leaves the room.
func (r *Room) Summary() RoomSummary {
	var hostNickname string
	if h := r.Host(); h != nil {
		hostNickname = h.Nickname
	}
	return RoomSummary{
		ID:             r.ID,
		Title:          r.Title,
		CurrentPlayers: len(r.Members),
		MaxPlayers:     r.MaxPlayers,
		IsPrivate:      r.IsPrivate(),
		IsPlaying:      r.IsPlaying,
		HostNickname:   hostNickname,
		CreatedAt:      r.CreatedAt,
	}
}

// Detail builds the detail projection
func (r *Room) Detail() RoomDetail {
	players := make([]RoomPlayer, len(r.Members))
	for i, m := range r.Members {
		players[i] = m.View()
	}
	return RoomDetail{
		RoomSummary: r.Summary(),
		Players:     players,
	}
}

// View projects a member for clients
func (m *RoomMember) View() RoomPlayer {
	return RoomPlayer{
		ID:       m.ID,
		Nickname: m.Nickname,
		IsHost:   m.IsHost,
		IsReady:  m.IsReady,
	}
}
