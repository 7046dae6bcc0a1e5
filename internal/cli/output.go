package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case RoomList:
		o.printRoomList(v)
	case RoomDetail:
		o.printRoomDetail(v)
	case RoomStats:
		o.printRoomStats(v)
	case Ranking:
		o.printRanking(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	IsGuest  bool   `json:"is_guest"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RoomSummary response type
type RoomSummary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	CurrentPlayers int       `json:"currentPlayers"`
	MaxPlayers     int       `json:"maxPlayers"`
	IsPrivate      bool      `json:"isPrivate"`
	IsPlaying      bool      `json:"isPlaying"`
	HostNickname   string    `json:"hostNickname"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RoomList response type
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// RoomPlayer response type
type RoomPlayer struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	IsHost   bool   `json:"isHost"`
	IsReady  bool   `json:"isReady"`
}

// RoomDetail response type
type RoomDetail struct {
	RoomSummary
	Players []RoomPlayer `json:"players"`
}

// RoomStats response type
type RoomStats struct {
	Rooms         int `json:"rooms"`
	PlayingRooms  int `json:"playing_rooms"`
	ActivePlayers int `json:"active_players"`
}

// Ranking response type
type Ranking struct {
	PlayerID  string    `json:"player_id"`
	Nickname  string    `json:"nickname"`
	Score     int       `json:"score"`
	Position  int       `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Leaderboard response type
type Leaderboard struct {
	Rankings []Ranking `json:"rankings"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printPlayer(p Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.Nickname, p.ID)
	fmt.Printf("Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.SessionToken)
	if !a.ExpiresAt.IsZero() {
		fmt.Printf("Expires: %s\n", a.ExpiresAt.Local().Format(time.DateTime))
	}
}

func (o *Output) printRoomList(l RoomList) {
	if len(l.Rooms) == 0 {
		fmt.Println("No rooms")
		return
	}

	fmt.Printf("Rooms (%d):\n", len(l.Rooms))
	for _, r := range l.Rooms {
		fmt.Printf("  - %s (%s) %d/%d host %s%s\n",
			r.Title, r.ID, r.CurrentPlayers, r.MaxPlayers, r.HostNickname, roomFlags(r))
	}
}

func (o *Output) printRoomDetail(d RoomDetail) {
	fmt.Printf("Room: %s (%s)\n", d.Title, d.ID)
	fmt.Printf("Players: %d/%d\n", d.CurrentPlayers, d.MaxPlayers)
	if flags := roomFlags(d.RoomSummary); flags != "" {
		fmt.Printf("Flags:%s\n", flags)
	}
	fmt.Printf("Members (%d):\n", len(d.Players))
	for _, p := range d.Players {
		var tags []string
		if p.IsHost {
			tags = append(tags, "host")
		}
		if p.IsReady {
			tags = append(tags, "ready")
		}
		tagStr := ""
		if len(tags) > 0 {
			tagStr = " [" + strings.Join(tags, ", ") + "]"
		}
		fmt.Printf("  - %s (%s)%s\n", p.Nickname, p.ID, tagStr)
	}
}

func roomFlags(r RoomSummary) string {
	var flags string
	if r.IsPrivate {
		flags += " [private]"
	}
	if r.IsPlaying {
		flags += " [playing]"
	}
	return flags
}

func (o *Output) printRoomStats(s RoomStats) {
	fmt.Printf("Rooms: %d\n", s.Rooms)
	fmt.Printf("Playing: %d\n", s.PlayingRooms)
	fmt.Printf("Active players: %d\n", s.ActivePlayers)
}

func (o *Output) printRanking(r Ranking) {
	fmt.Printf("#%d %s (%s): %d\n", r.Position, r.Nickname, r.PlayerID, r.Score)
}

func (o *Output) printLeaderboard(l Leaderboard) {
	if len(l.Rankings) == 0 {
		fmt.Println("No rankings yet")
		return
	}
	for _, r := range l.Rankings {
		fmt.Printf("%3d. %-20s %d\n", r.Position, r.Nickname, r.Score)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
