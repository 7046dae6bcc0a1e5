package model

import (
	"math"
	"sort"
	"time"
)

// NoRank is returned by Eliminate when the player is unknown or was
// already eliminated
const NoRank = -1

// Board dimensions of the snapshot clients send. The core relays the
// board verbatim and never inspects it.
const (
	BoardRows = 20
	BoardCols = 10
)

// Board is an opaque grid snapshot
type Board [][]int

// Progress is a player's self-reported state after a move
type Progress struct {
	Score        int
	Level        int
	LinesCleared int
	Board        Board
}

// PlayerState is one player's progress within a match
type PlayerState struct {
	ID           PlayerID   `json:"id"`
	Nickname     string     `json:"nickname"`
	IsAlive      bool       `json:"isAlive"`
	Rank         int        `json:"rank,omitempty"` // 0 until assigned
	Score        int        `json:"score"`
	Level        int        `json:"level"`
	LinesCleared int        `json:"linesCleared"`
	Board        Board      `json:"board,omitempty"`
	GameOverAt   *time.Time `json:"gameOverAt,omitempty"`
}

// GameSession is the live match state for one room
type GameSession struct {
	RoomID    RoomID
	IsPlaying bool
	StartedAt time.Time
	EndedAt   *time.Time

	players map[PlayerID]*PlayerState
	order   []PlayerID
}

// NewGameSession creates a playing session with every player alive at level 1
func NewGameSession(roomID RoomID, players []Player, now time.Time) *GameSession {
	g := &GameSession{
		RoomID:    roomID,
		IsPlaying: true,
		StartedAt: now,
		players:   make(map[PlayerID]*PlayerState, len(players)),
		order:     make([]PlayerID, 0, len(players)),
	}
	for _, p := range players {
		if _, dup := g.players[p.ID]; dup {
			continue
		}
		g.players[p.ID] = &PlayerState{
			ID:       p.ID,
			Nickname: p.Nickname,
			IsAlive:  true,
			Level:    1,
		}
		g.order = append(g.order, p.ID)
	}
	return g
}

// Player returns a copy of a player's state
func (g *GameSession) Player(id PlayerID) (PlayerState, bool) {
	p, ok := g.players[id]
	if !ok {
		return PlayerState{}, false
	}
	return *p, true
}

// Players returns copies of all player states in join order
func (g *GameSession) Players() []PlayerState {
	out := make([]PlayerState, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.players[id])
	}
	return out
}

// PlayerCount returns the number of players in the match
func (g *GameSession) PlayerCount() int {
	return len(g.order)
}

// AliveCount returns the number of players still in the match
func (g *GameSession) AliveCount() int {
	n := 0
	for _, p := range g.players {
		if p.IsAlive {
			n++
		}
	}
	return n
}

// UpdatePlayer records a progress report. Reports for unknown or
// eliminated players are dropped and false is returned.
func (g *GameSession) UpdatePlayer(id PlayerID, progress Progress) bool {
	p, ok := g.players[id]
	if !ok || !p.IsAlive {
		return false
	}
	p.Score = progress.Score
	p.Level = progress.Level
	p.LinesCleared = progress.LinesCleared
	if progress.Board != nil {
		p.Board = progress.Board
	}
	return true
}

// Eliminate knocks a player out. The rank is the number of players alive
// at that moment, the eliminated one included, so the Nth-to-last
// survivor gets rank N. Returns NoRank for unknown or dead players.
func (g *GameSession) Eliminate(id PlayerID, now time.Time) int {
	p, ok := g.players[id]
	if !ok || !p.IsAlive {
		return NoRank
	}
	rank := g.AliveCount()
	p.IsAlive = false
	p.Rank = rank
	at := now
	p.GameOverAt = &at
	return rank
}

// ShouldEnd reports whether at most one player is left alive
func (g *GameSession) ShouldEnd() bool {
	return g.AliveCount() <= 1
}

// Finish ends the match and gives rank 1 to the first alive player in
// join order. Other survivors of a match ended early stay unranked.
// Calling it again has no effect.
func (g *GameSession) Finish(now time.Time) {
	if g.EndedAt != nil {
		return
	}
	g.IsPlaying = false
	ended := now
	g.EndedAt = &ended
	for _, id := range g.order {
		if p := g.players[id]; p.IsAlive && p.Rank == 0 {
			p.Rank = 1
			return
		}
	}
}

// RankingEntry is one line of a final ranking
type RankingEntry struct {
	PlayerID PlayerID `json:"playerId"`
	Nickname string   `json:"nickname"`
	Rank     int      `json:"rank"`
	Score    int      `json:"score"`
}

// FinalRanking returns all players ordered by rank ascending.
// Unranked players sort last, in join order.
func (g *GameSession) FinalRanking() []RankingEntry {
	entries := make([]RankingEntry, 0, len(g.order))
	for _, id := range g.order {
		p := g.players[id]
		entries = append(entries, RankingEntry{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Rank:     p.Rank,
			Score:    p.Score,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return sortableRank(entries[i].Rank) < sortableRank(entries[j].Rank)
	})
	return entries
}

func sortableRank(rank int) int {
	if rank <= 0 {
		return math.MaxInt
	}
	return rank
}

// AliveOpponents returns the IDs of alive players other than id, in join order
func (g *GameSession) AliveOpponents(id PlayerID) []PlayerID {
	var targets []PlayerID
	for _, pid := range g.order {
		if pid != id && g.players[pid].IsAlive {
			targets = append(targets, pid)
		}
	}
	return targets
}

// AttackLines maps the lines cleared in one move to the garbage lines
// sent to every opponent
func AttackLines(linesCleared int) int {
	switch {
	case linesCleared >= 4:
		return 4
	case linesCleared == 3:
		return 2
	case linesCleared == 2:
		return 1
	default:
		return 0
	}
}

// GameResult is the record of a finished match handed to ranking
type GameResult struct {
	RoomID    RoomID         `json:"roomId"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   time.Time      `json:"endedAt"`
	Ranking   []RankingEntry `json:"ranking"`
}
