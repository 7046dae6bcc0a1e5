package game

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/blockbattle/internal/dependencies/clock"
	"github.com/mcoot/blockbattle/internal/model"
)

// Snapshot is a point-in-time copy of a match
type Snapshot struct {
	RoomID    model.RoomID        `json:"roomId"`
	IsPlaying bool                `json:"isPlaying"`
	StartedAt time.Time           `json:"startedAt"`
	EndedAt   *time.Time          `json:"endedAt,omitempty"`
	Players   []model.PlayerState `json:"players"`
}

// AttackResult is the fan-out of one attack
type AttackResult struct {
	AttackLines int
	Attacker    model.PlayerState
	Targets     []model.PlayerID // empty when AttackLines is 0
}

type entry struct {
	mu      sync.Mutex
	session *model.GameSession
}

// Registry owns the live match of every playing room, keyed by room
type Registry struct {
	mu       sync.RWMutex
	sessions map[model.RoomID]*entry

	clock  clock.Clock
	logger *slog.Logger
}

// NewRegistry creates an empty game session registry
func NewRegistry(clock clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[model.RoomID]*entry),
		clock:    clock,
		logger:   logger.With(slog.String("component", "game-registry")),
	}
}

// Start creates the match for a room, replacing any previous one
func (r *Registry) Start(roomID model.RoomID, players []model.Player) Snapshot {
	session := model.NewGameSession(roomID, players, r.clock.Now())

	r.mu.Lock()
	if _, exists := r.sessions[roomID]; exists {
		r.logger.Warn("replacing existing game session", slog.String("room_id", string(roomID)))
	}
	r.sessions[roomID] = &entry{session: session}
	r.mu.Unlock()

	r.logger.Info("game started",
		slog.String("room_id", string(roomID)),
		slog.Int("players", session.PlayerCount()),
	)
	return snapshot(session)
}

// Find returns a snapshot of a room's match
func (r *Registry) Find(roomID model.RoomID) (Snapshot, bool) {
	e := r.lock(roomID)
	if e == nil {
		return Snapshot{}, false
	}
	defer e.mu.Unlock()
	return snapshot(e.session), true
}

// UpdatePlayer records a progress report. It returns false, and changes
// nothing, when there is no match or the player is unknown or eliminated.
func (r *Registry) UpdatePlayer(roomID model.RoomID, playerID model.PlayerID, progress model.Progress) (model.PlayerState, bool) {
	e := r.lock(roomID)
	if e == nil {
		return model.PlayerState{}, false
	}
	defer e.mu.Unlock()

	if !e.session.IsPlaying || !e.session.UpdatePlayer(playerID, progress) {
		return model.PlayerState{}, false
	}
	state, _ := e.session.Player(playerID)
	return state, true
}

// Attack maps the lines an attacker cleared to garbage lines and picks
// the alive opponents. Returns false when the attacker cannot attack.
func (r *Registry) Attack(roomID model.RoomID, attackerID model.PlayerID, linesCleared int) (AttackResult, bool) {
	e := r.lock(roomID)
	if e == nil {
		return AttackResult{}, false
	}
	defer e.mu.Unlock()

	attacker, ok := e.session.Player(attackerID)
	if !ok || !attacker.IsAlive || !e.session.IsPlaying {
		return AttackResult{}, false
	}

	result := AttackResult{
		AttackLines: model.AttackLines(linesCleared),
		Attacker:    attacker,
	}
	if result.AttackLines > 0 {
		result.Targets = e.session.AliveOpponents(attackerID)
	}
	return result, true
}

// Eliminate knocks a player out and reports whether the match should end.
// The rank is model.NoRank when there is no match or the player is
// unknown or already out.
func (r *Registry) Eliminate(roomID model.RoomID, playerID model.PlayerID) (rank int, shouldEnd bool) {
	e := r.lock(roomID)
	if e == nil {
		return model.NoRank, false
	}
	defer e.mu.Unlock()

	if !e.session.IsPlaying {
		return model.NoRank, false
	}
	rank = e.session.Eliminate(playerID, r.clock.Now())
	if rank != model.NoRank {
		r.logger.Info("player eliminated",
			slog.String("room_id", string(roomID)),
			slog.String("player_id", string(playerID)),
			slog.Int("rank", rank),
			slog.Duration("survived", r.clock.Since(e.session.StartedAt)),
		)
	}
	return rank, e.session.ShouldEnd()
}

// ShouldEnd reports whether a room's match has at most one survivor
func (r *Registry) ShouldEnd(roomID model.RoomID) bool {
	e := r.lock(roomID)
	if e == nil {
		return false
	}
	defer e.mu.Unlock()
	return e.session.IsPlaying && e.session.ShouldEnd()
}

// Finish ends a room's match and returns its result. Finishing an
// already finished match returns the same result again.
func (r *Registry) Finish(roomID model.RoomID) (model.GameResult, bool) {
	e := r.lock(roomID)
	if e == nil {
		return model.GameResult{}, false
	}
	defer e.mu.Unlock()

	wasPlaying := e.session.IsPlaying
	e.session.Finish(r.clock.Now())
	result := model.GameResult{
		RoomID:    roomID,
		StartedAt: e.session.StartedAt,
		EndedAt:   *e.session.EndedAt,
		Ranking:   e.session.FinalRanking(),
	}
	if wasPlaying {
		r.logger.Info("game finished",
			slog.String("room_id", string(roomID)),
			slog.Duration("duration", result.EndedAt.Sub(result.StartedAt)),
		)
	}
	return result, true
}

// Delete removes a finished match. A match still in play is kept.
func (r *Registry) Delete(roomID model.RoomID) bool {
	e := r.lock(roomID)
	if e == nil {
		return false
	}
	defer e.mu.Unlock()

	if e.session.IsPlaying {
		return false
	}
	r.remove(roomID, e)
	return true
}

// ForceDelete removes a match whatever its state, for rooms that vanished
func (r *Registry) ForceDelete(roomID model.RoomID) bool {
	e := r.lock(roomID)
	if e == nil {
		return false
	}
	defer e.mu.Unlock()

	r.remove(roomID, e)
	r.logger.Info("game session force deleted", slog.String("room_id", string(roomID)))
	return true
}

// Count returns the number of live matches
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// lock returns the entry for roomID with its mutex held, or nil
func (r *Registry) lock(roomID model.RoomID) *entry {
	r.mu.RLock()
	e, ok := r.sessions[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	// Start may have swapped in a new entry while we waited
	r.mu.RLock()
	current := r.sessions[roomID]
	r.mu.RUnlock()
	if current != e {
		e.mu.Unlock()
		return r.lock(roomID)
	}
	return e
}

// remove drops e from the map if it is still the current entry.
// Callers must hold e.mu.
func (r *Registry) remove(roomID model.RoomID, e *entry) {
	r.mu.Lock()
	if r.sessions[roomID] == e {
		delete(r.sessions, roomID)
	}
	r.mu.Unlock()
}

func snapshot(s *model.GameSession) Snapshot {
	snap := Snapshot{
		RoomID:    s.RoomID,
		IsPlaying: s.IsPlaying,
		StartedAt: s.StartedAt,
		Players:   s.Players(),
	}
	if s.EndedAt != nil {
		ended := *s.EndedAt
		snap.EndedAt = &ended
	}
	return snap
}

// RegistryInterface for dependency injection
type RegistryInterface interface {
	Start(roomID model.RoomID, players []model.Player) Snapshot
	Find(roomID model.RoomID) (Snapshot, bool)
	UpdatePlayer(roomID model.RoomID, playerID model.PlayerID, progress model.Progress) (model.PlayerState, bool)
	Attack(roomID model.RoomID, attackerID model.PlayerID, linesCleared int) (AttackResult, bool)
	Eliminate(roomID model.RoomID, playerID model.PlayerID) (rank int, shouldEnd bool)
	ShouldEnd(roomID model.RoomID) bool
	Finish(roomID model.RoomID) (model.GameResult, bool)
	Delete(roomID model.RoomID) bool
	ForceDelete(roomID model.RoomID) bool
	Count() int
}

var _ RegistryInterface = (*Registry)(nil)
