package room

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/blockbattle/internal/dependencies/clock"
	"github.com/mcoot/blockbattle/internal/dependencies/random"
	"github.com/mcoot/blockbattle/internal/model"
)

// MaxTitleLength is the longest room title accepted, in runes
const MaxTitleLength = 50

// Config holds room registry settings
type Config struct {
	// PasswordCost is the bcrypt cost used to hash room passwords
	PasswordCost int
}

// DefaultConfig returns default room registry configuration
func DefaultConfig() Config {
	return Config{
		PasswordCost: bcrypt.DefaultCost,
	}
}

// CreateParams describes a room to create
type CreateParams struct {
	ID         model.RoomID // optional, from NewID
	Title      string
	MaxPlayers int
	Password   string // empty for a public room
	Host       model.Player
	Connection model.ConnectionID
}

// Validate checks the title and the player bound
func (p *CreateParams) Validate() error {
	p.Title = strings.TrimSpace(p.Title)
	if n := utf8.RuneCountInString(p.Title); n == 0 || n > MaxTitleLength {
		return model.NewRoomError(model.CodeInvalidRequest,
			fmt.Sprintf("title must be 1-%d characters", MaxTitleLength))
	}
	if p.MaxPlayers < model.MinRoomPlayers || p.MaxPlayers > model.MaxRoomPlayers {
		return model.NewRoomError(model.CodeInvalidRequest,
			fmt.Sprintf("maxPlayers must be between %d and %d", model.MinRoomPlayers, model.MaxRoomPlayers))
	}
	return nil
}

// LeaveResult describes the outcome of a leave
type LeaveResult struct {
	PlayerID    model.PlayerID
	Nickname    string
	WasPlaying  bool
	RoomDeleted bool
	NewHostID   model.PlayerID    // empty unless the host changed
	Room        *model.RoomDetail // nil when the room was deleted
}

// ReadyResult describes the outcome of a ready toggle
type ReadyResult struct {
	IsReady bool
	Changed bool // false when the host toggled
	Room    model.RoomDetail
}

// StartResult is a room that just started playing
type StartResult struct {
	Room    model.RoomDetail
	Players []model.Player
}

// Stats summarises the registry
type Stats struct {
	Rooms        int `json:"rooms"`
	PlayingRooms int `json:"playingRooms"`
	Players      int `json:"players"`
}

type entry struct {
	mu      sync.Mutex
	room    *model.Room
	deleted bool
}

// Registry owns every live room. Each room is guarded by its own mutex;
// the map has a separate lock that is only ever taken after an entry lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[model.RoomID]*entry

	clock        clock.Clock
	random       random.Random
	logger       *slog.Logger
	passwordCost int
}

// NewRegistry creates an empty room registry
func NewRegistry(clock clock.Clock, random random.Random, logger *slog.Logger, cfg Config) *Registry {
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = DefaultConfig().PasswordCost
	}
	return &Registry{
		rooms:        make(map[model.RoomID]*entry),
		clock:        clock,
		random:       random,
		logger:       logger.With(slog.String("component", "room-registry")),
		passwordCost: cfg.PasswordCost,
	}
}

// Create makes a new room with the host as its only member
func (r *Registry) Create(params CreateParams) (model.RoomDetail, error) {
	if err := params.Validate(); err != nil {
		return model.RoomDetail{}, err
	}

	var hash string
	if params.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(params.Password), r.passwordCost)
		if err != nil {
			return model.RoomDetail{}, fmt.Errorf("hash room password: %w", err)
		}
		hash = string(h)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := params.ID
	if id == "" {
		id = r.unusedID()
	} else if _, exists := r.rooms[id]; exists {
		return model.RoomDetail{}, fmt.Errorf("room id %s already in use: %w", id, model.ErrInternal)
	}

	room := model.NewRoom(id, params.Title, params.MaxPlayers, params.Host, params.Connection, hash, r.clock.Now())
	r.rooms[id] = &entry{room: room}

	r.logger.Info("room created",
		slog.String("room_id", string(id)),
		slog.String("host_id", string(params.Host.ID)),
		slog.Int("max_players", params.MaxPlayers),
		slog.Bool("private", room.IsPrivate()),
	)
	return room.Detail(), nil
}

// NewID returns an id no current room uses. Callers that must order work
// on a room before it becomes visible pass it back through CreateParams.
func (r *Registry) NewID() model.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unusedID()
}

func (r *Registry) unusedID() model.RoomID {
	for {
		id := model.RoomID(r.random.UUID())
		if _, exists := r.rooms[id]; !exists {
			return id
		}
	}
}

// Join adds a player to a room. Checks run in a fixed order: existence,
// match in progress, capacity, password, duplicate membership.
func (r *Registry) Join(id model.RoomID, player model.Player, conn model.ConnectionID, password string) (model.RoomDetail, error) {
	e, err := r.lock(id)
	if err != nil {
		return model.RoomDetail{}, err
	}
	defer e.mu.Unlock()

	room := e.room
	if room.IsPlaying {
		return model.RoomDetail{}, model.ErrAlreadyInGame
	}
	if room.IsFull() {
		return model.RoomDetail{}, model.ErrRoomIsFull
	}
	if room.IsPrivate() {
		if bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)) != nil {
			return model.RoomDetail{}, model.ErrInvalidPassword
		}
	}
	if !room.AddMember(player.ID, player.Nickname, conn, r.clock.Now()) {
		return model.RoomDetail{}, model.ErrAlreadyInRoom
	}

	r.logger.Info("player joined room",
		slog.String("room_id", string(id)),
		slog.String("player_id", string(player.ID)),
		slog.Int("members", room.MemberCount()),
	)
	return room.Detail(), nil
}

// Leave removes a player. An emptied room is deleted.
func (r *Registry) Leave(id model.RoomID, playerID model.PlayerID) (LeaveResult, error) {
	e, err := r.lock(id)
	if err != nil {
		return LeaveResult{}, err
	}
	defer e.mu.Unlock()

	room := e.room
	member := room.Member(playerID)
	if member == nil {
		return LeaveResult{}, model.ErrNotInRoom
	}

	result := LeaveResult{
		PlayerID:   member.ID,
		Nickname:   member.Nickname,
		WasPlaying: room.IsPlaying,
	}
	prevHost := room.HostID
	room.RemoveMember(playerID)

	if room.IsEmpty() {
		e.deleted = true
		r.mu.Lock()
		delete(r.rooms, id)
		r.mu.Unlock()
		result.RoomDeleted = true

		r.logger.Info("room deleted", slog.String("room_id", string(id)))
		return result, nil
	}

	if room.HostID != prevHost {
		result.NewHostID = room.HostID
		r.logger.Info("host migrated",
			slog.String("room_id", string(id)),
			slog.String("new_host_id", string(room.HostID)),
		)
	}
	detail := room.Detail()
	result.Room = &detail
	return result, nil
}

// ToggleReady flips a member's ready flag. The host is always ready, so
// a toggle by the host succeeds without a change.
func (r *Registry) ToggleReady(id model.RoomID, playerID model.PlayerID) (ReadyResult, error) {
	e, err := r.lock(id)
	if err != nil {
		return ReadyResult{}, err
	}
	defer e.mu.Unlock()

	member := e.room.Member(playerID)
	if member == nil {
		return ReadyResult{}, model.ErrNotInRoom
	}

	changed := e.room.ToggleReady(playerID)
	return ReadyResult{
		IsReady: member.IsReady,
		Changed: changed,
		Room:    e.room.Detail(),
	}, nil
}

// Start moves a room into the playing state. Only the host may start it.
func (r *Registry) Start(id model.RoomID, playerID model.PlayerID) (StartResult, error) {
	e, err := r.lock(id)
	if err != nil {
		return StartResult{}, err
	}
	defer e.mu.Unlock()

	room := e.room
	if room.HostID != playerID {
		return StartResult{}, model.ErrNotHost
	}
	if room.IsPlaying {
		return StartResult{}, model.ErrAlreadyInGame
	}
	if !room.Start() {
		return StartResult{}, model.ErrNotAllPlayersReady
	}

	r.logger.Info("room started",
		slog.String("room_id", string(id)),
		slog.Int("players", room.MemberCount()),
	)
	return StartResult{
		Room:    room.Detail(),
		Players: room.Players(),
	}, nil
}

// End returns a playing room to the waiting state
func (r *Registry) End(id model.RoomID) (model.RoomDetail, error) {
	e, err := r.lock(id)
	if err != nil {
		return model.RoomDetail{}, err
	}
	defer e.mu.Unlock()

	e.room.End()
	return e.room.Detail(), nil
}

// Detail returns the detail projection of a room
func (r *Registry) Detail(id model.RoomID) (model.RoomDetail, error) {
	e, err := r.lock(id)
	if err != nil {
		return model.RoomDetail{}, err
	}
	defer e.mu.Unlock()
	return e.room.Detail(), nil
}

// Member returns a copy of one member of a room
func (r *Registry) Member(id model.RoomID, playerID model.PlayerID) (model.RoomMember, error) {
	e, err := r.lock(id)
	if err != nil {
		return model.RoomMember{}, err
	}
	defer e.mu.Unlock()

	m := e.room.Member(playerID)
	if m == nil {
		return model.RoomMember{}, model.ErrNotInRoom
	}
	return *m, nil
}

// List returns the rooms open for joining, newest first
func (r *Registry) List() []model.RoomSummary {
	summaries := make([]model.RoomSummary, 0)
	r.each(func(room *model.Room) {
		if !room.IsPlaying {
			summaries = append(summaries, room.Summary())
		}
	})

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

// FindByConnection returns the room and player bound to a connection
func (r *Registry) FindByConnection(conn model.ConnectionID) (model.RoomID, model.PlayerID, bool) {
	var (
		roomID   model.RoomID
		playerID model.PlayerID
		found    bool
	)
	r.each(func(room *model.Room) {
		if found {
			return
		}
		if m := room.MemberByConnection(conn); m != nil {
			roomID, playerID, found = room.ID, m.ID, true
		}
	})
	return roomID, playerID, found
}

// Stats counts rooms, playing rooms and seated players
func (r *Registry) Stats() Stats {
	var stats Stats
	r.each(func(room *model.Room) {
		stats.Rooms++
		if room.IsPlaying {
			stats.PlayingRooms++
		}
		stats.Players += room.MemberCount()
	})
	return stats
}

// lock returns the entry for id with its mutex held
func (r *Registry) lock(id model.RoomID) (*entry, error) {
	r.mu.RLock()
	e, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return nil, model.ErrRoomNotFound
	}

	e.mu.Lock()
	if e.deleted {
		e.mu.Unlock()
		return nil, model.ErrRoomNotFound
	}
	return e, nil
}

// each calls fn for every live room with that room's lock held
func (r *Registry) each(fn func(room *model.Room)) {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.rooms))
	for _, e := range r.rooms {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted {
			fn(e.room)
		}
		e.mu.Unlock()
	}
}

// RegistryInterface for dependency injection
type RegistryInterface interface {
	NewID() model.RoomID
	Create(params CreateParams) (model.RoomDetail, error)
	Join(id model.RoomID, player model.Player, conn model.ConnectionID, password string) (model.RoomDetail, error)
	Leave(id model.RoomID, playerID model.PlayerID) (LeaveResult, error)
	ToggleReady(id model.RoomID, playerID model.PlayerID) (ReadyResult, error)
	Start(id model.RoomID, playerID model.PlayerID) (StartResult, error)
	End(id model.RoomID) (model.RoomDetail, error)
	Detail(id model.RoomID) (model.RoomDetail, error)
	Member(id model.RoomID, playerID model.PlayerID) (model.RoomMember, error)
	List() []model.RoomSummary
	FindByConnection(conn model.ConnectionID) (model.RoomID, model.PlayerID, bool)
	Stats() Stats
}

var _ RegistryInterface = (*Registry)(nil)
