package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players           map[model.PlayerID]*model.Player
	registeredPlayers map[model.PlayerID]*model.RegisteredPlayer
	usernameIndex     map[string]model.PlayerID
	rankings          map[model.PlayerID]*model.Ranking
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:           make(map[model.PlayerID]*model.Player),
		registeredPlayers: make(map[model.PlayerID]*model.RegisteredPlayer),
		usernameIndex:     make(map[string]model.PlayerID),
		rankings:          make(map[model.PlayerID]*model.Ranking),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *player
	s.players[player.ID] = &p
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *rp
	s.registeredPlayers[rp.PlayerID] = &r
	s.usernameIndex[rp.Username] = rp.PlayerID
	return nil
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	r := *rp
	return &r, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	playerID, ok := s.usernameIndex[username]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.GetRegisteredPlayer(ctx, playerID)
}

// Ranking operations

func (s *Storage) SaveRanking(ctx context.Context, ranking *model.Ranking) (*model.Ranking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rankings[ranking.PlayerID]
	if !ok || ranking.Score > current.Score {
		r := *ranking
		r.Position = 0
		s.rankings[ranking.PlayerID] = &r
	}
	return s.withPosition(ranking.PlayerID), nil
}

func (s *Storage) GetRanking(ctx context.Context, playerID model.PlayerID) (*model.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.rankings[playerID]; !ok {
		return nil, model.ErrRankingNotFound
	}
	return s.withPosition(playerID), nil
}

func (s *Storage) TopRankings(ctx context.Context, limit int) ([]*model.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := s.sortedRankings()
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// sortedRankings returns copies ordered by score desc, with positions set.
// Callers must hold the lock.
func (s *Storage) sortedRankings() []*model.Ranking {
	out := make([]*model.Ranking, 0, len(s.rankings))
	for _, r := range s.rankings {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	for i, r := range out {
		r.Position = i + 1
	}
	return out
}

// withPosition returns a copy of the player's ranking with its position.
// Callers must hold the lock.
func (s *Storage) withPosition(playerID model.PlayerID) *model.Ranking {
	for _, r := range s.sortedRankings() {
		if r.PlayerID == playerID {
			return r
		}
	}
	return nil
}
