package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/blockbattle/internal/dependencies/clock"
	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/storage"
)

// Leaderboard limits
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ErrInvalidScore is returned for negative scores
var ErrInvalidScore = errors.New("score must not be negative")

// ServiceInterface is the leaderboard as the API sees it
type ServiceInterface interface {
	Submit(ctx context.Context, player model.Player, score int) (*model.Ranking, error)
	Top(ctx context.Context, limit int) ([]*model.Ranking, error)
	ForPlayer(ctx context.Context, playerID model.PlayerID) (*model.Ranking, error)
}

// Service keeps each player's best score
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)

// New creates a ranking Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "ranking")),
	}
}

// Submit records a score. The player's best score is kept, so a worse
// score leaves the ranking unchanged.
func (s *Service) Submit(ctx context.Context, player model.Player, score int) (*model.Ranking, error) {
	if score < 0 {
		return nil, ErrInvalidScore
	}

	stored, err := s.storage.SaveRanking(ctx, &model.Ranking{
		PlayerID:  player.ID,
		Nickname:  player.Nickname,
		Score:     score,
		UpdatedAt: s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("save ranking: %w", err)
	}

	s.logger.Debug("score submitted",
		slog.String("player_id", string(player.ID)),
		slog.Int("score", score),
		slog.Int("best", stored.Score),
	)
	return stored, nil
}

// Top returns the leaderboard. Non-positive limits mean DefaultLimit and
// large ones are capped at MaxLimit.
func (s *Service) Top(ctx context.Context, limit int) ([]*model.Ranking, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	rankings, err := s.storage.TopRankings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top rankings: %w", err)
	}
	return rankings, nil
}

// ForPlayer returns one player's ranking, or model.ErrRankingNotFound
func (s *Service) ForPlayer(ctx context.Context, playerID model.PlayerID) (*model.Ranking, error) {
	r, err := s.storage.GetRanking(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("get ranking: %w", err)
	}
	return r, nil
}
