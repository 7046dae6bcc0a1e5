package storage

import (
	"context"

	"github.com/mcoot/blockbattle/internal/model"
)

// Storage defines the interface for data persistence.
// Live rooms and matches are never persisted; they live in the registries.
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error)
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Ranking operations

	// SaveRanking records a score, keeping the player's best. It returns
	// the stored ranking, with Position filled in.
	SaveRanking(ctx context.Context, ranking *model.Ranking) (*model.Ranking, error)
	GetRanking(ctx context.Context, playerID model.PlayerID) (*model.Ranking, error)
	// TopRankings returns up to limit rankings, best score first
	TopRankings(ctx context.Context, limit int) ([]*model.Ranking, error)
}
