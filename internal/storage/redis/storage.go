package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/storage"
)

// Hash fields of the ranking metadata
const (
	fieldNickname  = "nickname"
	fieldUpdatedAt = "updated_at"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Apply TTL only for guest players
	var ttl time.Duration
	if player.IsGuest {
		ttl = s.cfg.GuestPlayerTTL
	}
	return s.client.Set(ctx, playerKey(player.ID), data, ttl).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, playerKey(id)).Err()
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	data, err := json.Marshal(rp)
	if err != nil {
		return err
	}

	// Save and index update in one round trip
	pipe := s.client.Pipeline()
	pipe.Set(ctx, registeredPlayerKey(rp.PlayerID), data, 0)
	pipe.Set(ctx, usernameIndexKey(rp.Username), string(rp.PlayerID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	data, err := s.client.Get(ctx, registeredPlayerKey(playerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var rp model.RegisteredPlayer
	if err := json.Unmarshal(data, &rp); err != nil {
		return nil, err
	}
	return &rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	playerIDStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	return s.GetRegisteredPlayer(ctx, model.PlayerID(playerIDStr))
}

// Ranking operations

func (s *Storage) SaveRanking(ctx context.Context, ranking *model.Ranking) (*model.Ranking, error) {
	// GT only ever raises the stored score; CH makes the reply count updates too
	changed, err := s.client.ZAddArgs(ctx, rankingsKey(), redis.ZAddArgs{
		GT: true,
		Ch: true,
		Members: []redis.Z{{
			Score:  float64(ranking.Score),
			Member: string(ranking.PlayerID),
		}},
	}).Result()
	if err != nil {
		return nil, err
	}

	if changed > 0 {
		err := s.client.HSet(ctx, rankingMetaKey(ranking.PlayerID),
			fieldNickname, ranking.Nickname,
			fieldUpdatedAt, ranking.UpdatedAt.Format(time.RFC3339Nano),
		).Err()
		if err != nil {
			return nil, err
		}
	}

	return s.GetRanking(ctx, ranking.PlayerID)
}

func (s *Storage) GetRanking(ctx context.Context, playerID model.PlayerID) (*model.Ranking, error) {
	pipe := s.client.Pipeline()
	scoreCmd := pipe.ZScore(ctx, rankingsKey(), string(playerID))
	rankCmd := pipe.ZRevRank(ctx, rankingsKey(), string(playerID))
	metaCmd := pipe.HGetAll(ctx, rankingMetaKey(playerID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	score, err := scoreCmd.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRankingNotFound
		}
		return nil, err
	}
	rank, err := rankCmd.Result()
	if err != nil {
		return nil, err
	}

	r := rankingFromMeta(playerID, metaCmd.Val())
	r.Score = int(score)
	r.Position = int(rank) + 1
	return r, nil
}

func (s *Storage) TopRankings(ctx context.Context, limit int) ([]*model.Ranking, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	entries, err := s.client.ZRevRangeWithScores(ctx, rankingsKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []*model.Ranking{}, nil
	}

	// Fetch all metadata in one round trip
	pipe := s.client.Pipeline()
	metaCmds := make([]*redis.MapStringStringCmd, len(entries))
	for i, e := range entries {
		metaCmds[i] = pipe.HGetAll(ctx, rankingMetaKey(model.PlayerID(e.Member.(string))))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	rankings := make([]*model.Ranking, len(entries))
	for i, e := range entries {
		r := rankingFromMeta(model.PlayerID(e.Member.(string)), metaCmds[i].Val())
		r.Score = int(e.Score)
		r.Position = i + 1
		rankings[i] = r
	}
	return rankings, nil
}

func rankingFromMeta(playerID model.PlayerID, meta map[string]string) *model.Ranking {
	r := &model.Ranking{
		PlayerID: playerID,
		Nickname: meta[fieldNickname],
	}
	if ts, ok := meta[fieldUpdatedAt]; ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.UpdatedAt = t
		}
	}
	return r
}
