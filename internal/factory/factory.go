package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mcoot/blockbattle/internal/api"
	"github.com/mcoot/blockbattle/internal/config"
	"github.com/mcoot/blockbattle/internal/dependencies/clock"
	"github.com/mcoot/blockbattle/internal/dependencies/random"
	"github.com/mcoot/blockbattle/internal/gateway"
	"github.com/mcoot/blockbattle/internal/messaging"
	"github.com/mcoot/blockbattle/internal/services/auth"
	"github.com/mcoot/blockbattle/internal/services/game"
	"github.com/mcoot/blockbattle/internal/services/ranking"
	"github.com/mcoot/blockbattle/internal/services/room"
	"github.com/mcoot/blockbattle/internal/storage"
	"github.com/mcoot/blockbattle/internal/storage/memory"
	redisstorage "github.com/mcoot/blockbattle/internal/storage/redis"
	"github.com/mcoot/blockbattle/internal/web/sse"
	"github.com/mcoot/blockbattle/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = config.StorageMemory
	StorageTypeRedis  = config.StorageRedis
)

// sessionCleanupInterval is how often expired sessions are purged
const sessionCleanupInterval = 5 * time.Minute

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock     clock.Clock
	Random    random.Random
	Publisher messaging.Publisher

	// Services
	AuthService    *auth.Service
	Rooms          *room.Registry
	Games          *game.Registry
	RankingService *ranking.Service
	RankingWorker  *ranking.Worker
	Gateway        *gateway.Gateway

	// Transports
	WSHub     *ws.Hub
	WebSocket *ws.Handler
	LobbyHub  *sse.Hub

	logger   *slog.Logger
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// NATSConfig enables publishing finished matches (optional)
	NATSConfig *messaging.NATSConfig
	// Component configs; zero values fall back to each component's defaults
	AuthConfig   auth.Config
	RoomConfig   room.Config
	WSConfig     ws.Config
	WorkerConfig ranking.WorkerConfig
}

// ConfigFrom maps the file/env configuration onto factory settings
func ConfigFrom(cfg config.Config, logger *slog.Logger) Config {
	out := Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
		AuthConfig:  auth.Config{SessionDuration: cfg.Auth.SessionDuration},
		RoomConfig:  room.Config{PasswordCost: cfg.Rooms.PasswordCost},
		WSConfig: ws.Config{
			AllowedOrigins: cfg.WS.AllowedOrigins,
			SendBufferSize: cfg.WS.SendBufferSize,
		},
	}
	if cfg.Storage.Type == config.StorageRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Storage.RedisURL
		out.RedisConfig = &redisCfg
	}
	if cfg.NATS.URL != "" {
		natsCfg := messaging.DefaultNATSConfig()
		natsCfg.URL = cfg.NATS.URL
		if cfg.NATS.Subject != "" {
			natsCfg.Subject = cfg.NATS.Subject
		}
		out.NATSConfig = &natsCfg
	}
	return out
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.NATSConfig != nil {
		natsPublisher, err := messaging.NewNATSPublisher(*cfg.NATSConfig, logger)
		if err != nil {
			return nil, err
		}
		publisher = natsPublisher
	}

	return newWithDependencies(store, clock.New(), random.New(), publisher, cfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, publisher messaging.Publisher, cfg Config, logger *slog.Logger) *App {
	roomCfg := cfg.RoomConfig
	if roomCfg.PasswordCost == 0 {
		roomCfg = room.DefaultConfig()
	}

	authService := auth.New(store, clk, rnd, logger, cfg.AuthConfig)
	rooms := room.NewRegistry(clk, rnd, logger, roomCfg)
	games := game.NewRegistry(clk, logger)
	rankingService := ranking.New(store, clk, logger)
	rankingWorker := ranking.NewWorker(rankingService, publisher, logger, cfg.WorkerConfig)

	wsHub := ws.NewHub(logger)
	lobbyHub := sse.NewHub(logger)
	broadcaster := sse.NewBroadcaster(lobbyHub, logger)

	gw := gateway.New(rooms, games, wsHub, rankingWorker, clk, logger, broadcaster)
	wsHandler := ws.NewHandler(wsHub, gw, authService, rnd, logger, cfg.WSConfig)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Publisher:      publisher,
		AuthService:    authService,
		Rooms:          rooms,
		Games:          games,
		RankingService: rankingService,
		RankingWorker:  rankingWorker,
		Gateway:        gw,
		WSHub:          wsHub,
		WebSocket:      wsHandler,
		LobbyHub:       lobbyHub,
		logger:         logger,
	}
}

// Handler returns the HTTP handler serving the REST API, the SSE feed
// and the websocket endpoint
func (a *App) Handler(logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = a.logger
	}
	return api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    a.AuthService,
		Rooms:          a.Rooms,
		RankingService: a.RankingService,
		LobbyHub:       a.LobbyHub,
		WebSocket:      a.WebSocket,
	})
}

// Start launches the background loops: the SSE hub, the ranking worker
// and session cleanup. They run until Stop.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)

	go a.LobbyHub.Run()
	go a.RankingWorker.Run(ctx)
	go a.AuthService.RunCleanup(ctx, sessionCleanupInterval)
}

// Stop disconnects every client, waits for their cleanup, flushes the
// ranking worker and releases external connections
func (a *App) Stop() error {
	var err error
	a.stopOnce.Do(func() {
		a.WSHub.Close()
		a.WebSocket.Wait()
		a.LobbyHub.Close()

		if a.cancel != nil {
			a.cancel()
			<-a.RankingWorker.Done()
		}

		var errs []error
		if perr := a.Publisher.Close(); perr != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", perr))
		}
		if closer, ok := a.Storage.(io.Closer); ok {
			if cerr := closer.Close(); cerr != nil {
				errs = append(errs, fmt.Errorf("close storage: %w", cerr))
			}
		}
		err = errors.Join(errs...)
	})
	return err
}
