package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/blockbattle/internal/api/handler"
	"github.com/mcoot/blockbattle/internal/api/middleware"
	"github.com/mcoot/blockbattle/internal/api/response"
	"github.com/mcoot/blockbattle/internal/services/auth"
	"github.com/mcoot/blockbattle/internal/services/ranking"
	"github.com/mcoot/blockbattle/internal/web/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	Rooms          handler.RoomReader
	RankingService ranking.ServiceInterface
	LobbyHub       *sse.Hub
	// WebSocket serves /ws; nil leaves the route unregistered
	WebSocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	roomHandler := handler.NewRoomHandler(cfg.Rooms, cfg.LobbyHub)
	rankingHandler := handler.NewRankingHandler(cfg.RankingService)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.AuthService)
	commonMiddleware := middleware.Common(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(commonMiddleware...)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)

	// Room routes are public reads; the static paths must precede {id}
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.Use(optionalAuthMiddleware)
	rooms.HandleFunc("", roomHandler.List).Methods(http.MethodGet)
	rooms.HandleFunc("/stats", roomHandler.Stats).Methods(http.MethodGet)
	rooms.HandleFunc("/events", roomHandler.Events).Methods(http.MethodGet)
	rooms.HandleFunc("/{id}", roomHandler.Get).Methods(http.MethodGet)

	// Ranking routes
	api.HandleFunc("/rankings/top", rankingHandler.Top).Methods(http.MethodGet)
	rankings := api.PathPrefix("/rankings").Subrouter()
	rankings.Use(authMiddleware)
	rankings.HandleFunc("", rankingHandler.Submit).Methods(http.MethodPost)
	rankings.HandleFunc("/me", rankingHandler.Me).Methods(http.MethodGet)

	// Websocket transport; it authenticates the handshake itself
	if cfg.WebSocket != nil {
		ws := r.PathPrefix("/ws").Subrouter()
		ws.Use(commonMiddleware...)
		ws.Handle("", cfg.WebSocket).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
