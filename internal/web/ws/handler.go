package ws

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mcoot/blockbattle/internal/api/apierr"
	"github.com/mcoot/blockbattle/internal/api/middleware"
	"github.com/mcoot/blockbattle/internal/dependencies/random"
	"github.com/mcoot/blockbattle/internal/gateway"
	"github.com/mcoot/blockbattle/internal/model"
)

// Handler upgrades authenticated requests to websocket connections
type Handler struct {
	hub        *Hub
	dispatcher Dispatcher
	sessions   middleware.SessionValidator
	random     random.Random
	cfg        Config
	upgrader   websocket.Upgrader
	logger     *slog.Logger

	wg sync.WaitGroup
}

// NewHandler creates a websocket handler
func NewHandler(hub *Hub, dispatcher Dispatcher, sessions middleware.SessionValidator, random random.Random, logger *slog.Logger, cfg Config) *Handler {
	cfg = cfg.withDefaults()
	h := &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		sessions:   sessions,
		random:     random,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "ws-handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP authenticates, upgrades and then serves the connection until
// it drops, at which point the player is removed from their room
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r)
	if token == "" {
		apierr.WriteError(w, apierr.NewUnauthorizedError())
		return
	}
	session, err := h.sessions.ValidateSession(token)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the response
		h.logger.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}

	sess := gateway.Session{
		ConnectionID: model.ConnectionID(h.random.UUID()),
		PlayerID:     session.PlayerID,
		Nickname:     session.Player.Nickname,
	}
	client := newClient(conn, sess, h.cfg, h.logger)

	h.wg.Add(1)
	defer h.wg.Done()

	if msg, err := encodeConnected(sess); err == nil {
		client.enqueue(msg)
	}
	h.hub.Register(client)
	go client.writePump()

	client.readPump(context.Background(), h.dispatcher)

	h.hub.Unregister(client)
	client.closeConn()
	h.dispatcher.Disconnect(context.Background(), sess)
}

// Wait blocks until every served connection has finished its cleanup
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(h.cfg.AllowedOrigins, origin)
}

// tokenFrom looks for the session token in the query string first, since
// browsers cannot set headers on a websocket handshake
func tokenFrom(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return middleware.ExtractToken(r)
}
