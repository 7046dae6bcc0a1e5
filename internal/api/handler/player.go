package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mcoot/blockbattle/internal/api/middleware"
	"github.com/mcoot/blockbattle/internal/api/request"
	"github.com/mcoot/blockbattle/internal/api/response"
	"github.com/mcoot/blockbattle/internal/services/auth"
)

// Identity is the part of the auth service the player endpoints use
type Identity interface {
	CreateGuestPlayer(ctx context.Context, nickname string) (*auth.Session, error)
	RegisterPlayer(ctx context.Context, username, password, nickname string) (*auth.Session, error)
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	InvalidateSession(token string)
}

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	authService Identity
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService Identity) *PlayerHandler {
	return &PlayerHandler{
		authService: authService,
	}
}

// CreateGuest handles POST /api/v1/players/guest
func (h *PlayerHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Nickname == "" {
		WriteError(w, NewInvalidRequestError("nickname is required"))
		return
	}

	session, err := h.authService.CreateGuestPlayer(r.Context(), req.Nickname)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.AuthResponseFromSession(session))
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}
	if req.Nickname == "" {
		WriteError(w, NewInvalidRequestError("nickname is required"))
		return
	}

	session, err := h.authService.RegisterPlayer(r.Context(), req.Username, req.Password, req.Nickname)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// Logout handles POST /api/v1/players/logout
func (h *PlayerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := middleware.GetSession(r.Context()); session != nil {
		h.authService.InvalidateSession(session.Token)
	}
	response.NoContent(w)
}
