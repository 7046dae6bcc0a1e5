package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/blockbattle/internal/api/middleware"
	"github.com/mcoot/blockbattle/internal/api/response"
	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/services/room"
	"github.com/mcoot/blockbattle/internal/web/sse"
)

// RoomReader is the read side of the room registry
type RoomReader interface {
	List() []model.RoomSummary
	Detail(id model.RoomID) (model.RoomDetail, error)
	Stats() room.Stats
}

// RoomHandler serves read-only room views. Mutations go through the
// websocket gateway.
type RoomHandler struct {
	rooms    RoomReader
	lobbyHub *sse.Hub
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms RoomReader, lobbyHub *sse.Hub) *RoomHandler {
	return &RoomHandler{
		rooms:    rooms,
		lobbyHub: lobbyHub,
	}
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.RoomList{Rooms: h.rooms.List()})
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.RoomID(mux.Vars(r)["id"])

	detail, err := h.rooms.Detail(id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, detail)
}

// Stats handles GET /api/v1/rooms/stats
func (h *RoomHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.rooms.Stats()
	response.JSON(w, http.StatusOK, response.RoomStats{
		Rooms:         stats.Rooms,
		PlayingRooms:  stats.PlayingRooms,
		ActivePlayers: stats.Players,
	})
}

// Events handles GET /api/v1/rooms/events, the SSE lobby feed
func (h *RoomHandler) Events(w http.ResponseWriter, r *http.Request) {
	var playerID model.PlayerID
	if player := middleware.GetPlayer(r.Context()); player != nil {
		playerID = player.ID
	}
	sse.ServeSSE(w, r, h.lobbyHub, playerID, sse.RoomListSnapshot(h.rooms.List))
}
