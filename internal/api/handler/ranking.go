package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mcoot/blockbattle/internal/api/middleware"
	"github.com/mcoot/blockbattle/internal/api/request"
	"github.com/mcoot/blockbattle/internal/api/response"
	"github.com/mcoot/blockbattle/internal/services/ranking"
)

// RankingHandler handles leaderboard endpoints
type RankingHandler struct {
	rankings ranking.ServiceInterface
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(rankings ranking.ServiceInterface) *RankingHandler {
	return &RankingHandler{
		rankings: rankings,
	}
}

// Top handles GET /api/v1/rankings/top?limit=
func (h *RankingHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	rankings, err := h.rankings.Top(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(rankings))
}

// Me handles GET /api/v1/rankings/me
func (h *RankingHandler) Me(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	rank, err := h.rankings.ForPlayer(r.Context(), player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RankingFromModel(rank))
}

// Submit handles POST /api/v1/rankings
func (h *RankingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.SubmitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Score == nil {
		WriteError(w, NewInvalidRequestError("score is required"))
		return
	}

	rank, err := h.rankings.Submit(r.Context(), *player, *req.Score)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RankingFromModel(rank))
}
