package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/services/auth"
	"github.com/mcoot/blockbattle/internal/services/ranking"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes outside the room taxonomy
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeRankingNotFound    = "RANKING_NOT_FOUND"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternalError      = "INTERNAL_ERROR"
)

// roomStatus maps room error codes to HTTP statuses
var roomStatus = map[model.ErrorCode]int{
	model.CodeRoomNotFound:       http.StatusNotFound,
	model.CodeAlreadyInGame:      http.StatusConflict,
	model.CodeRoomIsFull:         http.StatusConflict,
	model.CodeInvalidPassword:    http.StatusUnauthorized,
	model.CodeNotHost:            http.StatusForbidden,
	model.CodeNotAllPlayersReady: http.StatusBadRequest,
	model.CodeNotInRoom:          http.StatusNotFound,
	model.CodeAlreadyInRoom:      http.StatusConflict,
	model.CodeInvalidRequest:     http.StatusBadRequest,
	model.CodeInternalError:      http.StatusInternalServerError,
}

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	if re, ok := model.AsRoomError(err); ok {
		status, known := roomStatus[re.Code]
		if !known || re.Code == model.CodeInternalError {
			return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
		}
		return &httpError{status, APIError{string(re.Code), re.Message}}
	}

	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrRankingNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRankingNotFound, "No ranking recorded yet"}}
	case errors.Is(err, ranking.ErrInvalidScore):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Score must not be negative"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrInvalidNickname):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, auth.ErrInvalidNickname.Error()}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
