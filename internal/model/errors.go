package model

import "errors"

// ErrorCode is the stable machine-readable code carried by a RoomError
type ErrorCode string

const (
	CodeRoomNotFound       ErrorCode = "ROOM_NOT_FOUND"
	CodeAlreadyInGame      ErrorCode = "ALREADY_IN_GAME"
	CodeRoomIsFull         ErrorCode = "ROOM_IS_FULL"
	CodeInvalidPassword    ErrorCode = "INVALID_PASSWORD"
	CodeNotHost            ErrorCode = "NOT_HOST"
	CodeNotAllPlayersReady ErrorCode = "NOT_ALL_PLAYERS_READY"
	CodeNotInRoom          ErrorCode = "NOT_IN_ROOM"
	CodeAlreadyInRoom      ErrorCode = "ALREADY_IN_ROOM"
	CodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

// RoomError is a caller-visible failure of a room or match operation.
// Two RoomErrors match under errors.Is when their codes are equal, so
// callers can compare against the sentinels below even after the
// message has been customised.
type RoomError struct {
	Code    ErrorCode
	Message string
}

func (e *RoomError) Error() string {
	return e.Message
}

// Is reports whether target is a RoomError with the same code
func (e *RoomError) Is(target error) bool {
	var t *RoomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewRoomError creates a RoomError with a custom message
func NewRoomError(code ErrorCode, message string) *RoomError {
	return &RoomError{Code: code, Message: message}
}

// Room and match errors
var (
	ErrRoomNotFound       = NewRoomError(CodeRoomNotFound, "room not found")
	ErrAlreadyInGame      = NewRoomError(CodeAlreadyInGame, "game is already in progress")
	ErrRoomIsFull         = NewRoomError(CodeRoomIsFull, "room is full")
	ErrInvalidPassword    = NewRoomError(CodeInvalidPassword, "invalid room password")
	ErrNotHost            = NewRoomError(CodeNotHost, "only the host can do that")
	ErrNotAllPlayersReady = NewRoomError(CodeNotAllPlayersReady, "not all players are ready")
	ErrNotInRoom          = NewRoomError(CodeNotInRoom, "player is not in this room")
	ErrAlreadyInRoom      = NewRoomError(CodeAlreadyInRoom, "already in a room")
	ErrInvalidRequest     = NewRoomError(CodeInvalidRequest, "invalid request")
	ErrInternal           = NewRoomError(CodeInternalError, "internal error")
)

// Common errors used outside the room core
var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrRankingNotFound = errors.New("ranking not found")
)

// AsRoomError extracts the RoomError from err, if there is one
func AsRoomError(err error) (*RoomError, bool) {
	var re *RoomError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
