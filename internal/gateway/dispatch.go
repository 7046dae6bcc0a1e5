package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mcoot/blockbattle/internal/model"
)

// Intent names a client request
type Intent string

const (
	IntentCreateRoom      Intent = "createRoom"
	IntentJoinRoom        Intent = "joinRoom"
	IntentLeaveRoom       Intent = "leaveRoom"
	IntentToggleReady     Intent = "toggleReady"
	IntentStartGame       Intent = "startGame"
	IntentUpdateGameState Intent = "updateGameState"
	IntentAttack          Intent = "attack"
	IntentGameOver        Intent = "gameOver"
	IntentForfeit         Intent = "forfeit"
	IntentSendChatMessage Intent = "sendChatMessage"
	IntentGetRoomList     Intent = "getRoomList"
	IntentGetRoomDetail   Intent = "getRoomDetail"
)

// Request payloads

type CreateRoomRequest struct {
	Title      string `json:"title"`
	MaxPlayers int    `json:"maxPlayers"`
	Password   string `json:"password,omitempty"`
}

type JoinRoomRequest struct {
	RoomID   model.RoomID `json:"roomId"`
	Password string       `json:"password,omitempty"`
}

// RoomRequest is the payload of intents that only name a room
type RoomRequest struct {
	RoomID model.RoomID `json:"roomId"`
}

type UpdateGameStateRequest struct {
	RoomID       model.RoomID `json:"roomId"`
	Score        int          `json:"score"`
	Level        int          `json:"level"`
	LinesCleared int          `json:"linesCleared"`
	Board        model.Board  `json:"board,omitempty"`
}

type AttackRequest struct {
	RoomID       model.RoomID `json:"roomId"`
	LinesCleared int          `json:"linesCleared"`
}

type ChatRequest struct {
	RoomID  model.RoomID `json:"roomId"`
	Message string       `json:"message"`
}

// Reply payloads

type LeaveReply struct {
	RoomDeleted bool           `json:"roomDeleted"`
	NewHostID   model.PlayerID `json:"newHostId,omitempty"`
}

type ReadyReply struct {
	IsReady bool `json:"isReady"`
	Changed bool `json:"changed"`
}

type UpdateReply struct {
	Updated bool `json:"updated"`
}

type AttackReply struct {
	AttackLines int              `json:"attackLines"`
	Targets     []model.PlayerID `json:"targets"`
}

type GameOverReply struct {
	Rank      int  `json:"rank"`
	GameEnded bool `json:"gameEnded"`
}

// ReplyError is the failure half of a Reply
type ReplyError struct {
	Code    model.ErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Reply answers one intent, to its sender only
type Reply struct {
	Success bool        `json:"success"`
	Error   *ReplyError `json:"error,omitempty"`
	Data    any         `json:"data,omitempty"`
}

func success(data any) *Reply {
	return &Reply{Success: true, Data: data}
}

// Dispatch decodes an intent's payload and runs it. It never panics:
// a failing intent becomes an INTERNAL_ERROR reply.
func (g *Gateway) Dispatch(ctx context.Context, sess Session, intent Intent, data json.RawMessage) (reply *Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("intent panicked",
				slog.String("intent", string(intent)),
				slog.String("connection_id", string(sess.ConnectionID)),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			reply = g.failure(intent, model.ErrInternal)
		}
	}()

	switch intent {
	case IntentCreateRoom:
		var req CreateRoomRequest
		if err := decode(data, &req); err != nil {
			return g.failure(intent, err)
		}
		return g.respond(intent)(g.CreateRoom(ctx, sess, req))

	case IntentJoinRoom:
		var req JoinRoomRequest
		if err := decode(data, &req); err != nil {
			return g.failure(intent, err)
		}
		if req.RoomID == "" {
			return g.failure(intent, errMissingRoomID)
		}
		return g.respond(intent)(g.JoinRoom(ctx, sess, req))

	case IntentLeaveRoom:
		req, err := decodeRoom(data)
		if err != nil {
			return g.failure(intent, err)
		}
		return g.respond(intent)(g.LeaveRoom(ctx, sess, req))

	case IntentToggleReady:
		req, err := decodeRoom(data)
		if err != nil {
			return g.failure(intent, err)
		}
		return g.respond(intent)(g.ToggleReady(ctx, sess, req))

	case IntentStartGame:
		req, err := decodeRoom(data)
		if err != nil {
			return g.failure(intent, err)
		}
		return g.respond(intent)(g.StartGame(ctx, sess, req))

	case IntentUpdateGameState:
		var req UpdateGameStateRequest
		if err := decode(data, &req); err != nil {
			return g.failure(intent, err)
		}
		if req.RoomID == "" {
			return g.failure(intent, errMissingRoomID)
		}
		return g.respond(intent)(g.UpdateGameState(ctx, sess, req))

	case IntentAttack:
		var req AttackRequest
		if err := decode(data, &req); err != nil {
			return g.failure(intent, err)
		}
		if req.RoomID == "" {
			return g.failure(intent, errMissingRoomID)
		}
		return g.respond(intent)(g.Attack(ctx, sess, req))

	case IntentGameOver, IntentForfeit:
		req, err := decodeRoom(data)
		if err != nil {
			return g.failure(intent, err)
		}
		return g.respond(intent)(g.GameOver(ctx, sess, req))

	case IntentSendChatMessage:
		var req ChatRequest
		if err := decode(data, &req); err != nil {
			return g.failure(intent, err)
		}
		if req.RoomID == "" {
			return g.failure(intent, errMissingRoomID)
		}
		if err := g.SendChatMessage(ctx, sess, req); err != nil {
			return g.failure(intent, err)
		}
		return success(nil)

	case IntentGetRoomList:
		return success(g.RoomList())

	case IntentGetRoomDetail:
		req, err := decodeRoom(data)
		if err != nil {
			return g.failure(intent, err)
		}
		return g.respond(intent)(g.RoomDetail(req.RoomID))

	default:
		return g.failure(intent, model.NewRoomError(model.CodeInvalidRequest,
			fmt.Sprintf("unknown intent %q", intent)))
	}
}

var errMissingRoomID = model.NewRoomError(model.CodeInvalidRequest, "roomId is required")

// respond adapts a (value, error) result into a Reply
func (g *Gateway) respond(intent Intent) func(data any, err error) *Reply {
	return func(data any, err error) *Reply {
		if err != nil {
			return g.failure(intent, err)
		}
		return success(data)
	}
}

// failure converts err into a failure reply. Errors that are not room
// errors are logged and hidden behind INTERNAL_ERROR.
func (g *Gateway) failure(intent Intent, err error) *Reply {
	re, isRoomErr := model.AsRoomError(err)
	if !isRoomErr {
		g.logger.Error("intent failed",
			slog.String("intent", string(intent)),
			slog.Any("error", err),
		)
		re = model.ErrInternal
	}
	return &Reply{
		Success: false,
		Error:   &ReplyError{Code: re.Code, Message: re.Message},
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return model.NewRoomError(model.CodeInvalidRequest, "missing payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return model.NewRoomError(model.CodeInvalidRequest, "invalid payload")
	}
	return nil
}

func decodeRoom(data json.RawMessage) (RoomRequest, error) {
	var req RoomRequest
	if err := decode(data, &req); err != nil {
		return RoomRequest{}, err
	}
	if req.RoomID == "" {
		return RoomRequest{}, errMissingRoomID
	}
	return req, nil
}
