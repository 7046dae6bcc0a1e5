package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/blockbattle/internal/dependencies/clock"
	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/services/game"
	"github.com/mcoot/blockbattle/internal/services/room"
)

// MaxChatLength is the longest chat message relayed, in runes
const MaxChatLength = 200

// Session is the identity a connection was authenticated as
type Session struct {
	ConnectionID model.ConnectionID
	PlayerID     model.PlayerID
	Nickname     string
}

// Player returns the session's player
func (s Session) Player() model.Player {
	return model.Player{ID: s.PlayerID, Nickname: s.Nickname}
}

// Publisher fans events out to live connections. Implementations must
// not block: a slow connection is the publisher's problem.
type Publisher interface {
	Subscribe(conn model.ConnectionID, roomID model.RoomID)
	Unsubscribe(conn model.ConnectionID, roomID model.RoomID)
	// ToRoom sends to every subscriber of the room except the given
	// connection, which may be empty
	ToRoom(roomID model.RoomID, event model.EventType, payload any, except model.ConnectionID)
	ToAll(event model.EventType, payload any)
}

// Feed receives global events for consumers outside the connection layer
type Feed interface {
	PublishGlobal(event model.EventType, payload any)
}

// Recorder takes finished matches off the hot path
type Recorder interface {
	Submit(result model.GameResult)
}

type nopRecorder struct{}

func (nopRecorder) Submit(model.GameResult) {}

// Gateway turns player intents into registry calls and broadcasts
type Gateway struct {
	rooms     room.RegistryInterface
	games     game.RegistryInterface
	publisher Publisher
	recorder  Recorder
	feeds     []Feed
	clock     clock.Clock
	logger    *slog.Logger
	seq       *sequencer
}

// New creates a Gateway. A nil recorder drops match results.
func New(
	rooms room.RegistryInterface,
	games game.RegistryInterface,
	publisher Publisher,
	recorder Recorder,
	clock clock.Clock,
	logger *slog.Logger,
	feeds ...Feed,
) *Gateway {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Gateway{
		rooms:     rooms,
		games:     games,
		publisher: publisher,
		recorder:  recorder,
		feeds:     feeds,
		clock:     clock,
		logger:    logger.With(slog.String("component", "gateway")),
		seq:       newSequencer(),
	}
}

// CreateRoom creates a room hosted by the caller
func (g *Gateway) CreateRoom(ctx context.Context, sess Session, req CreateRoomRequest) (model.RoomDetail, error) {
	if err := g.ensureNotSeated(sess); err != nil {
		return model.RoomDetail{}, err
	}

	// The room's turn is taken before it exists, so a join racing the
	// create cannot broadcast before the host is subscribed.
	id := g.rooms.NewID()
	unlock := g.seq.lock(id)
	defer unlock()

	detail, err := g.rooms.Create(room.CreateParams{
		ID:         id,
		Title:      req.Title,
		MaxPlayers: req.MaxPlayers,
		Password:   req.Password,
		Host:       sess.Player(),
		Connection: sess.ConnectionID,
	})
	if err != nil {
		return model.RoomDetail{}, err
	}

	g.publisher.Subscribe(sess.ConnectionID, detail.ID)
	g.publishRoomList()
	return detail, nil
}

// JoinRoom seats the caller in an existing room
func (g *Gateway) JoinRoom(ctx context.Context, sess Session, req JoinRoomRequest) (model.RoomDetail, error) {
	if err := g.ensureNotSeated(sess); err != nil {
		return model.RoomDetail{}, err
	}

	unlock := g.seq.lock(req.RoomID)
	defer unlock()

	detail, err := g.rooms.Join(req.RoomID, sess.Player(), sess.ConnectionID, req.Password)
	if err != nil {
		return model.RoomDetail{}, err
	}

	g.publisher.Subscribe(sess.ConnectionID, req.RoomID)

	player := model.RoomPlayer{ID: sess.PlayerID, Nickname: sess.Nickname}
	for _, p := range detail.Players {
		if p.ID == sess.PlayerID {
			player = p
		}
	}
	g.publisher.ToRoom(req.RoomID, model.EventPlayerJoined, model.PlayerJoinedPayload{
		Player: player,
		Room:   detail,
	}, sess.ConnectionID)
	g.publishRoomList()
	return detail, nil
}

// LeaveRoom removes the caller from a room
func (g *Gateway) LeaveRoom(ctx context.Context, sess Session, req RoomRequest) (LeaveReply, error) {
	unlock := g.seq.lock(req.RoomID)
	defer unlock()

	return g.leave(req.RoomID, sess.PlayerID)
}

// Disconnect applies the leave cascade for a dropped connection
func (g *Gateway) Disconnect(ctx context.Context, sess Session) {
	roomID, playerID, ok := g.rooms.FindByConnection(sess.ConnectionID)
	if !ok {
		return
	}

	unlock := g.seq.lock(roomID)
	defer unlock()

	// The member may have left while we waited for the room
	member, err := g.rooms.Member(roomID, playerID)
	if err != nil || member.ConnectionID != sess.ConnectionID {
		return
	}

	if _, err := g.leave(roomID, playerID); err != nil {
		g.logger.Warn("disconnect cleanup failed",
			slog.String("connection_id", string(sess.ConnectionID)),
			slog.String("room_id", string(roomID)),
			slog.Any("error", err),
		)
		return
	}
	g.logger.Info("disconnected player removed",
		slog.String("connection_id", string(sess.ConnectionID)),
		slog.String("room_id", string(roomID)),
		slog.String("player_id", string(playerID)),
	)
}

// leave runs the shared leave cascade. Callers must hold the room's turn.
func (g *Gateway) leave(roomID model.RoomID, playerID model.PlayerID) (LeaveReply, error) {
	member, err := g.rooms.Member(roomID, playerID)
	if err != nil {
		return LeaveReply{}, err
	}

	// A leaver mid-match is eliminated first so ranks stay a permutation
	if rank, _ := g.games.Eliminate(roomID, playerID); rank != model.NoRank {
		g.publisher.ToRoom(roomID, model.EventPlayerGameOver, model.PlayerGameOverPayload{
			PlayerID: playerID,
			Nickname: member.Nickname,
			Rank:     rank,
		}, "")
	}

	result, err := g.rooms.Leave(roomID, playerID)
	if err != nil {
		return LeaveReply{}, err
	}
	g.publisher.Unsubscribe(member.ConnectionID, roomID)

	if result.RoomDeleted {
		g.games.ForceDelete(roomID)
	} else {
		g.publisher.ToRoom(roomID, model.EventPlayerLeft, model.PlayerLeftPayload{
			PlayerID:  result.PlayerID,
			Nickname:  result.Nickname,
			NewHostID: result.NewHostID,
			Room:      *result.Room,
		}, "")
		if result.WasPlaying && g.games.ShouldEnd(roomID) {
			g.endMatch(roomID)
		}
	}

	g.publishRoomList()
	return LeaveReply{
		RoomDeleted: result.RoomDeleted,
		NewHostID:   result.NewHostID,
	}, nil
}

// ToggleReady flips the caller's ready flag
func (g *Gateway) ToggleReady(ctx context.Context, sess Session, req RoomRequest) (ReadyReply, error) {
	unlock := g.seq.lock(req.RoomID)
	defer unlock()

	result, err := g.rooms.ToggleReady(req.RoomID, sess.PlayerID)
	if err != nil {
		return ReadyReply{}, err
	}

	if result.Changed {
		g.publisher.ToRoom(req.RoomID, model.EventReadyStateChanged, model.ReadyStateChangedPayload{
			PlayerID: sess.PlayerID,
			IsReady:  result.IsReady,
			Room:     result.Room,
		}, "")
	}
	return ReadyReply{IsReady: result.IsReady, Changed: result.Changed}, nil
}

// StartGame starts the match. Only the host may do this.
func (g *Gateway) StartGame(ctx context.Context, sess Session, req RoomRequest) (model.RoomDetail, error) {
	unlock := g.seq.lock(req.RoomID)
	defer unlock()

	result, err := g.rooms.Start(req.RoomID, sess.PlayerID)
	if err != nil {
		return model.RoomDetail{}, err
	}
	g.games.Start(req.RoomID, result.Players)

	g.publisher.ToRoom(req.RoomID, model.EventGameStarted, model.GameStartedPayload{
		Room: result.Room,
	}, "")
	g.publishRoomList()
	return result.Room, nil
}

// UpdateGameState relays the caller's progress to their opponents.
// Reports from eliminated players are dropped without error.
func (g *Gateway) UpdateGameState(ctx context.Context, sess Session, req UpdateGameStateRequest) (UpdateReply, error) {
	unlock := g.seq.lock(req.RoomID)
	defer unlock()

	if _, err := g.rooms.Member(req.RoomID, sess.PlayerID); err != nil {
		return UpdateReply{}, err
	}

	state, ok := g.games.UpdatePlayer(req.RoomID, sess.PlayerID, model.Progress{
		Score:        req.Score,
		Level:        req.Level,
		LinesCleared: req.LinesCleared,
		Board:        req.Board,
	})
	if !ok {
		return UpdateReply{Updated: false}, nil
	}

	g.publisher.ToRoom(req.RoomID, model.EventGameStateUpdated, model.GameStateUpdatedPayload{
		PlayerID:     state.ID,
		Nickname:     state.Nickname,
		Score:        state.Score,
		Level:        state.Level,
		LinesCleared: state.LinesCleared,
		Board:        state.Board,
	}, sess.ConnectionID)
	return UpdateReply{Updated: true}, nil
}

// Attack sends garbage lines to every alive opponent
func (g *Gateway) Attack(ctx context.Context, sess Session, req AttackRequest) (AttackReply, error) {
	if req.LinesCleared < 0 {
		return AttackReply{}, model.NewRoomError(model.CodeInvalidRequest, "linesCleared must not be negative")
	}

	unlock := g.seq.lock(req.RoomID)
	defer unlock()

	if _, err := g.rooms.Member(req.RoomID, sess.PlayerID); err != nil {
		return AttackReply{}, err
	}

	result, ok := g.games.Attack(req.RoomID, sess.PlayerID, req.LinesCleared)
	if !ok {
		return AttackReply{Targets: []model.PlayerID{}}, nil
	}

	for _, target := range result.Targets {
		g.publisher.ToRoom(req.RoomID, model.EventAttacked, model.AttackedPayload{
			TargetID:         target,
			AttackerID:       result.Attacker.ID,
			AttackerNickname: result.Attacker.Nickname,
			AttackLines:      result.AttackLines,
		}, "")
	}

	targets := result.Targets
	if targets == nil {
		targets = []model.PlayerID{}
	}
	return AttackReply{AttackLines: result.AttackLines, Targets: targets}, nil
}

// GameOver eliminates the caller, ending the match if one player is left.
// It also serves forfeits.
func (g *Gateway) GameOver(ctx context.Context, sess Session, req RoomRequest) (GameOverReply, error) {
	unlock := g.seq.lock(req.RoomID)
	defer unlock()

	if _, err := g.rooms.Member(req.RoomID, sess.PlayerID); err != nil {
		return GameOverReply{}, err
	}

	rank, shouldEnd := g.games.Eliminate(req.RoomID, sess.PlayerID)
	if rank == model.NoRank {
		return GameOverReply{Rank: model.NoRank}, nil
	}

	g.publisher.ToRoom(req.RoomID, model.EventPlayerGameOver, model.PlayerGameOverPayload{
		PlayerID: sess.PlayerID,
		Nickname: sess.Nickname,
		Rank:     rank,
	}, "")

	if shouldEnd {
		g.endMatch(req.RoomID)
		g.publishRoomList()
	}
	return GameOverReply{Rank: rank, GameEnded: shouldEnd}, nil
}

// SendChatMessage relays a chat line to the caller's room
func (g *Gateway) SendChatMessage(ctx context.Context, sess Session, req ChatRequest) error {
	message := strings.TrimSpace(req.Message)
	if message == "" || utf8.RuneCountInString(message) > MaxChatLength {
		return model.NewRoomError(model.CodeInvalidRequest,
			fmt.Sprintf("message must be 1-%d characters", MaxChatLength))
	}

	unlock := g.seq.lock(req.RoomID)
	defer unlock()

	if _, err := g.rooms.Member(req.RoomID, sess.PlayerID); err != nil {
		return err
	}

	g.publisher.ToRoom(req.RoomID, model.EventChatMessage, model.ChatMessagePayload{
		PlayerID:  sess.PlayerID,
		Nickname:  sess.Nickname,
		Message:   message,
		Timestamp: g.clock.Now(),
	}, "")
	return nil
}

// RoomList returns the rooms open for joining
func (g *Gateway) RoomList() []model.RoomSummary {
	return g.rooms.List()
}

// RoomDetail returns one room's detail projection
func (g *Gateway) RoomDetail(roomID model.RoomID) (model.RoomDetail, error) {
	return g.rooms.Detail(roomID)
}

// endMatch finishes a match, resets its room and hands the result to the
// recorder. Callers must hold the room's turn.
func (g *Gateway) endMatch(roomID model.RoomID) {
	result, ok := g.games.Finish(roomID)
	if !ok {
		return
	}
	if _, err := g.rooms.End(roomID); err != nil && !errors.Is(err, model.ErrRoomNotFound) {
		g.logger.Error("failed to reset room after match",
			slog.String("room_id", string(roomID)),
			slog.Any("error", err),
		)
	}
	g.games.Delete(roomID)

	g.publisher.ToRoom(roomID, model.EventGameEnded, model.GameEndedPayload{
		FinalRanking: result.Ranking,
	}, "")
	g.recorder.Submit(result)
}

func (g *Gateway) publishRoomList() {
	payload := model.NewRoomListUpdated(g.rooms.List())
	g.publisher.ToAll(model.EventRoomListUpdated, payload)
	for _, f := range g.feeds {
		f.PublishGlobal(model.EventRoomListUpdated, payload)
	}
}

// ensureNotSeated rejects a connection that already sits in a room
func (g *Gateway) ensureNotSeated(sess Session) error {
	if _, _, seated := g.rooms.FindByConnection(sess.ConnectionID); seated {
		return model.ErrAlreadyInRoom
	}
	return nil
}
