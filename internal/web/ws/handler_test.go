package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/blockbattle/internal/dependencies/clock"
	"github.com/mcoot/blockbattle/internal/dependencies/random"
	"github.com/mcoot/blockbattle/internal/gateway"
	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/services/auth"
	"github.com/mcoot/blockbattle/internal/services/game"
	"github.com/mcoot/blockbattle/internal/services/room"
	"github.com/mcoot/blockbattle/internal/storage/memory"
	"github.com/mcoot/blockbattle/internal/testutil"
)

type gatewayReply struct {
	Success bool                `json:"success"`
	Error   *gateway.ReplyError `json:"error"`
	Data    json.RawMessage     `json:"data"`
}

type frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data"`
}

type HandlerSuite struct {
	suite.Suite
	auth    *auth.Service
	rooms   *room.Registry
	hub     *Hub
	handler *Handler
	server  *httptest.Server
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := testutil.NopLogger()
	clk := clock.New()
	rnd := random.New()

	s.auth = auth.New(memory.New(), clk, rnd, logger, auth.Config{PasswordCost: bcrypt.MinCost})
	s.rooms = room.NewRegistry(clk, rnd, logger, room.Config{PasswordCost: bcrypt.MinCost})
	games := game.NewRegistry(clk, logger)
	s.hub = NewHub(logger)
	gw := gateway.New(s.rooms, games, s.hub, nil, clk, logger)
	s.handler = NewHandler(s.hub, gw, s.auth, rnd, logger, DefaultConfig())
	s.server = httptest.NewServer(s.handler)
}

func (s *HandlerSuite) TearDownTest() {
	s.hub.Close()
	s.server.Close()
}

func (s *HandlerSuite) wsURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func (s *HandlerSuite) guestToken(nickname string) (string, model.PlayerID) {
	sess, err := s.auth.CreateGuestPlayer(context.Background(), nickname)
	s.Require().NoError(err)
	return sess.Token, sess.PlayerID
}

// connect dials as a fresh guest and consumes the connected frame
func (s *HandlerSuite) connect(nickname string) (*websocket.Conn, model.PlayerID) {
	token, playerID := s.guestToken(nickname)
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL()+"?token="+token, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })

	f := s.next(conn)
	s.Require().Equal(FrameConnected, f.Type)
	var payload ConnectedPayload
	s.Require().NoError(json.Unmarshal(f.Data, &payload))
	s.Equal(playerID, payload.PlayerID)
	s.NotEmpty(payload.ConnectionID)
	return conn, playerID
}

func (s *HandlerSuite) next(conn *websocket.Conn) frame {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	s.Require().NoError(err)
	var f frame
	s.Require().NoError(json.Unmarshal(data, &f))
	return f
}

// await reads frames until one of the given type arrives
func (s *HandlerSuite) await(conn *websocket.Conn, frameType string) frame {
	for {
		f := s.next(conn)
		if f.Type == frameType {
			return f
		}
	}
}

func (s *HandlerSuite) request(conn *websocket.Conn, intent gateway.Intent, requestID string, data any) gatewayReply {
	payload, err := json.Marshal(data)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(Inbound{Type: string(intent), RequestID: requestID, Data: payload}))

	for {
		f := s.await(conn, FrameAck)
		if f.RequestID != requestID {
			continue
		}
		var reply gatewayReply
		s.Require().NoError(json.Unmarshal(f.Data, &reply))
		return reply
	}
}

func (s *HandlerSuite) createRoom(conn *websocket.Conn) model.RoomID {
	reply := s.request(conn, gateway.IntentCreateRoom, "create", gateway.CreateRoomRequest{Title: "Room", MaxPlayers: 4})
	s.Require().True(reply.Success)
	var detail model.RoomDetail
	s.Require().NoError(json.Unmarshal(reply.Data, &detail))
	return detail.ID
}

func (s *HandlerSuite) TestRejectsMissingToken() {
	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), nil)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestRejectsInvalidToken() {
	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL()+"?token=sess_bogus", nil)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestAcceptsBearerHeader() {
	token, _ := s.guestToken("Alice")
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL(), header)
	s.Require().NoError(err)
	defer conn.Close()

	s.Equal(FrameConnected, s.next(conn).Type)
}

func (s *HandlerSuite) TestCreateRoomAck() {
	conn, _ := s.connect("Alice")

	roomID := s.createRoom(conn)

	s.NotEmpty(roomID)
	s.Equal(1, s.hub.RoomSize(roomID))
}

func (s *HandlerSuite) TestJoinBroadcastsToRoom() {
	alice, _ := s.connect("Alice")
	bob, bobID := s.connect("Bob")
	roomID := s.createRoom(alice)

	reply := s.request(bob, gateway.IntentJoinRoom, "join", gateway.JoinRoomRequest{RoomID: roomID})
	s.Require().True(reply.Success)

	f := s.await(alice, string(model.EventPlayerJoined))
	var payload model.PlayerJoinedPayload
	s.Require().NoError(json.Unmarshal(f.Data, &payload))
	s.Equal(bobID, payload.Player.ID)
	s.Len(payload.Room.Players, 2)
}

func (s *HandlerSuite) TestFailureReplyCarriesCode() {
	conn, _ := s.connect("Alice")

	reply := s.request(conn, gateway.IntentJoinRoom, "join", gateway.JoinRoomRequest{RoomID: "missing"})

	s.False(reply.Success)
	s.Require().NotNil(reply.Error)
	s.Equal(model.CodeRoomNotFound, reply.Error.Code)
}

func (s *HandlerSuite) TestMalformedFrame() {
	conn, _ := s.connect("Alice")

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	f := s.await(conn, FrameAck)
	var reply gatewayReply
	s.Require().NoError(json.Unmarshal(f.Data, &reply))
	s.False(reply.Success)
	s.Require().NotNil(reply.Error)
	s.Equal(model.CodeInvalidRequest, reply.Error.Code)
}

func (s *HandlerSuite) TestDisconnectRunsLeaveCascade() {
	alice, _ := s.connect("Alice")
	bob, bobID := s.connect("Bob")
	roomID := s.createRoom(alice)
	s.Require().True(s.request(bob, gateway.IntentJoinRoom, "join", gateway.JoinRoomRequest{RoomID: roomID}).Success)

	s.Require().NoError(bob.Close())

	f := s.await(alice, string(model.EventPlayerLeft))
	var payload model.PlayerLeftPayload
	s.Require().NoError(json.Unmarshal(f.Data, &payload))
	s.Equal(bobID, payload.PlayerID)

	detail, err := s.rooms.Detail(roomID)
	s.Require().NoError(err)
	s.Len(detail.Players, 1)
}

func (s *HandlerSuite) TestSoleMemberDisconnectDeletesRoom() {
	alice, _ := s.connect("Alice")
	roomID := s.createRoom(alice)

	s.Require().NoError(alice.Close())

	s.Eventually(func() bool {
		_, err := s.rooms.Detail(roomID)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *HandlerSuite) TestRejectsDisallowedOrigin() {
	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"http://good.example"}
	logger := testutil.NopLogger()
	clk := clock.New()
	rnd := random.New()
	rooms := room.NewRegistry(clk, rnd, logger, room.DefaultConfig())
	gw := gateway.New(rooms, game.NewRegistry(clk, logger), s.hub, nil, clk, logger)
	server := httptest.NewServer(NewHandler(s.hub, gw, s.auth, rnd, logger, cfg))
	defer server.Close()

	token, _ := s.guestToken("Alice")
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=" + token

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://good.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	s.Require().NoError(err)
	_ = conn.Close()
}
