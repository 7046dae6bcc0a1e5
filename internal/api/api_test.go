package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/blockbattle/internal/api/response"
	"github.com/mcoot/blockbattle/internal/factory"
	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/services/auth"
	"github.com/mcoot/blockbattle/internal/services/room"
	"github.com/mcoot/blockbattle/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	authCfg := auth.DefaultConfig()
	authCfg.PasswordCost = bcrypt.MinCost

	// API tests are integration tests - use production factory with real random/clock
	app, err := factory.New(factory.Config{
		Logger:     testutil.NopLogger(),
		AuthConfig: authCfg,
		RoomConfig: room.Config{PasswordCost: bcrypt.MinCost},
	})
	require.NoError(t, err)

	return &testServer{
		handler: app.Handler(nil),
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// openRoom seats a host in a new room, bypassing the websocket
func (ts *testServer) openRoom(t *testing.T, title, password string) model.RoomDetail {
	t.Helper()

	session, err := ts.app.AuthService.CreateGuestPlayer(t.Context(), "Host")
	require.NoError(t, err)

	detail, err := ts.app.Rooms.Create(room.CreateParams{
		Title:      title,
		MaxPlayers: 4,
		Password:   password,
		Host:       session.Player,
		Connection: model.ConnectionID("conn-" + title),
	})
	require.NoError(t, err)
	return detail
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error.Code
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestResponseHeaders(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestCreateGuestPlayer(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{"nickname": "Alice"}
	rr := ts.request(http.MethodPost, "/api/v1/players/guest", body, "")

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp response.AuthResponse
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.Equal(t, "Alice", resp.Player.Nickname)
	assert.True(t, resp.Player.IsGuest)
	assert.NotEmpty(t, resp.SessionToken)
	assert.False(t, resp.ExpiresAt.IsZero())
}

func TestCreateGuestPlayer_InvalidNickname(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"blank", map[string]string{"nickname": "   "}},
		{"too long", map[string]string{"nickname": "abcdefghijklmnopqrstuvwxyz"}},
		{"missing", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/players/guest", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "INVALID_REQUEST", errorCode(t, rr))
		})
	}
}

func TestCreateGuestPlayer_MalformedBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/players/guest", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	// Register
	registerBody := map[string]string{
		"username": "alice",
		"password": "secret123",
		"nickname": "Alice",
	}
	rr := ts.request(http.MethodPost, "/api/v1/players/register", registerBody, "")
	assert.Equal(t, http.StatusCreated, rr.Code)

	var registerResp response.AuthResponse
	err := json.Unmarshal(rr.Body.Bytes(), &registerResp)
	require.NoError(t, err)
	assert.False(t, registerResp.Player.IsGuest)

	// Login
	loginBody := map[string]string{
		"username": "alice",
		"password": "secret123",
	}
	rr = ts.request(http.MethodPost, "/api/v1/players/login", loginBody, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var loginResp response.AuthResponse
	err = json.Unmarshal(rr.Body.Bytes(), &loginResp)
	require.NoError(t, err)
	assert.Equal(t, registerResp.Player.ID, loginResp.Player.ID)
	assert.Equal(t, "Alice", loginResp.Player.Nickname)

	// Duplicate username
	rr = ts.request(http.MethodPost, "/api/v1/players/register", registerBody, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "USERNAME_EXISTS", errorCode(t, rr))

	// Wrong password
	loginBody["password"] = "nope"
	rr = ts.request(http.MethodPost, "/api/v1/players/login", loginBody, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rr))
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)

	token := createGuestPlayer(t, ts, "Bob")

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	var player response.Player
	err := json.Unmarshal(rr.Body.Bytes(), &player)
	require.NoError(t, err)
	assert.Equal(t, "Bob", player.Nickname)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, "sess_bogus")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSessionCookie(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Cookie")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/players/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Dana")

	rr := ts.request(http.MethodPost, "/api/v1/players/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListRooms(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var empty response.RoomList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &empty))
	assert.Empty(t, empty.Rooms)

	public := ts.openRoom(t, "Open", "")
	private := ts.openRoom(t, "Secret", "hunter2")

	rr = ts.request(http.MethodGet, "/api/v1/rooms", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "hunter2")
	assert.NotContains(t, rr.Body.String(), "password")

	var list response.RoomList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Rooms, 2)

	byID := map[model.RoomID]model.RoomSummary{}
	for _, r := range list.Rooms {
		byID[r.ID] = r
	}
	assert.False(t, byID[public.ID].IsPrivate)
	assert.True(t, byID[private.ID].IsPrivate)
	assert.Equal(t, "Host", byID[public.ID].HostNickname)
}

func TestGetRoom(t *testing.T) {
	ts := newTestServer(t)
	created := ts.openRoom(t, "Arena", "")

	rr := ts.request(http.MethodGet, "/api/v1/rooms/"+string(created.ID), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var detail model.RoomDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.Equal(t, created.ID, detail.ID)
	assert.Equal(t, "Arena", detail.Title)
	require.Len(t, detail.Players, 1)
	assert.True(t, detail.Players[0].IsHost)
	assert.False(t, detail.Players[0].IsReady)
}

func TestGetRoom_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "ROOM_NOT_FOUND", errorCode(t, rr))
}

func TestRoomStats(t *testing.T) {
	ts := newTestServer(t)
	ts.openRoom(t, "One", "")
	ts.openRoom(t, "Two", "")

	rr := ts.request(http.MethodGet, "/api/v1/rooms/stats", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var stats response.RoomStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Rooms)
	assert.Equal(t, 0, stats.PlayingRooms)
	assert.Equal(t, 2, stats.ActivePlayers)
}

func TestRankings(t *testing.T) {
	ts := newTestServer(t)

	alice := createGuestPlayer(t, ts, "Alice")
	bob := createGuestPlayer(t, ts, "Bob")

	// No ranking yet
	rr := ts.request(http.MethodGet, "/api/v1/rankings/me", nil, alice)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "RANKING_NOT_FOUND", errorCode(t, rr))

	submitScore(t, ts, alice, 500)
	submitScore(t, ts, bob, 900)

	rr = ts.request(http.MethodGet, "/api/v1/rankings/me", nil, alice)
	require.Equal(t, http.StatusOK, rr.Code)
	var me response.Ranking
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, 500, me.Score)
	assert.Equal(t, 2, me.Position)

	rr = ts.request(http.MethodGet, "/api/v1/rankings/top?limit=1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var top response.Leaderboard
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &top))
	require.Len(t, top.Rankings, 1)
	assert.Equal(t, "Bob", top.Rankings[0].Nickname)
	assert.Equal(t, 1, top.Rankings[0].Position)
}

func TestRankings_InvalidInput(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")

	rr := ts.request(http.MethodPost, "/api/v1/rankings", map[string]any{}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/rankings", map[string]int{"score": -1}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/rankings/top?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/rankings", map[string]int{"score": 10}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebSocketRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/ws", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func createGuestPlayer(t *testing.T, ts *testServer, nickname string) string {
	t.Helper()

	body := map[string]string{"nickname": nickname}
	rr := ts.request(http.MethodPost, "/api/v1/players/guest", body, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp response.AuthResponse
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)

	return resp.SessionToken
}

func submitScore(t *testing.T, ts *testServer, token string, score int) {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/v1/rankings", map[string]int{"score": score}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}
