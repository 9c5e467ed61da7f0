package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/fourinarow/internal/api"
	"github.com/mcoot/fourinarow/internal/api/apierr"
	"github.com/mcoot/fourinarow/internal/api/handler"
	"github.com/mcoot/fourinarow/internal/api/response"
	"github.com/mcoot/fourinarow/internal/factory"
	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/protocol"
	"github.com/mcoot/fourinarow/internal/testutil"
)

// testServer wraps the router of an in-memory test app
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	return &testServer{
		handler: app.Router(),
		app:     app,
	}
}

func (ts *testServer) request(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// archive stores a finished game between alice and bob, ending at the given minute
func (ts *testServer) archive(t *testing.T, id string, winner model.PlayerID, minute int) {
	t.Helper()

	start := time.Date(2024, 1, 1, 12, minute, 0, 0, time.UTC)
	board := model.NewBoard()
	board.Cells[5][0] = model.SideA
	board.Cells[5][1] = model.SideB
	rec := &model.GameRecord{
		ID:      model.SessionID(id),
		PlayerA: model.RecordPlayer{ID: "alice"},
		PlayerB: model.RecordPlayer{ID: "bob"},
		Board:   board,
		Moves: []model.Move{
			{Player: "alice", Side: model.SideA, Column: 0, Row: 5, Timestamp: start},
			{Player: "bob", Side: model.SideB, Column: 1, Row: 5, Timestamp: start.Add(time.Second)},
		},
		Winner:    winner,
		EndReason: model.EndReasonForfeit,
		StartedAt: start,
		EndedAt:   start.Add(30 * time.Second),
		Duration:  30 * time.Second,
	}
	if winner == "" {
		rec.EndReason = model.EndReasonDraw
	}
	require.NoError(t, ts.app.Archive.Archive(context.Background(), rec))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.APIError {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp response.Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Zero(t, resp.ActiveSessions)
	assert.Zero(t, resp.QueueSize)
	assert.Zero(t, resp.OpenRooms)
}

func TestHealthCheckNilSources(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{Logger: testutil.NopLogger()})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetGame(t *testing.T) {
	ts := newTestServer(t)
	ts.archive(t, "game-1", "alice", 0)

	rr := ts.request(http.MethodGet, "/api/v1/games/game-1")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.GameRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "game-1", resp.ID)
	require.NotNil(t, resp.Winner)
	assert.Equal(t, "alice", *resp.Winner)
	assert.Equal(t, "forfeit", resp.EndReason)
	assert.Len(t, resp.Moves, 2)
	assert.Equal(t, int64(30000), resp.DurationMS)
	require.Len(t, resp.Players, 2)
	assert.Equal(t, "A", resp.Players[0].Side)

	// bottom row, first two columns
	assert.Equal(t, "A", resp.Board.Cells[5][0])
	assert.Equal(t, "B", resp.Board.Cells[5][1])
	assert.Equal(t, "", resp.Board.Cells[0][0])
}

func TestGetGameDrawHasNullWinner(t *testing.T) {
	ts := newTestServer(t)
	ts.archive(t, "game-1", "", 0)

	rr := ts.request(http.MethodGet, "/api/v1/games/game-1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"winner":null`)
}

func TestGetGameNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/games/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeGameNotFound, decodeError(t, rr).Code)
}

func TestPlayerStats(t *testing.T) {
	ts := newTestServer(t)
	ts.archive(t, "game-1", "alice", 0)
	ts.archive(t, "game-2", "", 1)

	rr := ts.request(http.MethodGet, "/api/v1/players/bob/stats")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.PlayerStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "bob", resp.Player)
	assert.Equal(t, 2, resp.GamesPlayed)
	assert.Equal(t, 1, resp.GamesLost)
	assert.Equal(t, 1, resp.GamesDrawn)
	assert.Equal(t, 0, resp.GamesWon)
	assert.Equal(t, 2, resp.TotalMoves)
	assert.Equal(t, int64(30000), resp.AverageGameDurationMS)
}

func TestPlayerStatsNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/nobody/stats")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodePlayerNotFound, decodeError(t, rr).Code)
}

func TestPlayerNameTooLong(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/"+strings.Repeat("x", model.MaxPlayerIDLength+1)+"/stats")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decodeError(t, rr).Code)
}

func TestPlayerGames(t *testing.T) {
	ts := newTestServer(t)
	ts.archive(t, "game-1", "alice", 0)
	ts.archive(t, "game-2", "", 1)
	ts.archive(t, "game-3", "bob", 2)

	rr := ts.request(http.MethodGet, "/api/v1/players/alice/games")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.GameList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Games, 3)
	// most recent first
	assert.Equal(t, "game-3", resp.Games[0].ID)
	assert.Equal(t, response.ResultLoss, resp.Games[0].Result)
	assert.Equal(t, response.ResultDraw, resp.Games[1].Result)
	assert.Equal(t, response.ResultWin, resp.Games[2].Result)
	assert.Equal(t, "bob", resp.Games[2].Opponent)

	rr = ts.request(http.MethodGet, "/api/v1/players/alice/games?limit=1")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Games, 1)
	assert.Equal(t, "game-3", resp.Games[0].ID)
}

func TestPlayerGamesEmpty(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/alice/games")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"games":[]`)
}

func TestPlayerGamesBadLimit(t *testing.T) {
	ts := newTestServer(t)

	for _, limit := range []string{"0", "-3", "ten"} {
		rr := ts.request(http.MethodGet, "/api/v1/players/alice/games?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, rr.Code, limit)
	}
}

func TestRoomQR(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("QRS234")
	code, err := ts.app.Rooms.Create(context.Background(), "host")
	require.NoError(t, err)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/"+string(code)+"/qr.png?size=128")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "\x89PNG"))

	rr = ts.request(http.MethodGet, "/api/v1/rooms/"+string(code)+"/qr.png?size=5")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoomQRNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/NOPE23/qr.png")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeRoomNotFound, decodeError(t, rr).Code)
}

func TestRoomJoinLink(t *testing.T) {
	h := handler.NewRoomHandler(nil, "https://play.example/")
	assert.Equal(t, "https://play.example/play?room=ABC234", h.JoinLink("ABC234"))
}

func TestRoomJoinLinkWithoutPublicURLIsBareCode(t *testing.T) {
	h := handler.NewRoomHandler(nil, "")
	assert.Equal(t, "ABC234", h.JoinLink("ABC234"))
}

type panickingArchive struct{ handler.GameArchive }

func (panickingArchive) GetGame(context.Context, model.SessionID) (*model.GameRecord, error) {
	panic("archive exploded")
}

func TestRecoveryReturnsJSON(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{
		Logger:  testutil.NopLogger(),
		Archive: panickingArchive{},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/games/game-1", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, apierr.CodeInternalError, decodeError(t, rr).Code)
}

func TestWebSocketRoute(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	msg, err := protocol.Encode(protocol.TypeJoinIdentity, protocol.JoinIdentity{Name: "alice"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var reply protocol.Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, protocol.TypeIdentityJoined, reply.Type)
}
