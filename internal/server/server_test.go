package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ctchen222/tictactoe/internal/controller"
	"github.com/ctchen222/tictactoe/internal/game"
	"github.com/ctchen222/tictactoe/internal/hub"
	"github.com/ctchen222/tictactoe/pkg/proto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotResponse struct {
	Success bool                `json:"success"`
	Code    int                 `json:"code"`
	Extras  controller.Snapshot `json:"extras"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := hub.NewHub()
	ctrl := controller.New(controller.WithPresenter(h))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, ctrl) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return NewServer(h)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) controller.Snapshot {
	t.Helper()
	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Extras
}

func TestServer_Static(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			cell := `data-row="` + string(rune('0'+row)) + `" data-col="` + string(rune('0'+col)) + `"`
			assert.Contains(t, body, cell)
		}
	}
	assert.Contains(t, body, "Reset Game")
}

func TestServer_Moves(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decodeSnapshot(t, w)
	assert.Equal(t, game.Board{}, snap.Board)
	assert.Equal(t, game.PlayerX, snap.Next)

	w = do(t, s, http.MethodPost, "/api/moves", `{"row":1,"col":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	snap = decodeSnapshot(t, w)
	assert.Equal(t, game.PlayerX, snap.Board[1][1])
	assert.Equal(t, game.PlayerO, snap.Next)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"Occupied cell", `{"row":1,"col":1}`, http.StatusConflict},
		{"Out of range", `{"row":5,"col":0}`, http.StatusConflict},
		{"Negative", `{"row":-1,"col":0}`, http.StatusConflict},
		{"Missing column", `{"row":0}`, http.StatusBadRequest},
		{"Wrong type", `{"row":"a","col":0}`, http.StatusBadRequest},
		{"Not JSON", `row=0`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/moves", tt.body)
			assert.Equal(t, tt.want, w.Code)
			var resp errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
		})
	}

	// Rejected moves changed nothing.
	snap = decodeSnapshot(t, do(t, s, http.MethodGet, "/api/state", ""))
	assert.Equal(t, game.Board{{}, {"", game.PlayerX, ""}, {}}, snap.Board)
	assert.Equal(t, game.PlayerO, snap.Next)

	w = do(t, s, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, game.Board{}, decodeSnapshot(t, w).Board)
}

type errorBody struct {
	Success bool `json:"success"`
	Code    int  `json:"code"`
}

func TestServer_ModeAndDifficulty(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/moves", `{"row":0,"col":0}`).Code)

	w := do(t, s, http.MethodPut, "/api/difficulty", `{"difficulty":"hard"}`)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decodeSnapshot(t, w)
	assert.EqualValues(t, "hard", snap.Difficulty)
	assert.Equal(t, game.PlayerX, snap.Board[0][0])

	w = do(t, s, http.MethodPut, "/api/mode", `{"mode":"vs_computer"}`)
	require.Equal(t, http.StatusOK, w.Code)
	snap = decodeSnapshot(t, w)
	assert.Equal(t, controller.ModeVsComputer, snap.Mode)
	assert.Equal(t, game.Board{}, snap.Board)

	// The computer answers before the request returns.
	w = do(t, s, http.MethodPost, "/api/moves", `{"row":1,"col":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	x, o := decodeSnapshot(t, w).Board.Counts()
	assert.Equal(t, 1, x)
	assert.Equal(t, 1, o)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/mode", `{"mode":"online"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/mode", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/difficulty", `{"difficulty":"impossible"}`).Code)
}

func TestServer_WebSocket(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Engine())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() proto.ServerMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg proto.ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	msg := read()
	require.Equal(t, proto.TypeState, msg.Type)
	assert.Equal(t, game.Board{}, msg.State.Board)

	require.NoError(t, conn.WriteJSON(proto.ClientMessage{Type: proto.TypeMove, Position: []int{2, 0}}))
	msg = read()
	require.Equal(t, proto.TypeState, msg.Type)
	assert.Equal(t, game.PlayerX, msg.State.Board[2][0])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, bytes.Repeat([]byte("x"), 10)))
	msg = read()
	assert.Equal(t, proto.TypeError, msg.Type)

	// A REST move is broadcast to the websocket viewer.
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/moves", `{"row":0,"col":0}`).Code)
	msg = read()
	assert.Equal(t, game.PlayerO, msg.State.Board[0][0])
}
