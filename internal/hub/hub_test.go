package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ctchen222/tictactoe/internal/controller"
	"github.com/ctchen222/tictactoe/internal/game"
	"github.com/ctchen222/tictactoe/pkg/proto"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type fakeConn struct {
	incoming chan []byte
	outgoing chan proto.ServerMessage
	closed   chan struct{}
	once     sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan []byte),
		outgoing: make(chan proto.ServerMessage, 256),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.incoming:
		return websocket.TextMessage, data, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	if messageType != websocket.TextMessage {
		return nil
	}
	var msg proto.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.outgoing <- msg
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(t *testing.T, msg any) {
	t.Helper()
	data, ok := msg.([]byte)
	if !ok {
		var err error
		data, err = json.Marshal(msg)
		require.NoError(t, err)
	}
	select {
	case c.incoming <- data:
	case <-time.After(waitTimeout):
		t.Fatal("timed out sending message")
	}
}

func (c *fakeConn) next(t *testing.T) proto.ServerMessage {
	t.Helper()
	select {
	case msg := <-c.outgoing:
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a message")
		return proto.ServerMessage{}
	}
}

// nextMatching skips messages until match accepts one.
func (c *fakeConn) nextMatching(t *testing.T, match func(proto.ServerMessage) bool) proto.ServerMessage {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case msg := <-c.outgoing:
			if match(msg) {
				return msg
			}
		case <-deadline:
			t.Fatal("timed out waiting for a matching message")
			return proto.ServerMessage{}
		}
	}
}

func isType(typ string) func(proto.ServerMessage) bool {
	return func(m proto.ServerMessage) bool { return m.Type == typ }
}

func startHub(t *testing.T, hubOpts []Option, ctrlOpts ...controller.Option) *Hub {
	t.Helper()
	h := NewHub(hubOpts...)
	ctrl := controller.New(append(ctrlOpts, controller.WithPresenter(h))...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, ctrl) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func connect(t *testing.T, h *Hub) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	go h.Serve(context.Background(), conn)
	first := conn.next(t)
	require.Equal(t, proto.TypeState, first.Type)
	require.NotNil(t, first.State)
	return conn
}

func move(row, col int) proto.ClientMessage {
	return proto.ClientMessage{Type: proto.TypeMove, Position: []int{row, col}}
}

// playToXWin plays every move of a top-row X win but the last.
func playToXWin(t *testing.T, h *Hub) {
	t.Helper()
	ctx := context.Background()
	for _, m := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		_, err := h.Move(ctx, m[0], m[1])
		require.NoError(t, err)
	}
}

func TestHub_ServeSendsCurrentState(t *testing.T) {
	h := startHub(t, nil)
	_, err := h.Move(context.Background(), 2, 2)
	require.NoError(t, err)

	conn := newFakeConn()
	go h.Serve(context.Background(), conn)

	msg := conn.next(t)
	require.Equal(t, proto.TypeState, msg.Type)
	assert.Equal(t, game.PlayerX, msg.State.Board[2][2])
	assert.Equal(t, game.PlayerO, msg.State.Next)
	assert.Equal(t, controller.StateAwaitingMove, msg.State.State)
}

func TestHub_MoveIsBroadcast(t *testing.T) {
	h := startHub(t, nil)
	sender, watcher := connect(t, h), connect(t, h)

	sender.send(t, move(1, 1))

	for _, conn := range []*fakeConn{sender, watcher} {
		msg := conn.next(t)
		require.Equal(t, proto.TypeState, msg.Type)
		assert.Equal(t, game.PlayerX, msg.State.Board[1][1])
		assert.Equal(t, game.PlayerO, msg.State.Next)
	}

	snap, err := h.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, game.PlayerX, snap.Board[1][1])
}

func TestHub_InvalidInputRepliesToSender(t *testing.T) {
	h := startHub(t, nil)
	sender, watcher := connect(t, h), connect(t, h)

	sender.send(t, move(0, 0))
	sender.next(t)
	watcher.next(t)

	tests := []struct {
		name    string
		message any
	}{
		{"Occupied cell", move(0, 0)},
		{"Out of range", move(3, 0)},
		{"Malformed JSON", []byte("{not json")},
		{"Unknown type", proto.ClientMessage{Type: "fly"}},
		{"Move without position", proto.ClientMessage{Type: proto.TypeMove}},
		{"Unknown mode", proto.ClientMessage{Type: proto.TypeMode, Mode: "online"}},
		{"Unknown difficulty", proto.ClientMessage{Type: proto.TypeDifficulty, Difficulty: "impossible"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender.send(t, tt.message)
			msg := sender.next(t)
			assert.Equal(t, proto.TypeError, msg.Type)
			assert.NotEmpty(t, msg.Message)
		})
	}

	// The board is unchanged and the watcher heard nothing.
	snap, err := h.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, game.Board{{game.PlayerX, "", ""}}, snap.Board)
	select {
	case msg := <-watcher.outgoing:
		t.Fatalf("watcher received %+v", msg)
	default:
	}
}

func TestHub_OutcomeWaitsForAck(t *testing.T) {
	h := startHub(t, nil)
	viewer := connect(t, h)
	playToXWin(t, h)

	type moveResult struct {
		snap controller.Snapshot
		err  error
	}
	finished := make(chan moveResult, 1)
	go func() {
		snap, err := h.Move(context.Background(), 0, 2)
		finished <- moveResult{snap, err}
	}()

	terminal := viewer.nextMatching(t, func(m proto.ServerMessage) bool {
		return m.Type == proto.TypeState && m.State.State == controller.StateTerminal
	})
	assert.Equal(t, game.PlayerX, terminal.State.Board[0][2])

	outcome := viewer.nextMatching(t, isType(proto.TypeOutcome))
	assert.Equal(t, "Player X wins!", outcome.Message)
	assert.Equal(t, game.Outcome{Result: game.Win, Winner: game.PlayerX}, *outcome.Outcome)

	select {
	case <-finished:
		t.Fatal("move returned before the outcome was acknowledged")
	case <-time.After(50 * time.Millisecond):
	}

	viewer.send(t, proto.ClientMessage{Type: proto.TypeAck})

	select {
	case res := <-finished:
		require.NoError(t, res.err)
		assert.Equal(t, game.Board{}, res.snap.Board)
		assert.Equal(t, game.PlayerX, res.snap.Next)
	case <-time.After(waitTimeout):
		t.Fatal("move did not return after the acknowledgment")
	}

	fresh := viewer.nextMatching(t, isType(proto.TypeState))
	assert.Equal(t, game.Board{}, fresh.State.Board)
}

func TestHub_OutcomeWithoutViewers(t *testing.T) {
	h := startHub(t, nil)
	playToXWin(t, h)

	snap, err := h.Move(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, game.Board{}, snap.Board)
}

func TestHub_AckTimeout(t *testing.T) {
	h := startHub(t, []Option{WithAckTimeout(20 * time.Millisecond)})
	viewer := connect(t, h)
	playToXWin(t, h)

	snap, err := h.Move(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, game.Board{}, snap.Board)
	viewer.nextMatching(t, isType(proto.TypeOutcome))
}

func TestHub_CommandsWhileOutcomePending(t *testing.T) {
	ctx := context.Background()
	h := startHub(t, nil)
	viewer := connect(t, h)
	playToXWin(t, h)

	go h.Move(ctx, 0, 2)
	viewer.nextMatching(t, isType(proto.TypeOutcome))

	_, err := h.Reset(ctx)
	require.ErrorIs(t, err, ErrBusy)

	snap, err := h.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, controller.StateTerminal, snap.State)

	viewer.send(t, move(2, 2))
	assert.Equal(t, proto.TypeError, viewer.nextMatching(t, isType(proto.TypeError)).Type)

	late := newFakeConn()
	go h.Serve(ctx, late)
	assert.Equal(t, proto.TypeState, late.next(t).Type)
	assert.Equal(t, "Player X wins!", late.next(t).Message)

	late.send(t, proto.ClientMessage{Type: proto.TypeAck})
	fresh := viewer.nextMatching(t, func(m proto.ServerMessage) bool {
		return m.Type == proto.TypeState && m.State.Board == game.Board{}
	})
	assert.Equal(t, controller.StateAwaitingMove, fresh.State.State)
}

func TestHub_VsComputerOverWebsocket(t *testing.T) {
	h := startHub(t, nil)
	viewer := connect(t, h)

	viewer.send(t, proto.ClientMessage{Type: proto.TypeMode, Mode: string(controller.ModeVsComputer)})
	msg := viewer.nextMatching(t, isType(proto.TypeState))
	assert.Equal(t, controller.ModeVsComputer, msg.State.Mode)

	viewer.send(t, proto.ClientMessage{Type: proto.TypeDifficulty, Difficulty: "hard"})
	msg = viewer.nextMatching(t, isType(proto.TypeState))
	assert.EqualValues(t, "hard", msg.State.Difficulty)

	viewer.send(t, move(0, 0))
	msg = viewer.nextMatching(t, func(m proto.ServerMessage) bool {
		return m.Type == proto.TypeState && m.State.State == controller.StateAwaitingMove
	})
	x, o := msg.State.Board.Counts()
	assert.Equal(t, 1, x)
	assert.Equal(t, 1, o)
	assert.Equal(t, game.PlayerO, msg.State.Computer)
}

func TestHub_DisconnectedViewerIsDropped(t *testing.T) {
	h := startHub(t, []Option{WithHeartbeatInterval(10 * time.Millisecond)})
	viewer := connect(t, h)
	viewer.Close()

	// With the only viewer gone an outcome does not wait.
	playToXWin(t, h)
	snap, err := h.Move(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, game.Board{}, snap.Board)
}

func TestHub_Closed(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, controller.New(controller.WithPresenter(h))) }()

	viewer := connect(t, h)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	_, err := h.State(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	select {
	case <-viewer.closed:
	case <-time.After(waitTimeout):
		t.Fatal("viewer connection left open")
	}
}
