package hub

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ctchen222/tictactoe/internal/bot"
	"github.com/ctchen222/tictactoe/internal/controller"
	"github.com/ctchen222/tictactoe/internal/game"
	"github.com/ctchen222/tictactoe/pkg/proto"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("hub")

const (
	defaultAckTimeout = 30 * time.Second
	heartbeatInterval = 10 * time.Second
)

var (
	ErrClosed = errors.New("hub closed")
	// ErrBusy is returned for commands sent while a finished game waits for acknowledgment.
	ErrBusy = errors.New("waiting for the outcome to be acknowledged")
)

type result struct {
	snapshot controller.Snapshot
	err      error
}

// command is a unit of work for the event loop. A nil apply only reads the state.
type command struct {
	ctx      context.Context
	clientID string
	apply    func(ctx context.Context, c *controller.Controller) error
	reply    chan result
}

// Hub owns the controller and every viewer connection. All controller calls
// and all connection writes happen on the goroutine running Run.
type Hub struct {
	ctrl       *controller.Controller
	clients    map[string]*client
	commands   chan *command
	register   chan *client
	unregister chan string
	acks       chan string
	done       chan struct{}

	ackTimeout        time.Duration
	heartbeatInterval time.Duration

	// pending is the outcome on display while AnnounceOutcome waits.
	pending *game.Outcome
}

type Option func(*Hub)

// WithAckTimeout bounds how long a finished game waits for a viewer to
// acknowledge it. Zero waits until a viewer answers or all viewers leave.
func WithAckTimeout(d time.Duration) Option {
	return func(h *Hub) { h.ackTimeout = d }
}

func WithHeartbeatInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.heartbeatInterval = d
		}
	}
}

// NewHub creates a new hub. Pass it to the controller with
// controller.WithPresenter, then call Run with that controller.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:           make(map[string]*client),
		commands:          make(chan *command),
		register:          make(chan *client),
		unregister:        make(chan string),
		acks:              make(chan string),
		done:              make(chan struct{}),
		ackTimeout:        defaultAckTimeout,
		heartbeatInterval: heartbeatInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub. It blocks until ctx is cancelled and closes every viewer on the way out.
func (h *Hub) Run(ctx context.Context, ctrl *controller.Controller) error {
	defer close(h.done)
	h.ctrl = ctrl

	if err := ctrl.Start(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial turn failed", "error", err)
	}

	pingTicker := time.NewTicker(h.heartbeatInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll(ctx)
			slog.InfoContext(ctx, "Hub stopped")
			return ctx.Err()

		case c := <-h.register:
			h.addClient(ctx, c)

		case id := <-h.unregister:
			h.removeClient(ctx, id)

		case id := <-h.acks:
			slog.DebugContext(ctx, "Ignoring acknowledgment with no outcome on display", "client.id", id)

		case cmd := <-h.commands:
			h.execute(ctx, cmd)

		case <-pingTicker.C:
			h.ping(ctx)
		}
	}
}

// execute runs cmd under the caller's context, cancelled early when the hub stops.
func (h *Hub) execute(runCtx context.Context, cmd *command) {
	ctx, cancel := context.WithCancel(cmd.ctx)
	defer cancel()
	stop := context.AfterFunc(runCtx, cancel)
	defer stop()

	var err error
	if cmd.apply != nil {
		err = cmd.apply(ctx, h.ctrl)
	}
	if err != nil && cmd.clientID != "" {
		h.sendTo(cmd.ctx, cmd.clientID, proto.NewErrorMessage(err))
	}
	cmd.reply <- result{snapshot: h.ctrl.Snapshot(), err: err}
}

// reject answers a command without running it.
func (h *Hub) reject(cmd *command, err error) {
	if cmd.clientID != "" {
		h.sendTo(cmd.ctx, cmd.clientID, proto.NewErrorMessage(err))
	}
	cmd.reply <- result{snapshot: h.ctrl.Snapshot(), err: err}
}

// enqueue hands apply to the event loop without waiting for it to run.
func (h *Hub) enqueue(ctx context.Context, clientID string, apply func(context.Context, *controller.Controller) error) (*command, error) {
	cmd := &command{ctx: ctx, clientID: clientID, apply: apply, reply: make(chan result, 1)}
	select {
	case h.commands <- cmd:
		return cmd, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrClosed
	}
}

// submit hands apply to the event loop and waits for the result.
func (h *Hub) submit(ctx context.Context, apply func(context.Context, *controller.Controller) error) (controller.Snapshot, error) {
	cmd, err := h.enqueue(ctx, "", apply)
	if err != nil {
		return controller.Snapshot{}, err
	}

	select {
	case res := <-cmd.reply:
		return res.snapshot, res.err
	case <-ctx.Done():
		return controller.Snapshot{}, ctx.Err()
	case <-h.done:
		return controller.Snapshot{}, ErrClosed
	}
}

// State returns the current snapshot.
func (h *Hub) State(ctx context.Context) (controller.Snapshot, error) {
	return h.submit(ctx, nil)
}

// Move plays the human move at (row, col). It returns after the computer has
// answered and, when the game ended, after the outcome was acknowledged.
func (h *Hub) Move(ctx context.Context, row, col int) (controller.Snapshot, error) {
	return h.submit(ctx, moveCommand(row, col))
}

func (h *Hub) Reset(ctx context.Context) (controller.Snapshot, error) {
	return h.submit(ctx, resetCommand)
}

func (h *Hub) SetMode(ctx context.Context, mode controller.Mode) (controller.Snapshot, error) {
	return h.submit(ctx, modeCommand(mode))
}

func (h *Hub) SetDifficulty(ctx context.Context, d bot.Difficulty) (controller.Snapshot, error) {
	return h.submit(ctx, difficultyCommand(d))
}

func moveCommand(row, col int) func(context.Context, *controller.Controller) error {
	return func(ctx context.Context, c *controller.Controller) error {
		return c.Select(ctx, row, col)
	}
}

func resetCommand(ctx context.Context, c *controller.Controller) error {
	return c.Reset(ctx)
}

func modeCommand(mode controller.Mode) func(context.Context, *controller.Controller) error {
	return func(ctx context.Context, c *controller.Controller) error {
		return c.SetMode(ctx, mode)
	}
}

func difficultyCommand(d bot.Difficulty) func(context.Context, *controller.Controller) error {
	return func(ctx context.Context, c *controller.Controller) error {
		return c.SetDifficulty(ctx, d)
	}
}

// Render broadcasts the snapshot to every viewer.
func (h *Hub) Render(ctx context.Context, snapshot controller.Snapshot) {
	h.broadcast(ctx, proto.NewStateMessage(snapshot))
}

// AnnounceOutcome shows the result to every viewer and waits until one of them
// acknowledges it, the ack timeout passes or nobody is left watching. Viewers
// may join and leave meanwhile; other commands are rejected with ErrBusy.
func (h *Hub) AnnounceOutcome(ctx context.Context, outcome game.Outcome) {
	ctx, span := tracer.Start(ctx, "hub.AnnounceOutcome", trace.WithAttributes(
		attribute.String("game.result", string(outcome.Result)),
		attribute.String("game.winner", string(outcome.Winner)),
		attribute.Int("clients.count", len(h.clients)),
	))
	defer span.End()

	h.pending = &outcome
	defer func() { h.pending = nil }()
	h.broadcast(ctx, proto.NewOutcomeMessage(outcome))

	var timeout <-chan time.Time
	if h.ackTimeout > 0 {
		timer := time.NewTimer(h.ackTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for len(h.clients) > 0 {
		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, "Cancelled before acknowledgment")
			return

		case id := <-h.acks:
			slog.InfoContext(ctx, "Outcome acknowledged", "client.id", id, "message", outcome.Message())
			span.SetAttributes(attribute.String("ack.client_id", id))
			return

		case <-timeout:
			slog.WarnContext(ctx, "Outcome not acknowledged in time", "timeout", h.ackTimeout)
			span.SetAttributes(attribute.Bool("ack.timed_out", true))
			return

		case c := <-h.register:
			h.addClient(ctx, c)

		case id := <-h.unregister:
			h.removeClient(ctx, id)

		case cmd := <-h.commands:
			if cmd.apply == nil {
				h.execute(ctx, cmd)
			} else {
				h.reject(cmd, ErrBusy)
			}
		}
	}
	slog.DebugContext(ctx, "No viewers left to acknowledge the outcome")
}
