package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ctchen222/tictactoe/internal/bot"
	"github.com/ctchen222/tictactoe/internal/game"
	"github.com/ctchen222/tictactoe/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("controller")

// Mode decides who plays O.
type Mode string

const (
	ModeTwoPlayer  Mode = "two_player"
	ModeVsComputer Mode = "vs_computer"
)

// State is the controller's position in the turn cycle.
type State string

const (
	StateAwaitingMove State = "awaiting_move"
	StateEvaluating   State = "evaluating"
	StateAITurn       State = "ai_turn"
	StateTerminal     State = "terminal"
)

var (
	ErrUnknownMode = errors.New("unknown mode")
	ErrInvariant   = errors.New("invariant violation")
)

// ParseMode converts user input into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeTwoPlayer, ModeVsComputer:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// MoveSelector chooses the computer's moves. *bot.Selector implements it.
type MoveSelector interface {
	NextMove(ctx context.Context, d bot.Difficulty, b *game.Board, mark game.PlayerMark) (game.Position, error)
}

// Snapshot is a copy of everything a presenter needs to draw the game.
type Snapshot struct {
	Board      game.Board      `json:"board"`
	Next       game.PlayerMark `json:"next"`
	Mode       Mode            `json:"mode"`
	Difficulty bot.Difficulty  `json:"difficulty"`
	State      State           `json:"state"`
	Outcome    game.Outcome    `json:"outcome"`
	Computer   game.PlayerMark `json:"computer,omitempty"`
}

// Controller runs one board: it applies moves, evaluates them, plays the
// computer's turns and resets after every finished game. It is not safe for
// concurrent use; callers serialize access.
type Controller struct {
	game         *game.Game
	mode         Mode
	difficulty   bot.Difficulty
	state        State
	computerMark game.PlayerMark
	selector     MoveSelector
	presenter    Presenter
	delay        DelayFunc
	metrics      *telemetry.GameMetrics
}

type Option func(*Controller)

func WithMode(mode Mode) Option {
	return func(c *Controller) { c.mode = mode }
}

func WithDifficulty(d bot.Difficulty) Option {
	return func(c *Controller) { c.difficulty = d }
}

func WithSelector(s MoveSelector) Option {
	return func(c *Controller) { c.selector = s }
}

func WithPresenter(p Presenter) Option {
	return func(c *Controller) { c.presenter = p }
}

func WithDelay(d DelayFunc) Option {
	return func(c *Controller) {
		if d != nil {
			c.delay = d
		}
	}
}

// WithComputerMark sets the computer's mark. The computer plays O unless told otherwise.
func WithComputerMark(mark game.PlayerMark) Option {
	return func(c *Controller) { c.computerMark = mark }
}

func WithMetrics(m *telemetry.GameMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func New(opts ...Option) *Controller {
	c := &Controller{
		game:         game.NewGame(),
		mode:         ModeTwoPlayer,
		difficulty:   bot.Medium,
		state:        StateAwaitingMove,
		computerMark: game.PlayerO,
		presenter:    nopPresenter{},
		delay:        noDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.selector == nil {
		c.selector = bot.NewSelector(nil, c.metrics)
	}
	return c
}

// Start renders the initial board and lets the computer open if it moves first.
func (c *Controller) Start(ctx context.Context) error {
	return c.run(ctx)
}

// Select applies the human's move at (row, col). Moves made out of turn, while
// the computer is thinking or onto an occupied cell fail with
// game.ErrIllegalMove and leave the game untouched.
func (c *Controller) Select(ctx context.Context, row, col int) error {
	ctx, span := tracer.Start(ctx, "controller.Select", trace.WithAttributes(
		attribute.Int("move.row", row),
		attribute.Int("move.col", col),
		attribute.String("game.mode", string(c.mode)),
	))
	defer span.End()

	mark := c.game.CurrentTurn
	if err := c.acceptHumanMove(row, col); err != nil {
		slog.WarnContext(ctx, "Ignoring illegal move", "row", row, "col", col, "state", c.state, "error", err)
		span.SetAttributes(attribute.Bool("move.valid", false))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Illegal move")
		return err
	}
	span.SetAttributes(attribute.Bool("move.valid", true), attribute.String("move.mark", string(mark)))
	c.metrics.RecordMove(ctx, string(mark), false)

	return c.run(ctx)
}

func (c *Controller) acceptHumanMove(row, col int) error {
	if c.state != StateAwaitingMove {
		return fmt.Errorf("%w: controller is in state %s", game.ErrIllegalMove, c.state)
	}
	if c.computerToMove() {
		return fmt.Errorf("%w: it is the computer's turn", game.ErrIllegalMove)
	}
	if err := c.game.Move(c.game.CurrentTurn, row, col); err != nil {
		return err
	}
	c.state = StateEvaluating
	return nil
}

// SetMode switches between two-player and computer play. The board is always reset.
func (c *Controller) SetMode(ctx context.Context, mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Switching mode", "from", c.mode, "to", mode)
	c.mode = mode
	return c.Reset(ctx)
}

// SetDifficulty changes the strategy for the computer's next moves without resetting.
func (c *Controller) SetDifficulty(ctx context.Context, d bot.Difficulty) error {
	if _, err := bot.ParseDifficulty(string(d)); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Switching difficulty", "from", c.difficulty, "to", d)
	c.difficulty = d
	c.render(ctx)
	return nil
}

// Reset clears the board and gives the first move to X.
func (c *Controller) Reset(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "controller.Reset", trace.WithAttributes(
		attribute.String("game.mode", string(c.mode)),
	))
	defer span.End()

	c.game.Reset()
	return c.run(ctx)
}

// Snapshot returns a copy of the current game.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Board:      c.game.Board,
		Next:       c.game.CurrentTurn,
		Mode:       c.mode,
		Difficulty: c.difficulty,
		State:      c.state,
		Outcome:    c.game.Outcome(),
	}
	if c.mode == ModeVsComputer {
		s.Computer = c.computerMark
	}
	return s
}

// run evaluates the board and plays computer turns until a human has to move.
func (c *Controller) run(ctx context.Context) error {
	for {
		if outcome := c.game.Outcome(); outcome.Terminal() {
			c.finish(ctx, outcome)
			continue
		}

		if !c.computerToMove() {
			c.state = StateAwaitingMove
			c.render(ctx)
			return nil
		}

		if err := c.computerTurn(ctx); err != nil {
			return err
		}
	}
}

func (c *Controller) finish(ctx context.Context, outcome game.Outcome) {
	c.state = StateTerminal
	c.render(ctx)

	slog.InfoContext(ctx, "Game over", "result", outcome.Result, "winner", outcome.Winner, "mode", c.mode)
	c.metrics.RecordGameFinished(ctx, string(c.mode), string(outcome.Result), string(outcome.Winner))

	c.presenter.AnnounceOutcome(ctx, outcome)
	c.game.Reset()
}

func (c *Controller) computerTurn(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "controller.computerTurn", trace.WithAttributes(
		attribute.String("bot.difficulty", string(c.difficulty)),
		attribute.String("bot.mark", string(c.computerMark)),
	))
	defer span.End()

	c.state = StateAITurn
	c.render(ctx)
	c.delay(ctx)

	before := c.game.Board
	pos, err := c.selector.NextMove(ctx, c.difficulty, &c.game.Board, c.computerMark)
	if err == nil && c.game.Board != before {
		c.game.Board = before
		err = errors.New("strategy left hypothetical marks on the board")
	}
	if err == nil {
		err = c.game.Move(c.computerMark, pos.Row, pos.Col)
	}
	if err != nil {
		err = fmt.Errorf("%w: computer turn: %w", ErrInvariant, err)
		slog.ErrorContext(ctx, "Computer could not move", "difficulty", c.difficulty, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Computer could not move")
		return err
	}

	slog.DebugContext(ctx, "Computer moved", "mark", c.computerMark, "row", pos.Row, "col", pos.Col)
	span.SetAttributes(attribute.Int("move.row", pos.Row), attribute.Int("move.col", pos.Col))
	c.metrics.RecordMove(ctx, string(c.computerMark), true)
	c.state = StateEvaluating
	return nil
}

func (c *Controller) computerToMove() bool {
	return c.mode == ModeVsComputer && c.game.CurrentTurn == c.computerMark
}

func (c *Controller) render(ctx context.Context) {
	c.presenter.Render(ctx, c.Snapshot())
}
