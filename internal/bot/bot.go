package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ctchen222/tictactoe/internal/game"
	"github.com/ctchen222/tictactoe/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("bot")

// Difficulty selects the computer's strategy.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")

// ParseDifficulty converts user input into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
}

// Selector dispatches to the strategy configured for each difficulty.
type Selector struct {
	strategies map[Difficulty]Strategy
	metrics    *telemetry.GameMetrics
}

// NewSelector builds the three strategies. rng drives the random choices of
// Easy and Medium; pass a seeded source for reproducible play.
func NewSelector(rng *rand.Rand, metrics *telemetry.GameMetrics) *Selector {
	return &Selector{
		strategies: map[Difficulty]Strategy{
			Easy:   NewRandomStrategy(rng),
			Medium: NewHeuristicStrategy(rng),
			Hard:   NewMinimaxStrategy(),
		},
		metrics: metrics,
	}
}

// Strategy returns the strategy used for d.
func (s *Selector) Strategy(d Difficulty) (Strategy, error) {
	strategy, ok := s.strategies[d]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDifficulty, d)
	}
	return strategy, nil
}

// NextMove determines the computer's next move based on the specified difficulty.
func (s *Selector) NextMove(ctx context.Context, d Difficulty, b *game.Board, mark game.PlayerMark) (game.Position, error) {
	ctx, span := tracer.Start(ctx, "bot.NextMove", trace.WithAttributes(
		attribute.String("bot.difficulty", string(d)),
		attribute.String("bot.mark", string(mark)),
	))
	defer span.End()

	strategy, err := s.Strategy(d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unknown difficulty")
		return game.Position{}, err
	}

	start := time.Now()
	pos, err := strategy.NextMove(b, mark)
	s.metrics.RecordAIMove(ctx, string(d), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Strategy found no move")
		return game.Position{}, fmt.Errorf("%s move: %w", d, err)
	}

	span.SetAttributes(attribute.Int("move.row", pos.Row), attribute.Int("move.col", pos.Col))
	return pos, nil
}
