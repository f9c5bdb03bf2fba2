package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/ctchen222/tictactoe"

// GameMetrics holds the game instruments. A nil *GameMetrics records nothing.
type GameMetrics struct {
	moves     metric.Int64Counter
	finished  metric.Int64Counter
	aiLatency metric.Float64Histogram
}

// NewGameMetrics creates the instruments on meter.
func NewGameMetrics(meter metric.Meter) (*GameMetrics, error) {
	moves, err := meter.Int64Counter("game.moves",
		metric.WithDescription("Moves applied to the board"),
		metric.WithUnit("{move}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create moves counter: %w", err)
	}

	finished, err := meter.Int64Counter("game.finished",
		metric.WithDescription("Games that ended in a win or a draw"),
		metric.WithUnit("{game}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create finished games counter: %w", err)
	}

	aiLatency, err := meter.Float64Histogram("bot.move.duration",
		metric.WithDescription("Time the computer spent choosing a move"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot latency histogram: %w", err)
	}

	return &GameMetrics{moves: moves, finished: finished, aiLatency: aiLatency}, nil
}

// NewGlobalGameMetrics creates the instruments on the global meter provider.
func NewGlobalGameMetrics() (*GameMetrics, error) {
	return NewGameMetrics(otel.Meter(instrumentationName))
}

func (m *GameMetrics) RecordMove(ctx context.Context, mark string, computer bool) {
	if m == nil {
		return
	}
	m.moves.Add(ctx, 1, metric.WithAttributes(
		attribute.String("move.mark", mark),
		attribute.Bool("move.computer", computer),
	))
}

func (m *GameMetrics) RecordGameFinished(ctx context.Context, mode, result, winner string) {
	if m == nil {
		return
	}
	m.finished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("game.mode", mode),
		attribute.String("game.result", result),
		attribute.String("game.winner", winner),
	))
}

func (m *GameMetrics) RecordAIMove(ctx context.Context, difficulty string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.aiLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("bot.difficulty", difficulty),
	))
}
