// Package arena plays computer-versus-computer games headlessly and tallies
// the results.
package arena

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"

	"github.com/ctchen222/tictactoe/internal/bot"
	"github.com/ctchen222/tictactoe/internal/game"
	"github.com/ctchen222/tictactoe/internal/telemetry"
	"github.com/ctchen222/tictactoe/internal/validator"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("arena")

type Config struct {
	Games   int            `validate:"min=1"`
	Workers int            `validate:"min=1"`
	X       bot.Difficulty `validate:"oneof=easy medium hard"`
	O       bot.Difficulty `validate:"oneof=easy medium hard"`
	// Seed makes a run reproducible for a fixed worker count; 0 picks a random seed.
	Seed uint64
}

// Stats is safe for concurrent use.
type Stats struct {
	xWins atomic.Uint32
	oWins atomic.Uint32
	draws atomic.Uint32
}

func (s *Stats) XWins() int { return int(s.xWins.Load()) }
func (s *Stats) OWins() int { return int(s.oWins.Load()) }
func (s *Stats) Draws() int { return int(s.draws.Load()) }

func (s *Stats) Total() int {
	return s.XWins() + s.OWins() + s.Draws()
}

func (s *Stats) add(o game.Outcome) {
	switch {
	case o.Result == game.Draw:
		s.draws.Add(1)
	case o.Winner == game.PlayerX:
		s.xWins.Add(1)
	default:
		s.oWins.Add(1)
	}
}

type Summary struct {
	Games   int            `json:"games"`
	XWins   int            `json:"x_wins"`
	OWins   int            `json:"o_wins"`
	Draws   int            `json:"draws"`
	Workers int            `json:"workers"`
	X       bot.Difficulty `json:"x"`
	O       bot.Difficulty `json:"o"`
}

// Run plays cfg.Games games split across cfg.Workers goroutines. Each worker
// has its own strategies and random source.
func Run(ctx context.Context, cfg Config, metrics *telemetry.GameMetrics) (Summary, error) {
	if err := validator.Struct(cfg); err != nil {
		return Summary{}, fmt.Errorf("arena config: %w", err)
	}
	workers := min(cfg.Workers, cfg.Games)
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	ctx, span := tracer.Start(ctx, "arena.Run", trace.WithAttributes(
		attribute.Int("arena.games", cfg.Games),
		attribute.Int("arena.workers", workers),
		attribute.String("arena.x", string(cfg.X)),
		attribute.String("arena.o", string(cfg.O)),
	))
	defer span.End()

	slog.InfoContext(ctx, "Arena started", "games", cfg.Games, "workers", workers, "x", cfg.X, "o", cfg.O, "seed", seed)

	var stats Stats
	g, ctx := errgroup.WithContext(ctx)
	perWorker, rest := cfg.Games/workers, cfg.Games%workers
	for id := range workers {
		n := perWorker
		if id < rest {
			n++
		}
		rng := rand.New(rand.NewPCG(seed, uint64(id)))
		selector := bot.NewSelector(rng, metrics)
		g.Go(func() error {
			for range n {
				if err := ctx.Err(); err != nil {
					return err
				}
				outcome, err := PlayGame(ctx, selector, cfg.X, cfg.O)
				if err != nil {
					return fmt.Errorf("worker %d: %w", id, err)
				}
				stats.add(outcome)
				metrics.RecordGameFinished(ctx, "arena", string(outcome.Result), string(outcome.Winner))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Games:   stats.Total(),
		XWins:   stats.XWins(),
		OWins:   stats.OWins(),
		Draws:   stats.Draws(),
		Workers: workers,
		X:       cfg.X,
		O:       cfg.O,
	}
	slog.InfoContext(ctx, "Arena finished", "x_wins", summary.XWins, "o_wins", summary.OWins, "draws", summary.Draws)
	return summary, nil
}

// PlayGame plays one game from an empty board, x moving first.
func PlayGame(ctx context.Context, selector *bot.Selector, x, o bot.Difficulty) (game.Outcome, error) {
	g := game.NewGame()
	for !game.IsTerminal(g.Board) {
		d := x
		if g.CurrentTurn == game.PlayerO {
			d = o
		}
		pos, err := selector.NextMove(ctx, d, &g.Board, g.CurrentTurn)
		if err != nil {
			return game.Outcome{}, err
		}
		if err := g.Move(g.CurrentTurn, pos.Row, pos.Col); err != nil {
			return game.Outcome{}, err
		}
	}
	return g.Outcome(), nil
}
