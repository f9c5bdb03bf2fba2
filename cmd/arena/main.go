package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ctchen222/tictactoe/internal/arena"
	"github.com/ctchen222/tictactoe/internal/bot"
	"github.com/ctchen222/tictactoe/internal/logger"

	"github.com/muesli/termenv"
)

func main() {
	games := flag.Int("games", 100, "number of games to play")
	workers := flag.Int("workers", runtime.NumCPU(), "number of concurrent workers")
	x := flag.String("x", string(bot.Hard), "difficulty of X (easy, medium, hard)")
	o := flag.String("o", string(bot.Easy), "difficulty of O (easy, medium, hard)")
	seed := flag.Uint64("seed", 0, "random seed, 0 for a random one")
	asJSON := flag.Bool("json", false, "print the summary as JSON")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger.Init(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := arena.Run(ctx, arena.Config{
		Games:   *games,
		Workers: *workers,
		X:       bot.Difficulty(*x),
		O:       bot.Difficulty(*o),
		Seed:    *seed,
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arena: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(os.Stderr, "arena: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printSummary(termenv.NewOutput(os.Stdout), summary)
}

func printSummary(out *termenv.Output, s arena.Summary) {
	title := out.String(fmt.Sprintf("X (%s) vs O (%s)", s.X, s.O)).Bold()
	fmt.Fprintf(out, "%s, %d games on %d workers\n", title, s.Games, s.Workers)

	row := func(label string, n int, color string) {
		pct := 0.0
		if s.Games > 0 {
			pct = 100 * float64(n) / float64(s.Games)
		}
		value := out.String(fmt.Sprintf("%6d  %5.1f%%", n, pct)).Foreground(out.Color(color))
		fmt.Fprintf(out, "  %-7s %s\n", label, value)
	}
	row("X wins", s.XWins, "2")
	row("O wins", s.OWins, "1")
	row("Draws", s.Draws, "3")
}
