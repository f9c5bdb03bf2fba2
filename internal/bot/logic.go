package bot

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ctchen222/tictactoe/internal/game"
)

// Strategy picks one empty cell for mark. Implementations may place
// hypothetical marks on b but must leave it exactly as they found it.
type Strategy interface {
	NextMove(b *game.Board, mark game.PlayerMark) (game.Position, error)
}

// probe places mark at pos, evaluates fn and empties the cell again on every return path.
func probe[T any](b *game.Board, pos game.Position, mark game.PlayerMark, fn func() T) T {
	b[pos.Row][pos.Col] = mark
	defer b.Undo(pos.Row, pos.Col)
	return fn()
}

// RandomStrategy makes a completely random move.
type RandomStrategy struct {
	rng *rand.Rand
}

// NewRandomStrategy uses rng for its choices. A nil rng gets a randomly seeded source.
func NewRandomStrategy(rng *rand.Rand) *RandomStrategy {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomStrategy{rng: rng}
}

func (s *RandomStrategy) NextMove(b *game.Board, _ game.PlayerMark) (game.Position, error) {
	availableMoves := game.EmptyCells(*b)
	if len(availableMoves) == 0 {
		return game.Position{}, game.ErrNoMoveAvailable
	}
	return availableMoves[s.rng.IntN(len(availableMoves))], nil
}

// HeuristicStrategy will win if it can, block if it must, otherwise move randomly.
// It only looks one ply ahead, so a fork beats it.
type HeuristicStrategy struct {
	fallback *RandomStrategy
}

func NewHeuristicStrategy(rng *rand.Rand) *HeuristicStrategy {
	return &HeuristicStrategy{fallback: NewRandomStrategy(rng)}
}

func (s *HeuristicStrategy) NextMove(b *game.Board, mark game.PlayerMark) (game.Position, error) {
	cells := game.EmptyCells(*b)
	if len(cells) == 0 {
		return game.Position{}, game.ErrNoMoveAvailable
	}

	// 1. Win
	if pos, ok := findWinningMove(b, cells, mark); ok {
		return pos, nil
	}

	// 2. Block
	if pos, ok := findWinningMove(b, cells, mark.Opponent()); ok {
		return pos, nil
	}

	// 3. Random
	return s.fallback.NextMove(b, mark)
}

// findWinningMove returns the first cell in scan order where mark would complete a line.
func findWinningMove(b *game.Board, cells []game.Position, mark game.PlayerMark) (game.Position, bool) {
	for _, pos := range cells {
		wins := probe(b, pos, mark, func() bool {
			return game.WinnerFor(*b, mark)
		})
		if wins {
			return pos, true
		}
	}
	return game.Position{}, false
}

// MinimaxStrategy searches the whole game tree without pruning. Scores are
// +1 for a win, -1 for a loss and 0 for a draw regardless of depth, so a quick
// win and a slow win rank the same.
type MinimaxStrategy struct{}

func NewMinimaxStrategy() *MinimaxStrategy {
	return &MinimaxStrategy{}
}

func (s *MinimaxStrategy) NextMove(b *game.Board, mark game.PlayerMark) (game.Position, error) {
	if !mark.Valid() {
		return game.Position{}, fmt.Errorf("minimax: invalid mark %q", mark)
	}
	cells := game.EmptyCells(*b)
	if len(cells) == 0 {
		return game.Position{}, game.ErrNoMoveAvailable
	}

	bestScore := math.MinInt
	var bestMove game.Position
	for _, pos := range cells {
		score := probe(b, pos, mark, func() int {
			return Score(b, mark, mark.Opponent())
		})
		// Strictly greater: the first move found keeps ties.
		if score > bestScore {
			bestScore = score
			bestMove = pos
		}
	}
	return bestMove, nil
}

// Score is the minimax value of b for ai with toMove to play next.
func Score(b *game.Board, ai, toMove game.PlayerMark) int {
	switch {
	case game.WinnerFor(*b, ai):
		return 1
	case game.WinnerFor(*b, ai.Opponent()):
		return -1
	case game.IsFull(*b):
		return 0
	}

	maximizing := toMove == ai
	best := math.MaxInt
	if maximizing {
		best = math.MinInt
	}
	for _, pos := range game.EmptyCells(*b) {
		score := probe(b, pos, toMove, func() int {
			return Score(b, ai, toMove.Opponent())
		})
		if maximizing && score > best || !maximizing && score < best {
			best = score
		}
	}
	return best
}
