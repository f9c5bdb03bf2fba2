package game

import (
	"errors"
	"fmt"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Board boundaries
	BorderMin = 0
	BorderMax = 2
)

var (
	ErrIllegalMove       = errors.New("illegal move")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrNoMoveAvailable   = errors.New("no move available")
	ErrGameOver          = errors.New("game already finished")
)

// Opponent returns the other player's mark. None has no opponent.
func (m PlayerMark) Opponent() PlayerMark {
	switch m {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return None
	}
}

// Valid reports whether m is a player mark rather than an empty cell.
func (m PlayerMark) Valid() bool {
	return m == PlayerX || m == PlayerO
}

// Game is a board plus the mark whose turn it is. X always moves first.
type Game struct {
	Board       Board
	CurrentTurn PlayerMark
}

func NewGame() *Game {
	return &Game{CurrentTurn: PlayerX}
}

// Move places mark at (row, col). The turn passes to the opponent unless the
// move ends the game.
func (g *Game) Move(mark PlayerMark, row, col int) error {
	if IsTerminal(g.Board) {
		return fmt.Errorf("%w: %w", ErrIllegalMove, ErrGameOver)
	}
	if mark != g.CurrentTurn {
		return fmt.Errorf("%w: not %s's turn", ErrIllegalMove, mark)
	}
	if err := g.Board.Set(row, col, mark); err != nil {
		return err
	}

	if !IsTerminal(g.Board) {
		g.CurrentTurn = mark.Opponent()
	}
	return nil
}

// Outcome evaluates the current board.
func (g *Game) Outcome() Outcome {
	return Evaluate(g.Board)
}

// Reset clears the board and gives the first move back to X.
func (g *Game) Reset() {
	g.Board.Clear()
	g.CurrentTurn = PlayerX
}
