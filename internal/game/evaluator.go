package game

import "fmt"

// Result is the state of a game derived from its board.
type Result string

const (
	Ongoing Result = "ongoing"
	Win     Result = "win"
	Draw    Result = "draw"
)

// Outcome is recomputed from the board after every move and never stored.
type Outcome struct {
	Result Result     `json:"result"`
	Winner PlayerMark `json:"winner,omitempty"`
}

// Terminal reports whether the outcome ends the game.
func (o Outcome) Terminal() bool {
	return o.Result == Win || o.Result == Draw
}

// Message is the text shown to the players when the game ends.
func (o Outcome) Message() string {
	switch o.Result {
	case Win:
		return fmt.Sprintf("Player %s wins!", o.Winner)
	case Draw:
		return "It's a draw!"
	default:
		return ""
	}
}

// lines holds the three rows, three columns and two diagonals.
var lines = [8][3]Position{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// WinnerFor reports whether mark fills any row, column or diagonal.
func WinnerFor(b Board, mark PlayerMark) bool {
	if !mark.Valid() {
		return false
	}
	for _, line := range lines {
		if b[line[0].Row][line[0].Col] == mark &&
			b[line[1].Row][line[1].Col] == mark &&
			b[line[2].Row][line[2].Col] == mark {
			return true
		}
	}
	return false
}

// IsFull reports whether every cell holds a mark.
func IsFull(b Board) bool {
	for r := range b {
		for c := range b[r] {
			if b[r][c] == None {
				return false
			}
		}
	}
	return true
}

// IsDraw checks if the game is a draw. A full board with a winning line is not a draw.
func IsDraw(b Board) bool {
	if WinnerFor(b, PlayerX) || WinnerFor(b, PlayerO) {
		return false
	}
	return IsFull(b)
}

// IsTerminal reports whether the game on b has ended.
func IsTerminal(b Board) bool {
	return Evaluate(b).Terminal()
}

// Evaluate derives the outcome of b. X is checked before O; a legal game can
// never produce two winners.
func Evaluate(b Board) Outcome {
	for _, mark := range [2]PlayerMark{PlayerX, PlayerO} {
		if WinnerFor(b, mark) {
			return Outcome{Result: Win, Winner: mark}
		}
	}
	if IsFull(b) {
		return Outcome{Result: Draw}
	}
	return Outcome{Result: Ongoing}
}
