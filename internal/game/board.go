package game

import (
	"fmt"
	"strings"
)

// Board is a 3x3 grid indexed [row][col].
type Board [3][3]PlayerMark

// Position addresses a single cell.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// InBounds reports whether the position lies on the board.
func InBounds(row, col int) bool {
	return row >= BorderMin && row <= BorderMax && col >= BorderMin && col <= BorderMax
}

// Set places mark on an empty cell.
func (b *Board) Set(row, col int, mark PlayerMark) error {
	if !InBounds(row, col) {
		return fmt.Errorf("%w: %w (%d,%d)", ErrIllegalMove, ErrInvalidCoordinate, row, col)
	}
	if !mark.Valid() {
		return fmt.Errorf("%w: invalid mark %q", ErrIllegalMove, mark)
	}
	if b[row][col] != None {
		return fmt.Errorf("%w: cell (%d,%d) already occupied", ErrIllegalMove, row, col)
	}

	b[row][col] = mark
	return nil
}

// Get returns the mark at (row, col). It panics on out-of-range coordinates.
func (b Board) Get(row, col int) PlayerMark {
	return b[row][col]
}

// Undo empties a cell that was filled by a hypothetical placement.
func (b *Board) Undo(row, col int) {
	b[row][col] = None
}

// Clear empties every cell.
func (b *Board) Clear() {
	*b = Board{}
}

// Counts returns how many X and O marks are on the board.
func (b Board) Counts() (x, o int) {
	for r := range b {
		for c := range b[r] {
			switch b[r][c] {
			case PlayerX:
				x++
			case PlayerO:
				o++
			}
		}
	}
	return x, o
}

func (b Board) String() string {
	var sb strings.Builder
	for r := range b {
		for c := range b[r] {
			if b[r][c] == None {
				sb.WriteByte('.')
			} else {
				sb.WriteString(string(b[r][c]))
			}
		}
		if r < BorderMax {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
