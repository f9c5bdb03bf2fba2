package game

// EmptyCells lists the empty cells in row-major order.
func EmptyCells(b Board) []Position {
	cells := make([]Position, 0, 9)
	for r := range b {
		for c := range b[r] {
			if b[r][c] == None {
				cells = append(cells, Position{Row: r, Col: c})
			}
		}
	}
	return cells
}
