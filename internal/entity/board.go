package entity

// BoardSize is the side length of the gomoku grid.
const BoardSize = 19

// WinLength is the run length that ends a game.
const WinLength = 5

// Color encodes the content of a cell. The numeric values are mirrored
// as-is in every outward payload.
type Color int

const (
	Empty Color = iota
	Black
	White
)

// Opponent returns the other stone color.
func (that Color) Opponent() Color {
	if that == Black {
		return White
	}
	return Black
}

// axes through a cell: horizontal, vertical and the two diagonals.
var axes = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

// Board is a square grid addressed as board[y][x], origin top-left.
// Cells are write-once for the life of a game.
type Board [BoardSize][BoardSize]Color

func NewBoard() *Board {
	return &Board{}
}

func InBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}

func (that *Board) At(x, y int) Color {
	return that[y][x]
}

// Apply writes a stone. The caller is responsible for bounds, emptiness
// and turn checks; mutation exclusivity is guaranteed by the coordinator.
func (that *Board) Apply(x, y int, color Color) {
	that[y][x] = color
}

// CheckWinner examines the four axes through the just-played cell and
// returns the cell's color if any contiguous run reaches five, else Empty.
// It is only meaningful immediately after Apply at the same coordinates.
func (that *Board) CheckWinner(x, y int) Color {
	color := that[y][x]
	if color == Empty {
		return Empty
	}

	for _, axis := range axes {
		dx, dy := axis[0], axis[1]
		count := 1

		for s := 1; s < WinLength; s++ {
			nx, ny := x+dx*s, y+dy*s
			if !InBounds(nx, ny) || that[ny][nx] != color {
				break
			}
			count++
		}

		for s := 1; s < WinLength; s++ {
			nx, ny := x-dx*s, y-dy*s
			if !InBounds(nx, ny) || that[ny][nx] != color {
				break
			}
			count++
		}

		if count >= WinLength {
			return color
		}
	}

	return Empty
}

func (that *Board) IsFull() bool {
	for y := range that {
		for x := range that[y] {
			if that[y][x] == Empty {
				return false
			}
		}
	}
	return true
}
