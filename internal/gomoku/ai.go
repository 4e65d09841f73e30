// Package gomoku holds the pure move-selection logic for the computer
// opponent. It is a one-ply heuristic, not a minimax search: the only
// lookahead is the immediate win/block probe.
package gomoku

import "github.com/rocketscienceinc/gomoku-backend/internal/entity"

type Point struct {
	X int
	Y int
}

var axes = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

// ChooseMove picks a move for the given color in strict priority order:
// take an immediate win, block the opponent's immediate win, otherwise
// the heuristically best empty cell. Ties break first-found in row-major
// scan order, which makes the engine deterministic. Returns false only
// when the board is full.
func ChooseMove(board *entity.Board, mover entity.Color) (Point, bool) {
	opponent := mover.Opponent()

	if win, ok := findWinningMove(board, mover); ok {
		return win, true
	}

	if block, ok := findWinningMove(board, opponent); ok {
		return block, true
	}

	var best Point
	bestScore := 0.0
	found := false

	for y := 0; y < entity.BoardSize; y++ {
		for x := 0; x < entity.BoardSize; x++ {
			if board.At(x, y) != entity.Empty {
				continue
			}

			score := heuristicScore(board, x, y, mover, opponent)
			if !found || score > bestScore {
				best = Point{X: x, Y: y}
				bestScore = score
				found = true
			}
		}
	}

	return best, found
}

// findWinningMove probes every empty cell for a placement that wins on
// the spot, scanning top-to-bottom, left-to-right.
func findWinningMove(board *entity.Board, color entity.Color) (Point, bool) {
	for y := 0; y < entity.BoardSize; y++ {
		for x := 0; x < entity.BoardSize; x++ {
			if board.At(x, y) != entity.Empty {
				continue
			}

			board.Apply(x, y, color)
			wins := board.CheckWinner(x, y) == color
			board.Apply(x, y, entity.Empty)

			if wins {
				return Point{X: x, Y: y}, true
			}
		}
	}

	return Point{}, false
}

// heuristicScore values a candidate cell: a small pull toward the center
// plus, per axis, the line potential it builds for the mover (weighted
// 1.2) and denies the opponent.
func heuristicScore(board *entity.Board, x, y int, mover, opponent entity.Color) float64 {
	center := entity.BoardSize / 2
	centerBias := -float64(abs(x-center) + abs(y-center))

	score := centerBias * 0.5
	for _, axis := range axes {
		dx, dy := axis[0], axis[1]
		score += linePotential(board, x, y, dx, dy, mover)*1.2 + linePotential(board, x, y, dx, dy, opponent)
	}

	return score
}

// linePotential walks outward from (x,y) along ±(dx,dy) counting the
// contiguous run of the given color the cell would join (the cell itself
// counts as 1) and how many of the run's two ends are open. The run/open
// pair maps onto a fixed value table.
func linePotential(board *entity.Board, x, y, dx, dy int, color entity.Color) float64 {
	count := 1
	open := 0

	fx, fy := x+dx, y+dy
	for entity.InBounds(fx, fy) && board.At(fx, fy) == color {
		count++
		fx += dx
		fy += dy
	}
	if entity.InBounds(fx, fy) && board.At(fx, fy) == entity.Empty {
		open++
	}

	bx, by := x-dx, y-dy
	for entity.InBounds(bx, by) && board.At(bx, by) == color {
		count++
		bx -= dx
		by -= dy
	}
	if entity.InBounds(bx, by) && board.At(bx, by) == entity.Empty {
		open++
	}

	switch {
	case count >= 5:
		return 100000
	case count == 4 && open > 0:
		return 10000
	case count == 3 && open == 2:
		return 5000
	case count == 3 && open == 1:
		return 1000
	case count == 2 && open == 2:
		return 300
	case count == 2 && open == 1:
		return 100
	default:
		return float64(10*count + 5*open)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
