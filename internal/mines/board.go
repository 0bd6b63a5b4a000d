package mines

import (
	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

// Source is the only source of randomness used by the engine. It is
// satisfied by *rand.Rand from math/rand/v2.
type Source interface {
	IntN(n int) int
}

type Point struct {
	Row, Col int
}

// Cell holds the state of a single board square. Adjacent is only
// meaningful once the cell has been revealed.
type Cell struct {
	Mined    bool
	Revealed bool
	Flagged  bool
	Adjacent int
}

type Board struct {
	params   Params
	cells    []Cell
	revealed int
	over     bool
	exploded int
}

// New builds a board and places p.MineCount mines on distinct cells chosen
// uniformly at random by src.
func New(p Params, src Source) (*Board, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	b := &Board{
		params:   p,
		cells:    make([]Cell, p.Area()),
		exploded: -1,
	}

	placed := 0
	for placed < p.MineCount {
		i := b.index(src.IntN(p.Rows), src.IntN(p.Cols))
		if !b.cells[i].Mined {
			b.cells[i].Mined = true
			placed++
		}
	}

	Log.WithFields(logrus.Fields{
		"params": p.String(),
		"placed": placed,
	}).Debug("mines placed")

	return b, nil
}

func (b *Board) Params() Params { return b.params }
func (b *Board) Rows() int      { return b.params.Rows }
func (b *Board) Cols() int      { return b.params.Cols }
func (b *Board) MineCount() int { return b.params.MineCount }

func (b *Board) index(row, col int) int {
	return row*b.params.Cols + col
}

func (b *Board) point(i int) Point {
	return Point{Row: i / b.params.Cols, Col: i % b.params.Cols}
}

func (b *Board) InBounds(row, col int) bool {
	return 0 <= row && row < b.params.Rows && 0 <= col && col < b.params.Cols
}

// neighbors calls fn for every in-bounds cell of the Moore neighbourhood of
// (row, col), excluding the cell itself.
func (b *Board) neighbors(row, col int, fn func(row, col int)) {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if r, c := row+dr, col+dc; b.InBounds(r, c) {
				fn(r, c)
			}
		}
	}
}

// AdjacentMines counts the mines around (row, col) regardless of whether the
// cell has been revealed. Out of range coordinates have no neighbours.
func (b *Board) AdjacentMines(row, col int) int {
	if !b.InBounds(row, col) {
		return 0
	}
	count := 0
	b.neighbors(row, col, func(r, c int) {
		if b.cells[b.index(r, c)].Mined {
			count++
		}
	})
	return count
}

func (b *Board) Cell(row, col int) (Cell, bool) {
	if !b.InBounds(row, col) {
		return Cell{}, false
	}
	return b.cells[b.index(row, col)], true
}

// Revealed returns the number of revealed cells without a mine.
func (b *Board) Revealed() int {
	return b.revealed
}

// Remaining returns the number of safe cells still hidden.
func (b *Board) Remaining() int {
	return b.params.Area() - b.params.MineCount - b.revealed
}

func (b *Board) Flags() int {
	flags := 0
	for _, c := range b.cells {
		if c.Flagged {
			flags++
		}
	}
	return flags
}

// Mines lists mined cells in row-major order.
func (b *Board) Mines() []Point {
	points := make([]Point, 0, b.params.MineCount)
	for i, c := range b.cells {
		if c.Mined {
			points = append(points, b.point(i))
		}
	}
	return points
}

// Exploded returns the mine that ended the game, if any.
func (b *Board) Exploded() (Point, bool) {
	if b.exploded < 0 {
		return Point{}, false
	}
	return b.point(b.exploded), true
}
