package mines

import (
	"strings"
)

type Glyph byte

const (
	GlyphHidden         Glyph = '-'
	GlyphFlag           Glyph = 'F'
	GlyphMine           Glyph = '*'
	GlyphExploded       Glyph = 'X'
	GlyphFalselyFlagged Glyph = 'x'
)

func digit(n int) Glyph {
	return Glyph('0' + n)
}

// Count returns the adjacency count shown by g and whether g is a digit.
func (g Glyph) Count() (int, bool) {
	if '0' <= g && g <= '8' {
		return int(g - '0'), true
	}
	return 0, false
}

func (g Glyph) String() string {
	return string(rune(g))
}

// View is a rows x cols snapshot of what the player can see.
type View [][]Glyph

func (v View) String() string {
	var sb strings.Builder
	for _, row := range v {
		for _, g := range row {
			sb.WriteByte(byte(g))
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Rows renders every row of v as a string without separators, which is the
// form sent to remote clients.
func (v View) Rows() []string {
	rows := make([]string, len(v))
	for i, row := range v {
		b := make([]byte, len(row))
		for j, g := range row {
			b[j] = byte(g)
		}
		rows[i] = string(b)
	}
	return rows
}

func (b *Board) view(glyph func(i int, c Cell) Glyph) View {
	v := make(View, b.params.Rows)
	for row := range b.params.Rows {
		v[row] = make([]Glyph, b.params.Cols)
		for col := range b.params.Cols {
			i := b.index(row, col)
			v[row][col] = glyph(i, b.cells[i])
		}
	}
	return v
}

// Render returns the player's view of the board: flags, revealed counts and
// hidden cells.
func (b *Board) Render() View {
	return b.view(func(_ int, c Cell) Glyph {
		switch {
		case c.Flagged:
			return GlyphFlag
		case c.Revealed:
			return digit(c.Adjacent)
		default:
			return GlyphHidden
		}
	})
}

// Solution shows the whole board as it is shown once a game has ended: every
// mine, the mine that was hit and flags placed on safe cells.
func (b *Board) Solution() View {
	return b.view(func(i int, c Cell) Glyph {
		switch {
		case i == b.exploded:
			return GlyphExploded
		case c.Mined:
			return GlyphMine
		case c.Flagged:
			return GlyphFalselyFlagged
		case c.Revealed:
			return digit(c.Adjacent)
		default:
			p := b.point(i)
			return digit(b.AdjacentMines(p.Row, p.Col))
		}
	})
}
