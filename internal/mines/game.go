package mines

import (
	"strings"
)

type Action uint8

const (
	Reveal Action = iota + 1
	Flag
)

func (a Action) String() string {
	switch a {
	case Reveal:
		return "reveal"
	case Flag:
		return "flag"
	default:
		return "invalid"
	}
}

// ParseAction accepts "reveal" and "flag" in any case, or their first
// letter. Anything else yields the zero Action and [ErrBadAction].
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reveal", "r":
		return Reveal, nil
	case "flag", "f":
		return Flag, nil
	default:
		return 0, ErrBadAction
	}
}

// Outcome is the result of a single move. Player mistakes are outcomes, not
// errors.
type Outcome uint8

const (
	InvalidCoordinate Outcome = iota + 1
	AlreadyRevealed
	Loss
	FlagPlaced
	FlagRemoved
	CannotFlagRevealed
	InvalidAction
	Revealed
)

func (o Outcome) String() string {
	switch o {
	case InvalidCoordinate:
		return "invalid_coordinate"
	case AlreadyRevealed:
		return "already_revealed"
	case Loss:
		return "loss"
	case FlagPlaced:
		return "flag_placed"
	case FlagRemoved:
		return "flag_removed"
	case CannotFlagRevealed:
		return "cannot_flag_revealed"
	case InvalidAction:
		return "invalid_action"
	case Revealed:
		return "revealed"
	default:
		return "unknown"
	}
}

// Message is the sentence shown to the player.
func (o Outcome) Message() string {
	switch o {
	case InvalidCoordinate:
		return "Invalid move. Try again."
	case AlreadyRevealed:
		return "Cell is already revealed."
	case Loss:
		return "Game over! You hit a mine."
	case FlagPlaced:
		return "Flag placed."
	case FlagRemoved:
		return "Flag removed."
	case CannotFlagRevealed:
		return "Cannot place a flag on a revealed cell."
	case InvalidAction:
		return "Invalid action. Use 'reveal' or 'flag'."
	default:
		return ""
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (b *Board) ApplyMove(row, col int, a Action) Outcome {
	if !b.InBounds(row, col) {
		return InvalidCoordinate
	}
	i := b.index(row, col)
	cell := &b.cells[i]

	switch a {
	case Reveal:
		if cell.Revealed {
			return AlreadyRevealed
		}
		if cell.Mined {
			b.explode(i)
			return Loss
		}
		b.flood(row, col)
		return Revealed

	case Flag:
		if cell.Flagged {
			cell.Flagged = false
			return FlagRemoved
		}
		if !cell.Revealed {
			cell.Flagged = true
			return FlagPlaced
		}
		return CannotFlagRevealed
	}

	return InvalidAction
}

func (b *Board) explode(i int) {
	b.over = true
	if b.exploded < 0 {
		b.exploded = i
	}
	Log.WithField("cell", b.point(i)).Debug("mine hit")
}

// flood reveals (row, col) and, while it keeps meeting cells without
// adjacent mines, their neighbours. Every cell is revealed at most once.
func (b *Board) flood(row, col int) {
	stack := []Point{{row, col}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !b.InBounds(p.Row, p.Col) || b.over {
			continue
		}
		i := b.index(p.Row, p.Col)
		cell := &b.cells[i]
		if cell.Revealed {
			continue
		}
		if cell.Mined {
			b.explode(i)
			return
		}

		cell.Revealed = true
		cell.Flagged = false
		cell.Adjacent = b.AdjacentMines(p.Row, p.Col)
		b.revealed++

		if cell.Adjacent > 0 {
			continue
		}
		b.neighbors(p.Row, p.Col, func(r, c int) {
			if !b.cells[b.index(r, c)].Revealed {
				stack = append(stack, Point{r, c})
			}
		})
	}
}

// CheckWin reports whether every safe cell has been revealed.
func (b *Board) CheckWin() bool {
	return b.revealed == b.params.Area()-b.params.MineCount
}

// CheckLoss reports whether (row, col) holds a mine. It does not change the
// board.
func (b *Board) CheckLoss(row, col int) bool {
	if !b.InBounds(row, col) {
		return false
	}
	return b.cells[b.index(row, col)].Mined
}

func (b *Board) IsGameOver() bool {
	return b.over
}

// SetGameOver ends the game when over is true. Finished games cannot be
// resumed, so false is ignored.
func (b *Board) SetGameOver(over bool) {
	if over {
		b.over = true
	}
}
