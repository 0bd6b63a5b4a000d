package mines

import (
	"fmt"
	"math"
	"strings"
)

// Params are the fixed dimensions of a board.
type Params struct {
	Rows, Cols, MineCount int
}

var DefaultParams = Params{Rows: 10, Cols: 10, MineCount: 10}

func (p Params) Unpack() (rows, cols, mineCount int) {
	return p.Rows, p.Cols, p.MineCount
}

func (p Params) Area() int {
	return p.Rows * p.Cols
}

// Validate reports whether a board can be built from p. A board always keeps
// at least one safe cell.
func (p Params) Validate() error {
	switch {
	case p.Rows <= 0:
		return fmt.Errorf("%w: rows must be positive (have %d)", ErrInvalidParams, p.Rows)
	case p.Cols <= 0:
		return fmt.Errorf("%w: cols must be positive (have %d)", ErrInvalidParams, p.Cols)
	case p.Rows > math.MaxInt/p.Cols:
		return fmt.Errorf("%w: %dx%d board is too large", ErrInvalidParams, p.Rows, p.Cols)
	case p.MineCount < 0 || p.MineCount >= p.Area():
		return fmt.Errorf(
			"%w: mine count must be in [0, %d) (have %d)",
			ErrInvalidParams, p.Area(), p.MineCount,
		)
	}
	return nil
}

// String formats p as "ROWSxCOLS:MINES", the form accepted by [ParseParams].
func (p Params) String() string {
	return fmt.Sprintf("%dx%d:%d", p.Rows, p.Cols, p.MineCount)
}

func ParseParams(s string) (Params, error) {
	var p Params
	fields := strings.NewReplacer("x", " ", "X", " ", ":", " ").Replace(s)
	n, err := fmt.Sscanf(fields, "%d %d %d", &p.Rows, &p.Cols, &p.MineCount)
	if n != 3 || err != nil {
		return Params{}, fmt.Errorf(
			`invalid board params %q (n = %d, err = %v)`, s, n, err,
		)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Set implements [flag.Value].
func (p *Params) Set(s string) error {
	parsed, err := ParseParams(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Params) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText lets params be read from config files and env variables.
func (p *Params) UnmarshalText(b []byte) error {
	return p.Set(string(b))
}
