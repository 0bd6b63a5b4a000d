package shell

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vancomm/minesweeper/internal/mines"
)

type scripted struct {
	values []int
	next   int
}

func (s *scripted) IntN(n int) int {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n
}

func newBoard(t *testing.T, rows, cols int, points ...mines.Point) *mines.Board {
	t.Helper()
	src := &scripted{}
	for _, p := range points {
		src.values = append(src.values, p.Row, p.Col)
	}
	b, err := mines.New(mines.Params{Rows: rows, Cols: cols, MineCount: len(points)}, src)
	require.NoError(t, err)
	return b
}

func newShell(input string) (*Shell, *bytes.Buffer) {
	var out bytes.Buffer
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := New(strings.NewReader(input), &out, log)
	return s, &out
}

func TestPlaySingleCellWin(t *testing.T) {
	s, out := newShell("0 0 reveal\n")
	b := newBoard(t, 1, 1)

	res, err := s.Play(context.Background(), b)
	require.NoError(t, err)

	require.True(t, res.Won)
	require.False(t, res.Lost)
	require.False(t, res.Abandoned)
	require.Equal(t, 1, res.Moves)
	require.Equal(t,
		"- \n"+
			"Enter row (0-0): Enter col (0-0): Enter action (reveal or flag): "+
			"Congratulations! You've won the game.\n"+
			"0 \n",
		out.String(),
	)
}

func TestPlayLoss(t *testing.T) {
	s, out := newShell("0\n0\nREVEAL\n")
	b := newBoard(t, 2, 2, mines.Point{Row: 0, Col: 0})

	res, err := s.Play(context.Background(), b)
	require.NoError(t, err)

	require.True(t, res.Lost)
	require.False(t, res.Won)
	require.True(t, b.IsGameOver())
	require.Contains(t, out.String(), "Game over! You hit a mine.\n")
	require.True(t, strings.HasSuffix(out.String(), "X 1 \n1 1 \n"))
}

func TestPlayReportsPlayerMistakes(t *testing.T) {
	input := strings.Join([]string{
		"x 5 5 reveal", // not a number, then out of range
		"1 1 dance",    // unknown action
		"1 1 flag",
		"1 1 flag",
		"0 1 reveal",
		"0 1 reveal",
		"0 1 flag",
		"quit",
	}, "\n")
	s, out := newShell(input)
	b := newBoard(t, 3, 3, mines.Point{Row: 0, Col: 0}, mines.Point{Row: 2, Col: 2})

	res, err := s.Play(context.Background(), b)
	require.NoError(t, err)
	require.True(t, res.Abandoned)
	require.Equal(t, 7, res.Moves)

	text := out.String()
	for _, want := range []string{
		"Please enter a number.",
		"Invalid move. Try again.",
		"Invalid action. Use 'reveal' or 'flag'.",
		"Flag placed.",
		"Flag removed.",
		"Cell is already revealed.",
		"Cannot place a flag on a revealed cell.",
		"Game abandoned.",
		"Enter row (0-2): ",
		"Enter col (0-2): ",
	} {
		require.Contains(t, text, want)
	}
	require.False(t, b.IsGameOver())
	require.Equal(t, 1, b.Revealed())
}

func TestPlayCascadeWin(t *testing.T) {
	s, out := newShell("0 0 r\n")
	b := newBoard(t, 4, 4, mines.Point{Row: 3, Col: 3})

	res, err := s.Play(context.Background(), b)
	require.NoError(t, err)
	require.True(t, res.Won)
	require.Contains(t, out.String(), winMessage)
	require.True(t, strings.HasSuffix(out.String(), "0 0 1 * \n"))
}

func TestPlayEndOfInput(t *testing.T) {
	s, out := newShell("1 1")
	b := newBoard(t, 3, 3, mines.Point{Row: 0, Col: 0})

	res, err := s.Play(context.Background(), b)
	require.NoError(t, err)
	require.True(t, res.Abandoned)
	require.Zero(t, res.Moves)
	require.Contains(t, out.String(), "Game abandoned.")
}

func TestPlayCanceled(t *testing.T) {
	s, out := newShell("0 0 reveal\n")
	b := newBoard(t, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Play(ctx, b)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, res.Abandoned)
	require.Empty(t, out.String())
}

func TestResultDuration(t *testing.T) {
	s, _ := newShell("0 0 reveal\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := 0
	s.now = func() time.Time {
		ticks++
		return start.Add(time.Duration(ticks-1) * 1500 * time.Millisecond)
	}

	res, err := s.Play(context.Background(), newBoard(t, 1, 1))
	require.NoError(t, err)
	require.Equal(t, 1500*time.Millisecond, res.Duration())
}
