// Package shell runs the interactive prompt loop of a game over any line
// oriented transport: a terminal, an SSH channel or a test buffer.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/mines"
)

var ErrQuit = errors.New("player quit")

const (
	quitToken  = "quit"
	winMessage = "Congratulations! You've won the game."
)

// Result describes how a game played through the shell ended.
type Result struct {
	Won, Lost, Abandoned bool
	Moves                int
	StartedAt, EndedAt   time.Time
}

func (r Result) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

type Shell struct {
	in  *bufio.Scanner
	out io.Writer
	log logrus.FieldLogger
	now func() time.Time
}

// New reads whitespace separated tokens from in, so a whole move may be typed
// on a single line.
func New(in io.Reader, out io.Writer, log logrus.FieldLogger) *Shell {
	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanWords)
	return &Shell{
		in:  scanner,
		out: out,
		log: log,
		now: time.Now,
	}
}

func (s *Shell) print(a ...any) {
	fmt.Fprint(s.out, a...)
}

func (s *Shell) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *Shell) read(prompt string) (string, error) {
	s.print(prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	token := s.in.Text()
	if strings.EqualFold(token, quitToken) {
		return "", ErrQuit
	}
	return token, nil
}

func (s *Shell) readInt(prompt string) (int, error) {
	for {
		token, err := s.read(prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(token)
		if err == nil {
			return n, nil
		}
		s.println("Please enter a number.")
	}
}

// Play drives b until the game is lost, won or abandoned. Quitting and
// running out of input are not errors, they mark the result as abandoned.
func (s *Shell) Play(ctx context.Context, b *mines.Board) (res Result, err error) {
	res.StartedAt = s.now()
	defer func() {
		res.EndedAt = s.now()
	}()

	for !b.IsGameOver() {
		if err := ctx.Err(); err != nil {
			res.Abandoned = true
			return res, err
		}

		s.print(b.Render())

		row, err := s.readInt(fmt.Sprintf("Enter row (0-%d): ", b.Rows()-1))
		if err != nil {
			return s.abandon(res, err)
		}
		col, err := s.readInt(fmt.Sprintf("Enter col (0-%d): ", b.Cols()-1))
		if err != nil {
			return s.abandon(res, err)
		}
		token, err := s.read("Enter action (reveal or flag): ")
		if err != nil {
			return s.abandon(res, err)
		}

		action, err := mines.ParseAction(token)
		if err != nil {
			s.log.WithField("token", token).Debug(err)
		}

		outcome := b.ApplyMove(row, col, action)
		res.Moves++
		s.log.WithFields(logrus.Fields{
			"row":     row,
			"col":     col,
			"action":  action.String(),
			"outcome": outcome.String(),
		}).Debug("move")

		if msg := outcome.Message(); msg != "" {
			s.println(msg)
		}

		if action == mines.Reveal && b.CheckLoss(row, col) {
			b.SetGameOver(true)
			res.Lost = true
		}

		if b.CheckWin() {
			s.println(winMessage)
			res.Won = true
			break
		}
	}

	s.print(b.Solution())
	return res, nil
}

func (s *Shell) abandon(res Result, err error) (Result, error) {
	if errors.Is(err, ErrQuit) || errors.Is(err, io.EOF) {
		s.println()
		s.println("Game abandoned.")
		res.Abandoned = true
		return res, nil
	}
	return res, err
}
