package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/vancomm/minesweeper/internal/mines"
)

const viewCommand = "view"

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrCommandArgs    = errors.New("command takes a row and a column")
)

// Command is one line of the websocket protocol: "reveal R C", "flag R C"
// or "view".
type Command struct {
	View     bool
	Action   mines.Action
	Row, Col int
}

func parseRowCol(args []string) (row int, col int, err error) {
	if row, err = strconv.Atoi(args[0]); err != nil {
		return 0, 0, errors.New("row must be an int")
	}
	if col, err = strconv.Atoi(args[1]); err != nil {
		return 0, 0, errors.New("col must be an int")
	}
	return row, col, nil
}

func ParseCommand(line string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, ErrUnknownCommand
	}
	if strings.EqualFold(parts[0], viewCommand) {
		if len(parts) != 1 {
			return Command{}, errors.New("view takes no arguments")
		}
		return Command{View: true}, nil
	}

	action, err := mines.ParseAction(parts[0])
	if err != nil {
		return Command{}, ErrUnknownCommand
	}
	if len(parts) != 3 {
		return Command{}, ErrCommandArgs
	}
	row, col, err := parseRowCol(parts[1:])
	if err != nil {
		return Command{}, err
	}
	return Command{Action: action, Row: row, Col: col}, nil
}

// ParseCommands splits a websocket message into commands. Blank lines are
// skipped.
func ParseCommands(text string) ([]Command, error) {
	var commands []Command
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		c, err := ParseCommand(line)
		if err != nil {
			return nil, err
		}
		commands = append(commands, c)
	}
	return commands, nil
}
