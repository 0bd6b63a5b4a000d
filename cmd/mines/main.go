package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/logging"
	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/records"
	"github.com/vancomm/minesweeper/internal/shell"
)

const channelCLI = "cli"

var (
	configPath string
	board      mines.Params
	seed       uint64
)

func init() {
	const usage = "config file path"
	flag.StringVar(&configPath, "config", "", usage)
	flag.StringVar(&configPath, "c", "", usage+" (shorthand)")
	flag.Var(&board, "board", "board as ROWSxCOLS:MINES (default "+mines.DefaultParams.String()+")")
	flag.Uint64Var(&seed, "seed", 0, "random seed, 0 picks one")
}

// applyFlags overrides config values with the flags given on the command line.
func applyFlags(c *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "board":
			c.Board = board
		case "seed":
			c.Seed = seed
		}
	})
}

func main() {
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyFlags(cfg)

	// stdout belongs to the game.
	var logOut io.Writer = io.Discard
	if cfg.Development() {
		logOut = os.Stderr
	}
	log, err := logging.New(cfg, logOut)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	mines.Log = log

	log.WithFields(cfg.Fields()).Debug("config")

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	var store *records.Store
	if cfg.Records.Enabled() {
		var err error
		store, err = records.OpenConfig(ctx, cfg.Records, log)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	b, err := mines.New(cfg.Board, mines.NewRand(cfg.Seed))
	if err != nil {
		return err
	}

	res, err := shell.New(os.Stdin, os.Stdout, log).Play(ctx, b)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"won":      res.Won,
		"lost":     res.Lost,
		"moves":    res.Moves,
		"duration": res.Duration().String(),
	}).Info("game finished")

	if store == nil {
		return nil
	}
	return store.Add(ctx, records.NewRecord(b, res.Moves, channelCLI, res.StartedAt, res.EndedAt))
}
