package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/logging"
	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/records"
	"github.com/vancomm/minesweeper/internal/server"
	"github.com/vancomm/minesweeper/internal/sshd"
)

var configPath string

func init() {
	const (
		defaultConfigPath = "/run/config.json"
		usage             = "config file path"
	)
	flag.StringVar(&configPath, "config", defaultConfigPath, usage)
	flag.StringVar(&configPath, "c", defaultConfigPath, usage+" (shorthand)")
}

func main() {
	mainCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logging.New(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	mines.Log = log

	log.Info("starting up, mode = ", cfg.Mode)
	log.WithFields(cfg.Fields()).Debug("config")

	if err := run(mainCtx, cfg, log); err != nil {
		log.Fatalf("exit reason: %s", err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	var (
		httpRecords server.Recorder
		sshRecords  sshd.Recorder
	)
	if cfg.Records.Enabled() {
		store, err := records.OpenConfig(ctx, cfg.Records, log)
		if err != nil {
			return err
		}
		defer store.Close()
		httpRecords, sshRecords = store, store
	}

	src := mines.NewLockedSource(mines.NewRand(cfg.Seed))

	srv, err := server.New(server.Options{
		Config:  cfg.Server,
		Board:   cfg.Board,
		Log:     log.WithField("component", "http"),
		Records: httpRecords,
		Source:  src,
	})
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gCtx)
	})

	if cfg.SSH.Enabled() {
		ssh, err := sshd.New(sshd.Options{
			Config:  cfg.SSH,
			Board:   cfg.Board,
			Log:     log.WithField("component", "ssh"),
			Records: sshRecords,
			Source:  src,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return ssh.Run(gCtx)
		})
	}

	return g.Wait()
}
