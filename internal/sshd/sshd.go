// Package sshd serves the interactive game to ssh clients. Every session
// channel plays one game on the configured board.
package sshd

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/records"
	"github.com/vancomm/minesweeper/internal/shell"
)

const (
	channelSSH = "ssh"

	handshakeTimeout = 10 * time.Second
)

type Recorder interface {
	Add(ctx context.Context, r records.Record) error
}

type Options struct {
	Config config.SSH
	Board  mines.Params
	Log    logrus.FieldLogger
	// Records may be nil.
	Records Recorder
	Source  mines.Source
}

type Server struct {
	addr    string
	board   mines.Params
	log     logrus.FieldLogger
	records Recorder
	src     mines.Source
	config  *ssh.ServerConfig
}

func New(opts Options) (*Server, error) {
	hostKey, err := LoadHostKey(opts.Config.HostKeyFile)
	if err != nil {
		return nil, err
	}

	src := opts.Source
	if src == nil {
		src = mines.NewLockedSource(mines.NewRand(0))
	}

	// Games are anonymous.
	cfg := &ssh.ServerConfig{NoClientAuth: true}
	cfg.AddHostKey(hostKey)

	return &Server{
		addr:    opts.Config.Addr,
		board:   opts.Board,
		log:     opts.Log,
		records: opts.Records,
		src:     src,
		config:  cfg,
	}, nil
}

func (s *Server) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.log.Infof("ssh listening @ %s", l.Addr())
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is done and then waits for the
// open connections to finish.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	var g errgroup.Group
	defer g.Wait()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		g.Go(func() error {
			s.handleConn(ctx, conn)
			return nil
		})
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	// Closing conn also tears down a handshake that never completes.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	sconn, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		s.log.WithError(err).WithField("remote_addr", conn.RemoteAddr()).Debug("ssh handshake failed")
		conn.Close()
		return
	}
	defer sconn.Close()
	conn.SetDeadline(time.Time{})

	log := s.log.WithFields(logrus.Fields{
		"remote_addr": sconn.RemoteAddr(),
		"user":        sconn.User(),
	})
	log.Debug("ssh connected")

	go ssh.DiscardRequests(reqs)

	var g errgroup.Group
	for nc := range chans {
		if nc.ChannelType() != "session" {
			nc.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		g.Go(func() error {
			s.handleSession(ctx, nc, log)
			return nil
		})
	}
	g.Wait()
}

type exitStatus struct {
	Status uint32
}

// handleSession waits for the client to ask for a shell, then plays a game.
func (s *Server) handleSession(ctx context.Context, nc ssh.NewChannel, log logrus.FieldLogger) {
	channel, requests, err := nc.Accept()
	if err != nil {
		log.WithError(err).Warn("unable to accept channel")
		return
	}
	defer channel.Close()

	start := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		started := false
		for req := range requests {
			ok := false
			switch req.Type {
			case "shell":
				if !started {
					ok, started = true, true
					close(start)
				}
			case "pty-req", "env", "window-change":
				ok = true
			}
			if req.WantReply {
				req.Reply(ok, nil)
			}
		}
	}()

	select {
	case <-start:
	case <-done:
		return
	case <-ctx.Done():
		return
	}

	status := exitStatus{}
	if _, err := s.Play(ctx, channel, log); err != nil {
		log.WithError(err).Warn("game stopped")
		status.Status = 1
	}
	channel.SendRequest("exit-status", false, ssh.Marshal(&status))
}

// Play runs one game over rw, which is driven as a terminal.
func (s *Server) Play(ctx context.Context, rw io.ReadWriter, log logrus.FieldLogger) (shell.Result, error) {
	board, err := mines.New(s.board, s.src)
	if err != nil {
		return shell.Result{}, err
	}

	t := term.NewTerminal(rw, "")
	res, err := shell.New(&lineReader{t: t}, t, log).Play(ctx, board)
	if err != nil && !errors.Is(err, context.Canceled) {
		return res, err
	}

	s.record(context.WithoutCancel(ctx), board, res)
	return res, err
}

func (s *Server) record(ctx context.Context, b *mines.Board, res shell.Result) {
	if s.records == nil {
		return
	}
	r := records.NewRecord(b, res.Moves, channelSSH, res.StartedAt, res.EndedAt)
	if err := s.records.Add(ctx, r); err != nil {
		s.log.WithError(err).Error("unable to record game")
	}
}

// lineReader turns terminal lines into a byte stream.
type lineReader struct {
	t       *term.Terminal
	pending []byte
}

func (r *lineReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		line, err := r.t.ReadLine()
		if err != nil {
			return 0, err
		}
		r.pending = []byte(line + "\n")
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
