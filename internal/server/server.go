// Package server hosts single-player games over HTTP and websockets. Each
// session owns one board, and a session token proves the caller started it.
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/records"
)

const shutdownTimeout = 30 * time.Second

// Recorder is the part of the records store the server uses.
type Recorder interface {
	Add(ctx context.Context, r records.Record) error
	Highscores(ctx context.Context, f records.Filter) ([]records.Record, error)
	Stats(ctx context.Context) (records.Stats, error)
}

type Options struct {
	Config config.Server
	// Board is used for parameters missing from new game requests.
	Board mines.Params
	Log   logrus.FieldLogger
	// Records may be nil, in which case games are not recorded.
	Records Recorder
	Source  mines.Source
	Now     func() time.Time
}

type Server struct {
	cfg      config.Server
	board    mines.Params
	log      logrus.FieldLogger
	records  Recorder
	src      mines.Source
	now      func() time.Time
	tokens   *Tokens
	sessions *Sessions
	upgrader websocket.Upgrader
	router   *http.ServeMux
}

func New(opts Options) (*Server, error) {
	secret, ok, err := opts.Config.LoadTokenSecret()
	if err != nil {
		return nil, err
	}
	if !ok {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("unable to generate token secret: %w", err)
		}
		opts.Log.Warn("no token secret configured, tokens will not survive a restart")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	src := opts.Source
	if src == nil {
		src = mines.NewLockedSource(mines.NewRand(0))
	}

	s := &Server{
		cfg:      opts.Config,
		board:    opts.Board,
		log:      opts.Log,
		records:  opts.Records,
		src:      src,
		now:      now,
		tokens:   NewTokens(secret, opts.Config.TokenLifetime.Duration),
		sessions: NewSessions(),
		router:   http.NewServeMux(),
	}
	s.tokens.now = now
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.loadRoutes()
	return s, nil
}

func (s *Server) loadRoutes() {
	s.router.HandleFunc("POST /v1/game", s.NewGame)
	s.router.HandleFunc("GET /v1/game/{id}", s.Fetch)
	s.router.HandleFunc("POST /v1/game/{id}/move", s.MakeAMove)
	s.router.HandleFunc("GET /v1/game/{id}/connect", s.ConnectWS)
	s.router.HandleFunc("GET /v1/records", s.Highscores)
	s.router.HandleFunc("GET /v1/stats", s.Stats)
	s.router.HandleFunc("GET /v1/status", s.Status)
}

func (s *Server) Handler() http.Handler {
	return Wrap(
		s.router,
		Auth(s.log, s.tokens),
		Cors(s.cfg.AllowedOrigins),
		Logging(s.log),
	)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == origin || allowed == "*" {
			return true
		}
	}
	s.log.WithField("origin", origin).Debug("websocket origin rejected")
	return false
}

// record stores the outcome of an ended session once.
func (s *Server) record(ctx context.Context, session *Session) {
	if s.records == nil {
		return
	}
	r, ok := session.takeRecord()
	if !ok {
		return
	}
	if err := s.records.Add(ctx, r); err != nil {
		s.log.WithError(err).WithField("game_id", session.ID).Error("unable to record game")
	}
}

// ExpireSessions evicts idle sessions and records those that were still
// being played as abandoned.
func (s *Server) ExpireSessions(ctx context.Context) int {
	now := s.now()
	expired := s.sessions.Expire(now, s.cfg.SessionTTL.Duration)
	for _, session := range expired {
		session.end(now)
		s.record(ctx, session)
	}
	if len(expired) > 0 {
		s.log.WithField("count", len(expired)).Debug("expired sessions")
	}
	return len(expired)
}

func (s *Server) janitor(ctx context.Context) error {
	interval := s.cfg.SessionTTL.Duration / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.ExpireSessions(ctx)
		}
	}
}

// Run serves on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	s.log.Infof("ready to serve @ %s", s.cfg.Addr)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return s.janitor(gCtx)
	})
	return g.Wait()
}
