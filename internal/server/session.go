package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/records"
)

var (
	ErrSessionNotFound = errors.New("game session not found")
	ErrGameOver        = errors.New("game is over")
)

const channelHTTP = "http"

// Session hosts a single board. Every access to the board goes through the
// session mutex.
type Session struct {
	ID uuid.UUID

	mu        sync.Mutex
	board     *mines.Board
	moves     int
	startedAt time.Time
	endedAt   time.Time
	lastSeen  time.Time
	recorded  bool
}

func newSession(b *mines.Board, now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		board:     b,
		startedAt: now,
		lastSeen:  now,
	}
}

func (s *Session) finished() bool {
	return s.board.IsGameOver() || s.board.CheckWin()
}

// closed reports whether the session takes no more moves. Expired sessions
// are closed without a decided game.
func (s *Session) closed() bool {
	return s.finished() || !s.endedAt.IsZero()
}

func (s *Session) Over() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed()
}

// Move applies one move and ends the session when the game is decided.
func (s *Session) Move(row, col int, a mines.Action, now time.Time) (mines.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = now
	if s.closed() {
		return 0, ErrGameOver
	}

	outcome := s.board.ApplyMove(row, col, a)
	s.moves++
	if a == mines.Reveal && s.board.CheckLoss(row, col) {
		s.board.SetGameOver(true)
	}
	if s.finished() {
		s.endedAt = now
	}
	return outcome, nil
}

// Snapshot renders the session for clients. Finished games show the solution.
func (s *Session) Snapshot(now time.Time) GameDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = now
	return newGameDTO(s)
}

// end marks an unfinished session as abandoned.
func (s *Session) end(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endedAt.IsZero() {
		s.endedAt = now
	}
}

// takeRecord returns the record of an ended session exactly once.
func (s *Session) takeRecord() (records.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorded || s.endedAt.IsZero() {
		return records.Record{}, false
	}
	s.recorded = true
	return records.NewRecord(s.board, s.moves, channelHTTP, s.startedAt, s.endedAt), true
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

type Sessions struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[uuid.UUID]*Session)}
}

func (ss *Sessions) Add(s *Session) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[s.ID] = s
}

func (ss *Sessions) Get(id string) (*Session, error) {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	s, ok := ss.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (ss *Sessions) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Expire removes and returns the sessions idle for longer than ttl.
func (ss *Sessions) Expire(now time.Time, ttl time.Duration) []*Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	var expired []*Session
	for id, s := range ss.sessions {
		if s.idleSince(now) > ttl {
			delete(ss.sessions, id)
			expired = append(expired, s)
		}
	}
	return expired
}
