package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/records"
)

const maxHighscores = 100

var (
	ErrBoardTooLarge   = errors.New("board has too many cells")
	ErrRecordsDisabled = errors.New("records are disabled")
	ErrNoToken         = errors.New("session token required")
	ErrForeignToken    = errors.New("token belongs to another session")
)

func sendJSON(w http.ResponseWriter, statusCode int, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, err = w.Write(payload)
	return err
}

func (s *Server) sendJSONOrLog(w http.ResponseWriter, v any) {
	if err := sendJSON(w, http.StatusOK, v); err != nil {
		s.log.WithError(err).Error("unable to send response")
	}
}

func wrapError(err error) map[string]string {
	return map[string]string{
		"error": err.Error(),
	}
}

func (s *Server) sendError(w http.ResponseWriter, statusCode int, err error) {
	if sendErr := sendJSON(w, statusCode, wrapError(err)); sendErr != nil {
		s.log.WithError(sendErr).Error("unable to send error")
	}
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.log.WithError(err).Error(msg)
	w.WriteHeader(http.StatusInternalServerError)
}

// authorize finds the session named in the path and checks that the
// request carries its token.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	session, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.sendError(w, http.StatusNotFound, err)
		return nil, false
	}
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.sendError(w, http.StatusUnauthorized, ErrNoToken)
		return nil, false
	}
	if claims.SessionID() != session.ID.String() {
		s.sendError(w, http.StatusForbidden, ErrForeignToken)
		return nil, false
	}
	return session, true
}

func (s *Server) NewGame(w http.ResponseWriter, r *http.Request) {
	params, err := ParseNewGameDTO(r.URL.Query(), s.board)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err)
		return
	}
	if s.cfg.MaxCells > 0 && params.Area() > s.cfg.MaxCells {
		s.sendError(w, http.StatusBadRequest,
			fmt.Errorf("%w: %d > %d", ErrBoardTooLarge, params.Area(), s.cfg.MaxCells))
		return
	}

	board, err := mines.New(params, s.src)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err)
		return
	}

	session := newSession(board, s.now())
	token, err := s.tokens.Sign(session.ID.String())
	if err != nil {
		s.internalError(w, "unable to sign session token", err)
		return
	}
	s.sessions.Add(session)

	s.log.WithFields(logrus.Fields{
		"game_id": session.ID,
		"board":   params.String(),
	}).Debug("game created")

	s.sendJSONOrLog(w, NewGameResponse{
		Game:  session.Snapshot(s.now()),
		Token: token,
	})
}

func (s *Server) Fetch(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.sendError(w, http.StatusNotFound, err)
		return
	}
	s.sendJSONOrLog(w, session.Snapshot(s.now()))
}

func (s *Server) MakeAMove(w http.ResponseWriter, r *http.Request) {
	session, ok := s.authorize(w, r)
	if !ok {
		return
	}

	move, err := ParseMoveDTO(r.URL.Query())
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err)
		return
	}
	// Unknown actions reach the board and come back as InvalidAction.
	action, _ := mines.ParseAction(move.Action)

	outcome, err := session.Move(move.Row, move.Col, action, s.now())
	if errors.Is(err, ErrGameOver) {
		s.sendError(w, http.StatusConflict, err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"game_id": session.ID,
		"row":     move.Row,
		"col":     move.Col,
		"action":  action.String(),
		"outcome": outcome.String(),
	}).Debug("move")

	s.record(r.Context(), session)
	s.sendJSONOrLog(w, newMoveResponse(session.Snapshot(s.now()), outcome))
}

func (s *Server) Highscores(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		s.sendError(w, http.StatusServiceUnavailable, ErrRecordsDisabled)
		return
	}
	dto, err := ParseHighscoresDTO(r.URL.Query())
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err)
		return
	}
	filter := records.Filter{Params: dto.Board(), Limit: min(dto.Limit, maxHighscores)}

	scores, err := s.records.Highscores(r.Context(), filter)
	if err != nil {
		s.internalError(w, "unable to fetch highscores", err)
		return
	}
	s.sendJSONOrLog(w, scores)
}

func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		s.sendError(w, http.StatusServiceUnavailable, ErrRecordsDisabled)
		return
	}
	stats, err := s.records.Stats(r.Context())
	if err != nil {
		s.internalError(w, "unable to fetch stats", err)
		return
	}
	s.sendJSONOrLog(w, stats)
}

type Status struct {
	Sessions int  `json:"sessions"`
	Records  bool `json:"records"`
	// Session is set when the request carries a valid token.
	Session string `json:"session,omitempty"`
}

func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Sessions: s.sessions.Len(),
		Records:  s.records != nil,
	}
	if claims, ok := claimsFrom(r.Context()); ok {
		status.Session = claims.SessionID()
	}
	s.sendJSONOrLog(w, status)
}
