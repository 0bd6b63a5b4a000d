package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/mines"
)

// maxMessageSize bounds a single client message. A few hundred commands fit.
const maxMessageSize = 4096

// ConnectWS plays a session over a websocket. Every text message holds
// newline separated commands and is answered with a single JSON message: the
// game after the last command, or an error.
func (s *Server) ConnectWS(w http.ResponseWriter, r *http.Request) {
	session, ok := s.authorize(w, r)
	if !ok {
		return
	}

	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("upgrade")
		return
	}
	defer c.Close()
	c.SetReadLimit(maxMessageSize)

	log := s.log.WithField("game_id", session.ID)
	log.Debug("websocket connected")

	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("read")
			}
			return
		}
		if mt != websocket.TextMessage {
			c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(
				websocket.CloseUnsupportedData, "text messages only",
			))
			return
		}

		reply, err := s.execute(session, string(message), log)
		if err != nil {
			reply = wrapError(err)
		}
		s.record(r.Context(), session)

		if err := c.WriteJSON(reply); err != nil {
			log.WithError(err).Warn("write")
			return
		}
	}
}

func (s *Server) execute(session *Session, text string, log logrus.FieldLogger) (any, error) {
	commands, err := ParseCommands(text)
	if err != nil {
		return nil, err
	}
	if len(commands) == 0 {
		return nil, errors.New("no commands")
	}

	var (
		outcome mines.Outcome
		moved   bool
	)
	for _, c := range commands {
		if c.View {
			continue
		}
		outcome, err = session.Move(c.Row, c.Col, c.Action, s.now())
		if err != nil {
			return nil, err
		}
		moved = true
		log.WithFields(logrus.Fields{
			"row":     c.Row,
			"col":     c.Col,
			"action":  c.Action.String(),
			"outcome": outcome.String(),
		}).Debug("move")
		if session.Over() {
			break
		}
	}

	game := session.Snapshot(s.now())
	if !moved {
		return MoveResponse{Game: game}, nil
	}
	return newMoveResponse(game, outcome), nil
}
