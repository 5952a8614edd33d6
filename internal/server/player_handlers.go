package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
)

// The control surface binds to loopback, so any origin may attach.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// positionRequest is the body of seek and scrub requests
type positionRequest struct {
	Position *float64 `json:"position"`
}

// handleGetPlayerState returns the current player state
func (s *Server) handleGetPlayerState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.session.Player().State())
}

// handleGetHistory returns played tracks, oldest first
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.session.Player().History())
}

// handleGetQueue returns the play-next queue in play order
func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.session.Player().Queue())
}

// respondWithState replies with the state after a transport command
func (s *Server) respondWithState(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.session.Player().State())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.respondWithState(w, r, s.session.Player().Play())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.respondWithState(w, r, s.session.Player().TogglePlay())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.session.Player().Pause()
	s.respondWithState(w, r, nil)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.session.Player().Resume()
	s.respondWithState(w, r, nil)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.session.Player().Stop()
	s.respondWithState(w, r, nil)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.respondWithState(w, r, s.session.Player().Next())
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.respondWithState(w, r, s.session.Player().Previous())
}

// decodePosition reads and validates a position body
func (s *Server) decodePosition(w http.ResponseWriter, r *http.Request) (float64, bool) {
	var req positionRequest
	if verr := decodeJSON(r, &req); verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return 0, false
	}
	if verr := validatePosition(req.Position); verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return 0, false
	}
	return *req.Position, true
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	position, ok := s.decodePosition(w, r)
	if !ok {
		return
	}
	s.respondWithState(w, r, s.session.Player().Seek(position))
}

func (s *Server) handleBeginScrub(w http.ResponseWriter, r *http.Request) {
	s.session.Player().BeginScrub()
	s.respondWithState(w, r, nil)
}

func (s *Server) handleScrub(w http.ResponseWriter, r *http.Request) {
	position, ok := s.decodePosition(w, r)
	if !ok {
		return
	}
	s.session.Player().Scrub(int(position))
	s.respondWithState(w, r, nil)
}

func (s *Server) handleEndScrub(w http.ResponseWriter, r *http.Request) {
	position, ok := s.decodePosition(w, r)
	if !ok {
		return
	}
	s.respondWithState(w, r, s.session.Player().EndScrub(position))
}

// handlePlayerFeed streams state snapshots over a websocket. The current
// state is sent first, then every published change.
func (s *Server) handlePlayerFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	clients := s.session.Clients()
	client := clients.Register(r.UserAgent(), r.RemoteAddr)
	defer clients.Remove(client.ID)

	states := s.session.Player().States()
	updates := states.Subscribe()
	defer states.Unsubscribe(updates)

	log := s.logger.WithFields(logrus.Fields{
		"client": client.ID,
		"remote": r.RemoteAddr,
	})
	log.Info("Player feed connected")
	defer log.Info("Player feed disconnected")

	// reader: keeps pongs flowing and notices the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			clients.Touch(client.ID)
			return conn.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			clients.Touch(client.ID)
		}
	}()

	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	current := s.session.Player().State()
	if err := writeState(conn, &current); err != nil {
		return
	}

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				log.Warn("Player feed fell behind, closing")
				conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
				return
			}
			if err := writeState(conn, state); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeState(conn *websocket.Conn, state any) error {
	conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	return conn.WriteJSON(state)
}
