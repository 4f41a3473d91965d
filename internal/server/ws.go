package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ivlev/coursevideo/internal/bridge"
	"github.com/ivlev/coursevideo/internal/player"
	"github.com/ivlev/coursevideo/internal/timeline"
)

const writeWait = 5 * time.Second

// ClientMessage is sent by the host page.
type ClientMessage struct {
	Type  string `json:"type"` // tick, seek, loaded
	Frame int    `json:"frame"`
	// PlacementIndex names the placement a loaded document was mounted for.
	PlacementIndex *int `json:"placementIndex,omitempty"`
}

// ServerMessage is sent to the host page: a frame state or a bridge
// message to forward to the slide document.
type ServerMessage struct {
	Type        string              `json:"type"` // hello, frame, bridge
	Session     string              `json:"session,omitempty"`
	Composition *player.Composition `json:"composition,omitempty"`
	State       *player.FrameState  `json:"state,omitempty"`
	Message     *bridge.Message     `json:"message,omitempty"`
}

type session struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex

	player  *player.Player
	metrics *Metrics
	logger  zerolog.Logger
}

func (ss *session) write(msg ServerMessage) error {
	ss.writeMu.Lock()
	defer ss.writeMu.Unlock()
	ss.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ss.conn.WriteJSON(msg)
}

// wsChannel forwards bridge messages of one session to the browser, which
// relays them to the slide iframe.
type wsChannel struct {
	ss *session
}

func (ch wsChannel) Send(msg bridge.Message) error {
	if err := ch.ss.write(ServerMessage{Type: "bridge", Message: &msg}); err != nil {
		ch.ss.metrics.BridgeSendErrors.Inc()
		return err
	}
	ch.ss.metrics.BridgeMessages.WithLabelValues(string(msg.Type)).Inc()
	return nil
}

func (s *Server) handleWebSocket(c *gin.Context) {
	plan, ok := s.plan(c.Param("chapter"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ss := &session{
		id:      uuid.NewString(),
		conn:    conn,
		metrics: s.metrics,
	}
	ss.logger = s.logger.With().Str("session", ss.id).Str("chapter", plan.Chapter.ID).Logger()
	ss.player = player.New(plan.Timeline, func(timeline.Placement) bridge.Channel {
		return wsChannel{ss: ss}
	}, player.WithLogger(ss.logger))

	s.addSession(ss)
	defer s.removeSession(ss)

	comp := plan.Composition
	if err := ss.write(ServerMessage{Type: "hello", Session: ss.id, Composition: &comp}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ss.logger.Debug().Err(err).Msg("websocket closed")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			ss.logger.Debug().Err(err).Msg("ignoring malformed message")
			continue
		}

		switch msg.Type {
		case "tick", "seek":
			state := ss.player.Tick(msg.Frame)
			s.metrics.FramesEvaluated.WithLabelValues(msg.Type).Inc()
			if err := ss.write(ServerMessage{Type: "frame", State: &state}); err != nil {
				return
			}
		case "loaded":
			if msg.PlacementIndex != nil {
				ss.player.ViewportLoadedAt(*msg.PlacementIndex)
			} else {
				ss.player.ViewportLoaded()
			}
		default:
			ss.logger.Debug().Str("type", msg.Type).Msg("ignoring unknown message")
		}
	}
}

func (s *Server) addSession(ss *session) {
	s.sessionsMu.Lock()
	s.sessions[ss.id] = ss
	n := len(s.sessions)
	s.sessionsMu.Unlock()

	s.metrics.SessionsActive.Inc()
	s.metrics.SessionsTotal.Inc()
	ss.logger.Info().Int("sessions", n).Msg("player session opened")
}

func (s *Server) removeSession(ss *session) {
	s.sessionsMu.Lock()
	delete(s.sessions, ss.id)
	n := len(s.sessions)
	s.sessionsMu.Unlock()

	s.metrics.SessionsActive.Dec()
	sent, dropped, _ := ss.player.ActiveStats()
	ss.logger.Info().Int("sessions", n).Int("sent", sent).Int("dropped", dropped).Msg("player session closed")
}

// SessionCount reports the number of open player sessions.
func (s *Server) SessionCount() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return len(s.sessions)
}

func (s *Server) closeSessions() {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for _, ss := range s.sessions {
		ss.writeMu.Lock()
		ss.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		ss.writeMu.Unlock()
		ss.conn.Close()
	}
}
