package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/domain/ports/adapter"
	"telegram-prediction-backend/internal/infra/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	sendBuffer = 16
)

// envelope is the wire frame pushed to mini-app clients.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type session struct {
	conn *websocket.Conn
	send chan []byte
}

var _ adapter.RealtimeBroadcaster = (*Hub)(nil)

// Hub fans settlement events out to the buyer's open mini-app sessions.
// A user can hold several sessions (multiple devices); each gets every
// frame. A session that cannot keep up is dropped, the client reconnects.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*session]struct{}
	upgrader websocket.Upgrader
	log      *zerolog.Logger
}

func NewHub(log *zerolog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*session]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The HTTP layer already authenticated the user; origin
			// enforcement belongs to the edge proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// ServeUser upgrades the request and pumps frames until the client leaves.
func (h *Hub) ServeUser(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	s := &session{conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(userID, s)
	metrics.IncWSSessions()

	go h.writePump(s)
	h.readPump(userID, s)
}

func (h *Hub) add(userID string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*session]struct{})
	}
	h.sessions[userID][s] = struct{}{}
}

func (h *Hub) remove(userID string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.sessions[userID]; ok {
		if _, ok := set[s]; ok {
			delete(set, s)
			close(s.send)
			metrics.DecWSSessions()
		}
		if len(set) == 0 {
			delete(h.sessions, userID)
		}
	}
}

// Broadcast sends one event frame to every open session of the user.
// It never blocks: slow sessions are skipped and will be reaped by
// their write pump timing out.
func (h *Hub) Broadcast(userID, event string, payload interface{}) {
	raw, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal broadcast")
		metrics.IncBroadcast(event, "error")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.sessions[userID]
	if len(set) == 0 {
		metrics.IncBroadcast(event, "no_session")
		return
	}
	for s := range set {
		select {
		case s.send <- raw:
		default:
			// Buffer full; the session is stalled.
		}
	}
	metrics.IncBroadcast(event, "sent")
}

// readPump discards client frames (the channel is push-only) and keeps the
// pong deadline fresh.
func (h *Hub) readPump(userID string, s *session) {
	defer func() {
		h.remove(userID, s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("user_id", userID).Msg("websocket closed")
			}
			return
		}
	}
}

func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
