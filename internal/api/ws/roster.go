package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/logger"
	"gatepass-backend/internal/repository"
	"gatepass-backend/internal/security"
	"gatepass-backend/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Message is the wire envelope pushed to roster listeners.
type Message struct {
	Type   string             `json:"type"`
	Visits []domain.VisitPass `json:"visits"`
}

// RosterHandler upgrades dashboard connections and streams roster snapshots.
// Each connection holds its own store subscription; the store does the
// fan-out.
type RosterHandler struct {
	roster   service.RosterService
	tokens   security.TokenManager
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewRosterHandler(roster service.RosterService, tokens security.TokenManager) *RosterHandler {
	return &RosterHandler{
		roster: roster,
		tokens: tokens,
		log:    logger.WithComponent("roster-ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *RosterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on websocket upgrades; the token rides the
	// query string instead.
	if _, err := h.tokens.ValidateToken(r.URL.Query().Get("token")); err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	filter := repository.VisitFilter{}
	if date := r.URL.Query().Get("date"); date != "" {
		if _, err := time.Parse(domain.VisitDateLayout, date); err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.VisitDate = date
	}

	updates, cancel, err := h.roster.Subscribe(r.Context(), filter)
	if err != nil {
		http.Error(w, "record store temporarily unavailable", http.StatusBadGateway)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		return
	}

	go h.readPump(conn, cancel)
	h.writePump(conn, updates, cancel)
}

// readPump discards inbound frames; it exists to notice the peer going away
// and to answer pings.
func (h *RosterHandler) readPump(conn *websocket.Conn, cancel func()) {
	defer func() {
		cancel()
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("roster websocket closed", "error", err)
			}
			return
		}
	}
}

func (h *RosterHandler) writePump(conn *websocket.Conn, updates <-chan []domain.VisitPass, cancel func()) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
	}()

	for {
		select {
		case visits, ok := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(Message{Type: "roster", Visits: visits}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
