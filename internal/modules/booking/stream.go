package booking

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"restobook/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StatusEvent is what subscribers receive after every booking change.
type StatusEvent struct {
	Type    string          `json:"type"`
	Booking *domain.Booking `json:"booking"`
}

const EventBookingUpdated = "booking_updated"

type subscriber struct {
	bookingID string
	conn      *websocket.Conn
	send      chan []byte
}

// Hub fans booking snapshots out to the sockets watching that booking.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]bool)}
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[s.bookingID]
	if !ok {
		set = make(map[*subscriber]bool)
		h.subs[s.bookingID] = set
	}
	set[s] = true
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[s.bookingID]
	if !ok || !set[s] {
		return
	}
	delete(set, s)
	close(s.send)
	if len(set) == 0 {
		delete(h.subs, s.bookingID)
	}
}

// Subscribers counts open sockets for a booking.
func (h *Hub) Subscribers(bookingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[bookingID])
}

func (h *Hub) Broadcast(b *domain.Booking) {
	if b == nil {
		return
	}
	data, err := json.Marshal(StatusEvent{Type: EventBookingUpdated, Booking: b})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[b.ID] {
		select {
		case s.send <- data:
		default:
			// slow client, drop
		}
	}
}

// Serve upgrades the request, sends the current snapshot and blocks until the
// client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, current *domain.Booking) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	s := &subscriber{bookingID: current.ID, conn: conn, send: make(chan []byte, 16)}
	h.register(s)

	if data, err := json.Marshal(StatusEvent{Type: EventBookingUpdated, Booking: current}); err == nil {
		s.send <- data
	}

	go h.writePump(s)
	h.readPump(s)
	return nil
}

// readPump only drains control frames; clients never send data.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMsgSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
