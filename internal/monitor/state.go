// Package monitor mirrors the frames sent to the chain over HTTP.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ws2812delay/internal/loop"
	"github.com/coreman2200/ws2812delay/ws2812"
)

// DefaultThrottle caps websocket updates at ~20 per second.
const DefaultThrottle = 50 * time.Millisecond

// State is a loop.Sink that keeps the last frame and serves it:
//
//	/health  JSON counters, timing and diagnostics
//	/ws      every frame, throttled, as {"t", "frame_id", "rgb"}
type State struct {
	Throttle time.Duration
	// Stats, if set, supplies the loop counters for /health.
	Stats func() loop.Stats

	dev *ws2812.Dev

	mu        sync.Mutex
	rgb       []byte
	frameID   uint64
	lastEmit  time.Time
	startTime time.Time
	clients   map[*client]bool
}

// client queues at most one frame. A newer frame replaces one not yet sent,
// so a slow reader only sees fewer frames.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, 1), done: make(chan struct{})}
}

func (c *client) offer(b []byte) {
	select {
	case c.send <- b:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- b:
	default:
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Debug().Err(err).Msg("write frame")
				c.conn.Close()
				return
			}
		}
	}
}

// NewState reports on dev, which may be nil in simulation.
func NewState(dev *ws2812.Dev) *State {
	return &State{
		Throttle:  DefaultThrottle,
		dev:       dev,
		startTime: time.Now(),
		clients:   map[*client]bool{},
	}
}

// Write implements loop.Sink. It never fails.
func (s *State) Write(frame []ws2812.Color) error {
	rgb := make([]byte, 0, 3*len(frame))
	for _, c := range frame {
		rgb = append(rgb, c.R, c.G, c.B)
	}
	s.mu.Lock()
	s.rgb = rgb
	s.frameID++
	id := s.frameID
	now := time.Now()
	if s.lastEmit.Add(s.Throttle).After(now) || len(s.clients) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.lastEmit = now
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	s.broadcast(clients, id, rgb)
	return nil
}

type frameMsg struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

// broadcast queues a frame on every client without waiting for the sockets.
func (s *State) broadcast(clients []*client, id uint64, rgb []byte) {
	b, _ := json.Marshal(frameMsg{T: time.Now().UnixNano(), FrameID: id, RGB: rgb})
	for _, c := range clients {
		c.offer(b)
	}
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	s.mu.Lock()
	s.clients[c] = true
	b, _ := json.Marshal(frameMsg{T: time.Now().UnixNano(), FrameID: s.frameID, RGB: s.rgb})
	c.offer(b)
	s.mu.Unlock()

	go c.writeLoop()
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			close(c.done)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Health is the /health document.
type Health struct {
	FrameID     uint64       `json:"frame_id"`
	UptimeS     float64      `json:"uptime_s"`
	Count       int          `json:"count"`
	Clients     int          `json:"clients"`
	Device      string       `json:"device,omitempty"`
	Clock       string       `json:"clock,omitempty"`
	Unit        uint32       `json:"unit,omitempty"`
	BitPeriod   string       `json:"bit_period,omitempty"`
	ResetGap    string       `json:"reset_gap,omitempty"`
	Loop        *loop.Stats  `json:"loop,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	h := Health{
		FrameID: s.frameID,
		UptimeS: time.Since(s.startTime).Seconds(),
		Count:   len(s.rgb) / 3,
		Clients: len(s.clients),
	}
	s.mu.Unlock()
	var st loop.Stats
	if s.Stats != nil {
		st = s.Stats()
		h.Loop = &st
	}
	if s.dev != nil {
		t, clk := s.dev.Timing(), s.dev.Clock()
		h.Device = s.dev.String()
		h.Clock = clk.String()
		h.Unit = t.Unit
		h.BitPeriod = t.BitPeriod(clk).String()
		h.ResetGap = t.ResetGap(clk).String()
		h.Diagnostics = diagnose(t, clk, st)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h)
}

// Handler routes /health and /ws.
func (s *State) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return withCORS(mux)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}

var _ loop.Sink = &State{}
