// Package monitor publishes the keys going over the link, plus host
// diagnostics, to websocket clients and a JSON health endpoint.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	diag "github.com/coreman2200/funtimes-ti99kb/internal/diagnostics"
	"github.com/coreman2200/funtimes-ti99kb/internal/keymap"
	"github.com/coreman2200/funtimes-ti99kb/internal/matrix"
)

const (
	queueLen    = 64
	keepDiags   = 16
	writeWindow = 200 * time.Millisecond
)

type Key struct {
	Row    int             `json:"row"`
	Column int             `json:"col"`
	Code   keymap.ScanCode `json:"code"`
}

type Event struct {
	T      int64  `json:"t"`
	Kind   string `json:"kind"` // hello | latched | sent
	Byte   byte   `json:"byte"`
	Name   string `json:"name,omitempty"`
	Key    *Key   `json:"key,omitempty"`
	Driver string `json:"driver,omitempty"`
}

type outgoing struct {
	diag bool
	b    []byte
}

// Monitor implements firmware.Observer. The observer calls only count and
// enqueue; all socket writes happen on the goroutine running Run.
type Monitor struct {
	Log zerolog.Logger

	mu          sync.RWMutex
	driver      string
	startTime   time.Time
	latched     uint64
	sent        uint64
	dropped     uint64
	last        *Event
	diags       []diag.Diagnostic
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool

	queue chan outgoing
}

func New(driver string) *Monitor {
	return &Monitor{
		Log:         zerolog.Nop(),
		driver:      driver,
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		queue:       make(chan outgoing, queueLen),
	}
}

func (m *Monitor) KeyLatched(hit matrix.KeyHit) {
	ev := Event{
		T:    time.Now().UnixNano(),
		Kind: "latched",
		Byte: hit.Char,
		Name: Name(hit.Char),
		Key:  &Key{Row: hit.Row, Column: hit.Column, Code: hit.Code},
	}
	m.mu.Lock()
	m.latched++
	m.mu.Unlock()
	m.enqueue(false, ev)
}

func (m *Monitor) KeySent(b byte) {
	ev := Event{T: time.Now().UnixNano(), Kind: "sent", Byte: b, Name: Name(b)}
	m.mu.Lock()
	m.sent++
	m.last = &ev
	m.mu.Unlock()
	m.enqueue(false, ev)
}

// Push records d and forwards it to /diag clients.
func (m *Monitor) Push(d diag.Diagnostic) {
	d = d.Stamp()
	m.mu.Lock()
	m.diags = append(m.diags, d)
	if len(m.diags) > keepDiags {
		m.diags = m.diags[len(m.diags)-keepDiags:]
	}
	m.mu.Unlock()
	m.enqueue(true, d)
}

// enqueue never blocks: if Run is not keeping up the message is dropped.
func (m *Monitor) enqueue(isDiag bool, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		m.Log.Error().Err(err).Msg("encode monitor event")
		return
	}
	select {
	case m.queue <- outgoing{diag: isDiag, b: b}:
	default:
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
	}
}

// Run broadcasts queued messages until ctx is done, then closes every client.
func (m *Monitor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case o := <-m.queue:
			m.broadcast(o)
		}
	}
}

func (m *Monitor) broadcast(o outgoing) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.clients
	if o.diag {
		set = m.diagClients
	}
	for c := range set {
		c.SetWriteDeadline(time.Now().Add(writeWindow))
		if err := c.WriteMessage(websocket.TextMessage, o.b); err != nil {
			m.Log.Debug().Err(err).Msg("write monitor event")
		}
	}
}

func (m *Monitor) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for c := range m.clients {
		c.Close()
		delete(m.clients, c)
	}
	for c := range m.diagClients {
		c.Close()
		delete(m.diagClients, c)
	}
}

// HandleKeysWS greets the client with a hello event and then streams key
// events.
func (m *Monitor) HandleKeysWS(w http.ResponseWriter, r *http.Request) {
	conn, ok := m.upgrade(w, r)
	if !ok {
		return
	}
	hello, _ := json.Marshal(Event{T: time.Now().UnixNano(), Kind: "hello", Driver: m.driver})

	// hello goes out under the write lock so it cannot interleave with a
	// broadcast, and the client is registered before the lock is released.
	m.mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWindow))
	err := conn.WriteMessage(websocket.TextMessage, hello)
	if err == nil {
		m.clients[conn] = true
	}
	m.mu.Unlock()
	if err != nil {
		conn.Close()
		return
	}
	go m.readUntilClosed(conn, m.clients)
}

// HandleDiagWS replays the recent diagnostics and then streams new ones.
func (m *Monitor) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, ok := m.upgrade(w, r)
	if !ok {
		return
	}
	m.mu.Lock()
	var err error
	for _, d := range m.diags {
		b, _ := json.Marshal(d)
		conn.SetWriteDeadline(time.Now().Add(writeWindow))
		if err = conn.WriteMessage(websocket.TextMessage, b); err != nil {
			break
		}
	}
	if err == nil {
		m.diagClients[conn] = true
	}
	m.mu.Unlock()
	if err != nil {
		conn.Close()
		return
	}
	go m.readUntilClosed(conn, m.diagClients)
}

func (m *Monitor) upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, bool) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		m.Log.Debug().Err(err).Msg("websocket upgrade")
		return nil, false
	}
	return conn, true
}

func (m *Monitor) readUntilClosed(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		m.mu.Lock()
		delete(set, conn)
		m.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type Health struct {
	Driver  string  `json:"driver"`
	UptimeS float64 `json:"uptime_s"`
	Latched uint64  `json:"latched"`
	Sent    uint64  `json:"sent"`
	Dropped uint64  `json:"dropped"`
	Clients int     `json:"clients"`
	Last    *Event  `json:"last,omitempty"`
}

func (m *Monitor) Health() Health {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Health{
		Driver:  m.driver,
		UptimeS: time.Since(m.startTime).Seconds(),
		Latched: m.latched,
		Sent:    m.sent,
		Dropped: m.dropped,
		Clients: len(m.clients) + len(m.diagClients),
		Last:    m.last,
	}
}

func (m *Monitor) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Health())
}

// Handler routes /keys, /diag and /health.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/keys", m.HandleKeysWS)
	mux.HandleFunc("/diag", m.HandleDiagWS)
	mux.HandleFunc("/health", m.HandleHealth)
	return withCORS(mux)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// Name renders a transmitted byte for humans.
func Name(b byte) string {
	switch b {
	case 0:
		return "NUL"
	case '\n':
		return "RETURN"
	case ' ':
		return "SPACE"
	case keymap.ArrowUp:
		return "UP"
	case keymap.ArrowLeft:
		return "LEFT"
	case keymap.ArrowRight:
		return "RIGHT"
	case keymap.ArrowDown:
		return "DOWN"
	}
	if b < 0x20 {
		return fmt.Sprintf("CTRL-%c", b+'@')
	}
	if b < 0x7F {
		return string(rune(b))
	}
	return fmt.Sprintf("%#02x", b)
}
