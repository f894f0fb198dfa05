package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	diag "github.com/coreman2200/funtimes-ti99kb/internal/diagnostics"
	"github.com/coreman2200/funtimes-ti99kb/internal/firmware"
	"github.com/coreman2200/funtimes-ti99kb/internal/keymap"
	"github.com/coreman2200/funtimes-ti99kb/internal/matrix"
)

var _ firmware.Observer = (*Monitor)(nil)

func serve(t *testing.T, m *Monitor) *httptest.Server {
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(m.Handler())
	go m.Run(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read[T any](t *testing.T, conn *websocket.Conn) T {
	var v T
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &v))
	return v
}

func TestKeysStream(t *testing.T) {
	m := New("sim")
	srv := serve(t, m)
	conn := dial(t, srv, "/keys")

	hello := read[Event](t, conn)
	assert.Equal(t, "hello", hello.Kind)
	assert.Equal(t, "sim", hello.Driver)

	m.KeyLatched(matrix.KeyHit{Row: 2, Column: 5, Code: 14, Char: 'a'})
	m.KeySent('a')

	latched := read[Event](t, conn)
	assert.Equal(t, "latched", latched.Kind)
	assert.Equal(t, byte('a'), latched.Byte)
	require.NotNil(t, latched.Key)
	assert.Equal(t, Key{Row: 2, Column: 5, Code: 14}, *latched.Key)

	sent := read[Event](t, conn)
	assert.Equal(t, "sent", sent.Kind)
	assert.Equal(t, "a", sent.Name)
	assert.Nil(t, sent.Key)
}

func TestDiagReplayAndStream(t *testing.T) {
	m := New("gpio")
	srv := serve(t, m)
	m.Push(diag.Started("gpio"))

	conn := dial(t, srv, "/diag")
	first := read[diag.Diagnostic](t, conn)
	assert.Equal(t, diag.CodeStarted, first.Code)
	assert.NotZero(t, first.T)

	m.Push(diag.LinkFailed(assert.AnError))
	second := read[diag.Diagnostic](t, conn)
	assert.Equal(t, diag.CodeLinkFailed, second.Code)
	assert.Equal(t, diag.Err, second.Severity)
}

func TestDiagKeepsRecent(t *testing.T) {
	m := New("sim")
	for i := 0; i < keepDiags+5; i++ {
		m.Push(diag.Started("sim"))
	}
	assert.Len(t, m.diags, keepDiags)
}

func TestHealth(t *testing.T) {
	m := New("sim")
	m.KeyLatched(matrix.KeyHit{Char: 'x'})
	m.KeySent(0)
	m.KeySent('x')

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var h Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "sim", h.Driver)
	assert.Equal(t, uint64(1), h.Latched)
	assert.Equal(t, uint64(2), h.Sent)
	require.NotNil(t, h.Last)
	assert.Equal(t, byte('x'), h.Last.Byte)
}

func TestObserverNeverBlocks(t *testing.T) {
	m := New("sim")
	// nothing drains the queue
	for i := 0; i < queueLen+10; i++ {
		m.KeySent('z')
	}
	h := m.Health()
	assert.Equal(t, uint64(queueLen+10), h.Sent)
	assert.Equal(t, uint64(10), h.Dropped)
}

func TestName(t *testing.T) {
	cases := []struct {
		B    byte
		Want string
	}{
		{0, "NUL"},
		{'\n', "RETURN"},
		{' ', "SPACE"},
		{'Q', "Q"},
		{0x03, "CTRL-C"},
		{keymap.ArrowUp, "UP"},
		{keymap.ArrowDown, "DOWN"},
		{0xF0, "0xf0"},
	}
	for _, v := range cases {
		assert.Equal(t, v.Want, Name(v.B))
	}
}
