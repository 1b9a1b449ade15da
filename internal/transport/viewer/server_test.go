package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"matchreplay.ai/internal/config"
	"matchreplay.ai/internal/sim/player"
	"matchreplay.ai/internal/sim/worldtest"
	"matchreplay.ai/internal/viewproto"
)

func newTestServer(t *testing.T, rounds int) *httptest.Server {
	t.Helper()
	m := worldtest.Skirmish(rounds)
	p, err := player.New(m, worldtest.NewWorld(t, m), player.Options{Stride: 8})
	if err != nil {
		t.Fatalf("player.New: %v", err)
	}
	s := NewServer("skirmish", p, config.Default().Viewer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/viewer"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type reply struct {
	Type  string `json:"type"`
	Round int32  `json:"round"`
	Code  string `json:"code"`
}

func read(t *testing.T, conn *websocket.Conn) reply {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var r reply
	if err := json.Unmarshal(msg, &r); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	return r
}

func send(t *testing.T, conn *websocket.Conn, cmd viewproto.CommandMsg) {
	t.Helper()
	cmd.ProtocolVersion = viewproto.Version
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestViewer_Commands(t *testing.T) {
	ts := newTestServer(t, 40)
	conn := dial(t, ts)

	if r := read(t, conn); r.Type != viewproto.TypeFrame || r.Round != 0 {
		t.Fatalf("initial frame: %+v", r)
	}

	steps := []struct {
		cmd  viewproto.CommandMsg
		want int32
	}{
		{viewproto.CommandMsg{Type: viewproto.TypeSeek, Round: 17}, 17},
		{viewproto.CommandMsg{Type: viewproto.TypeStep}, 18},
		{viewproto.CommandMsg{Type: viewproto.TypeBack}, 17},
		{viewproto.CommandMsg{Type: viewproto.TypeBack}, 16},
		{viewproto.CommandMsg{Type: viewproto.TypeSeek, Round: 999}, 40},
		{viewproto.CommandMsg{Type: viewproto.TypeStep}, 40},
		{viewproto.CommandMsg{Type: viewproto.TypeSeek, Round: 0}, 0},
		{viewproto.CommandMsg{Type: viewproto.TypeBack}, 0},
	}
	for i, s := range steps {
		send(t, conn, s.cmd)
		r := read(t, conn)
		if r.Type != viewproto.TypeFrame || r.Round != s.want {
			t.Fatalf("step %d (%s): got %+v want round %d", i, s.cmd.Type, r, s.want)
		}
	}

	send(t, conn, viewproto.CommandMsg{Type: "JUMP"})
	if r := read(t, conn); r.Type != viewproto.TypeError || r.Code != "BAD_COMMAND" {
		t.Fatalf("unknown command reply: %+v", r)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"SEEK","protocol_version":"0.1","round":3}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if r := read(t, conn); r.Type != viewproto.TypeError {
		t.Fatalf("bad version reply: %+v", r)
	}
}

func TestViewer_IndependentCursors(t *testing.T) {
	ts := newTestServer(t, 20)
	a := dial(t, ts)
	b := dial(t, ts)
	read(t, a)
	read(t, b)

	send(t, a, viewproto.CommandMsg{Type: viewproto.TypeSeek, Round: 12})
	if r := read(t, a); r.Round != 12 {
		t.Fatalf("a: got %d want 12", r.Round)
	}
	send(t, b, viewproto.CommandMsg{Type: viewproto.TypeStep})
	if r := read(t, b); r.Round != 1 {
		t.Fatalf("b: got %d want 1", r.Round)
	}
	send(t, a, viewproto.CommandMsg{Type: viewproto.TypeStep})
	if r := read(t, a); r.Round != 13 {
		t.Fatalf("a: got %d want 13", r.Round)
	}
}

func TestBootstrapHandler(t *testing.T) {
	ts := newTestServer(t, 5)

	resp, err := http.Get(ts.URL + "/v1/bootstrap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d want 200", resp.StatusCode)
	}
	var b viewproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Match != "skirmish" || b.MaxRound != 5 || b.Winner != 1 {
		t.Fatalf("bootstrap: %+v", b)
	}

	post, err := http.Post(ts.URL+"/v1/bootstrap", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("post status: got %d want 405", post.StatusCode)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:5555", true},
		{"[::1]:80", true},
		{"10.0.0.2:80", false},
		{"example.com:80", false},
		{"garbage", false},
	}
	for _, c := range cases {
		if got := isLoopbackRemote(c.addr); got != c.want {
			t.Fatalf("%s: got %v want %v", c.addr, got, c.want)
		}
	}
}
