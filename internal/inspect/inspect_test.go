package inspect

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"limbrun/internal/event"
	"limbrun/internal/input"
	"limbrun/internal/limb"
	"limbrun/internal/phase"
	"limbrun/internal/status"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New("1.2.3", nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.closeClients()
		ts.Close()
	})
	return s, ts
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSessionIsUUID(t *testing.T) {
	s := New("dev", nil)
	if _, err := uuid.Parse(s.Session()); err != nil {
		t.Errorf("session %q is not a uuid: %v", s.Session(), err)
	}
}

func TestHealthAndVersion(t *testing.T) {
	_, ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, ts.URL+"/version")
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "limbrun v1.2.3\n" {
		t.Errorf("version body = %q", body)
	}
}

func TestStateServesLastSnapshot(t *testing.T) {
	s, ts := newTestServer(t)
	s.Publish(status.Snapshot{Phase: phase.QTE, Rounds: 4, Lives: 2})

	resp := do(t, http.MethodGet, ts.URL+"/state")
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["phase"] != "qte" {
		t.Errorf("phase = %v, want qte", got["phase"])
	}
	if got["rounds"] != float64(4) {
		t.Errorf("rounds = %v, want 4", got["rounds"])
	}
	if got["session"] != s.Session() {
		t.Errorf("session = %v, want %s", got["session"], s.Session())
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   Command
	}{
		{"restart", http.MethodPut, "/restart", Command{Kind: CmdRestart}},
		{"mode", http.MethodPut, "/mode/game", Command{Kind: CmdMode, Mode: input.ModeGame}},
		{"assign", http.MethodPut, "/slots/right-leg/device/pad-7", Command{Kind: CmdAssign, Slot: limb.RightLeg, DeviceID: "pad-7"}},
		{"unpin", http.MethodDelete, "/slots/head/device", Command{Kind: CmdUnpin, Slot: limb.Head}},
		{"skin", http.MethodPut, "/skins/LeftArm/2", Command{Kind: CmdSkin, Slot: limb.LeftArm, Skin: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ts := newTestServer(t)
			resp := do(t, tt.method, ts.URL+tt.path)
			if resp.StatusCode != http.StatusAccepted {
				t.Fatalf("status = %d, want 202", resp.StatusCode)
			}
			select {
			case got := <-s.Commands():
				if got != tt.want {
					t.Errorf("command = %+v, want %+v", got, tt.want)
				}
			default:
				t.Fatal("no command queued")
			}
		})
	}
}

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/mode/turbo"},
		{http.MethodPut, "/slots/tail/device/pad-1"},
		{http.MethodDelete, "/slots/9/device"},
		{http.MethodPut, "/skins/head/-1"},
		{http.MethodPut, "/skins/head/abc"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s, ts := newTestServer(t)
			resp := do(t, tt.method, ts.URL+tt.path)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if len(s.Commands()) != 0 {
				t.Error("invalid request queued a command")
			}
		})
	}
}

func TestCommandQueueFull(t *testing.T) {
	s, ts := newTestServer(t)
	for i := 0; i < commandBuf; i++ {
		do(t, http.MethodPut, ts.URL+"/restart")
	}
	resp := do(t, http.MethodPut, ts.URL+"/restart")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if len(s.Commands()) != commandBuf {
		t.Errorf("queued %d, want %d", len(s.Commands()), commandBuf)
	}
}

func TestCrossSiteRequestsRejected(t *testing.T) {
	s, ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/restart")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /restart status = %d, want 405", resp.StatusCode)
	}
	if len(s.Commands()) != 0 {
		t.Errorf("POST /restart queued %d commands", len(s.Commands()))
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	hdr := http.Header{"Origin": {"http://elsewhere.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	if err == nil {
		conn.Close()
		t.Fatal("foreign origin was upgraded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign origin response = %v, want 403", resp)
	}

	hdr = http.Header{"Origin": {ts.URL}}
	conn, _, err = websocket.DefaultDialer.Dial(url, hdr)
	if err != nil {
		t.Fatalf("same-origin dial: %v", err)
	}
	conn.Close()
}

func TestEventStream(t *testing.T) {
	s, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.HandleEvent(event.Event{
		Type:    event.PhaseChanged,
		At:      1500 * time.Millisecond,
		Payload: phase.Change{From: phase.Running, To: phase.Hiding},
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got struct {
		Type    string `json:"type"`
		At      int64  `json:"at"`
		Payload struct {
			From string
			To   string
		} `json:"payload"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	if got.Type != "phase_changed" || got.At != int64(1500*time.Millisecond) {
		t.Errorf("event = %+v", got)
	}
	if got.Payload.From != "running" || got.Payload.To != "hiding" {
		t.Errorf("payload = %+v", got.Payload)
	}
}

func TestSlowClientDropped(t *testing.T) {
	s := New("dev", nil)
	c := &client{send: make(chan []byte, 1)}
	s.clients[c] = struct{}{}

	ev := event.Event{Type: event.GameOver}
	s.HandleEvent(ev)
	s.HandleEvent(ev)
	if s.Clients() != 0 {
		t.Error("full client should be dropped")
	}
	if _, ok := <-c.send; !ok {
		t.Error("first message should still be buffered")
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed")
	}
}
