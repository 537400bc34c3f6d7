package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghanabus/bustracker/internal/hub"
	"github.com/ghanabus/bustracker/track"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeApplier struct {
	mu     sync.Mutex
	fixes  []track.Fix
	users  []string
	result track.VehicleState
	err    error
}

func (f *fakeApplier) Apply(fix track.Fix, userID string) (track.VehicleState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fixes = append(f.fixes, fix)
	f.users = append(f.users, userID)
	if f.err != nil {
		return track.VehicleState{}, f.err
	}
	return f.result, nil
}

type fakeHub struct {
	mu       sync.Mutex
	attached int
	detached int
	snaps    []track.VehicleState
	subs     []hub.Subscriber
}

func (f *fakeHub) Attach(sub hub.Subscriber, snapshot track.VehicleState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached++
	f.snaps = append(f.snaps, snapshot)
	f.subs = append(f.subs, sub)
}

func (f *fakeHub) Detach(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached++
}

func (f *fakeHub) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached - f.detached
}

type fakeRecorder struct {
	mu      sync.Mutex
	chats   []string
	saved   chan struct{}
	entries []track.HistoryEntry
	limits  []int
	err     error
}

func (f *fakeRecorder) SaveChat(_ context.Context, userID, query, reply string) error {
	f.mu.Lock()
	f.chats = append(f.chats, userID+"|"+query+"|"+reply)
	f.mu.Unlock()
	if f.saved != nil {
		f.saved <- struct{}{}
	}
	return nil
}

func (f *fakeRecorder) History(_ context.Context, limit int) ([]track.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func (f *fakeRecorder) Name() string { return "memory" }

type staticChat struct{ reply string }

func (s staticChat) Reply(string) string { return s.reply }

type allowAuth struct{ user string }

func (a allowAuth) Authenticate(*http.Request) (string, error) { return a.user, nil }

type denyAuth struct{}

func (denyAuth) Authenticate(*http.Request) (string, error) {
	return "", errors.New("bad credentials")
}

type serverParts struct {
	applier  *fakeApplier
	hub      *fakeHub
	recorder *fakeRecorder
	snapshot track.VehicleState
}

func newTestServer(t *testing.T, mutate func(*Config, *serverParts)) (*httptest.Server, *serverParts) {
	t.Helper()

	parts := &serverParts{
		applier:  &fakeApplier{},
		hub:      &fakeHub{},
		recorder: &fakeRecorder{},
	}
	cfg := Config{
		Pipeline: parts.applier,
		Snapshot: func() track.VehicleState { return parts.snapshot },
		Hub:      parts.hub,
		Chat:     staticChat{reply: "the bus is fine"},
		Recorder: parts.recorder,
		Auth:     allowAuth{user: "anonymous"},
		Logger:   testLogger(),
	}
	if mutate != nil {
		mutate(&cfg, parts)
	}

	ts := httptest.NewServer(New(cfg).Handler())
	t.Cleanup(ts.Close)
	return ts, parts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestIngest_AcceptsFix(t *testing.T) {
	ts, parts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/ingest", `{"lat": 5.6037, "lng": -0.187, "speed": 42}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body["success"] {
		t.Error(`response "success" = false, want true`)
	}

	parts.applier.mu.Lock()
	defer parts.applier.mu.Unlock()
	if len(parts.applier.fixes) != 1 {
		t.Fatalf("pipeline received %d fixes, want 1", len(parts.applier.fixes))
	}
	got := parts.applier.fixes[0]
	if got.Lat != 5.6037 || got.Lng != -0.187 || got.Speed != 42 {
		t.Errorf("pipeline received fix %+v", got)
	}
	if parts.applier.users[0] != "anonymous" {
		t.Errorf("pipeline received user %q, want %q", parts.applier.users[0], "anonymous")
	}
}

func TestIngest_MissingSpeedDefaultsToZero(t *testing.T) {
	ts, parts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/ingest", `{"lat": 1, "lng": 2}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	parts.applier.mu.Lock()
	defer parts.applier.mu.Unlock()
	if parts.applier.fixes[0].Speed != 0 {
		t.Errorf("Speed = %v, want 0 for omitted field", parts.applier.fixes[0].Speed)
	}
}

func TestIngest_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing lat", `{"lng": -0.187}`},
		{"missing lng", `{"lat": 5.6}`},
		{"string coordinates", `{"lat": "5.6", "lng": "-0.187"}`},
		{"malformed json", `{`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, parts := newTestServer(t, nil)

			resp := postJSON(t, ts.URL+"/ingest", tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			parts.applier.mu.Lock()
			defer parts.applier.mu.Unlock()
			if len(parts.applier.fixes) != 0 {
				t.Error("rejected request reached the pipeline")
			}
		})
	}
}

func TestIngest_InvalidFixFromPipeline(t *testing.T) {
	ts, _ := newTestServer(t, func(cfg *Config, parts *serverParts) {
		parts.applier.err = track.ErrInvalidFix
	})

	resp := postJSON(t, ts.URL+"/ingest", `{"lat": 1, "lng": 2}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestIngest_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/ingest")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestIngest_Unauthorized(t *testing.T) {
	ts, parts := newTestServer(t, func(cfg *Config, _ *serverParts) {
		cfg.Auth = denyAuth{}
	})

	resp := postJSON(t, ts.URL+"/ingest", `{"lat": 1, "lng": 2}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	parts.applier.mu.Lock()
	defer parts.applier.mu.Unlock()
	if len(parts.applier.fixes) != 0 {
		t.Error("unauthorized request reached the pipeline")
	}
}

func TestChat_AnswersAndRecords(t *testing.T) {
	saved := make(chan struct{}, 1)
	ts, parts := newTestServer(t, func(cfg *Config, parts *serverParts) {
		parts.recorder.saved = saved
	})

	resp := postJSON(t, ts.URL+"/chat", `{"query": "where is the bus"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["response"] != "the bus is fine" {
		t.Errorf(`response = %q, want responder reply`, body["response"])
	}

	select {
	case <-saved:
	case <-time.After(time.Second):
		t.Fatal("chat exchange was never recorded")
	}
	parts.recorder.mu.Lock()
	defer parts.recorder.mu.Unlock()
	if got := parts.recorder.chats[0]; got != "anonymous|where is the bus|the bus is fine" {
		t.Errorf("recorded chat = %q", got)
	}
}

func TestChat_RequiresQuery(t *testing.T) {
	for _, body := range []string{`{}`, `{"query": ""}`, `{"query": "   "}`} {
		ts, _ := newTestServer(t, nil)
		resp := postJSON(t, ts.URL+"/chat", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("POST /chat with %s: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestHealth(t *testing.T) {
	ts, parts := newTestServer(t, func(cfg *Config, parts *serverParts) {
		parts.snapshot = track.VehicleState{Connected: true}
	})
	parts.hub.Attach(nil, track.VehicleState{})
	parts.hub.Attach(nil, track.VehicleState{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Status        string `json:"status"`
		Timestamp     string `json:"timestamp"`
		BusConnected  bool   `json:"busConnected"`
		ActiveClients int    `json:"activeClients"`
		Database      string `json:"database"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "online" {
		t.Errorf("status = %q, want %q", body.Status, "online")
	}
	if !body.BusConnected {
		t.Error("busConnected = false, want true")
	}
	if body.ActiveClients != 2 {
		t.Errorf("activeClients = %d, want 2", body.ActiveClients)
	}
	if body.Database != "memory" {
		t.Errorf("database = %q, want %q", body.Database, "memory")
	}
	if _, err := time.Parse(time.RFC3339, body.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", body.Timestamp, err)
	}
}

func TestHistory_LimitClamping(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 100},
		{"?limit=5", 5},
		{"?limit=5000", 1000},
		{"?limit=0", 100},
		{"?limit=-3", 100},
		{"?limit=abc", 100},
	}
	for _, tt := range tests {
		ts, parts := newTestServer(t, nil)
		resp, err := http.Get(ts.URL + "/history" + tt.query)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		parts.recorder.mu.Lock()
		got := parts.recorder.limits[0]
		parts.recorder.mu.Unlock()
		if got != tt.want {
			t.Errorf("GET /history%s passed limit %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestHistory_EmptyIsJSONArray(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if got := strings.TrimSpace(string(raw)); got != "[]" {
		t.Errorf("empty history body = %q, want []", got)
	}
}

func TestHistory_BackendError(t *testing.T) {
	ts, _ := newTestServer(t, func(cfg *Config, parts *serverParts) {
		parts.recorder.err = errors.New("db down")
	})

	resp, err := http.Get(ts.URL + "/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestStream_InitialDataAndUpdates(t *testing.T) {
	liveHub := hub.New(testLogger(), nil)
	snapshot := track.VehicleState{
		Position:  track.NewPosition(5.6, -0.19),
		Speed:     25,
		Timestamp: time.Now().UTC(),
		Connected: true,
	}

	ts, _ := newTestServer(t, func(cfg *Config, parts *serverParts) {
		cfg.Hub = liveHub
		parts.snapshot = snapshot
	})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	readMessage := func() track.Message {
		t.Helper()
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		msg, err := track.DecodeMessage(raw)
		if err != nil {
			t.Fatalf("decode frame %s: %v", raw, err)
		}
		return msg
	}

	first := readMessage()
	if first.Type != track.MessageInitialData {
		t.Fatalf("first message type = %q, want %q", first.Type, track.MessageInitialData)
	}
	if first.State.Position.Lat() != 5.6 {
		t.Errorf("initial snapshot = %+v, want attached state", first.State)
	}

	next := snapshot
	next.Speed = 60
	liveHub.Broadcast(track.NewPositionUpdate(next))

	second := readMessage()
	if second.Type != track.MessagePositionUpdate {
		t.Errorf("second message type = %q, want %q", second.Type, track.MessagePositionUpdate)
	}
	if second.State.Speed != 60 {
		t.Errorf("broadcast state = %+v, want speed 60", second.State)
	}
}

func TestStream_DetachOnClose(t *testing.T) {
	liveHub := hub.New(testLogger(), nil)
	ts, _ := newTestServer(t, func(cfg *Config, _ *serverParts) {
		cfg.Hub = liveHub
	})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for liveHub.Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never attached")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for liveHub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never detached after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDashboard(t *testing.T) {
	assets := fstest.MapFS{
		"assets/index.html": &fstest.MapFile{
			Data: []byte("<title>{{.Title}}</title>"),
		},
	}
	ts, _ := newTestServer(t, func(cfg *Config, _ *serverParts) {
		cfg.Assets = assets
		cfg.Title = "Accra <Express>"
	})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "Accra &lt;Express&gt;") {
		t.Errorf("dashboard body = %q, want escaped title substituted", raw)
	}
}
