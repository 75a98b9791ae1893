package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/broadcast"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

const testToken = "test-token"

var fixedNow = time.Date(2025, 11, 22, 10, 15, 0, 0, time.UTC)

type testApp struct {
	svc     *orchestrator.Orchestrator
	handler http.Handler
	hub     *broadcast.Hub
}

func newTestApp(t *testing.T) testApp {
	t.Helper()

	hub := broadcast.NewHub()
	now := func() time.Time { return fixedNow }
	registry, err := agents.NewRegistry(agents.Deps{
		Catalog:   catalog.MustLoad(),
		Files:     flatfile.New(t.TempDir()),
		Publisher: hub,
		Now:       now,
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	voices, err := promptx.LoadVoiceProfiles()
	if err != nil {
		t.Fatalf("LoadVoiceProfiles() error = %v", err)
	}
	svc, err := orchestrator.New(statex.NewMemoryStore(), registry, nil, hub, orchestrator.Config{Voices: voices, Now: now})
	if err != nil {
		t.Fatalf("orchestrator.New() error = %v", err)
	}

	return testApp{
		svc: svc,
		hub: hub,
		handler: NewAppHandler(AppDeps{
			Service: svc,
			Agents:  registry,
			Voices:  voices,
			Events:  hub,
			Token:   testToken,
		}),
	}
}

func (a testApp) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := sonic.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (a testApp) start(t *testing.T, agent string) orchestrator.Started {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/sessions", `{"agent":"`+agent+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /sessions status = %d body = %s", rec.Code, rec.Body.String())
	}
	return decode[orchestrator.Started](t, rec)
}

func TestHealthSkipsAuth(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz status = %d", rec.Code)
	}
}

func TestBearerAuthRejectsMissingToken(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "authentication_error") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestBearerAuthOpenWhenTokenEmpty(t *testing.T) {
	t.Parallel()

	h := BearerAuth("")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestListAgents(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/agents", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	infos := decode[[]AgentInfo](t, rec)
	if len(infos) != len(contractx.AllAgentTypes) {
		t.Fatalf("agents = %d, want %d", len(infos), len(contractx.AllAgentTypes))
	}
	for i, info := range infos {
		if info.Type != contractx.AllAgentTypes[i] {
			t.Fatalf("agent[%d] = %s, want %s", i, info.Type, contractx.AllAgentTypes[i])
		}
		if info.Voice == nil || info.Voice.Greeting == "" {
			t.Fatalf("agent %s has no voice profile", info.Type)
		}
	}
}

func TestAgentTools(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/agents/coffee/tools", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	tools := decode[[]toolx.Descriptor](t, rec)
	found := false
	for _, d := range tools {
		if d.Name == "set_size" {
			found = true
		}
	}
	if !found {
		t.Fatalf("tools = %+v, want set_size", tools)
	}

	if rec := app.do(t, http.MethodGet, "/agents/barber/tools", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown agent status = %d, want 404", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	started := app.start(t, "coffee")
	if started.Greeting == "" || started.Instructions == "" {
		t.Fatalf("started = %+v", started)
	}
	base := "/sessions/" + started.SessionID

	rec := app.do(t, http.MethodPost, base+"/tools/set_size", `{"size":"medium"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set_size status = %d body = %s", rec.Code, rec.Body.String())
	}
	if res := decode[contractx.ToolResult](t, rec); res.Tool != "set_size" || res.Result == "" {
		t.Fatalf("set_size result = %+v", res)
	}

	rec = app.do(t, http.MethodGet, base, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET session status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "medium") {
		t.Fatalf("session view = %s", rec.Body.String())
	}

	rec = app.do(t, http.MethodGet, base+"/tools", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET tools status = %d", rec.Code)
	}

	if rec := app.do(t, http.MethodDelete, base, ""); rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if rec := app.do(t, http.MethodGet, base, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("GET after end status = %d, want 404", rec.Code)
	}
}

func TestCallToolErrors(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	started := app.start(t, "coffee")
	base := "/sessions/" + started.SessionID

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "unknown tool", path: base + "/tools/fly_drone", body: `{}`, want: http.StatusNotFound},
		{name: "unknown session", path: "/sessions/nope/tools/set_size", body: `{"size":"medium"}`, want: http.StatusNotFound},
		{name: "not an object", path: base + "/tools/set_size", body: `[1,2]`, want: http.StatusBadRequest},
		{name: "bad json", path: base + "/tools/set_size", body: `{"size":`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := app.do(t, http.MethodPost, tt.path, tt.body)
		if rec.Code != tt.want {
			t.Fatalf("%s: status = %d, want %d (body %s)", tt.name, rec.Code, tt.want, rec.Body.String())
		}
	}
}

func TestStartSessionValidation(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	if rec := app.do(t, http.MethodPost, "/sessions", `{"agent":"barber"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown agent status = %d, want 404", rec.Code)
	}
	if rec := app.do(t, http.MethodPost, "/sessions", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body status = %d, want 400", rec.Code)
	}
}

func TestMessageWithoutModel(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	started := app.start(t, "wellness")
	rec := app.do(t, http.MethodPost, "/sessions/"+started.SessionID+"/messages", `{"text":"hello"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestEventsStream(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	srv := httptest.NewServer(app.handler)
	t.Cleanup(srv.Close)

	started, err := app.svc.StartSession(context.Background(), contractx.AgentTypeCoffee)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + started.SessionID + "/events"
	ws, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + testToken}},
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ws.CloseNow()

	var ev contractx.Event
	if err := wsjson.Read(ctx, ws, &ev); err != nil {
		t.Fatalf("read initial event: %v", err)
	}
	if ev.Kind != contractx.EventStateUpdated || ev.SessionID != started.SessionID {
		t.Fatalf("initial event = %+v", ev)
	}

	// The subscription is registered before the initial frame is written.
	if _, err := app.svc.CallTool(ctx, started.SessionID, "set_size", `{"size":"large"}`); err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if err := wsjson.Read(ctx, ws, &ev); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if ev.Kind != contractx.EventStateUpdated {
		t.Fatalf("update event = %+v", ev)
	}

	if _, err := app.svc.EndSession(ctx, started.SessionID); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if err := wsjson.Read(ctx, ws, &ev); err != nil {
		t.Fatalf("read end: %v", err)
	}
	if ev.Kind != contractx.EventSessionEnded {
		t.Fatalf("end event = %+v", ev)
	}
}
