package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/wayfinder/internal/engine"
	"github.com/MikeSquared-Agency/wayfinder/internal/interview"
	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
	"github.com/MikeSquared-Agency/wayfinder/internal/store"
)

type fakeSessions struct {
	known     uuid.UUID
	lastFocus signal.Focus
	lastText  string
	lastVote  struct {
		id    string
		value int
	}
	resets   int
	turnErr  error
	imported []signal.Turn
}

func (f *fakeSessions) StartSession(_ context.Context, focus signal.Focus) (*store.Session, error) {
	f.lastFocus = focus
	return &store.Session{ID: f.known, Focus: focus, Phase: signal.PhaseForFocus(focus)}, nil
}

func (f *fakeSessions) GetSession(_ context.Context, id uuid.UUID) (*store.Session, error) {
	if id != f.known {
		return nil, store.ErrNotFound
	}
	return &store.Session{ID: id, Focus: signal.FocusStory, Phase: signal.PhaseStoryMining}, nil
}

func (f *fakeSessions) HandleTurn(_ context.Context, id uuid.UUID, text string) (*interview.TurnOutcome, error) {
	if f.turnErr != nil {
		return nil, f.turnErr
	}
	if id != f.known {
		return nil, store.ErrNotFound
	}
	f.lastText = text
	return &interview.TurnOutcome{SessionID: id, Reply: "Tell me more.", Decision: engine.Result{Phase: signal.PhaseStoryMining}}, nil
}

func (f *fakeSessions) Bootstrap(_ context.Context, id uuid.UUID, turns []signal.Turn) (*engine.Result, error) {
	if id != f.known {
		return nil, store.ErrNotFound
	}
	f.imported = append(f.imported, turns...)
	return &engine.Result{Phase: signal.PhaseStoryMining, PreviousPhase: signal.PhaseWarmup}, nil
}

func (f *fakeSessions) RecordVote(_ context.Context, id uuid.UUID, suggestionID string, value int) error {
	if id != f.known {
		return store.ErrNotFound
	}
	f.lastVote.id, f.lastVote.value = suggestionID, value
	return nil
}

func (f *fakeSessions) ResetRubric(_ context.Context, id uuid.UUID) error {
	if id != f.known {
		return store.ErrNotFound
	}
	f.resets++
	return nil
}

type fakeBus struct{ up bool }

func (b fakeBus) Connected() bool { return b.up }

func newTestServer(sessions Sessions, token string) *Server {
	return NewServer(8760, token, engine.New(nil, engine.Defaults{AllowCardPrompt: true}), sessions, nil)
}

func do(t *testing.T, srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(nil, "")

	w := do(t, srv, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		sessions Sessions
		wantMode string
	}{
		{"stateless", nil, "stateless"},
		{"with sessions", &fakeSessions{}, "sessions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newTestServer(tt.sessions, ""), "GET", "/api/v1/wayfinder/status", "", "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			var body map[string]string
			json.NewDecoder(w.Body).Decode(&body)
			if body["agent"] != "wayfinder" {
				t.Errorf("expected agent wayfinder, got %q", body["agent"])
			}
			if body["mode"] != tt.wantMode {
				t.Errorf("expected mode %s, got %q", tt.wantMode, body["mode"])
			}
		})
	}
}

func TestStatusEndpoint_NATS(t *testing.T) {
	tests := []struct {
		name     string
		bus      Bus
		wantNATS string
	}{
		{"no bus", nil, ""},
		{"connected", fakeBus{up: true}, "connected"},
		{"disconnected", fakeBus{up: false}, "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(8760, "", engine.New(nil, engine.Defaults{}), &fakeSessions{}, tt.bus)
			w := do(t, srv, "GET", "/api/v1/wayfinder/status", "", "")
			var body map[string]string
			json.NewDecoder(w.Body).Decode(&body)
			if got, ok := body["nats"]; got != tt.wantNATS || ok != (tt.wantNATS != "") {
				t.Errorf("expected nats %q, got %q (present=%v)", tt.wantNATS, got, ok)
			}
		})
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	w := do(t, newTestServer(nil, ""), "GET", "/nonexistent", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	srv := newTestServer(nil, "")
	body := `{
		"turns": [
			{"role": "assistant", "text": "What lights you up?"},
			{"role": "user", "text": "Honestly, could you give me some ideas? I am stuck."}
		],
		"insights": [{"kind": "interest", "value": "cooking"}],
		"phase": "pattern-mapping"
	}`

	w := do(t, srv, "POST", "/api/v1/evaluate", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res struct {
		Phase         string `json:"phase"`
		PreviousPhase string `json:"previousPhase"`
		Rubric        struct {
			ExplicitIdeasRequest bool   `json:"explicitIdeasRequest"`
			ReadinessBias        string `json:"readinessBias"`
		} `json:"rubric"`
		Guidance string `json:"guidance"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.PreviousPhase != "pattern-mapping" || res.Phase != "option-seeding" {
		t.Errorf("expected pattern-mapping -> option-seeding, got %s -> %s", res.PreviousPhase, res.Phase)
	}
	if !res.Rubric.ExplicitIdeasRequest || res.Rubric.ReadinessBias != "seeking-options" {
		t.Errorf("expected idea request detected, got %+v", res.Rubric)
	}
	if res.Guidance == "" {
		t.Error("expected compiled guidance")
	}
}

func TestEvaluateEndpoint_BadRequest(t *testing.T) {
	srv := newTestServer(nil, "")

	for _, body := range []string{`{"turns":`, `{"phase":"lunch"}`, ``} {
		w := do(t, srv, "POST", "/api/v1/evaluate", body, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
		var errBody map[string]string
		json.NewDecoder(w.Body).Decode(&errBody)
		if errBody["error"] == "" {
			t.Errorf("body %q: expected JSON error", body)
		}
	}
}

func TestBootstrapEndpoint(t *testing.T) {
	srv := newTestServer(nil, "")
	w := do(t, srv, "POST", "/api/v1/bootstrap", `{"turns":[{"role":"user","text":"hi"}],"focus":"rapport"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var res engine.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Phase != signal.PhaseStoryMining {
		t.Errorf("expected story-mining, got %s", res.Phase)
	}
	if res.Rubric.CardReadiness.Status != signal.CardNotReady {
		t.Errorf("expected not-ready, got %s", res.Rubric.CardReadiness.Status)
	}
}

func TestSessionRoutesAbsentWithoutSessions(t *testing.T) {
	w := do(t, newTestServer(nil, ""), "POST", "/api/v1/sessions", `{}`, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 in stateless mode, got %d", w.Code)
	}
}

func TestSessionAuth(t *testing.T) {
	fs := &fakeSessions{known: uuid.New()}
	srv := newTestServer(fs, "s3cret")

	if w := do(t, srv, "POST", "/api/v1/sessions", `{}`, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
	if w := do(t, srv, "POST", "/api/v1/sessions", `{}`, "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}
	if w := do(t, srv, "POST", "/api/v1/sessions", `{}`, "s3cret"); w.Code != http.StatusCreated {
		t.Errorf("expected 201 with token, got %d", w.Code)
	}
	if w := do(t, srv, "POST", "/api/v1/evaluate", `{}`, ""); w.Code != http.StatusOK {
		t.Errorf("stateless evaluate should stay open, got %d", w.Code)
	}
}

func TestCreateSession(t *testing.T) {
	fs := &fakeSessions{known: uuid.New()}
	srv := newTestServer(fs, "")

	w := do(t, srv, "POST", "/api/v1/sessions", "", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for empty body, got %d: %s", w.Code, w.Body.String())
	}
	if fs.lastFocus != signal.FocusRapport {
		t.Errorf("expected rapport default, got %q", fs.lastFocus)
	}

	w = do(t, srv, "POST", "/api/v1/sessions", `{"focus":"ideation"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var sess store.Session
	json.NewDecoder(w.Body).Decode(&sess)
	if sess.Phase != signal.PhaseOptionSeeding {
		t.Errorf("expected option-seeding, got %s", sess.Phase)
	}

	w = do(t, srv, "POST", "/api/v1/sessions", `{"focus":"napping"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown focus, got %d", w.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	fs := &fakeSessions{known: uuid.New()}
	srv := newTestServer(fs, "")
	base := "/api/v1/sessions/" + fs.known.String()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"get", "GET", base, "", http.StatusOK},
		{"get unknown", "GET", "/api/v1/sessions/" + uuid.New().String(), "", http.StatusNotFound},
		{"get bad id", "GET", "/api/v1/sessions/not-a-uuid", "", http.StatusBadRequest},
		{"turn", "POST", base + "/turns", `{"text":"I like fixing things"}`, http.StatusOK},
		{"turn bad json", "POST", base + "/turns", `{"text":`, http.StatusBadRequest},
		{"bootstrap", "POST", base + "/bootstrap", "", http.StatusOK},
		{"bootstrap with turns", "POST", base + "/bootstrap", `{"turns":[{"role":"user","text":"Busy week"}]}`, http.StatusOK},
		{"bootstrap bad json", "POST", base + "/bootstrap", `{"turns":`, http.StatusBadRequest},
		{"vote", "PUT", base + "/votes/card-3", `{"value":1}`, http.StatusNoContent},
		{"reset", "DELETE", base + "/rubric", "", http.StatusNoContent},
		{"reset unknown", "DELETE", "/api/v1/sessions/" + uuid.New().String() + "/rubric", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, tt.method, tt.path, tt.body, "")
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}

	if fs.lastText != "I like fixing things" {
		t.Errorf("expected turn text forwarded, got %q", fs.lastText)
	}
	if fs.lastVote.id != "card-3" || fs.lastVote.value != 1 {
		t.Errorf("expected vote forwarded, got %+v", fs.lastVote)
	}
	if fs.resets != 1 {
		t.Errorf("expected one reset, got %d", fs.resets)
	}
	if len(fs.imported) != 1 || fs.imported[0].Text != "Busy week" {
		t.Errorf("expected bootstrap turns forwarded, got %+v", fs.imported)
	}
}

func TestTurnErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"empty turn", interview.ErrEmptyTurn, http.StatusBadRequest},
		{"wrapped not found", errors.Join(errors.New("load session"), store.ErrNotFound), http.StatusNotFound},
		{"other", errors.New("llm exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSessions{known: uuid.New(), turnErr: tt.err}
			srv := newTestServer(fs, "")
			w := do(t, srv, "POST", "/api/v1/sessions/"+fs.known.String()+"/turns", `{"text":"hi"}`, "")
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(w.Body.String(), "exploded") {
				t.Error("internal error details should not leak")
			}
		})
	}
}
