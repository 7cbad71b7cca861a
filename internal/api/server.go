package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/wayfinder/internal/engine"
	"github.com/MikeSquared-Agency/wayfinder/internal/interview"
	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
	"github.com/MikeSquared-Agency/wayfinder/internal/store"
)

const maxBodyBytes = 1 << 20

// Sessions is the stateful interview surface. It is optional: without it the
// server only offers the stateless evaluation endpoints.
type Sessions interface {
	StartSession(ctx context.Context, focus signal.Focus) (*store.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*store.Session, error)
	HandleTurn(ctx context.Context, id uuid.UUID, text string) (*interview.TurnOutcome, error)
	Bootstrap(ctx context.Context, id uuid.UUID, turns []signal.Turn) (*engine.Result, error)
	RecordVote(ctx context.Context, id uuid.UUID, suggestionID string, value int) error
	ResetRubric(ctx context.Context, id uuid.UUID) error
}

// Bus reports event bus connectivity for the status endpoint.
type Bus interface {
	Connected() bool
}

type Server struct {
	router   *chi.Mux
	port     int
	engine   *engine.Engine
	sessions Sessions
	bus      Bus
	http     *http.Server
}

// NewServer builds the router. sessions and bus may be nil in stateless mode.
func NewServer(port int, apiToken string, eng *engine.Engine, sessions Sessions, bus Bus) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		engine:   eng,
		sessions: sessions,
		bus:      bus,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/wayfinder/status", s.status)

	router.Post("/api/v1/evaluate", s.evaluate)
	router.Post("/api/v1/bootstrap", s.bootstrap)

	if sessions != nil {
		router.Route("/api/v1/sessions", func(r chi.Router) {
			r.Use(BearerAuthMiddleware(apiToken))
			r.Post("/", s.createSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Post("/turns", s.postTurn)
				r.Post("/bootstrap", s.bootstrapSession)
				r.Put("/votes/{suggestionID}", s.putVote)
				r.Delete("/rubric", s.resetRubric)
			})
		})
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	mode := "stateless"
	if s.sessions != nil {
		mode = "sessions"
	}
	body := map[string]string{
		"agent":  "wayfinder",
		"status": "ok",
		"mode":   mode,
	}
	if s.bus != nil {
		body["nats"] = "disconnected"
		if s.bus.Connected() {
			body["nats"] = "connected"
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// evaluate handles POST /api/v1/evaluate.
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if !decode(w, r, &req, false) {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Evaluate(req))
}

// bootstrap handles POST /api/v1/bootstrap.
func (s *Server) bootstrap(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if !decode(w, r, &req, false) {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Bootstrap(req))
}

type createSessionRequest struct {
	Focus signal.Focus `json:"focus"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decode(w, r, &req, true) {
		return
	}
	if req.Focus == "" {
		req.Focus = signal.FocusRapport
	}
	if !req.Focus.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown focus %q", req.Focus))
		return
	}

	sess, err := s.sessions.StartSession(r.Context(), req.Focus)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type turnRequest struct {
	Text string `json:"text"`
}

func (s *Server) postTurn(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req turnRequest
	if !decode(w, r, &req, false) {
		return
	}

	out, err := s.sessions.HandleTurn(r.Context(), id, req.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// bootstrapRequest optionally carries voice transcript turns not yet stored.
type bootstrapRequest struct {
	Turns []signal.Turn `json:"turns"`
}

func (s *Server) bootstrapSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req bootstrapRequest
	if !decode(w, r, &req, true) {
		return
	}
	res, err := s.sessions.Bootstrap(r.Context(), id, req.Turns)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type voteRequest struct {
	Value int `json:"value"`
}

func (s *Server) putVote(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req voteRequest
	if !decode(w, r, &req, false) {
		return
	}

	if err := s.sessions.RecordVote(r.Context(), id, chi.URLParam(r, "suggestionID"), req.Value); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetRubric(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := s.sessions.ResetRubric(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps service errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, interview.ErrEmptyTurn):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// decode reads a JSON body into v. An empty body is accepted only when
// allowEmpty is set.
func decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
