package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/epa"
	"github.com/aretw0/epa/internal/dto"
	"github.com/aretw0/epa/internal/logging"
	"github.com/aretw0/epa/internal/presentation/graph"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var rawSpec []byte

// GetSwagger parses and validates the embedded API description.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// Server exposes an automaton and a recorded trace over HTTP.
// It is read-only: the monitor writes the trace through its recorder.
type Server struct {
	Automaton *domain.Automaton
	Trace     ports.TraceReader
	Streams   *StreamManager
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithStreams shares a StreamManager, e.g. one whose Hooks are attached
// to a running monitor.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// NewServer creates a server over an automaton and a trace reader.
func NewServer(automaton *domain.Automaton, trace ports.TraceReader, opts ...Option) *Server {
	s := &Server{Automaton: automaton, Trace: trace, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// NewHandler creates the HTTP handler of a new server.
func NewHandler(automaton *domain.Automaton, trace ports.TraceReader, opts ...Option) http.Handler {
	return NewServer(automaton, trace, opts...).Handler()
}

// Handler returns the chi router serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/automaton", s.GetAutomaton)
	r.Get("/graph", s.GetGraph)
	r.Get("/subjects", s.ListSubjects)
	r.Get("/subjects/{id}/transitions", s.GetTransitions)
	r.Get("/events", s.SubscribeEvents)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, op string, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(op+" response encode failed", "error", err)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, "GetHealth", map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	} else if err != nil {
		s.logger.Error("Failed to load OpenAPI spec", "error", err)
	}

	s.writeJSON(w, "GetInfo", map[string]string{
		"app":         "epa-http",
		"version":     strings.TrimSpace(epa.Version),
		"api_version": apiVersion,
		"automaton":   s.Automaton.Name(),
	})
}

// GetAutomaton handles the GET /automaton request.
func (s *Server) GetAutomaton(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, "GetAutomaton", describe(s.Automaton))
}

func describe(a *domain.Automaton) dto.AutomatonDescription {
	d := dto.AutomatonDescription{Name: a.Name(), Initial: string(a.Initial())}
	for _, st := range a.States() {
		d.States = append(d.States, string(st))
	}
	for _, act := range a.Actions() {
		d.Actions = append(d.Actions, string(act))
	}
	for _, t := range a.Transitions() {
		d.Transitions = append(d.Transitions, dto.TransitionDescription{
			From: string(t.From), Action: string(t.Action), To: string(t.To),
		})
	}
	return d
}

// GetGraph handles the GET /graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var subject *int64
	if err := runtime.BindQueryParameter("form", true, false, "subject", r.URL.Query(), &subject); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter subject: %s", err), http.StatusBadRequest)
		return
	}

	overlay, err := s.overlay(r.Context(), subject)
	if err != nil {
		s.traceError(w, "GetGraph", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.Automaton, overlay))
}

// overlay collects the transitions of one subject, or of all of them.
func (s *Server) overlay(ctx context.Context, subject *int64) (*graph.GraphOverlay, error) {
	if subject != nil {
		trace, err := s.Trace.Transitions(ctx, domain.SubjectID(*subject))
		if err != nil {
			return nil, err
		}
		overlay := &graph.GraphOverlay{Observed: trace}
		if len(trace) > 0 {
			overlay.Current = trace[len(trace)-1].To
		}
		return overlay, nil
	}

	subjects, err := s.Trace.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	overlay := &graph.GraphOverlay{}
	for _, sub := range subjects {
		trace, err := s.Trace.Transitions(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		overlay.Observed = append(overlay.Observed, trace...)
	}
	return overlay, nil
}

// ListSubjects handles the GET /subjects request.
func (s *Server) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.Trace.Subjects(r.Context())
	if err != nil {
		s.traceError(w, "ListSubjects", err)
		return
	}
	if subjects == nil {
		subjects = []domain.Subject{}
	}
	s.writeJSON(w, "ListSubjects", subjects)
}

// GetTransitions handles the GET /subjects/{id}/transitions request.
func (s *Server) GetTransitions(w http.ResponseWriter, r *http.Request) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id < 0 {
		http.Error(w, fmt.Sprintf("Invalid format for parameter id: %v", chi.URLParam(r, "id")), http.StatusBadRequest)
		return
	}

	trace, err := s.Trace.Transitions(r.Context(), domain.SubjectID(id))
	if err != nil {
		s.traceError(w, "GetTransitions", err)
		return
	}
	s.writeJSON(w, "GetTransitions", trace)
}

func (s *Server) traceError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, domain.ErrSubjectNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), http.StatusInternalServerError)
	s.logger.Error(op+" failed", "error", err)
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var subject *int64
	if err := runtime.BindQueryParameter("form", true, false, "subject", r.URL.Query(), &subject); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter subject: %s", err), http.StatusBadRequest)
		return
	}
	key := allSubjects
	if subject != nil {
		key = strconv.FormatInt(*subject, 10)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to transitions", "subject", key)
	ch, cancel := s.Streams.Subscribe(key)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: transition\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
