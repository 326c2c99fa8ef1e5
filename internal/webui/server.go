// Package webui serves the learning page: one input, one button and three
// panes filled by the lesson flow.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/petasbytes/concept-tutor/internal/lesson"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const PageTitle = "Interactive Python Learning Assistant"

// Lesson is satisfied by *lesson.Lesson.
type Lesson interface {
	Run(ctx context.Context, query string, obs lesson.Observer) (*lesson.Result, error)
	Sections(query string) []*lesson.Section
}

type Server struct {
	lesson   Lesson
	language string
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New returns the UI handler. language is shown in the page copy.
func New(l Lesson, language string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if language == "" {
		language = lesson.DefaultCodeLanguage
	}
	s := &Server{lesson: l, language: language, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /lesson/stream", s.handleStream)
	s.mux.HandleFunc("POST /api/lesson", s.handleAPI)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type pageData struct {
	Title    string
	Language string
	Query    string
	Warning  string
	Sections []*lesson.Section
}

// handleIndex renders the page. A non-empty query is answered inline so the
// form also works without JavaScript.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	data := pageData{Title: PageTitle, Language: s.language, Query: query}

	q := strings.TrimSpace(query)
	if q == "" {
		data.Warning = lesson.EmptyQueryWarning
		data.Sections = s.lesson.Sections("")
	} else {
		res, err := s.lesson.Run(r.Context(), q, nil)
		if err != nil {
			s.logger.Warn("lesson failed", "error", err)
			http.Error(w, "lesson failed", http.StatusInternalServerError)
			return
		}
		data.Sections = res.Sections
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page", "error", err)
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sse, err := newEventStream(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("query"))
	if q == "" {
		sse.send("warning", map[string]string{"message": lesson.EmptyQueryWarning})
		sse.send("done", map[string]any{"query": "", "ok": false})
		return
	}

	obs := lesson.ObserverFuncs{
		OnLoading: func(sec *lesson.Section) { sse.send("loading", sec) },
		OnDone:    func(sec *lesson.Section) { sse.send("section", sec) },
	}
	res, err := s.lesson.Run(r.Context(), q, obs)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("lesson stream failed", "error", err)
		}
		sse.send("done", map[string]any{"query": q, "ok": false, "error": err.Error()})
		return
	}
	sse.send("done", map[string]any{"query": res.Query, "ok": true})
}

type lessonRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	res, err := s.lesson.Run(r.Context(), req.Query, nil)
	switch {
	case errors.Is(err, lesson.ErrEmptyQuery):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": lesson.EmptyQueryWarning})
	case err != nil:
		s.logger.Warn("lesson api failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// eventStream writes text/event-stream frames.
type eventStream struct {
	w http.ResponseWriter
	f http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming unsupported")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &eventStream{w: w, f: f}, nil
}

func (e *eventStream) send(event string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, b)
	e.f.Flush()
}
