package playground

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petasbytes/concept-tutor/internal/agent"
	"github.com/petasbytes/concept-tutor/internal/logging"
	"github.com/petasbytes/concept-tutor/internal/runner"
	"github.com/petasbytes/concept-tutor/internal/telemetry"
	"github.com/petasbytes/concept-tutor/memory"
)

// ErrUnknownAgent is returned for an agent id the playground does not serve.
var ErrUnknownAgent = errors.New("playground: unknown agent")

const maxBodyBytes = 1 << 20

// Store is the session storage the playground needs; *memory.Store satisfies it.
type Store interface {
	agent.Sessions
	List(agentID string) ([]memory.Summary, error)
	Delete(agentID, sessionID string) error
}

// AgentInfo is the public description of a served agent.
type AgentInfo struct {
	AgentID string   `json:"agent_id"`
	Name    string   `json:"name"`
	Role    string   `json:"role,omitempty"`
	Model   string   `json:"model"`
	Tools   []string `json:"tools"`
}

// RunRequest is the body of POST .../runs.
type RunRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// RunResponse is one answered run.
type RunResponse struct {
	RunID     string            `json:"run_id"`
	AgentID   string            `json:"agent_id"`
	SessionID string            `json:"session_id"`
	Content   string            `json:"content"`
	ToolCalls []runner.ToolCall `json:"tool_calls"`
	CreatedAt time.Time         `json:"created_at"`
}

// Server serves the playground REST API and the /mcp endpoint.
type Server struct {
	agents []*agent.Agent
	byID   map[string]*agent.Agent
	store  Store
	logger *logging.Logger
	mux    *http.ServeMux
}

// New returns the playground handler for agents.
func New(agents []*agent.Agent, store Store, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		agents: agents,
		byID:   make(map[string]*agent.Agent, len(agents)),
		store:  store,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	for _, a := range agents {
		s.byID[a.ID()] = a
	}

	s.mux.HandleFunc("GET /v1/playground/status", s.handleStatus)
	s.mux.HandleFunc("GET /v1/playground/agents", s.handleAgents)
	s.mux.HandleFunc("POST /v1/playground/agents/{agent_id}/runs", s.handleRun)
	s.mux.HandleFunc("GET /v1/playground/agents/{agent_id}/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /v1/playground/agents/{agent_id}/sessions/{session_id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /v1/playground/agents/{agent_id}/sessions/{session_id}", s.handleDeleteSession)
	s.mux.Handle("/mcp", NewMCPHandler(s))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Agents describes the served agents in order.
func (s *Server) Agents() []AgentInfo {
	out := make([]AgentInfo, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, AgentInfo{
			AgentID: a.ID(),
			Name:    a.Name,
			Role:    a.Role,
			Model:   string(a.Model),
			Tools:   a.ToolNames(),
		})
	}
	return out
}

func (s *Server) lookup(id string) (*agent.Agent, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrUnknownAgent
	}
	return a, nil
}

// Run answers one message for agentID. An empty sessionID starts a new session.
func (s *Server) Run(ctx context.Context, agentID, sessionID, message string) (*RunResponse, error) {
	a, err := s.lookup(agentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(message) == "" {
		return nil, agent.ErrEmptyPrompt
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	runID := uuid.NewString()
	ctx = telemetry.WithTurnID(ctx, "run-"+runID)
	log := s.logger.WithAgent(agentID).WithRequest(runID).With("session_id", sessionID)

	resp, err := a.RunSession(ctx, s.store, sessionID, message)
	if err != nil {
		log.Warn("run failed", "error", err)
		return nil, err
	}
	log.Info("run finished", "tool_calls", len(resp.ToolCalls))
	return &RunResponse{
		RunID:     runID,
		AgentID:   agentID,
		SessionID: sessionID,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Agents())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.Run(r.Context(), r.PathValue("agent_id"), req.SessionID, req.Message)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("agent_id")
	if _, err := s.lookup(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	list, err := s.store.List(id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("agent_id")
	if _, err := s.lookup(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	sess, err := s.store.Load(id, r.PathValue("session_id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("agent_id")
	if _, err := s.lookup(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.store.Delete(id, r.PathValue("session_id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownAgent), errors.Is(err, memory.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrEmptyPrompt), errors.Is(err, memory.ErrInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
