package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrSessionNotFound is returned when no stored session matches.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidID is returned for agent or session ids unsafe as file names.
	ErrInvalidID = errors.New("invalid id")
)

// Session is one agent conversation.
type Session struct {
	AgentID   string    `json:"agent_id"`
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the listing view of a session.
type Summary struct {
	AgentID      string    `json:"agent_id"`
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	Title        string    `json:"title,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ids are used as path segments, so only a conservative alphabet is accepted.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// Store keeps sessions as JSON files. Writes are serialized; safe for concurrent use.
type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewStore returns a Store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

func (s *Store) path(agentID, sessionID string) (string, error) {
	if !idPattern.MatchString(agentID) {
		return "", fmt.Errorf("memory: agent %w %q", ErrInvalidID, agentID)
	}
	if !idPattern.MatchString(sessionID) {
		return "", fmt.Errorf("memory: session %w %q", ErrInvalidID, sessionID)
	}
	return filepath.Join(s.dir, agentID, sessionID+".json"), nil
}

// Load returns the session or ErrSessionNotFound.
func (s *Store) Load(agentID, sessionID string) (*Session, error) {
	p, err := s.path(agentID, sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return readSession(p)
}

// Append adds msgs to the session, creating it when missing, and returns the result.
func (s *Store) Append(agentID, sessionID string, msgs ...Message) (*Session, error) {
	p, err := s.path(agentID, sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := readSession(p)
	if errors.Is(err, ErrSessionNotFound) {
		now := s.now().UTC()
		sess = &Session{AgentID: agentID, SessionID: sessionID, CreatedAt: now}
	} else if err != nil {
		return nil, err
	}
	sess.Messages = append(sess.Messages, msgs...)
	sess.UpdatedAt = s.now().UTC()
	if err := writeJSON(p, sess); err != nil {
		return nil, fmt.Errorf("memory: save session: %w", err)
	}
	return sess, nil
}

// List returns summaries for agentID, most recently updated first.
func (s *Store) List(agentID string) ([]Summary, error) {
	if !idPattern.MatchString(agentID) {
		return nil, fmt.Errorf("memory: agent %w %q", ErrInvalidID, agentID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, agentID))
	if errors.Is(err, os.ErrNotExist) {
		return []Summary{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		sess, err := readSession(filepath.Join(s.dir, agentID, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, sess.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Delete removes the session or returns ErrSessionNotFound.
func (s *Store) Delete(agentID, sessionID string) error {
	p, err := s.path(agentID, sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

// Summary returns the listing view; Title is the first user message, truncated.
func (s *Session) Summary() Summary {
	sum := Summary{
		AgentID:      s.AgentID,
		SessionID:    s.SessionID,
		MessageCount: len(s.Messages),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	for _, m := range s.Messages {
		if m.Role == "user" {
			sum.Title = truncate(m.Text, 60)
			break
		}
	}
	return sum
}

func readSession(path string) (*Session, error) {
	var sess Session
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("memory: decode %s: %w", filepath.Base(path), err)
	}
	return &sess, nil
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
