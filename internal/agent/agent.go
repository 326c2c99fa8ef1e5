package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/concept-tutor/internal/metrics"
	"github.com/petasbytes/concept-tutor/internal/runner"
	"github.com/petasbytes/concept-tutor/internal/telemetry"
	"github.com/petasbytes/concept-tutor/memory"
	"github.com/petasbytes/concept-tutor/tools"
)

// ErrEmptyPrompt is returned by Run for a blank prompt; no model call is made.
var ErrEmptyPrompt = errors.New("agent: empty prompt")

const defaultMaxSteps = 6

const markdownDirective = "Use markdown to format your answers."

// Agent is a model with a role, instructions and a fixed set of tools.
type Agent struct {
	Name         string
	Role         string
	Model        anthropic.Model
	Tools        []tools.ToolDefinition
	Instructions []string
	// ShowToolCalls prefixes the content with the tool calls the run made.
	ShowToolCalls bool
	Markdown      bool
	MaxSteps      int
	// Members is set for teams and listed in the system prompt.
	Members []*Agent

	Runner *runner.Runner
	Logger *slog.Logger
}

// Response is the outcome of one Run.
type Response struct {
	Content   string            `json:"content"`
	ToolCalls []runner.ToolCall `json:"tool_calls"`
	Usage     metrics.Usage     `json:"-"`

	// answer is the model text without the tool-call listing.
	answer string
}

// Sessions is the subset of memory.Store that RunSession needs.
type Sessions interface {
	Load(agentID, sessionID string) (*memory.Session, error)
	Append(agentID, sessionID string, msgs ...memory.Message) (*memory.Session, error)
}

// ID is the kebab-case slug of Name, e.g. "Web Agent" -> "web-agent".
func (a *Agent) ID() string {
	return slug(a.Name, '-')
}

// ToolNames lists the names of the agent's tools in order.
func (a *Agent) ToolNames() []string {
	names := make([]string, 0, len(a.Tools))
	for _, t := range a.Tools {
		names = append(names, t.Name)
	}
	return names
}

// Run answers prompt in a fresh conversation.
func (a *Agent) Run(ctx context.Context, prompt string) (*Response, error) {
	return a.run(ctx, nil, prompt)
}

// RunSession answers prompt after the stored transcript of sessionID and
// appends the turn to it. A missing session starts empty.
func (a *Agent) RunSession(ctx context.Context, store Sessions, sessionID, prompt string) (*Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	var history []memory.Message
	sess, err := store.Load(a.ID(), sessionID)
	switch {
	case errors.Is(err, memory.ErrSessionNotFound):
	case err != nil:
		return nil, fmt.Errorf("%s: load session: %w", a.ID(), err)
	default:
		history = sess.Messages
	}

	resp, err := a.run(ctx, memory.ToParams(history), prompt)
	if err != nil {
		return nil, err
	}
	if _, err := store.Append(a.ID(), sessionID,
		memory.Message{Role: "user", Text: prompt},
		memory.Message{Role: "assistant", Text: resp.answer},
	); err != nil {
		return resp, fmt.Errorf("%s: save session: %w", a.ID(), err)
	}
	return resp, nil
}

func (a *Agent) run(ctx context.Context, history []anthropic.MessageParam, prompt string) (*Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if a.Runner == nil {
		return nil, fmt.Errorf("%s: no runner configured", a.ID())
	}
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	maxSteps := a.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	var delegated *memberUsage
	if len(a.Members) > 0 {
		delegated = &memberUsage{}
		ctx = context.WithValue(ctx, memberUsageKey{}, delegated)
	}

	msgs := append(append([]anthropic.MessageParam(nil), history...),
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	start := time.Now()
	res, err := a.Runner.Run(ctx, runner.Request{
		Model:    a.Model,
		System:   a.SystemPrompt(),
		Tools:    a.Tools,
		Messages: msgs,
	}, maxSteps)

	var usage metrics.Usage
	if res != nil {
		usage = res.Usage
	}
	if delegated != nil {
		usage.Merge(delegated.total())
	}
	a.emitRun(turnID, time.Since(start), usage, err)

	if err != nil {
		a.logger().Warn("agent run failed", "turn_id", turnID, "error", err)
		return nil, fmt.Errorf("%s: run: %w", a.ID(), err)
	}
	a.logger().Debug("agent run", "turn_id", turnID, "steps", usage.Steps, "tool_calls", usage.ToolCalls)

	content := res.Text
	if a.ShowToolCalls && len(res.ToolCalls) > 0 {
		content = FormatToolCalls(res.ToolCalls) + "\n\n" + content
	}
	return &Response{Content: content, ToolCalls: res.ToolCalls, Usage: usage, answer: res.Text}, nil
}

// SystemPrompt renders role, instructions, team members and the markdown directive.
func (a *Agent) SystemPrompt() string {
	var sb strings.Builder
	if a.Role != "" {
		fmt.Fprintf(&sb, "<your_role>\n%s\n</your_role>\n\n", a.Role)
	}
	if len(a.Members) > 0 {
		sb.WriteString("<team_members>\n")
		for i, m := range a.Members {
			fmt.Fprintf(&sb, " - Agent %d:\n   - Name: %s\n", i+1, m.Name)
			if m.Role != "" {
				fmt.Fprintf(&sb, "   - Role: %s\n", m.Role)
			}
			if names := m.ToolNames(); len(names) > 0 {
				fmt.Fprintf(&sb, "   - Available tools: %s\n", strings.Join(names, ", "))
			}
		}
		sb.WriteString("</team_members>\n\n")
		sb.WriteString("You can transfer tasks to the members above with the transfer_task_to_<member> tools.\n\n")
	}
	if len(a.Instructions) > 0 {
		sb.WriteString("<instructions>\n")
		for _, in := range a.Instructions {
			fmt.Fprintf(&sb, "- %s\n", in)
		}
		sb.WriteString("</instructions>\n\n")
	}
	if a.Markdown {
		fmt.Fprintf(&sb, "<additional_information>\n- %s\n</additional_information>\n", markdownDirective)
	}
	return strings.TrimSpace(sb.String())
}

// FormatToolCalls renders calls as a markdown list, one name(arg=value, ...) per line.
func FormatToolCalls(calls []runner.ToolCall) string {
	var sb strings.Builder
	sb.WriteString("Running:")
	for _, c := range calls {
		fmt.Fprintf(&sb, "\n - %s(%s)", c.Name, formatArgs(c.Input))
	}
	return sb.String()
}

func formatArgs(raw json.RawMessage) string {
	var args map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &args) != nil {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := args[k]
		switch t := v.(type) {
		case string:
			parts = append(parts, k+"="+t)
		default:
			b, _ := json.Marshal(t)
			parts = append(parts, k+"="+string(b))
		}
	}
	return strings.Join(parts, ", ")
}

func (a *Agent) emitRun(turnID string, d time.Duration, usage metrics.Usage, err error) {
	if a.Runner == nil {
		return
	}
	fields := usage.Fields()
	fields["agent_id"] = a.ID()
	fields["turn_id"] = turnID
	fields["duration_ms"] = d.Milliseconds()
	fields["error"] = nil
	switch {
	case errors.Is(err, runner.ErrMaxSteps):
		fields["error"] = "max steps"
	case err != nil:
		fields["error"] = "run error"
	}
	a.Runner.Telemetry.Emit("agent_run", fields)
}

func (a *Agent) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	if a.Runner != nil && a.Runner.Logger != nil {
		return a.Runner.Logger.With("agent_id", a.ID())
	}
	return slog.New(slog.DiscardHandler)
}

// slug lowercases s and joins its alphanumeric runs with sep.
func slug(s string, sep rune) string {
	var sb strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && sb.Len() > 0 {
				sb.WriteRune(sep)
			}
			pending = false
			sb.WriteRune(r)
			continue
		}
		pending = true
	}
	return sb.String()
}
