package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/concept-tutor/internal/metrics"
	"github.com/petasbytes/concept-tutor/internal/telemetry"
	"github.com/petasbytes/concept-tutor/internal/windowing"
	"github.com/petasbytes/concept-tutor/tools"
)

// ErrMaxSteps is returned when the model keeps calling tools past the step limit.
var ErrMaxSteps = errors.New("runner: max steps reached")

const defaultMaxTokens = 1024

// Runner is shared by every agent; it holds no per-turn state.
type Runner struct {
	Client    *anthropic.Client
	MaxTokens int64
	Window    windowing.Window
	Telemetry *telemetry.Sink
	Logger    *slog.Logger
}

// New returns a Runner with 1024 max tokens and the heuristic counter.
func New(client *anthropic.Client, budget int) *Runner {
	return &Runner{
		Client:    client,
		MaxTokens: defaultMaxTokens,
		Window:    windowing.Window{Budget: budget, Counter: windowing.HeuristicCounter{}},
		Logger:    slog.New(slog.DiscardHandler),
	}
}

// Request is one agent turn.
type Request struct {
	Model    anthropic.Model
	System   string
	Tools    []tools.ToolDefinition
	Messages []anthropic.MessageParam
}

// ToolCall records one executed tool_use block.
type ToolCall struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Input   json.RawMessage `json:"input"`
	IsError bool            `json:"is_error"`
}

// Step is the outcome of a single Messages API round trip.
type Step struct {
	Message     *anthropic.Message
	Text        []string
	ToolCalls   []ToolCall
	ToolResults []anthropic.ContentBlockParamUnion
}

// Result is the outcome of a full turn.
type Result struct {
	Text         string
	ToolCalls    []ToolCall
	Conversation []anthropic.MessageParam
	Usage        metrics.Usage
}

func anthropicTools(defs []tools.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, t := range defs {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: t.InputSchema,
		}})
	}
	return out
}

// Run loops RunOneStep, feeding tool results back, until the model answers
// without tool calls or maxSteps round trips were made.
func (r *Runner) Run(ctx context.Context, req Request, maxSteps int) (*Result, error) {
	if maxSteps <= 0 {
		maxSteps = 1
	}
	ctx, _ = telemetry.EnsureTurnID(ctx)

	res := &Result{Conversation: append([]anthropic.MessageParam(nil), req.Messages...)}
	var text []string
	for step := 0; step < maxSteps; step++ {
		req.Messages = res.Conversation
		s, err := r.RunOneStep(ctx, req)
		if err != nil {
			return res, err
		}
		res.Conversation = append(res.Conversation, s.Message.ToParam())
		res.Usage.AddStep(s.Message.Usage.InputTokens, s.Message.Usage.OutputTokens)
		for _, tc := range s.ToolCalls {
			res.Usage.AddToolCall(tc.IsError)
		}
		res.ToolCalls = append(res.ToolCalls, s.ToolCalls...)
		text = append(text, s.Text...)

		if len(s.ToolResults) == 0 {
			res.Text = strings.Join(text, "\n")
			return res, nil
		}
		// Provide tool results as a user message back to the model
		res.Conversation = append(res.Conversation, anthropic.NewUserMessage(s.ToolResults...))
	}
	res.Text = strings.Join(text, "\n")
	return res, fmt.Errorf("%w (%d)", ErrMaxSteps, maxSteps)
}

// RunOneStep sends the windowed conversation and executes any tool_use blocks
// in the reply. Tool results are returned for the caller to append.
func (r *Runner) RunOneStep(ctx context.Context, req Request) (*Step, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)

	window, stats := r.Window.Prepare(req.Messages)
	r.Telemetry.Emit("window_prepared", map[string]any{
		"turn_id":            turnID,
		"model":              string(req.Model),
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"dropped_leading":    stats.DroppedLeading,
		"over_budget_newest": stats.OverBudgetNewest,
	})
	r.logger().Debug("window prepared",
		"turn_id", turnID,
		"budget", stats.Budget,
		"est_total", stats.Total,
		"groups_in", stats.IncludedGroups,
		"groups_skip", stats.SkippedGroups,
	)

	// The newest group should always fit the budget. If not, treat it as a
	// misconfiguration and fail fast.
	if stats.OverBudgetNewest {
		return nil, fmt.Errorf("windowing: newest group exceeds token budget %d; increase the budget", stats.Budget)
	}
	if len(window) == 0 {
		return nil, errors.New("windowing: empty send window")
	}

	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     req.Model,
		MaxTokens: maxTokens,
		Messages:  window,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = anthropicTools(req.Tools)
	}

	msg, err := r.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	step := &Step{Message: msg}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if v.Text != "" {
				step.Text = append(step.Text, v.Text)
			}
		case anthropic.ToolUseBlock:
			// Pass raw JSON input through to the tool implementation
			input := json.RawMessage(v.JSON.Input.Raw())
			res, isErr := r.execTool(ctx, req.Tools, v.ID, v.Name, input)
			step.ToolCalls = append(step.ToolCalls, ToolCall{ID: v.ID, Name: v.Name, Input: input, IsError: isErr})
			step.ToolResults = append(step.ToolResults, res)
		}
	}
	return step, nil
}

func (r *Runner) execTool(ctx context.Context, defs []tools.ToolDefinition, id, name string, input json.RawMessage) (anthropic.ContentBlockParamUnion, bool) {
	var def *tools.ToolDefinition
	for i := range defs {
		if defs[i].Name == name {
			def = &defs[i]
			break
		}
	}

	turnID, _ := telemetry.TurnIDFromContext(ctx)

	emit := func(durationMs int64, outputSize int, errStr string) {
		fields := map[string]any{
			"tool_name":   name,
			"duration_ms": durationMs,
			"input_size":  len(input),
			"output_size": outputSize,
			"turn_id":     turnID,
			"error":       nil,
		}
		if errStr != "" {
			fields["error"] = errStr
		}
		r.Telemetry.Emit("tool_exec", fields)
	}

	start := time.Now()
	if def == nil {
		emit(time.Since(start).Milliseconds(), 0, "tool not found")
		r.logger().Warn("tool not found", "tool", name, "turn_id", turnID)
		return anthropic.NewToolResultBlock(id, "tool not found", true), true
	}

	resp, err := def.Function(ctx, input)
	if err != nil {
		// Telemetry gets a generic string; the model gets the detailed message.
		emit(time.Since(start).Milliseconds(), 0, "tool error")
		r.logger().Warn("tool failed", "tool", name, "turn_id", turnID, "error", err)
		return anthropic.NewToolResultBlock(id, err.Error(), true), true
	}
	emit(time.Since(start).Milliseconds(), len(resp), "")
	r.logger().Debug("tool executed", "tool", name, "turn_id", turnID, "output_size", len(resp))
	return anthropic.NewToolResultBlock(id, resp, false), false
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
