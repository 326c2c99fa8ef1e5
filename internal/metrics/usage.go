package metrics

// Usage accumulates the cost of one agent run across its model steps.
type Usage struct {
	Steps        int
	ToolCalls    int
	ToolErrors   int
	InputTokens  int64
	OutputTokens int64
}

// AddStep records one Messages API round trip.
func (u *Usage) AddStep(inputTokens, outputTokens int64) {
	u.Steps++
	u.InputTokens += inputTokens
	u.OutputTokens += outputTokens
}

// AddToolCall records one executed tool_use block.
func (u *Usage) AddToolCall(failed bool) {
	u.ToolCalls++
	if failed {
		u.ToolErrors++
	}
}

// Merge folds other into u, used when a team delegates to members.
func (u *Usage) Merge(other Usage) {
	u.Steps += other.Steps
	u.ToolCalls += other.ToolCalls
	u.ToolErrors += other.ToolErrors
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Fields renders u for a telemetry event.
func (u Usage) Fields() map[string]any {
	return map[string]any{
		"steps":         u.Steps,
		"tool_calls":    u.ToolCalls,
		"tool_errors":   u.ToolErrors,
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
	}
}
