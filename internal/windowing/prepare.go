// Package windowing selects the newest slice of a conversation that fits an
// input-token budget without splitting tool_use/tool_result pairs.
package windowing

import (
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
)

// Stats summarizes the result of window preparation.
//
// Fields:
//   - Total: estimated tokens for included groups only.
//   - Budget: the input token budget used.
//   - IncludedGroups: number of groups included.
//   - SkippedGroups: total groups minus IncludedGroups.
//   - DroppedLeading: groups removed because the window must start with a user message.
//   - OverBudgetNewest: true when the newest single group alone exceeds Budget.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	DroppedLeading   int
	OverBudgetNewest bool
}

// Window prepares send windows for one budget.
type Window struct {
	Budget  int
	Counter TokenCounter
	// Logger receives debug lines about excluded pairs; nil disables them.
	Logger *slog.Logger
}

// Prepare returns a subslice of msgs (oldest to newest) that fits within the
// budget.
//
// Rules:
//   - Include whole groups scanning newest to oldest while total <= budget.
//   - If the newest group alone exceeds budget, return an empty window and set OverBudgetNewest.
//   - If budget <= 0, return an empty window (OverBudgetNewest set when any groups exist).
//   - The window starts at the oldest included group whose first message is a
//     user message; older assistant-led groups are dropped.
func (w Window) Prepare(msgs []anthropic.MessageParam) ([]anthropic.MessageParam, Stats) {
	stats := Stats{Budget: w.Budget}
	if len(msgs) == 0 {
		return nil, stats
	}
	counter := w.Counter
	if counter == nil {
		counter = HeuristicCounter{}
	}

	groups := GroupBlocks(msgs)
	for _, g := range groups {
		if g.Reason != "" {
			w.debug("exclude pair", "reason", g.Reason, "idx", g.Start)
		}
	}

	if w.Budget <= 0 {
		stats.SkippedGroups = len(groups)
		stats.OverBudgetNewest = true
		return nil, stats
	}

	start := len(groups)
	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := counter.CountGroup(groups[gi], msgs)
		if stats.IncludedGroups == 0 && cost > w.Budget {
			w.debug("over budget newest group", "budget", w.Budget, "cost", cost)
			stats.SkippedGroups = len(groups)
			stats.OverBudgetNewest = true
			return nil, stats
		}
		if stats.Total+cost > w.Budget {
			break
		}
		stats.Total += cost
		stats.IncludedGroups++
		start = gi
	}

	for start < len(groups) && msgs[groups[start].Start].Role != anthropic.MessageParamRoleUser {
		stats.Total -= counter.CountGroup(groups[start], msgs)
		stats.IncludedGroups--
		stats.DroppedLeading++
		start++
	}
	stats.SkippedGroups = len(groups) - stats.IncludedGroups
	if start == len(groups) {
		return nil, stats
	}
	return msgs[groups[start].Start:], stats
}

func (w Window) debug(msg string, args ...any) {
	if w.Logger != nil {
		w.Logger.Debug("windowing: "+msg, args...)
	}
}
