package windowing

import "github.com/anthropics/anthropic-sdk-go"

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

// Group describes a contiguous span of messages [Start, End) in the original slice.
// Reason is set when an assistant tool_use message could not be paired.
type Group struct {
	Kind   GroupKind
	Start  int // inclusive index into msgs
	End    int // exclusive index into msgs
	Reason string
}

// GroupBlocks groups messages into atomic units that preserve tool-use pairs.
// Invariants:
//   - A pair is exactly two adjacent messages: assistant(tool_use+...) then user(tool_result...).
//   - In the user message, all tool_result blocks come first; text (if any) comes after.
//   - Every tool_use id in the assistant appears as a tool_result id in the
//     following user message, and no extra result ids are present.
//   - tool_result blocks with is_error=true group the same as successful ones.
func GroupBlocks(msgs []anthropic.MessageParam) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		reason := ""
		if msgs[i].Role == anthropic.MessageParamRoleAssistant {
			if useIDs := toolUseIDs(msgs[i]); len(useIDs) > 0 {
				reason = pairReason(msgs, i, useIDs)
				if reason == "" {
					groups = append(groups, Group{Kind: GroupPair, Start: i, End: i + 2})
					i += 2
					continue
				}
			}
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1, Reason: reason})
		i++
	}
	return groups
}

// pairReason returns "" when msgs[i] and msgs[i+1] form a valid pair,
// otherwise a short code naming the violated rule.
func pairReason(msgs []anthropic.MessageParam, i int, useIDs map[string]struct{}) string {
	if i+1 >= len(msgs) || msgs[i+1].Role != anthropic.MessageParamRoleUser {
		return "not_followed_by_user"
	}
	valid, resultIDs := leadingToolResultIDs(msgs[i+1])
	switch {
	case !valid:
		return "ordering_invalid"
	case !subset(useIDs, resultIDs):
		return "missing_results"
	case !subset(resultIDs, useIDs):
		return "extra_results"
	}
	return ""
}

func toolUseIDs(m anthropic.MessageParam) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, blk := range m.Content {
		if tu := blk.OfToolUse; tu != nil && tu.ID != "" {
			ids[tu.ID] = struct{}{}
		}
	}
	return ids
}

// leadingToolResultIDs collects the ids of the leading tool_result segment of
// a user message. valid is false when a tool_result follows a non-result block.
func leadingToolResultIDs(m anthropic.MessageParam) (valid bool, ids map[string]struct{}) {
	ids = make(map[string]struct{})
	seenNonResult := false
	for _, blk := range m.Content {
		if tr := blk.OfToolResult; tr != nil {
			if seenNonResult {
				return false, ids
			}
			if tr.ToolUseID != "" {
				ids[tr.ToolUseID] = struct{}{}
			}
			continue
		}
		seenNonResult = true
	}
	return true, ids
}

// subset reports whether every id in a is present in b.
func subset(a, b map[string]struct{}) bool {
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
