package windowing

import (
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m anthropic.MessageParam) int
	CountGroup(g Group, all []anthropic.MessageParam) int
}

// HeuristicCounter is the default deterministic estimator.
// Rules:
//   - text blocks: rune count of the text
//   - tool_result blocks: runes of nested text parts, or of the string payload
//   - every block adds a fixed overhead for minimal formatting
type HeuristicCounter struct{}

// Fixed per-block overhead; changing this requires updating the counter tests.
const blockOverhead = 4

func (HeuristicCounter) CountMessage(m anthropic.MessageParam) int {
	total := 0
	for _, blk := range m.Content {
		total += countBlock(blk)
	}
	return total
}

func (h HeuristicCounter) CountGroup(g Group, all []anthropic.MessageParam) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountMessage(all[i])
	}
	return total
}

func countBlock(blk anthropic.ContentBlockParamUnion) int {
	if tb := blk.OfText; tb != nil {
		return utf8.RuneCountInString(tb.Text) + blockOverhead
	}
	if tr := blk.OfToolResult; tr != nil {
		n := 0
		for _, part := range tr.Content {
			if pt := part.OfText; pt != nil {
				n += utf8.RuneCountInString(pt.Text)
			}
		}
		return n + blockOverhead
	}
	// tool_use, images and documents count as overhead only.
	return blockOverhead
}
