package telemetry

import (
	"context"

	"github.com/petasbytes/concept-tutor/internal/metrics"
)

// EmitQueryFeatures records size features of a user query, never its text.
func (s *Sink) EmitQueryFeatures(ctx context.Context, source, query string) {
	if !s.Enabled() {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	f := metrics.CountFeatures(query)
	s.Emit("query_features", map[string]any{
		"turn_id":          turnID,
		"source":           source,
		"features_version": "1",
		"query": map[string]any{
			"bytes": f.Bytes,
			"runes": f.Runes,
			"words": f.Words,
			"lines": f.Lines,
		},
	})
}
