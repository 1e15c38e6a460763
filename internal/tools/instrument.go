package tools

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// InstrumentedTool wraps a Tool and counts executions by outcome.
type InstrumentedTool struct {
	driven.Tool
	calls *prometheus.CounterVec // labels: tool, status
}

// Instrument wraps a tool with execution counting. A nil counter
// returns the tool unchanged.
func Instrument(tool driven.Tool, calls *prometheus.CounterVec) driven.Tool {
	if calls == nil {
		return tool
	}
	return &InstrumentedTool{Tool: tool, calls: calls}
}

func (t *InstrumentedTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	result, err := t.Tool.Execute(ctx, args)
	status := "ok"
	if err != nil {
		status = "error"
	}
	t.calls.WithLabelValues(t.Tool.Name(), status).Inc()
	return result, err
}
