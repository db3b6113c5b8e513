// Package telemetry records retrieval and generation runs for offline
// quality analysis. The sink is strictly best-effort: failures are logged
// and swallowed, never surfaced to the query path.
package telemetry

import (
	"context"

	"docquery/index"
)

// Retrieval describes one retrieval run.
type Retrieval struct {
	Query     string
	Results   []index.RetrievedChunk
	UserID    string
	SessionID string
}

// Generation describes one generation run, optionally linked to the
// retrieval run that produced its context.
type Generation struct {
	Query        string
	Context      string
	Response     string
	SystemPrompt string
	UserPrompt   string
	UserID       string
	SessionID    string
	ParentRunID  string
}

// Tracer is the telemetry sink. LogRetrieval returns a correlation id for
// linking the follow-up generation run, or "" when nothing was recorded.
type Tracer interface {
	LogRetrieval(ctx context.Context, r Retrieval) string
	LogGeneration(ctx context.Context, g Generation)
}

// Nop discards all events.
type Nop struct{}

func (Nop) LogRetrieval(context.Context, Retrieval) string { return "" }
func (Nop) LogGeneration(context.Context, Generation)      {}

var _ Tracer = Nop{}
