package session

import (
	"context"
	"fmt"
	"log"
	"strings"

	"docquery/index"
	"docquery/llm"
	"docquery/prompts"
	"docquery/telemetry"
)

// retrievalLimit bounds prompt size; it is a design constant, not a knob.
const retrievalLimit = 4

// Pipeline orchestrates one query: retrieve, render, generate, trace.
type Pipeline struct {
	store  *Store
	tracer telemetry.Tracer
	logger *log.Logger
}

func NewPipeline(store *Store, tracer telemetry.Tracer, logger *log.Logger) *Pipeline {
	if tracer == nil {
		tracer = telemetry.Nop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{store: store, tracer: tracer, logger: logger}
}

// Result couples the retrieved context with the lazy answer stream.
type Result struct {
	SessionID string
	Context   []index.RetrievedChunk
	Stream    *Stream
}

// Run executes the retrieval-augmented query. Failures before the provider
// call (unknown session, embedding error, template render error) return
// immediately with no session-state mutation; provider failures surface
// from the stream as GenerationError.
func (p *Pipeline) Run(ctx context.Context, sessionID, query string) (*Result, error) {
	sess, err := p.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	// One atomic read; a concurrent template swap affects the next query.
	pair := sess.Templates()

	chunks, err := sess.Index.SearchByText(ctx, query, retrievalLimit)
	if err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("retrieve context: %w", err)}
	}

	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(chunk.Text)
		b.WriteString("\n")
	}
	contextText := b.String()

	systemPrompt, userPrompt, err := pair.Render(map[string]string{
		"question": query,
		"context":  contextText,
	})
	if err != nil {
		// Abort before any provider call is made.
		return nil, err
	}

	runID := p.tracer.LogRetrieval(ctx, telemetry.Retrieval{
		Query:     query,
		Results:   chunks,
		UserID:    sess.UserID,
		SessionID: sessionID,
	})

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt},
	}

	stream := newStream(ctx, func(ctx context.Context, emit func(string) error) error {
		var full strings.Builder
		err := generate(ctx, sess.LLM, messages, func(fragment string) error {
			full.WriteString(fragment)
			return emit(fragment)
		})
		if err != nil {
			return err
		}

		p.tracer.LogGeneration(context.WithoutCancel(ctx), telemetry.Generation{
			Query:        query,
			Context:      contextText,
			Response:     full.String(),
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt,
			UserID:       sess.UserID,
			SessionID:    sessionID,
			ParentRunID:  runID,
		})
		return nil
	})

	return &Result{
		SessionID: sessionID,
		Context:   chunks,
		Stream:    stream,
	}, nil
}

// UpdateTemplates hot-swaps the session's template pair. In-flight queries
// that already rendered keep the pair they started with.
func (p *Pipeline) UpdateTemplates(sessionID string, pair prompts.Pair) error {
	sess, err := p.store.Get(sessionID)
	if err != nil {
		return err
	}
	sess.SetTemplates(pair)
	return nil
}

// generate streams when the client supports it and falls back to a single
// full completion delivered as one fragment otherwise.
func generate(ctx context.Context, client llm.Client, messages []llm.Message, fn func(string) error) error {
	if streamer, ok := client.(llm.StreamClient); ok {
		return streamer.GenerateStream(ctx, messages, fn)
	}

	answer, err := client.Generate(ctx, messages)
	if err != nil {
		return err
	}
	return fn(answer)
}
