package session_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"docquery/index"
	"docquery/llm"
	"docquery/prompts"
	"docquery/session"
	"docquery/telemetry"
)

type stubIndex struct {
	chunks []index.RetrievedChunk
	err    error
}

func (s *stubIndex) Insert(context.Context, string, []float32) error { return nil }

func (s *stubIndex) Search(context.Context, []float32, int) ([]index.RetrievedChunk, error) {
	return s.chunks, s.err
}

func (s *stubIndex) SearchByText(context.Context, string, int) ([]index.RetrievedChunk, error) {
	return s.chunks, s.err
}

func (s *stubIndex) Keys(context.Context) ([]string, error) {
	keys := make([]string, len(s.chunks))
	for i, c := range s.chunks {
		keys[i] = c.Text
	}
	return keys, nil
}

var _ index.Index = (*stubIndex)(nil)

type stubLLM struct {
	mu        sync.Mutex
	fragments []string
	err       error
	calls     int
	messages  [][]llm.Message
}

func (s *stubLLM) record(messages []llm.Message) {
	s.mu.Lock()
	s.calls++
	s.messages = append(s.messages, messages)
	s.mu.Unlock()
}

func (s *stubLLM) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	s.record(messages)
	if s.err != nil {
		return "", s.err
	}
	var full string
	for _, f := range s.fragments {
		full += f
	}
	return full, nil
}

func (s *stubLLM) GenerateStream(ctx context.Context, messages []llm.Message, fn func(string) error) error {
	s.record(messages)
	if s.err != nil {
		return s.err
	}
	for _, f := range s.fragments {
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubLLM) lastMessages() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[len(s.messages)-1]
}

var _ llm.Client = (*stubLLM)(nil)
var _ llm.StreamClient = (*stubLLM)(nil)

type recordingTracer struct {
	mu          sync.Mutex
	runID       string
	retrievals  []telemetry.Retrieval
	generations []telemetry.Generation
}

func (t *recordingTracer) LogRetrieval(_ context.Context, r telemetry.Retrieval) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retrievals = append(t.retrievals, r)
	return t.runID
}

func (t *recordingTracer) LogGeneration(_ context.Context, g telemetry.Generation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generations = append(t.generations, g)
}

var _ telemetry.Tracer = (*recordingTracer)(nil)

func newTestSession(id string, idx index.Index, client llm.Client) *session.Session {
	return session.New(id, "user-1", idx, client, prompts.Default())
}

func TestStoreCreateGetDelete(t *testing.T) {
	store := session.NewStore(nil)
	sess := newTestSession("s1", &stubIndex{}, &stubLLM{})

	store.Create(sess)
	got, err := store.Get("s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != sess {
		t.Fatal("expected the registered session back")
	}

	if err := store.Delete("s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get("s1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete("s1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for double delete, got %v", err)
	}
}

func TestStoreCreateReplacesExisting(t *testing.T) {
	store := session.NewStore(nil)
	first := newTestSession("s1", &stubIndex{}, &stubLLM{})
	second := newTestSession("s1", &stubIndex{}, &stubLLM{})

	store.Create(first)
	store.Create(second)

	got, err := store.Get("s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != second {
		t.Fatal("expected last write to win")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}
}

func TestStoreListFiltersByUser(t *testing.T) {
	store := session.NewStore(nil)
	store.Create(session.New("s1", "alice", &stubIndex{}, &stubLLM{}, prompts.Default()))
	store.Create(session.New("s2", "bob", &stubIndex{}, &stubLLM{}, prompts.Default()))
	store.Create(session.New("s3", "alice", &stubIndex{}, &stubLLM{}, prompts.Default()))

	got := store.List("alice")
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions for alice, got %d", len(got))
	}
	for _, sess := range got {
		if sess.UserID != "alice" {
			t.Fatalf("expected only alice's sessions, got %q", sess.UserID)
		}
	}
}

func TestPipelineUnknownSession(t *testing.T) {
	pipeline := session.NewPipeline(session.NewStore(nil), nil, nil)

	_, err := pipeline.Run(context.Background(), "missing", "question")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPipelineCollectConcatenatesFragments(t *testing.T) {
	store := session.NewStore(nil)
	client := &stubLLM{fragments: []string{"Hel", "lo", " world"}}
	idx := &stubIndex{chunks: []index.RetrievedChunk{
		{Text: "chunk one", Score: 0.9},
		{Text: "chunk two", Score: 0.8},
	}}
	store.Create(newTestSession("s1", idx, client))
	pipeline := session.NewPipeline(store, nil, nil)

	result, err := pipeline.Run(context.Background(), "s1", "what is this?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Context) != 2 {
		t.Fatalf("expected 2 context chunks, got %d", len(result.Context))
	}

	answer, err := result.Stream.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if answer != "Hello world" {
		t.Fatalf("expected %q, got %q", "Hello world", answer)
	}
}

func TestPipelineRenderErrorAbortsBeforeProviderCall(t *testing.T) {
	store := session.NewStore(nil)
	client := &stubLLM{fragments: []string{"never"}}
	sess := session.New("s1", "user-1", &stubIndex{}, client, prompts.Pair{
		System: "System",
		User:   "{question} with {unbound}",
	})
	store.Create(sess)
	pipeline := session.NewPipeline(store, nil, nil)

	_, err := pipeline.Run(context.Background(), "s1", "question")
	var renderErr *prompts.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	if renderErr.Placeholder != "unbound" {
		t.Fatalf("expected placeholder %q, got %q", "unbound", renderErr.Placeholder)
	}
	if client.callCount() != 0 {
		t.Fatalf("expected no provider calls, got %d", client.callCount())
	}
}

func TestPipelineProviderFailureSurfacesAsGenerationError(t *testing.T) {
	store := session.NewStore(nil)
	cause := errors.New("rate limited")
	store.Create(newTestSession("s1", &stubIndex{}, &stubLLM{err: cause}))
	pipeline := session.NewPipeline(store, nil, nil)

	result, err := pipeline.Run(context.Background(), "s1", "question")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	_, err = result.Stream.Collect()
	var genErr *session.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected the provider cause to be wrapped")
	}
}

func TestStreamCloseStopsGeneration(t *testing.T) {
	store := session.NewStore(nil)
	fragments := make([]string, 1000)
	for i := range fragments {
		fragments[i] = "x"
	}
	store.Create(newTestSession("s1", &stubIndex{}, &stubLLM{fragments: fragments}))
	pipeline := session.NewPipeline(store, nil, nil)

	result, err := pipeline.Run(context.Background(), "s1", "question")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := result.Stream.Recv(); err != nil {
		t.Fatalf("first recv: %v", err)
	}
	result.Stream.Close()

	if _, err := result.Stream.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after Close, got %v", err)
	}
}

func TestPipelineTemplateHotSwap(t *testing.T) {
	store := session.NewStore(nil)
	client := &stubLLM{fragments: []string{"ok"}}
	store.Create(newTestSession("s1", &stubIndex{}, client))
	pipeline := session.NewPipeline(store, nil, nil)

	first, err := pipeline.Run(context.Background(), "s1", "first")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := first.Stream.Collect(); err != nil {
		t.Fatalf("collect first: %v", err)
	}

	custom := prompts.Pair{System: "Be brief.", User: "{question}"}
	if err := pipeline.UpdateTemplates("s1", custom); err != nil {
		t.Fatalf("update templates: %v", err)
	}

	result, err := pipeline.Run(context.Background(), "s1", "second")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if _, err := result.Stream.Collect(); err != nil {
		t.Fatalf("collect: %v", err)
	}

	messages := client.lastMessages()
	if len(messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(messages))
	}
	if messages[0].Content != "Be brief." {
		t.Fatalf("expected swapped system prompt, got %q", messages[0].Content)
	}
	if messages[1].Content != "second" {
		t.Fatalf("expected swapped user prompt, got %q", messages[1].Content)
	}
}

func TestPipelineLinksGenerationToRetrievalRun(t *testing.T) {
	store := session.NewStore(nil)
	store.Create(newTestSession("s1", &stubIndex{chunks: []index.RetrievedChunk{{Text: "ctx", Score: 1}}}, &stubLLM{fragments: []string{"answer"}}))
	tracer := &recordingTracer{runID: "run-1"}
	pipeline := session.NewPipeline(store, tracer, nil)

	result, err := pipeline.Run(context.Background(), "s1", "question")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := result.Stream.Collect(); err != nil {
		t.Fatalf("collect: %v", err)
	}

	tracer.mu.Lock()
	defer tracer.mu.Unlock()
	if len(tracer.retrievals) != 1 {
		t.Fatalf("expected 1 retrieval run, got %d", len(tracer.retrievals))
	}
	if len(tracer.generations) != 1 {
		t.Fatalf("expected 1 generation run, got %d", len(tracer.generations))
	}
	gen := tracer.generations[0]
	if gen.ParentRunID != "run-1" {
		t.Fatalf("expected generation linked to run-1, got %q", gen.ParentRunID)
	}
	if gen.Response != "answer" {
		t.Fatalf("expected recorded response %q, got %q", "answer", gen.Response)
	}
}

func TestConcurrentSessionsDoNotLeak(t *testing.T) {
	store := session.NewStore(nil)
	pipeline := session.NewPipeline(store, nil, nil)

	const n = 100
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := string(rune('a'+i%26)) + "-" + string(rune('0'+i/26))
		ids[i] = id
		store.Create(newTestSession(id, &stubIndex{}, &stubLLM{fragments: []string{id}}))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := pipeline.Run(context.Background(), ids[i], "question")
			if err != nil {
				errs[i] = err
				return
			}
			answer, err := result.Stream.Collect()
			if err != nil {
				errs[i] = err
				return
			}
			if answer != ids[i] {
				errs[i] = errors.New("answer leaked from another session: " + answer)
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("session %s: %v", ids[i], err)
		}
	}
}
