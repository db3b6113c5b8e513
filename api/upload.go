package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"docquery/extract"
	"docquery/index"
	"docquery/ingestion"
	"docquery/llm"
	"docquery/session"
)

// maxUploadBytes bounds the multipart form held in memory.
const maxUploadBytes = 32 << 20

// descriptionSampleChunks is how many leading chunks seed the document
// description and suggested questions.
const descriptionSampleChunks = 5

type uploadResponse struct {
	SessionID          string   `json:"session_id"`
	Filename           string   `json:"filename"`
	ChunkCount         int      `json:"chunk_count"`
	Description        string   `json:"description"`
	SuggestedQuestions []string `json:"suggested_questions"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("file field is required: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	format, err := ingestion.DetectFormat(header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	text, err := ingestion.Load(data, format)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse document: %w", err))
		return
	}
	if text == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("document %s contains no extractable text", header.Filename))
		return
	}

	chunks := ingestion.NewSplitter().SplitText(text)
	if len(chunks) == 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("document %s produced no chunks", header.Filename))
		return
	}

	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// Build the index first so a failed ingestion leaves no session behind.
	idx, err := s.newIndex(sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("create index: %w", err))
		return
	}
	if err := index.Build(ctx, idx, s.embedder, chunks); err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("index document: %w", err))
		return
	}

	description, questions := s.describeDocument(ctx, header.Filename, chunks)

	pair := s.prompts.Get(userID)
	s.sessions.Create(session.New(sessionID, userID, idx, s.llm, pair))

	s.logger.Printf("uploaded %s: %d chunks, session %s", header.Filename, len(chunks), sessionID)

	s.writeJSON(w, http.StatusOK, uploadResponse{
		SessionID:          sessionID,
		Filename:           header.Filename,
		ChunkCount:         len(chunks),
		Description:        description,
		SuggestedQuestions: questions,
	})
}

// describeDocument asks the provider for a one-paragraph description and
// three suggested questions. Provider trouble degrades to generic values
// rather than failing the upload.
func (s *Server) describeDocument(ctx context.Context, filename string, chunks []string) (string, []string) {
	sample := chunks
	if len(sample) > descriptionSampleChunks {
		sample = sample[:descriptionSampleChunks]
	}
	excerpt := strings.Join(sample, "\n\n")

	description := fmt.Sprintf("Document %s is ready for questions.", filename)
	answer, err := s.llm.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You summarize documents in one short paragraph."},
		{Role: llm.RoleUser, Content: "Describe this document in two sentences:\n\n" + excerpt},
	})
	if err != nil {
		s.logger.Printf("document description failed: %v", err)
	} else if trimmed := strings.TrimSpace(answer); trimmed != "" {
		description = trimmed
	}

	answer, err = s.llm.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You suggest questions a reader might ask about a document. Respond with a JSON array of exactly 3 question strings."},
		{Role: llm.RoleUser, Content: "Suggest 3 questions about this document:\n\n" + excerpt},
	})
	if err != nil {
		s.logger.Printf("suggested questions failed: %v", err)
		return description, extract.FallbackSuggestedQuestions()
	}
	return description, extract.SuggestedQuestions(answer)
}
