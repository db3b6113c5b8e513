package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"docquery/extract"
	"docquery/index"
	"docquery/llm"
)

const (
	quizSampleChunks    = 15
	summarySampleChunks = 10

	defaultQuizQuestions = 5
	maxQuizQuestions     = 10
)

type quizRequest struct {
	SessionID    string `json:"session_id"`
	NumQuestions int    `json:"num_questions"`
	UserID       string `json:"user_id"`
}

type quizResponse struct {
	SessionID string                 `json:"session_id"`
	Questions []extract.QuizQuestion `json:"questions"`
}

const quizSystemPrompt = `You create multiple-choice quizzes from document excerpts. Respond with JSON only, shaped as {"questions": [{"id": "...", "text": "...", "options": ["...", "...", "...", "..."], "correctAnswer": "..."}]}. The correctAnswer must be one of the options.`

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("session_id is required"))
		return
	}

	num := req.NumQuestions
	if num <= 0 {
		num = defaultQuizQuestions
	}
	if num > maxQuizQuestions {
		num = maxQuizQuestions
	}

	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	excerpt, err := sampleChunks(r.Context(), sess.Index, quizSampleChunks)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("read stored chunks: %w", err))
		return
	}

	answer, err := sess.LLM.Generate(r.Context(), []llm.Message{
		{Role: llm.RoleSystem, Content: quizSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Create %d quiz questions from this document:\n\n%s", num, excerpt)},
	})
	if err != nil {
		s.logger.Printf("quiz generation failed for session %s: %v", req.SessionID, err)
		s.writeJSON(w, http.StatusOK, quizResponse{
			SessionID: req.SessionID,
			Questions: extract.FallbackQuizQuestions(num),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, quizResponse{
		SessionID: req.SessionID,
		Questions: extract.QuizQuestions(answer, num),
	})
}

type summaryRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type summaryResponse struct {
	SessionID string                    `json:"session_id"`
	Summary   extract.StructuredSummary `json:"summary"`
}

const summarySystemPrompt = `You analyze documents and respond with JSON only, shaped as {"keyTopics": ["..."], "entities": ["..."], "wordCloudData": [{"text": "...", "value": 50}], "documentStructure": [{"title": "...", "subsections": ["..."]}]}.`

func (s *Server) handleDocumentSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("session_id is required"))
		return
	}

	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	excerpt, err := sampleChunks(r.Context(), sess.Index, summarySampleChunks)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("read stored chunks: %w", err))
		return
	}

	answer, err := sess.LLM.Generate(r.Context(), []llm.Message{
		{Role: llm.RoleSystem, Content: summarySystemPrompt},
		{Role: llm.RoleUser, Content: "Analyze this document:\n\n" + excerpt},
	})
	if err != nil {
		s.logger.Printf("summary generation failed for session %s: %v", req.SessionID, err)
		s.writeJSON(w, http.StatusOK, summaryResponse{
			SessionID: req.SessionID,
			Summary:   extract.FallbackSummary(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, summaryResponse{
		SessionID: req.SessionID,
		Summary:   extract.Summary(answer),
	})
}

// sampleChunks joins up to limit stored chunks, in insertion order, into a
// single prompt excerpt.
func sampleChunks(ctx context.Context, idx index.Index, limit int) (string, error) {
	keys, err := idx.Keys(ctx)
	if err != nil {
		return "", err
	}
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return strings.Join(keys, "\n\n"), nil
}
