package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"docquery/index"
)

type queryRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	UserID    string `json:"user_id"`
}

type queryResponse struct {
	SessionID string                 `json:"session_id"`
	Response  string                 `json:"response"`
	Sources   []index.RetrievedChunk `json:"sources"`
}

func (s *Server) parseQuery(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return req, false
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return req, false
	}
	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("session_id is required"))
		return req, false
	}
	return req, true
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	userID := s.resolveUser(w, r, req.UserID)
	s.syncTemplates(req.SessionID, userID)

	result, err := s.pipeline.Run(r.Context(), req.SessionID, req.Question)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	answer, err := result.Stream.Collect()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, queryResponse{
		SessionID: result.SessionID,
		Response:  answer,
		Sources:   result.Context,
	})
}

type streamEvent struct {
	Delta string `json:"delta,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleQueryStream answers over Server-Sent Events, one event per
// generation fragment. The request context cancels generation when the
// client disconnects.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	userID := s.resolveUser(w, r, req.UserID)
	s.syncTemplates(req.SessionID, userID)

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported by connection"))
		return
	}

	result, err := s.pipeline.Run(r.Context(), req.SessionID, req.Question)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer result.Stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		fragment, err := result.Stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Printf("stream error for session %s: %v", req.SessionID, err)
			s.writeSSE(w, streamEvent{Error: err.Error()})
			flusher.Flush()
			return
		}
		s.writeSSE(w, streamEvent{Delta: fragment})
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (s *Server) writeSSE(w http.ResponseWriter, event streamEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Printf("encode sse event: %v", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
