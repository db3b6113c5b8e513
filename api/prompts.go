package api

import (
	"fmt"
	"net/http"
	"strings"

	"docquery/prompts"
)

type promptsPayload struct {
	SystemTemplate string `json:"system_template"`
	UserTemplate   string `json:"user_template"`
}

func (s *Server) handleGetPrompts(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	pair := s.prompts.Get(userID)
	s.writeJSON(w, http.StatusOK, promptsPayload{
		SystemTemplate: pair.System,
		UserTemplate:   pair.User,
	})
}

func (s *Server) handleSetPrompts(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)

	var req promptsPayload
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	req.SystemTemplate = strings.TrimSpace(req.SystemTemplate)
	req.UserTemplate = strings.TrimSpace(req.UserTemplate)
	if req.SystemTemplate == "" || req.UserTemplate == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("system_template and user_template are required"))
		return
	}

	s.prompts.Set(userID, prompts.Pair{
		System: req.SystemTemplate,
		User:   req.UserTemplate,
	})
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "prompts updated"})
}

func (s *Server) handleResetPrompts(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	s.prompts.Reset(userID)

	pair := s.prompts.Get(userID)
	s.writeJSON(w, http.StatusOK, promptsPayload{
		SystemTemplate: pair.System,
		UserTemplate:   pair.User,
	})
}
