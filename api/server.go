// Package api exposes the HTTP surface: document upload, querying,
// prompt management, and document insight generation.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"docquery/config"
	"docquery/embeddings"
	"docquery/index"
	"docquery/llm"
	"docquery/prompts"
	"docquery/session"
	"docquery/telemetry"
)

// Version is reported by GET /version.
const Version = "1.2.0"

const userCookieName = "user_id"

// Options carries the wired dependencies for a Server.
type Options struct {
	Config   config.Config
	Logger   *log.Logger
	Embedder embeddings.Embedder
	LLM      llm.Client
	Tracer   telemetry.Tracer
	Sessions *session.Store
	Prompts  *prompts.Store

	// NewIndex builds the per-session index for the configured backend.
	NewIndex func(sessionID string) (index.Index, error)
}

// Server exposes HTTP handlers for the document Q&A workflows.
type Server struct {
	cfg      config.Config
	logger   *log.Logger
	embedder embeddings.Embedder
	llm      llm.Client
	sessions *session.Store
	prompts  *prompts.Store
	pipeline *session.Pipeline
	newIndex func(sessionID string) (index.Index, error)
	handler  http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New constructs a Server from wired dependencies.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	newIndex := opts.NewIndex
	if newIndex == nil {
		newIndex = func(string) (index.Index, error) {
			return index.NewMemory(opts.Embedder), nil
		}
	}

	s := &Server{
		cfg:      opts.Config,
		logger:   logger,
		embedder: opts.Embedder,
		llm:      opts.LLM,
		sessions: opts.Sessions,
		prompts:  opts.Prompts,
		pipeline: session.NewPipeline(opts.Sessions, opts.Tracer, logger),
		newIndex: newIndex,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	r.HandleFunc("/api/identify", s.handleIdentify).Methods(http.MethodGet)
	r.HandleFunc("/api/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/api/query", s.handleQuery).Methods(http.MethodPost)
	r.HandleFunc("/api/query/stream", s.handleQueryStream).Methods(http.MethodPost)
	r.HandleFunc("/api/prompts", s.handleGetPrompts).Methods(http.MethodGet)
	r.HandleFunc("/api/prompts", s.handleSetPrompts).Methods(http.MethodPost)
	r.HandleFunc("/api/prompts/reset", s.handleResetPrompts).Methods(http.MethodPost)
	r.HandleFunc("/api/generate-quiz", s.handleGenerateQuiz).Methods(http.MethodPost)
	r.HandleFunc("/api/document-summary", s.handleDocumentSummary).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions", s.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	s.writeJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}

type sessionInfo struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)

	list := s.sessions.List(userID)
	infos := make([]sessionInfo, len(list))
	for i, sess := range list {
		infos[i] = sessionInfo{ID: sess.ID, UserID: sess.UserID}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": infos})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	sessionID := mux.Vars(r)["id"]

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if sess.UserID != userID {
		s.writeError(w, http.StatusForbidden, fmt.Errorf("session %s belongs to another user", sessionID))
		return
	}
	if err := s.sessions.Delete(sessionID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "session deleted"})
}

// userID returns the caller's id from the user_id cookie, minting one and
// setting the cookie on first contact.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(userCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     userCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// resolveUser prefers an explicit user_id from the request body over the
// cookie identity.
func (s *Server) resolveUser(w http.ResponseWriter, r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return s.userID(w, r)
}

// syncTemplates pushes the user's current template pair onto the session so
// a query picks up overrides saved since the session was created. A missing
// session is left for the caller to surface.
func (s *Server) syncTemplates(sessionID, userID string) {
	_ = s.pipeline.UpdateTemplates(sessionID, s.prompts.Get(userID))
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var renderErr *prompts.RenderError
	var genErr *session.GenerationError

	switch {
	case errors.Is(err, session.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.As(err, &renderErr):
		s.writeError(w, http.StatusUnprocessableEntity, err)
	case errors.As(err, &genErr):
		s.writeError(w, http.StatusBadGateway, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}
