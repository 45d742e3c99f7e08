// Package server exposes the chat and ingestion services over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hmaeda/specialist/internal/ingestion"
	"github.com/hmaeda/specialist/internal/repository"
	"github.com/hmaeda/specialist/internal/service"
)

// HTTPServer serves the JSON API.
type HTTPServer struct {
	server *http.Server
	router *chi.Mux
	logger *slog.Logger

	chat     *service.ChatService
	ingester *ingestion.Ingester
	docs     repository.DocumentRepository
	story    ingestion.StoryOptions
}

// HTTPServerConfig holds configuration for the HTTP server
type HTTPServerConfig struct {
	Port           int
	Logger         *slog.Logger
	AllowedOrigins []string // CORS allowed origins

	Chat         *service.ChatService
	Ingester     *ingestion.Ingester
	Documents    repository.DocumentRepository
	StoryOptions ingestion.StoryOptions
}

// NewHTTPServer creates the HTTP server and wires its routes.
func NewHTTPServer(cfg HTTPServerConfig) *HTTPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPServer{
		logger:   logger,
		chat:     cfg.Chat,
		ingester: cfg.Ingester,
		docs:     cfg.Documents,
		story:    cfg.StoryOptions,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	router.Get("/healthz", healthCheckHandler())
	router.Route("/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/ingest/faq", s.handleIngestFAQ)
		r.Post("/ingest/story", s.handleIngestStory)
		r.Get("/documents", s.handleListDocuments)
	})

	s.router = router
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // generation can be slow
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.chat.Ask(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.logger.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to generate answer")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

type ingestRequest struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

type ingestResponse struct {
	DocumentID      string `json:"document_id"`
	Chunks          int    `json:"chunks"`
	Inserted        int    `json:"inserted"`
	Duplicates      int    `json:"duplicates"`
	AlreadyIngested bool   `json:"already_ingested"`
}

func (s *HTTPServer) handleIngestFAQ(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeIngestRequest(w, r)
	if !ok {
		return
	}

	result, err := s.ingester.IngestFAQ(r.Context(), req.Source, req.Content)
	if err != nil {
		s.logger.Error("faq ingestion failed", "source", req.Source, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toIngestResponse(result))
}

func (s *HTTPServer) handleIngestStory(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeIngestRequest(w, r)
	if !ok {
		return
	}

	result, err := s.ingester.IngestStory(r.Context(), req.Source, req.Content, s.story)
	if err != nil {
		s.logger.Error("story ingestion failed", "source", req.Source, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toIngestResponse(result))
}

func decodeIngestRequest(w http.ResponseWriter, r *http.Request) (ingestRequest, bool) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return req, false
	}
	if req.Source == "" {
		req.Source = "api"
	}
	return req, true
}

func toIngestResponse(result *ingestion.Result) ingestResponse {
	return ingestResponse{
		DocumentID:      result.DocumentID.String(),
		Chunks:          result.Chunks,
		Inserted:        result.Inserted,
		Duplicates:      result.Duplicates,
		AlreadyIngested: result.AlreadyIngested,
	}
}

type documentResponse struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Kind       string    `json:"kind"`
	ChunkCount int       `json:"chunk_count"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *HTTPServer) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	docs, total, err := s.docs.List(r.Context(), kind, limit, offset)
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	items := make([]documentResponse, len(docs))
	for i, doc := range docs {
		items[i] = documentResponse{
			ID:         doc.ID.String(),
			Source:     doc.Source,
			Kind:       doc.Kind,
			ChunkCount: doc.ChunkCount,
			Status:     doc.Status,
			CreatedAt:  doc.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": items,
		"total":     total,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 {
				// If no origins specified, allow all in development
				allowed = true
				origin = "*"
			} else {
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// healthCheckHandler returns a handler for the /healthz endpoint
func healthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}
