package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/models"
)

// handleCreateDocument registers a document and starts indexing it in the
// background. The response never waits for or reflects indexing: upload
// completion must not fail because ingestion did.
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(input.URL) == "" {
		s.respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	doc := &models.Document{
		ID:   input.ID,
		Name: input.Name,
		URL:  input.URL,
	}
	if err := s.storage.CreateDocument(r.Context(), doc); err != nil {
		s.logger.Error("create document failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.pipeline.IngestAsync(doc.ID, doc.URL)
	s.respondJSON(w, http.StatusAccepted, map[string]string{"id": doc.ID, "status": "processing"})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset := parseIntParam(r, "offset", 0)
	limit := parseIntParam(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, docs)
}

func parseIntParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.storage.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type contextRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// handleContext returns retrieved context for a query about a document.
// An empty context is a normal 200 response with source "none"; the
// conversational caller decides how to phrase "no access to content".
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	result, err := s.pipeline.GetContext(r.Context(), id, req.Query, req.TopK)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("context retrieval failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type summaryRequest struct {
	Refresh bool `json:"refresh"`
}

// handleSummary returns the document summary, generating and caching it
// on first request (or when refresh is set).
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req summaryRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if doc.Summary != "" && !req.Refresh {
		s.respondJSON(w, http.StatusOK, map[string]string{"id": doc.ID, "summary": doc.Summary})
		return
	}
	if s.summarizer == nil {
		s.respondError(w, http.StatusServiceUnavailable, "summarization is not configured")
		return
	}

	text, err := s.extractor.ExtractURL(r.Context(), doc.URL)
	if err != nil {
		s.logger.Error("summary extraction failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "could not extract document text")
		return
	}
	if strings.TrimSpace(text) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "document has no extractable text")
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), text)
	if err != nil {
		s.logger.Error("summarization failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.storage.SetSummary(r.Context(), id, summary); err != nil {
		s.logger.Error("caching summary failed", zap.String("id", id), zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "summary": summary})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docCount,
		"chunks":    chunkCount,
		"config": map[string]interface{}{
			"embedding_model":      s.config.Embedding.Model,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"chunk_size":           s.config.RAG.ChunkSize,
			"chunk_overlap":        s.config.RAG.ChunkOverlap,
			"top_k":                s.config.RAG.TopK,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
