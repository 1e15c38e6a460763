package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status"`
}

// UploadResult reports the outcome of one uploaded file
type UploadResult struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"document_id,omitempty"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// UploadResponse is the response for a batch document upload
type UploadResponse struct {
	Results []UploadResult `json:"results"`
}

// EnqueueRequest schedules a file on shared storage for background ingestion
type EnqueueRequest struct {
	Path   string `json:"path"`
	Source string `json:"source,omitempty"`
}

// EnqueueResponse carries the ID of the scheduled task
type EnqueueResponse struct {
	TaskID string `json:"task_id"`
}

// QueryRequest is a question against the indexed document set.
// Omitted tuning fields fall back to server defaults.
type QueryRequest struct {
	Query          string   `json:"query"`
	TopK           *int     `json:"top_k,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
	IncludeSources *bool    `json:"include_sources,omitempty"`
}

// ChatRequest is one tool-enabled conversation request
type ChatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}

	status := s.ragService.HealthCheck(ctx)
	if !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

// handleToken exchanges a configured API key for a signed access token
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.IssueToken(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "api_key is required")
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid api key")
		default:
			writeError(w, http.StatusInternalServerError, "token issuance failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Document endpoints

// handleUploadDocuments accepts a multipart upload of one or more files
// under the "files" field and ingests them synchronously. A failing file
// is reported in its result and does not abort the rest of the batch.
func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	source := r.FormValue("source")

	uploads := make([]driving.FileUpload, 0, len(files))
	for _, fh := range files {
		content, err := readMultipartFile(fh)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read uploaded file "+fh.Filename)
			return
		}
		uploads = append(uploads, driving.FileUpload{
			Filename: filepath.Base(fh.Filename),
			Content:  content,
			Source:   source,
		})
	}

	results := s.ingestService.IngestBatch(r.Context(), uploads)

	resp := UploadResponse{Results: make([]UploadResult, 0, len(results))}
	for i, res := range results {
		ur := UploadResult{Filename: uploads[i].Filename}
		if res.Err != nil {
			ur.Status = "failed"
			ur.Error = res.Err.Error()
			if s.metrics != nil {
				s.metrics.IngestFailuresTotal.Inc()
			}
		} else {
			ur.Status = "completed"
			ur.ChunkCount = res.ChunkCount
			if res.Document != nil {
				ur.DocumentID = res.Document.ID
			}
			if s.metrics != nil {
				s.metrics.DocumentsIngestedTotal.Inc()
				s.metrics.ChunksIndexedTotal.Add(float64(res.ChunkCount))
			}
		}
		resp.Results = append(resp.Results, ur)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleEnqueueDocument schedules a file already on shared storage for
// background ingestion by the worker.
func (s *Server) handleEnqueueDocument(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	taskID, err := s.ingestService.EnqueueFile(r.Context(), req.Path, req.Source)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue file")
		return
	}

	writeJSON(w, http.StatusAccepted, EnqueueResponse{TaskID: taskID})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.ingestService.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	found, err := s.ingestService.DeleteDocuments(r.Context(), []string{id})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleDeleteByFilename deletes every document matching the filename
// query parameter.
func (s *Server) handleDeleteByFilename(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename query parameter is required")
		return
	}

	found, err := s.ingestService.DeleteDocumentByFilename(r.Context(), filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Query and chat endpoints

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	query := domain.RAGQuery{
		Query:          req.Query,
		TopK:           s.retrieval.TopK,
		ScoreThreshold: s.retrieval.ScoreThreshold,
		IncludeSources: s.retrieval.IncludeSources,
	}
	if req.TopK != nil {
		query.TopK = *req.TopK
	}
	if req.ScoreThreshold != nil {
		query.ScoreThreshold = *req.ScoreThreshold
	}
	if req.IncludeSources != nil {
		query.IncludeSources = *req.IncludeSources
	}

	if err := query.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	resp := s.ragService.Answer(r.Context(), query)

	if s.metrics != nil {
		s.metrics.SearchesTotal.Inc()
		s.metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
		if resp.ConfidenceScore == 0.0 {
			s.metrics.DegradedResponsesTotal.Inc()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	result, err := s.toolService.Chat(r.Context(), req.Messages)
	if err != nil {
		if errors.Is(err, domain.ErrServiceUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "chat service unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Tool endpoints

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools := s.toolService.ListTools()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": tools,
		"count": len(tools),
	})
}

// Helper functions

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
