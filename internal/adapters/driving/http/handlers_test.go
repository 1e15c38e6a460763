package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driving"
)

// Mock services for testing

type mockAuthService struct {
	issueTokenFn    func(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.TokenClaims, error)
}

func (m *mockAuthService) IssueToken(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
	if m.issueTokenFn != nil {
		return m.issueTokenFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

type mockIngestService struct {
	ingestFileFn       func(ctx context.Context, upload driving.FileUpload) (*domain.IngestResult, error)
	ingestBatchFn      func(ctx context.Context, uploads []driving.FileUpload) []*domain.IngestResult
	enqueueFileFn      func(ctx context.Context, path, source string) (string, error)
	deleteFn           func(ctx context.Context, ids []string) (bool, error)
	deleteByFilenameFn func(ctx context.Context, filename string) (bool, error)
	listFn             func(ctx context.Context) ([]*domain.DocumentSummary, error)
	countFn            func(ctx context.Context) (int, error)
}

func (m *mockIngestService) IngestFile(ctx context.Context, upload driving.FileUpload) (*domain.IngestResult, error) {
	if m.ingestFileFn != nil {
		return m.ingestFileFn(ctx, upload)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIngestService) IngestBatch(ctx context.Context, uploads []driving.FileUpload) []*domain.IngestResult {
	if m.ingestBatchFn != nil {
		return m.ingestBatchFn(ctx, uploads)
	}
	return nil
}

func (m *mockIngestService) EnqueueFile(ctx context.Context, path, source string) (string, error) {
	if m.enqueueFileFn != nil {
		return m.enqueueFileFn(ctx, path, source)
	}
	return "", errors.New("not implemented")
}

func (m *mockIngestService) DeleteDocuments(ctx context.Context, ids []string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ids)
	}
	return false, errors.New("not implemented")
}

func (m *mockIngestService) DeleteDocumentByFilename(ctx context.Context, filename string) (bool, error) {
	if m.deleteByFilenameFn != nil {
		return m.deleteByFilenameFn(ctx, filename)
	}
	return false, errors.New("not implemented")
}

func (m *mockIngestService) ListDocuments(ctx context.Context) ([]*domain.DocumentSummary, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIngestService) DocumentCount(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, errors.New("not implemented")
}

type mockRAGService struct {
	answerFn func(ctx context.Context, query domain.RAGQuery) *domain.RAGResponse
	healthFn func(ctx context.Context) *driving.HealthStatus
}

func (m *mockRAGService) Answer(ctx context.Context, query domain.RAGQuery) *domain.RAGResponse {
	if m.answerFn != nil {
		return m.answerFn(ctx, query)
	}
	return &domain.RAGResponse{}
}

func (m *mockRAGService) HealthCheck(ctx context.Context) *driving.HealthStatus {
	if m.healthFn != nil {
		return m.healthFn(ctx)
	}
	return &driving.HealthStatus{Healthy: true}
}

type mockToolService struct {
	listToolsFn func() []domain.ToolDescriptor
	chatFn      func(ctx context.Context, messages []domain.ChatMessage) (*domain.ChatResult, error)
}

func (m *mockToolService) ListTools() []domain.ToolDescriptor {
	if m.listToolsFn != nil {
		return m.listToolsFn()
	}
	return nil
}

func (m *mockToolService) Chat(ctx context.Context, messages []domain.ChatMessage) (*domain.ChatResult, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, messages)
	}
	return nil, errors.New("not implemented")
}

// allowAll returns an auth mock that accepts the token "good-token"
func allowAll() *mockAuthService {
	return &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.TokenClaims, error) {
			if token != "good-token" {
				return nil, domain.ErrUnauthorized
			}
			return &domain.TokenClaims{Subject: "api-client"}, nil
		},
	}
}

type testServices struct {
	auth   *mockAuthService
	ingest *mockIngestService
	rag    *mockRAGService
	tools  *mockToolService
}

func newTestServer(t *testing.T, svc testServices) *Server {
	t.Helper()
	if svc.auth == nil {
		svc.auth = allowAll()
	}
	if svc.ingest == nil {
		svc.ingest = &mockIngestService{}
	}
	if svc.rag == nil {
		svc.rag = &mockRAGService{}
	}
	if svc.tools == nil {
		svc.tools = &mockToolService{}
	}
	return NewServer(DefaultConfig(), svc.auth, svc.ingest, svc.rag, svc.tools,
		nil, nil, nil, nil, zerolog.Nop())
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func authedRequest(method, target string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer good-token")
	return req
}

// Health endpoints

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, testServices{})

	rec := doRequest(s, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleReady(t *testing.T) {
	s := newTestServer(t, testServices{
		rag: &mockRAGService{
			healthFn: func(ctx context.Context) *driving.HealthStatus {
				return &driving.HealthStatus{Healthy: true, DocumentCount: 3}
			},
		},
	})

	rec := doRequest(s, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var status driving.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.DocumentCount != 3 {
		t.Errorf("expected document count 3, got %d", status.DocumentCount)
	}
}

func TestHandleReadyUnhealthy(t *testing.T) {
	s := newTestServer(t, testServices{
		rag: &mockRAGService{
			healthFn: func(ctx context.Context) *driving.HealthStatus {
				return &driving.HealthStatus{Healthy: false, Error: "vector store down"}
			},
		},
	})

	rec := doRequest(s, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

// Auth endpoints

func TestHandleToken(t *testing.T) {
	s := newTestServer(t, testServices{
		auth: &mockAuthService{
			issueTokenFn: func(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
				if req.APIKey != "secret-key" {
					return nil, domain.ErrUnauthorized
				}
				return &domain.TokenResponse{Token: "jwt-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
			},
		},
	})

	body := bytes.NewBufferString(`{"api_key":"secret-key"}`)
	rec := doRequest(s, httptest.NewRequest("POST", "/api/v1/auth/token", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.TokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token != "jwt-token" {
		t.Errorf("expected token jwt-token, got %q", resp.Token)
	}
}

func TestHandleTokenInvalidKey(t *testing.T) {
	s := newTestServer(t, testServices{
		auth: &mockAuthService{
			issueTokenFn: func(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
				return nil, domain.ErrUnauthorized
			},
		},
	})

	body := bytes.NewBufferString(`{"api_key":"wrong"}`)
	rec := doRequest(s, httptest.NewRequest("POST", "/api/v1/auth/token", body))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleTokenBadBody(t *testing.T) {
	s := newTestServer(t, testServices{})

	body := bytes.NewBufferString(`{not json`)
	rec := doRequest(s, httptest.NewRequest("POST", "/api/v1/auth/token", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// Query endpoint

func TestHandleQuery(t *testing.T) {
	var captured domain.RAGQuery
	s := newTestServer(t, testServices{
		rag: &mockRAGService{
			answerFn: func(ctx context.Context, query domain.RAGQuery) *domain.RAGResponse {
				captured = query
				return &domain.RAGResponse{Answer: "blue", ConfidenceScore: 0.9}
			},
		},
	})

	body := bytes.NewBufferString(`{"query":"what color is the sky?","top_k":3}`)
	rec := doRequest(s, authedRequest("POST", "/api/v1/query", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.TopK != 3 {
		t.Errorf("expected top_k 3, got %d", captured.TopK)
	}
	// Omitted fields use defaults
	if captured.ScoreThreshold != 0.3 {
		t.Errorf("expected default threshold 0.3, got %g", captured.ScoreThreshold)
	}
	if !captured.IncludeSources {
		t.Error("expected include_sources default true")
	}

	var resp domain.RAGResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Answer != "blue" {
		t.Errorf("expected answer blue, got %q", resp.Answer)
	}
}

func TestHandleQueryConfiguredDefaults(t *testing.T) {
	var captured domain.RAGQuery
	rag := &mockRAGService{
		answerFn: func(ctx context.Context, query domain.RAGQuery) *domain.RAGResponse {
			captured = query
			return &domain.RAGResponse{Answer: "ok"}
		},
	}

	cfg := DefaultConfig()
	cfg.Retrieval = RetrievalDefaults{TopK: 7, ScoreThreshold: 0.5, IncludeSources: false}
	s := NewServer(cfg, allowAll(), &mockIngestService{}, rag, &mockToolService{},
		nil, nil, nil, nil, zerolog.Nop())

	body := bytes.NewBufferString(`{"query":"what color is the sky?"}`)
	rec := doRequest(s, authedRequest("POST", "/api/v1/query", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.TopK != 7 {
		t.Errorf("expected configured top_k 7, got %d", captured.TopK)
	}
	if captured.ScoreThreshold != 0.5 {
		t.Errorf("expected configured threshold 0.5, got %g", captured.ScoreThreshold)
	}
	if captured.IncludeSources {
		t.Error("expected configured include_sources false")
	}

	// Request fields still win over the configured defaults.
	body = bytes.NewBufferString(`{"query":"q","top_k":2,"include_sources":true}`)
	rec = doRequest(s, authedRequest("POST", "/api/v1/query", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.TopK != 2 {
		t.Errorf("expected top_k 2, got %d", captured.TopK)
	}
	if !captured.IncludeSources {
		t.Error("expected include_sources true")
	}
}

func TestHandleQueryValidation(t *testing.T) {
	s := newTestServer(t, testServices{})

	tests := []struct {
		name string
		body string
	}{
		{"empty query", `{"query":""}`},
		{"negative top_k", `{"query":"q","top_k":-1}`},
		{"threshold out of range", `{"query":"q","score_threshold":1.5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, authedRequest("POST", "/api/v1/query", bytes.NewBufferString(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleQueryRequiresAuth(t *testing.T) {
	s := newTestServer(t, testServices{})

	body := bytes.NewBufferString(`{"query":"q"}`)
	rec := doRequest(s, httptest.NewRequest("POST", "/api/v1/query", body))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// Document endpoints

func multipartBody(t *testing.T, source string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if source != "" {
		if err := mw.WriteField("source", source); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return body, mw.FormDataContentType()
}

func TestHandleUploadDocuments(t *testing.T) {
	s := newTestServer(t, testServices{
		ingest: &mockIngestService{
			ingestBatchFn: func(ctx context.Context, uploads []driving.FileUpload) []*domain.IngestResult {
				results := make([]*domain.IngestResult, len(uploads))
				for i, up := range uploads {
					if up.Filename == "bad.txt" {
						results[i] = &domain.IngestResult{Err: domain.ErrEmptyContent}
						continue
					}
					results[i] = &domain.IngestResult{
						Document:   &domain.Document{ID: "doc-" + up.Filename},
						ChunkCount: 2,
					}
				}
				return results
			},
		},
	})

	body, contentType := multipartBody(t, "manuals", map[string]string{
		"good.txt": "some content",
		"bad.txt":  "",
	})
	req := authedRequest("POST", "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}

	byName := make(map[string]UploadResult)
	for _, r := range resp.Results {
		byName[r.Filename] = r
	}
	if byName["good.txt"].Status != "completed" || byName["good.txt"].ChunkCount != 2 {
		t.Errorf("unexpected result for good.txt: %+v", byName["good.txt"])
	}
	if byName["bad.txt"].Status != "failed" || byName["bad.txt"].Error == "" {
		t.Errorf("unexpected result for bad.txt: %+v", byName["bad.txt"])
	}
}

func TestHandleUploadDocumentsNoFiles(t *testing.T) {
	s := newTestServer(t, testServices{})

	body, contentType := multipartBody(t, "", nil)
	req := authedRequest("POST", "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleEnqueueDocument(t *testing.T) {
	s := newTestServer(t, testServices{
		ingest: &mockIngestService{
			enqueueFileFn: func(ctx context.Context, path, source string) (string, error) {
				if path != "/data/report.pdf" {
					t.Errorf("unexpected path %q", path)
				}
				return "task-123", nil
			},
		},
	})

	body := bytes.NewBufferString(`{"path":"/data/report.pdf","source":"reports"}`)
	rec := doRequest(s, authedRequest("POST", "/api/v1/documents/enqueue", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp EnqueueResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TaskID != "task-123" {
		t.Errorf("expected task-123, got %q", resp.TaskID)
	}
}

func TestHandleEnqueueDocumentMissingPath(t *testing.T) {
	s := newTestServer(t, testServices{})

	body := bytes.NewBufferString(`{"source":"reports"}`)
	rec := doRequest(s, authedRequest("POST", "/api/v1/documents/enqueue", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleListDocuments(t *testing.T) {
	s := newTestServer(t, testServices{
		ingest: &mockIngestService{
			listFn: func(ctx context.Context) ([]*domain.DocumentSummary, error) {
				return []*domain.DocumentSummary{
					{DocumentID: "doc-1", Filename: "a.txt", ChunkCount: 3},
					{DocumentID: "doc-2", Filename: "b.pdf", ChunkCount: 7},
				}, nil
			},
		},
	})

	rec := doRequest(s, authedRequest("GET", "/api/v1/documents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Documents []*domain.DocumentSummary `json:"documents"`
		Count     int                       `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Documents) != 2 {
		t.Errorf("expected 2 documents, got count=%d len=%d", resp.Count, len(resp.Documents))
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	s := newTestServer(t, testServices{
		ingest: &mockIngestService{
			deleteFn: func(ctx context.Context, ids []string) (bool, error) {
				return len(ids) == 1 && ids[0] == "doc-1", nil
			},
		},
	})

	rec := doRequest(s, authedRequest("DELETE", "/api/v1/documents/doc-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(s, authedRequest("DELETE", "/api/v1/documents/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleDeleteByFilename(t *testing.T) {
	s := newTestServer(t, testServices{
		ingest: &mockIngestService{
			deleteByFilenameFn: func(ctx context.Context, filename string) (bool, error) {
				return filename == "a.txt", nil
			},
		},
	})

	rec := doRequest(s, authedRequest("DELETE", "/api/v1/documents?filename=a.txt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(s, authedRequest("DELETE", "/api/v1/documents", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without filename, got %d", rec.Code)
	}
}

// Chat and tool endpoints

func TestHandleChat(t *testing.T) {
	s := newTestServer(t, testServices{
		tools: &mockToolService{
			chatFn: func(ctx context.Context, messages []domain.ChatMessage) (*domain.ChatResult, error) {
				if len(messages) != 1 || messages[0].Role != domain.RoleUser {
					t.Errorf("unexpected messages: %+v", messages)
				}
				return &domain.ChatResult{Content: "the rating is 4.5"}, nil
			},
		},
	})

	body := bytes.NewBufferString(`{"messages":[{"role":"user","content":"rate this restaurant"}]}`)
	rec := doRequest(s, authedRequest("POST", "/api/v1/chat", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.ChatResult
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Content != "the rating is 4.5" {
		t.Errorf("unexpected content %q", resp.Content)
	}
}

func TestHandleChatEmptyMessages(t *testing.T) {
	s := newTestServer(t, testServices{})

	body := bytes.NewBufferString(`{"messages":[]}`)
	rec := doRequest(s, authedRequest("POST", "/api/v1/chat", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleChatServiceUnavailable(t *testing.T) {
	s := newTestServer(t, testServices{
		tools: &mockToolService{
			chatFn: func(ctx context.Context, messages []domain.ChatMessage) (*domain.ChatResult, error) {
				return nil, domain.ErrServiceUnavailable
			},
		},
	})

	body := bytes.NewBufferString(`{"messages":[{"role":"user","content":"hi"}]}`)
	rec := doRequest(s, authedRequest("POST", "/api/v1/chat", body))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHandleListTools(t *testing.T) {
	s := newTestServer(t, testServices{
		tools: &mockToolService{
			listToolsFn: func() []domain.ToolDescriptor {
				return []domain.ToolDescriptor{
					{Name: "get_restaurant_rating", Description: "Look up a restaurant rating"},
				}
			},
		},
	})

	rec := doRequest(s, authedRequest("GET", "/api/v1/tools", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Tools []domain.ToolDescriptor `json:"tools"`
		Count int                     `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 || resp.Tools[0].Name != "get_restaurant_rating" {
		t.Errorf("unexpected tools response: %+v", resp)
	}
}
