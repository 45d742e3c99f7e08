package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hmaeda/specialist/internal/repository"
)

type fakeDocs struct {
	docs []*repository.Document
	kind string
}

func (f *fakeDocs) Create(ctx context.Context, doc *repository.Document) error { return nil }

func (f *fakeDocs) GetByHash(ctx context.Context, hash string) (*repository.Document, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeDocs) List(ctx context.Context, kind string, limit, offset int) ([]*repository.Document, int, error) {
	f.kind = kind
	return f.docs, len(f.docs), nil
}

func (f *fakeDocs) UpdateStatus(ctx context.Context, id uuid.UUID, status string, chunkCount int, errorMessage string) error {
	return nil
}

func newTestServer(docs repository.DocumentRepository) *HTTPServer {
	return NewHTTPServer(HTTPServerConfig{
		Port:      0,
		Documents: docs,
	})
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeDocs{})
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestChatValidation(t *testing.T) {
	srv := newTestServer(&fakeDocs{})

	tests := []struct {
		name string
		body string
	}{
		{"missing session", `{"message": "hi"}`},
		{"missing message", `{"session_id": "s1"}`},
		{"malformed json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(tt.body))
			srv.router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestIngestValidation(t *testing.T) {
	srv := newTestServer(&fakeDocs{})

	for _, path := range []string{"/v1/ingest/faq", "/v1/ingest/story"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"source": "x"}`))
		srv.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestListDocuments(t *testing.T) {
	docs := &fakeDocs{docs: []*repository.Document{{
		ID:         uuid.New(),
		Source:     "faq.txt",
		Kind:       repository.KindFAQ,
		ChunkCount: 7,
		Status:     repository.StatusReady,
		CreatedAt:  time.Now(),
	}}}
	srv := newTestServer(docs)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents?kind=faq", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if docs.kind != "faq" {
		t.Errorf("kind filter not forwarded, got %q", docs.kind)
	}

	var body struct {
		Documents []documentResponse `json:"documents"`
		Total     int                `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Total != 1 || len(body.Documents) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Documents[0].ChunkCount != 7 || body.Documents[0].Status != repository.StatusReady {
		t.Errorf("unexpected document: %+v", body.Documents[0])
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(&fakeDocs{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing CORS allow-origin header")
	}
}
