package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/devpress/internal/token"
)

// TestLoggingMiddleware_LogsRequestFields はリクエストログに必要なフィールドが含まれることを検証する。
func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	handler := NewLoggingMiddleware(logger)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}

	// 必須フィールドの検証
	if entry["method"] != "GET" {
		t.Errorf("method = %q, want %q", entry["method"], "GET")
	}
	if entry["path"] != "/api/articles" {
		t.Errorf("path = %q, want %q", entry["path"], "/api/articles")
	}
	if status, ok := entry["status"].(float64); !ok || status != 200 {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected 'duration_ms' field in log entry")
	}
}

// TestLoggingMiddleware_IncludesUserIDAndRequestID はコンテキストの値がログに含まれることを検証する。
func TestLoggingMiddleware_IncludesUserIDAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	handler := NewLoggingMiddleware(logger)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	ctx := ContextWithClaims(req.Context(), &token.AccessClaims{UserID: "user-123"})
	ctx = contextWithRequestID(ctx, "req-abc")
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}

	if entry["user_id"] != "user-123" {
		t.Errorf("user_id = %q, want %q", entry["user_id"], "user-123")
	}
	if entry["request_id"] != "req-abc" {
		t.Errorf("request_id = %q, want %q", entry["request_id"], "req-abc")
	}
}

// TestLoggingMiddleware_LogLevelByStatus はステータスコードに応じたログレベルを検証する。
func TestLoggingMiddleware_LogLevelByStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"2xxはINFO", http.StatusOK, "INFO"},
		{"4xxはWARN", http.StatusNotFound, "WARN"},
		{"5xxはERROR", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newTestLogger(&buf)

			handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
			}

			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %q, want %q", entry["level"], tt.wantLevel)
			}
		})
	}
}

// TestRequestIDMiddleware_GeneratesAndPropagates はリクエストIDの生成と伝搬を検証する。
func TestRequestIDMiddleware_GeneratesAndPropagates(t *testing.T) {
	var gotFromContext string
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFromContext = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	headerID := w.Header().Get("X-Request-Id")
	if headerID == "" {
		t.Fatal("X-Request-Id ヘッダーが設定されていない")
	}
	if gotFromContext != headerID {
		t.Errorf("context request_id = %q, header = %q, 一致が必要", gotFromContext, headerID)
	}
}

// TestRequestIDMiddleware_PreservesClientID はクライアント指定のIDを引き継ぐことを検証する。
func TestRequestIDMiddleware_PreservesClientID(t *testing.T) {
	handler := NewRequestIDMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	req.Header.Set("X-Request-Id", "client-supplied-id")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "client-supplied-id" {
		t.Errorf("X-Request-Id = %q, want client-supplied-id", got)
	}
}
