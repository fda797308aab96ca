package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/devpress/internal/model"
	"github.com/hitoshi/devpress/internal/token"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestTokenService() *token.Service {
	return token.NewService(token.Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
	})
}

func adminUser() *model.User {
	return &model.User{ID: "1", Name: "John Doe", Email: "john@example.com", Role: model.RoleAdmin}
}

func regularUser() *model.User {
	return &model.User{ID: "2", Name: "Jane Smith", Email: "jane@example.com", Role: model.RoleUser}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestClassifyRoute(t *testing.T) {
	tests := []struct {
		path string
		want routeClass
	}{
		{"/", routePublic},
		{"/posts", routePublic},
		{"/posts/johndoe/my-article", routePublic},
		{"/tags", routePublic},
		{"/login", routePublic},
		{"/admin", routeAdmin},
		{"/admin/posts", routeAdmin},
		{"/administrator", routePublic}, // プレフィックス一致はセグメント境界まで
		{"/drafts", routeProtected},
		{"/drafts/42", routeProtected},
		{"/account", routeProtected},
	}

	for _, tt := range tests {
		if got := classifyRoute(tt.path); got != tt.want {
			t.Errorf("classifyRoute(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestGuard_AnonymousOnProtected_RedirectsToLogin(t *testing.T) {
	var buf bytes.Buffer
	guard := NewGuardMiddleware(newTestTokenService(), newTestLogger(&buf))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	guard(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?redirect=%2Fadmin" {
		t.Errorf("Location = %q, want /login?redirect=%%2Fadmin", loc)
	}
}

func TestGuard_ExpiredToken_RedirectsWithExpiredFlag(t *testing.T) {
	var buf bytes.Buffer
	tokens := newTestTokenService()
	guard := NewGuardMiddleware(tokens, newTestLogger(&buf))

	// 過去時刻の時計で発行したトークンは検証時に期限切れになる
	past := tokens.WithClock(func() time.Time {
		return time.Now().Add(-1 * time.Hour)
	})
	expired, err := past.IssueAccessToken(regularUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/drafts", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: expired})
	rec := httptest.NewRecorder()
	guard(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?expired=1&redirect=%2Fdrafts" {
		t.Errorf("Location = %q, expired=1 が必要", loc)
	}
}

func TestGuard_NonAdminOnAdminRoute_RedirectsToHome(t *testing.T) {
	var buf bytes.Buffer
	tokens := newTestTokenService()
	guard := NewGuardMiddleware(tokens, newTestLogger(&buf))

	accessToken, err := tokens.IssueAccessToken(regularUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: accessToken})
	rec := httptest.NewRecorder()
	guard(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	// 認証済みの非管理者はログイン画面ではなくホームへ
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestGuard_AdminOnAdminRoute_Passes(t *testing.T) {
	var buf bytes.Buffer
	tokens := newTestTokenService()
	guard := NewGuardMiddleware(tokens, newTestLogger(&buf))

	accessToken, err := tokens.IssueAccessToken(adminUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: accessToken})
	rec := httptest.NewRecorder()
	guard(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUserID != "1" {
		t.Errorf("context user_id = %q, want 1", gotUserID)
	}
}

func TestGuard_RegularUserOnProtected_Passes(t *testing.T) {
	var buf bytes.Buffer
	tokens := newTestTokenService()
	guard := NewGuardMiddleware(tokens, newTestLogger(&buf))

	accessToken, err := tokens.IssueAccessToken(regularUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/account", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: accessToken})
	rec := httptest.NewRecorder()
	guard(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestGuard_PublicRoute_BypassesChecks(t *testing.T) {
	var buf bytes.Buffer
	guard := NewGuardMiddleware(newTestTokenService(), newTestLogger(&buf))

	// 無効なCookieを付けても公開ルートは素通しされる
	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "garbage"})
	rec := httptest.NewRecorder()
	guard(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
