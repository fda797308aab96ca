package authclient

import (
	"bytes"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// newRetryClient はRetryTransportとCookieジャーを共有するクライアントを組み立てる。
func newRetryClient(t *testing.T, serverURL string) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}
	return &http.Client{
		Jar: jar,
		Transport: &RetryTransport{
			Jar:        jar,
			RefreshURL: serverURL + refreshPath,
		},
	}
}

func TestRetryTransport_RefreshesAndRetriesOnce(t *testing.T) {
	var refreshCalls atomic.Int32
	var dataCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "access-token", Value: "fresh", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		dataCalls.Add(1)
		cookie, err := r.Cookie("access-token")
		if err != nil || cookie.Value != "fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newRetryClient(t, server.URL)

	resp, err := client.Get(server.URL + "/api/data")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200（リフレッシュ後の再送で成功）", resp.StatusCode)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if got := dataCalls.Load(); got != 2 {
		t.Errorf("data calls = %d, want 2（初回401＋再送）", got)
	}
}

func TestRetryTransport_SecondUnauthorizedIsSurfaced(t *testing.T) {
	var dataCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		dataCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newRetryClient(t, server.URL)

	resp, err := client.Get(server.URL + "/api/data")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	// 再送は一度だけ。無限リトライにならないこと
	if got := dataCalls.Load(); got != 2 {
		t.Errorf("data calls = %d, want 2", got)
	}
}

func TestRetryTransport_RefreshFailure_ReturnsOriginal401(t *testing.T) {
	var dataCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		dataCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newRetryClient(t, server.URL)

	resp, err := client.Get(server.URL + "/api/data")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if got := dataCalls.Load(); got != 1 {
		t.Errorf("data calls = %d, want 1（リフレッシュ失敗時は再送しない）", got)
	}
}

func TestRetryTransport_RefreshCallItself_NotRetried(t *testing.T) {
	var refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newRetryClient(t, server.URL)

	resp, err := client.Post(server.URL+refreshPath, "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1（リフレッシュの401は再帰しない）", got)
	}
}

func TestRetryTransport_ReplaysRequestBody(t *testing.T) {
	var gotBodies [][]byte

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "access-token", Value: "fresh", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/articles", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBodies = append(gotBodies, body)
		if cookie, err := r.Cookie("access-token"); err != nil || cookie.Value != "fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newRetryClient(t, server.URL)

	payload := []byte(`{"article":{"title":"Post"}}`)
	resp, err := client.Post(server.URL+"/api/articles", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if len(gotBodies) != 2 {
		t.Fatalf("requests = %d, want 2", len(gotBodies))
	}
	if !bytes.Equal(gotBodies[0], payload) || !bytes.Equal(gotBodies[1], payload) {
		t.Error("再送リクエストのボディが元と一致しない")
	}
}
