package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/devpress/internal/model"
)

// defaultKeepAliveInterval はキープアライブの既定間隔。
// アクセストークンのTTL（15分）より短く設定し、アクティブなセッション中に
// Cookieが期限切れになるのを防ぐ。
const defaultKeepAliveInterval = 10 * time.Minute

// Store は認証状態を保持するクライアント側ストア。
// 状態遷移はすべてサーバーのレスポンスに従う。ログアウトはネットワーク
// エラーでもローカル状態を破棄し（フェイルオープン）、リフレッシュ失敗は
// 状態を匿名へ戻す（フェイルクローズド）。
type Store struct {
	mu              sync.Mutex
	user            *model.User
	isAuthenticated bool
	isLoading       bool

	httpClient        *http.Client
	baseURL           string
	persister         Persister
	logger            *slog.Logger
	keepAliveInterval time.Duration
}

// Option はStoreの生成オプション。
type Option func(*Store)

// WithPersister は状態の永続化先を設定する。
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithKeepAliveInterval はキープアライブの間隔を設定する。
func WithKeepAliveInterval(d time.Duration) Option {
	return func(s *Store) { s.keepAliveInterval = d }
}

// NewStore はStoreを生成する。httpClientにはRetryTransportとCookieジャーを
// 設定したクライアントを渡すこと。永続化された前回の状態があれば復元する。
func NewStore(httpClient *http.Client, baseURL string, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		httpClient:        httpClient,
		baseURL:           baseURL,
		persister:         NewMemoryPersister(),
		logger:            logger,
		keepAliveInterval: defaultKeepAliveInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	// 前回の状態を復元する。Cookieが失効していれば次のAPI呼び出しで
	// どのみち匿名へ戻るため、ここでは検証しない
	if state, ok, err := s.persister.Load(); err == nil && ok {
		s.user = state.User
		s.isAuthenticated = state.IsAuthenticated
	}

	return s
}

// User は現在のユーザーを返す。未認証の場合はnil。
func (s *Store) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// IsAuthenticated は認証済みかどうかを返す。
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isAuthenticated
}

// IsLoading は認証操作が進行中かどうかを返す。
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading
}

// userResponse は認証APIのレスポンスボディ。
type userResponse struct {
	User *model.User `json:"user"`
}

// Login はログインを実行する。成功時は状態を認証済みへ更新する。
// 失敗時はエラーを返し、状態は匿名のまま変更しない。リトライは行わない。
func (s *Store) Login(ctx context.Context, email, password string) (*model.User, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	resp, err := s.post(ctx, "/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var parsed userResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}

	s.setAuthenticated(parsed.User)
	return parsed.User, nil
}

// Logout はログアウトを実行する。ネットワークエラーでもローカル状態は
// 必ず匿名へ戻す。クライアントから見たログアウトは常に成功する。
func (s *Store) Logout(ctx context.Context) {
	resp, err := s.post(ctx, "/api/auth/logout", nil)
	if err != nil {
		s.logger.Warn("logout request failed, clearing local state anyway",
			slog.String("error", err.Error()),
		)
	} else {
		drainAndClose(resp)
	}

	s.clearState()
}

// RefreshAuth はトークンの再発行を実行する。失敗した場合は状態を匿名へ戻し、
// 呼び出し元に再認証を促す。
func (s *Store) RefreshAuth(ctx context.Context) error {
	resp, err := s.post(ctx, "/api/auth/refresh", nil)
	if err != nil {
		s.clearState()
		return fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.clearState()
		return fmt.Errorf("refresh failed with status %d", resp.StatusCode)
	}

	var parsed userResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		s.clearState()
		return fmt.Errorf("failed to parse refresh response: %w", err)
	}

	s.setAuthenticated(parsed.User)
	return nil
}

// Session はサーバーの現在のセッションからユーザーを取得する。
// 起動時の状態復元（Cookieがまだ有効かの確認）に使う。
func (s *Store) Session(ctx context.Context) (*model.User, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/session", nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.clearState()
		return nil, fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.clearState()
		return nil, fmt.Errorf("session check failed with status %d", resp.StatusCode)
	}

	var parsed userResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		s.clearState()
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}

	s.setAuthenticated(parsed.User)
	return parsed.User, nil
}

// KeepAlive は一定間隔でRefreshAuthを呼び、アクティブなセッションの
// Cookieが期限切れになるのを防ぐ。ベストエフォートであり、失敗しても
// ループは継続する（権威はサーバー側の401リトライ経路）。
// ctxのキャンセルで停止する。
func (s *Store) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(s.keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !s.IsAuthenticated() {
				continue
			}
			if err := s.RefreshAuth(ctx); err != nil {
				s.logger.Warn("keep-alive refresh failed",
					slog.String("error", err.Error()),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Store) post(ctx context.Context, path string, body *bytes.Reader) (*http.Response, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.httpClient.Do(req)
}

// setAuthenticated は状態を認証済みに更新し、永続化する。
func (s *Store) setAuthenticated(user *model.User) {
	s.mu.Lock()
	s.user = user
	s.isAuthenticated = user != nil
	s.mu.Unlock()

	if err := s.persister.Save(State{User: user, IsAuthenticated: user != nil}); err != nil {
		s.logger.Warn("failed to persist auth state", slog.String("error", err.Error()))
	}
}

// clearState は状態を匿名へ戻し、永続化された状態も破棄する。
func (s *Store) clearState() {
	s.mu.Lock()
	s.user = nil
	s.isAuthenticated = false
	s.mu.Unlock()

	if err := s.persister.Clear(); err != nil {
		s.logger.Warn("failed to clear persisted auth state", slog.String("error", err.Error()))
	}
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.isLoading = loading
	s.mu.Unlock()
}
