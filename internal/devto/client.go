// Package devto はdev.to公開APIのクライアントを提供する。
// 記事の一覧・詳細・コメントの取得と、APIキーによる記事の投稿・更新を含む。
package devto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/devpress/internal/model"
	"github.com/hitoshi/devpress/internal/security"
)

const (
	// defaultBaseURL はdev.to公開APIのエンドポイント。
	defaultBaseURL = "https://dev.to/api"
	// defaultPerPage は記事一覧の1ページあたりの既定件数。
	defaultPerPage = 20
	// maxResponseSize は上流レスポンスの最大読み取りサイズ（5MB）。
	maxResponseSize = 5 * 1024 * 1024
)

// MetricsRecorder は上流APIリクエストのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration)
}

// Client はdev.to APIのクライアント。
// 書き込み系エンドポイント（投稿・更新・下書き一覧）にはapi-keyヘッダーを付ける。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	sanitizer  security.ArticleSanitizerService
	metrics    MetricsRecorder
	baseURL    string // テスト用にエンドポイントを差し替え可能
	apiKey     string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合はdev.toの公開APIを使う。metricsはnil可。
func NewClient(httpClient *http.Client, logger *slog.Logger, sanitizer security.ArticleSanitizerService, metrics MetricsRecorder, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		sanitizer:  sanitizer,
		metrics:    metrics,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// ListArticles は記事一覧をフィルタ付きで取得する。
// page/per_pageが未指定の場合は1ページ目20件を取得する。
func (c *Client) ListArticles(ctx context.Context, q model.ArticlesQuery) ([]model.Article, error) {
	params := url.Values{}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	if q.Tag != "" {
		params.Set("tag", q.Tag)
	}
	if q.Tags != "" {
		params.Set("tags", q.Tags)
	}
	if q.TagsExclude != "" {
		params.Set("tags_exclude", q.TagsExclude)
	}
	if q.Username != "" {
		params.Set("username", q.Username)
	}
	if q.State != "" {
		params.Set("state", q.State)
	}
	if q.Top > 0 {
		params.Set("top", strconv.Itoa(q.Top))
	}
	if q.CollectionID > 0 {
		params.Set("collection_id", strconv.FormatInt(q.CollectionID, 10))
	}

	var articles []model.Article
	if err := c.doJSON(ctx, http.MethodGet, "/articles", params, nil, false, &articles); err != nil {
		return nil, err
	}

	for i := range articles {
		c.normalize(&articles[i])
	}
	return articles, nil
}

// GetArticle は記事詳細をIDで取得する。見つからない場合はnilを返す。
func (c *Client) GetArticle(ctx context.Context, id int64) (*model.Article, error) {
	return c.getArticle(ctx, fmt.Sprintf("/articles/%d", id))
}

// GetArticleByPath は記事詳細をusername/slugで取得する。見つからない場合はnilを返す。
func (c *Client) GetArticleByPath(ctx context.Context, username, slug string) (*model.Article, error) {
	return c.getArticle(ctx, fmt.Sprintf("/articles/%s/%s", url.PathEscape(username), url.PathEscape(slug)))
}

func (c *Client) getArticle(ctx context.Context, path string) (*model.Article, error) {
	var article model.Article
	err := c.doJSON(ctx, http.MethodGet, path, nil, nil, false, &article)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	c.normalize(&article)
	return &article, nil
}

// ListComments は記事のコメント一覧を取得する。スレッド構造は保持される。
func (c *Client) ListComments(ctx context.Context, articleID string) ([]model.Comment, error) {
	params := url.Values{}
	params.Set("a_id", articleID)

	var comments []model.Comment
	if err := c.doJSON(ctx, http.MethodGet, "/comments", params, nil, false, &comments); err != nil {
		return nil, err
	}

	sanitizeComments(comments, c.sanitizer)
	return comments, nil
}

// ListTags はタグ一覧を取得する。
func (c *Client) ListTags(ctx context.Context, page, perPage int) ([]model.Tag, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		params.Set("per_page", strconv.Itoa(perPage))
	}

	var tags []model.Tag
	if err := c.doJSON(ctx, http.MethodGet, "/tags", params, nil, false, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateArticle は記事を投稿する。APIキーが必要。
func (c *Client) CreateArticle(ctx context.Context, payload model.ArticlePayload) (*model.Article, error) {
	var article model.Article
	if err := c.doJSON(ctx, http.MethodPost, "/articles", nil, &payload, true, &article); err != nil {
		return nil, err
	}
	c.normalize(&article)
	return &article, nil
}

// UpdateArticle は既存記事を更新する。APIキーが必要。
func (c *Client) UpdateArticle(ctx context.Context, id int64, payload model.ArticlePayload) (*model.Article, error) {
	var article model.Article
	path := fmt.Sprintf("/articles/%d", id)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, &payload, true, &article); err != nil {
		return nil, err
	}
	c.normalize(&article)
	return &article, nil
}

// ListUnpublished はAPIキーの持ち主の未公開記事（下書き）一覧を取得する。
func (c *Client) ListUnpublished(ctx context.Context) ([]model.Article, error) {
	var articles []model.Article
	if err := c.doJSON(ctx, http.MethodGet, "/articles/me/unpublished", nil, nil, true, &articles); err != nil {
		return nil, err
	}

	for i := range articles {
		c.normalize(&articles[i])
	}
	return articles, nil
}

// HasAPIKey は書き込み系エンドポイントが使えるか（APIキー設定済みか）を返す。
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// doJSON はdev.to APIへのHTTPリクエストを実行し、レスポンスJSONをoutへデコードする。
// 2xx以外のステータスはmodel.APIErrorとして返す（上流ステータスを保持）。
func (c *Client) doJSON(ctx context.Context, method, path string, params url.Values, body any, authed bool, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "devpress/1.0")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if c.apiKey == "" {
			return model.NewInternalError("Missing API key")
		}
		req.Header.Set("api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.Error("devto api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("devto api request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(path, resp.StatusCode, duration)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("devto api returned error status",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return model.NewUpstreamError(resp.StatusCode, upstreamErrorMessage(data, resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse devto api response: %w", err)
		}
	}
	return nil
}

// normalize は記事のフィールド欠損を補完し、HTMLをサニタイズする。
func (c *Client) normalize(a *model.Article) {
	NormalizeArticle(a)
	if c.sanitizer != nil && a.BodyHTML != "" {
		a.BodyHTML = c.sanitizer.SanitizeHTML(a.BodyHTML)
	}
}

// sanitizeComments はコメントツリー全体のHTMLを再帰的にサニタイズする。
func sanitizeComments(comments []model.Comment, sanitizer security.ArticleSanitizerService) {
	if sanitizer == nil {
		return
	}
	for i := range comments {
		comments[i].BodyHTML = sanitizer.SanitizeHTML(comments[i].BodyHTML)
		sanitizeComments(comments[i].Children, sanitizer)
	}
}

// upstreamErrorMessage は上流のエラーレスポンスからメッセージを取り出す。
// dev.toは {"error": "...", "status": N} 形式で返す。取り出せない場合は
// ステータスコードから汎用メッセージを組み立てる。
func upstreamErrorMessage(body []byte, statusCode int) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return fmt.Sprintf("dev.to API returned status %d", statusCode)
}
