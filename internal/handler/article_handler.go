package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/devpress/internal/middleware"
	"github.com/hitoshi/devpress/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
// 実体はdev.to APIへのプロキシクライアント。
type ArticleServiceInterface interface {
	ListArticles(ctx context.Context, q model.ArticlesQuery) ([]model.Article, error)
	GetArticle(ctx context.Context, id int64) (*model.Article, error)
	GetArticleByPath(ctx context.Context, username, slug string) (*model.Article, error)
	CreateArticle(ctx context.Context, payload model.ArticlePayload) (*model.Article, error)
	UpdateArticle(ctx context.Context, id int64, payload model.ArticlePayload) (*model.Article, error)
	ListUnpublished(ctx context.Context) ([]model.Article, error)
}

// ArticleHandler は記事関連のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
	logger  *slog.Logger
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{
		service: service,
		logger:  logger,
	}
}

// ListArticles は記事一覧を返す。
// GET /api/articles?page=&per_page=&tag=&tags=&tags_exclude=&username=&state=&top=&collection_id=
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := parseArticlesQuery(r)

	articles, err := h.service.ListArticles(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, err, "failed to list articles")
		return
	}

	writeJSON(w, http.StatusOK, articles)
}

// GetArticle は記事詳細をIDで返す。
// GET /api/articles/{id}
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("ID do artigo inválido"))
		return
	}

	article, err := h.service.GetArticle(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get article")
		return
	}
	if article == nil {
		middleware.WriteErrorResponse(w, model.NewNotFoundError("Artigo não encontrado"))
		return
	}

	writeJSON(w, http.StatusOK, article)
}

// GetArticleByPath は記事詳細をusername/slugで返す。
// GET /api/articles/{username}/{slug}
func (h *ArticleHandler) GetArticleByPath(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	slug := chi.URLParam(r, "slug")

	article, err := h.service.GetArticleByPath(r.Context(), username, slug)
	if err != nil {
		h.writeServiceError(w, err, "failed to get article by path")
		return
	}
	if article == nil {
		middleware.WriteErrorResponse(w, model.NewNotFoundError("Artigo não encontrado"))
		return
	}

	writeJSON(w, http.StatusOK, article)
}

// CreateArticle は記事を投稿する。認証必須。
// POST /api/articles
func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var payload model.ArticlePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("Corpo da requisição inválido"))
		return
	}

	if err := validateArticleDraft(payload.Article); err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}

	article, err := h.service.CreateArticle(r.Context(), payload)
	if err != nil {
		h.writeServiceError(w, err, "failed to create article")
		return
	}

	if userID, ctxErr := middleware.UserIDFromContext(r.Context()); ctxErr == nil {
		h.logger.Info("article published",
			slog.String("user_id", userID),
			slog.Int64("article_id", article.ID),
		)
	}
	writeJSON(w, http.StatusCreated, article)
}

// UpdateArticle は既存記事を更新する。認証必須。
// PUT /api/articles/{id}
func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("ID do artigo inválido"))
		return
	}

	var payload model.ArticlePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("Corpo da requisição inválido"))
		return
	}

	article, err := h.service.UpdateArticle(r.Context(), id, payload)
	if err != nil {
		h.writeServiceError(w, err, "failed to update article")
		return
	}

	writeJSON(w, http.StatusOK, article)
}

// ListUnpublished はAPIキーの持ち主の下書き一覧を返す。認証必須。
// GET /api/articles/unpublished
func (h *ArticleHandler) ListUnpublished(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.ListUnpublished(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to list unpublished articles")
		return
	}

	writeJSON(w, http.StatusOK, articles)
}

// writeServiceError はサービス層のエラーをHTTPレスポンスへ変換する。
// 上流APIのエラーはステータスをそのまま伝搬し、それ以外は500に丸める。
func (h *ArticleHandler) writeServiceError(w http.ResponseWriter, err error, logMessage string) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= 500 {
			h.logger.Error(logMessage, slog.String("error", err.Error()))
		}
		middleware.WriteErrorResponse(w, apiErr)
		return
	}

	h.logger.Error(logMessage, slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// parseArticlesQuery はクエリ文字列から記事一覧の検索条件を組み立てる。
// 数値パラメータの不正値は黙ってゼロ値（＝未指定）として扱う。
func parseArticlesQuery(r *http.Request) model.ArticlesQuery {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	perPage, _ := strconv.Atoi(query.Get("per_page"))
	top, _ := strconv.Atoi(query.Get("top"))
	collectionID, _ := strconv.ParseInt(query.Get("collection_id"), 10, 64)

	return model.ArticlesQuery{
		Page:         page,
		PerPage:      perPage,
		Tag:          query.Get("tag"),
		Tags:         query.Get("tags"),
		TagsExclude:  query.Get("tags_exclude"),
		Username:     query.Get("username"),
		State:        query.Get("state"),
		Top:          top,
		CollectionID: collectionID,
	}
}

// validateArticleDraft は投稿ボディの必須フィールドを検証する。
func validateArticleDraft(draft model.ArticleDraft) *model.APIError {
	if draft.Title == "" {
		return model.NewValidationError("O título é obrigatório")
	}
	if draft.BodyMarkdown == "" {
		return model.NewValidationError("O conteúdo é obrigatório")
	}
	return nil
}
