package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/devpress/internal/middleware"
	"github.com/hitoshi/devpress/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	ListComments(ctx context.Context, articleID string) ([]model.Comment, error)
}

// TagServiceInterface はタグハンドラーが必要とするサービスインターフェース。
type TagServiceInterface interface {
	ListTags(ctx context.Context, page, perPage int) ([]model.Tag, error)
}

// CommentHandler はコメント・タグ取得のHTTPハンドラー。
// どちらもdev.to APIへの読み取り専用プロキシで、スレッド構造は保持される。
type CommentHandler struct {
	comments CommentServiceInterface
	tags     TagServiceInterface
	logger   *slog.Logger
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(comments CommentServiceInterface, tags TagServiceInterface, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		tags:     tags,
		logger:   logger,
	}
}

// ListComments は記事のコメント一覧を返す。
// GET /api/comments?a_id={articleID}
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	articleID := r.URL.Query().Get("a_id")
	if articleID == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("O parâmetro a_id é obrigatório"))
		return
	}

	comments, err := h.comments.ListComments(r.Context(), articleID)
	if err != nil {
		h.writeServiceError(w, err, "failed to list comments")
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

// ListTags はタグ一覧を返す。
// GET /api/tags?page=&per_page=
func (h *CommentHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	tags, err := h.tags.ListTags(r.Context(), page, perPage)
	if err != nil {
		h.writeServiceError(w, err, "failed to list tags")
		return
	}

	writeJSON(w, http.StatusOK, tags)
}

func (h *CommentHandler) writeServiceError(w http.ResponseWriter, err error, logMessage string) {
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
