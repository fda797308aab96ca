package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/devpress/internal/middleware"
	"github.com/hitoshi/devpress/internal/token"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	TokenService      *token.Service
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	Cookies     *CookieManager
	AuthMetrics AuthMetricsRecorder

	// 記事・コメント・タグ（dev.toプロキシ）
	ArticleService ArticleServiceInterface
	CommentService CommentServiceInterface
	TagService     TagServiceInterface

	// ページ配信。ルートガード配下に置かれる。nilの場合は既定のハンドラーを使う。
	Pages http.Handler

	// メトリクスエンドポイント。nilの場合は/metricsを公開しない。
	Metrics http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → SecurityHeaders → CORS
//
// レート制限は/api配下にのみ適用する。ログインと記事投稿には
// ブルートフォース対策の専用レート制限を重ねる。
// /api以外のページルートにはルートガード（リダイレクトベースの認可）を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.Cookies, deps.AuthMetrics, deps.Logger)
	articleHandler := NewArticleHandler(deps.ArticleService, deps.Logger)
	commentHandler := NewCommentHandler(deps.CommentService, deps.TagService, deps.Logger)

	authn := middleware.NewAuthnMiddleware(deps.TokenService, deps.Logger)

	// ヘルスチェック（レート制限の外）
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	// --- APIルート ---
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/auth", func(r chi.Router) {
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/refresh", authHandler.Refresh)
		})

		r.Get("/session", authHandler.Session)

		r.Route("/articles", func(r chi.Router) {
			// 公開（読み取り）
			r.Get("/", articleHandler.ListArticles)
			r.Get("/{id:[0-9]+}", articleHandler.GetArticle)
			r.Get("/{username}/{slug}", articleHandler.GetArticleByPath)

			// 認証必須（書き込みと下書き）
			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.With(deps.RateLimiter.LoginMiddleware()).Post("/", articleHandler.CreateArticle)
				r.Put("/{id:[0-9]+}", articleHandler.UpdateArticle)
				r.Get("/unpublished", articleHandler.ListUnpublished)
			})
		})

		r.Get("/comments", commentHandler.ListComments)
		r.Get("/tags", commentHandler.ListTags)
	})

	// --- ページルート ---
	// ルートガードで未認証・未認可アクセスをリダイレクトする
	pages := deps.Pages
	if pages == nil {
		pages = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewGuardMiddleware(deps.TokenService, deps.Logger))
		r.Handle("/*", pages)
	})

	return r
}
