package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/devpress/internal/token"
)

const (
	// AccessTokenCookie はアクセストークンを保持するCookieの名前。
	AccessTokenCookie = "access-token"
	// RefreshTokenCookie はリフレッシュトークンを保持するCookieの名前。
	RefreshTokenCookie = "refresh-token"
)

// NewAuthnMiddleware はアクセストークンCookieを検証するAPI向け認証ミドルウェアを返す。
// 検証に成功したクレームをリクエストコンテキストに注入する。
// Cookieの欠如・署名不正・期限切れはすべて401 JSONで応答する。
func NewAuthnMiddleware(tokens *token.Service, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AccessTokenCookie)
			if err != nil || cookie.Value == "" {
				WriteUnauthorized(w)
				return
			}

			claims := tokens.VerifyAccessToken(cookie.Value)
			if claims == nil {
				logger.Warn("access token verification failed",
					slog.String("path", r.URL.Path),
				)
				WriteUnauthorized(w)
				return
			}

			ctx := ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
