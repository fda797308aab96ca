package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/devpress/internal/model"
	"github.com/hitoshi/devpress/internal/token"
)

// routeClass はページルートの保護区分。
type routeClass int

const (
	// routePublic は認証不要のルート。ログイン済みでも素通しする。
	routePublic routeClass = iota
	// routeProtected は認証必須のルート。
	routeProtected
	// routeAdmin は認証に加えてadminロールを要求するルート。
	routeAdmin
)

// protectedPrefixes は認証必須のページパス。
// ここに含まれないパス（/、/posts、/tags、/login等）はすべて公開ルート。
var protectedPrefixes = []string{"/admin", "/drafts", "/account"}

// adminPrefixes は管理者のみ許可するページパス。
var adminPrefixes = []string{"/admin"}

// classifyRoute はパスの保護区分を判定する。
// 管理者ルートは保護ルートの部分集合なので先に判定する。
func classifyRoute(path string) routeClass {
	if matchesPrefix(path, adminPrefixes) {
		return routeAdmin
	}
	if matchesPrefix(path, protectedPrefixes) {
		return routeProtected
	}
	return routePublic
}

// matchesPrefix はパスがプレフィックスそのもの、またはその配下かを判定する。
// "/admin" は "/admin" と "/admin/users" に一致し、"/administrator" には一致しない。
func matchesPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// NewGuardMiddleware はページ向けのルートガードミドルウェアを返す。
// 保護ルートへの未認証アクセスは /login へ307リダイレクトし、
// redirect クエリに元のパスを保持する。Cookieはあるが無効（期限切れ等）の
// 場合は expired=1 を付けてログイン画面側で区別できるようにする。
// 認証済みでも非管理者が管理者ルートへアクセスした場合は / へ返す
// （認証済みである以上、ログイン画面へは送らない）。
// 公開ルートはCookieの有無にかかわらず素通しする。
func NewGuardMiddleware(tokens *token.Service, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := classifyRoute(r.URL.Path)
			if class == routePublic {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(AccessTokenCookie)
			if err != nil || cookie.Value == "" {
				redirectToLogin(w, r, false)
				return
			}

			claims := tokens.VerifyAccessToken(cookie.Value)
			if claims == nil {
				// Cookieはあるが検証に失敗した。期限切れの可能性が高い
				redirectToLogin(w, r, true)
				return
			}

			if class == routeAdmin && claims.Role != model.RoleAdmin {
				logger.Warn("non-admin access to admin route",
					slog.String("user_id", claims.UserID),
					slog.String("path", r.URL.Path),
				)
				http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
				return
			}

			ctx := ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// redirectToLogin は元のパスをredirectクエリに保持してログイン画面へ送る。
func redirectToLogin(w http.ResponseWriter, r *http.Request, expired bool) {
	params := url.Values{}
	params.Set("redirect", r.URL.Path)
	if expired {
		params.Set("expired", "1")
	}
	http.Redirect(w, r, "/login?"+params.Encode(), http.StatusTemporaryRedirect)
}
