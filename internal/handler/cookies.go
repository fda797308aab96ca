// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/devpress/internal/middleware"
)

// CookieConfig は認証Cookieの属性設定。
type CookieConfig struct {
	Domain     string
	Secure     bool // 本番（httpsのベースURL）でのみtrue
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// CookieManager は認証Cookieの発行と破棄を行う。
// アクセストークンとリフレッシュトークンはどちらもHttpOnlyで、
// JavaScriptからは読み取れない。セッション状態はこの2つのCookieのみで、
// サーバー側にセッションストアは持たない。
type CookieManager struct {
	config CookieConfig
}

// NewCookieManager はCookieManagerを生成する。
func NewCookieManager(config CookieConfig) *CookieManager {
	return &CookieManager{config: config}
}

// SetAuthCookies はアクセストークンとリフレッシュトークンのCookieを設定する。
func (cm *CookieManager) SetAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Domain:   cm.config.Domain,
		MaxAge:   int(cm.config.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   cm.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		Domain:   cm.config.Domain,
		MaxAge:   int(cm.config.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   cm.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookies は認証Cookieを両方削除する。冪等で、
// Cookieが存在しない状態で呼んでも害はない。
func (cm *CookieManager) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   cm.config.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cm.config.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
