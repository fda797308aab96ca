// Package middleware はHTTPミドルウェアを提供する。
// 認証（アクセストークンCookieの検証）、ページ向けルートガード、
// リクエストログ、レート制限、CORS、セキュリティヘッダーを含む。
package middleware

import (
	"context"
	"fmt"

	"github.com/hitoshi/devpress/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// claimsContextKey は検証済みアクセストークンのクレームを格納するキー。
	claimsContextKey = contextKey("auth_claims")
	// requestIDContextKey はリクエストIDを格納するキー。
	requestIDContextKey = contextKey("request_id")
)

// ClaimsFromContext はリクエストコンテキストから検証済みクレームを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func ClaimsFromContext(ctx context.Context) (*token.AccessClaims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*token.AccessClaims)
	if !ok || claims == nil {
		return nil, fmt.Errorf("auth claims not found in context")
	}
	return claims, nil
}

// ContextWithClaims はコンテキストに検証済みクレームを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaims(ctx context.Context, claims *token.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	claims, err := ClaimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// RequestIDFromContext はリクエストコンテキストからリクエストIDを取得する。
// 未設定の場合は空文字を返す。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}
