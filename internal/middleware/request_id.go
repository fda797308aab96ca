package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeader はリクエストIDを伝搬するヘッダー名。
const requestIDHeader = "X-Request-Id"

// NewRequestIDMiddleware はリクエストごとに一意のIDを割り当てるミドルウェアを返す。
// クライアントが X-Request-Id を送ってきた場合はそれを引き継ぎ、
// なければUUIDv4を新規生成する。IDはレスポンスヘッダーと
// リクエストコンテキストの両方に設定される。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, requestID)
			ctx := contextWithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
