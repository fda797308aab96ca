package authclient

import (
	"net/http"
	"strings"
)

// refreshPath はサイレントリフレッシュのエンドポイントパス。
const refreshPath = "/api/auth/refresh"

// RetryTransport は401レスポンスを検出して一度だけサイレントリフレッシュを
// 行うhttp.RoundTripper。リフレッシュ成功後、元のリクエストを一度だけ再送する。
// 再送も401だった場合はそのまま呼び出し元へ返す（無限リトライはしない）。
// リフレッシュ呼び出し自体の401はリトライ対象外。
//
// Jarは利用側のhttp.Clientと共有すること。リフレッシュで回転した
// Cookieが再送リクエストに反映されるのはJar経由のため。
type RetryTransport struct {
	// Base は実際の送信に使うRoundTripper。nilの場合はhttp.DefaultTransport。
	Base http.RoundTripper
	// Jar は利用側クライアントと共有するCookieジャー。
	Jar http.CookieJar
	// RefreshURL はリフレッシュエンドポイントの絶対URL。
	RefreshURL string
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip はリクエストを送信し、401なら一度だけリフレッシュ＋再送を試みる。
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || t.isRefreshRequest(req) {
		return resp, nil
	}

	// ボディを再送できないリクエストはリトライしない
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	refreshResp, refreshErr := t.refresh(req)
	if refreshErr != nil {
		return resp, nil
	}
	drainAndClose(refreshResp)
	if refreshResp.StatusCode != http.StatusOK {
		// リフレッシュ失敗。元の401をそのまま返し、呼び出し元に再認証を促す
		return resp, nil
	}

	retryReq, retryErr := t.cloneRequest(req)
	if retryErr != nil {
		return resp, nil
	}

	drainAndClose(resp)
	return t.base().RoundTrip(retryReq)
}

// isRefreshRequest はリクエストがリフレッシュ呼び出し自身かを判定する。
func (t *RetryTransport) isRefreshRequest(req *http.Request) bool {
	return strings.HasSuffix(req.URL.Path, refreshPath)
}

// refresh はリフレッシュエンドポイントを呼ぶ。Jarから回転前のCookieを添付し、
// レスポンスのSet-CookieをJarへ反映する。
func (t *RetryTransport) refresh(original *http.Request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(original.Context(), http.MethodPost, t.RefreshURL, nil)
	if err != nil {
		return nil, err
	}

	if t.Jar != nil {
		for _, cookie := range t.Jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if t.Jar != nil {
		if cookies := resp.Cookies(); len(cookies) > 0 {
			t.Jar.SetCookies(req.URL, cookies)
		}
	}
	return resp, nil
}

// cloneRequest は元のリクエストを再送用に複製する。
// Cookieヘッダーはリフレッシュ後のJarの内容で置き換える。
func (t *RetryTransport) cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())

	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}

	if t.Jar != nil {
		clone.Header.Del("Cookie")
		for _, cookie := range t.Jar.Cookies(clone.URL) {
			clone.AddCookie(cookie)
		}
	}
	return clone, nil
}

// drainAndClose はレスポンスボディを閉じてコネクションを再利用可能にする。
func drainAndClose(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
}
