package model

import "fmt"

// エラーカテゴリ。APIレスポンスには載せず、ログとステータスコード決定に使う。
const (
	CategoryValidation    = "validation"
	CategoryAuth          = "auth"
	CategoryAuthorization = "authorization"
	CategoryNotFound      = "not_found"
	CategorySystem        = "system"
)

// APIError はHTTPステータスと利用者向けメッセージを持つエラー。
// ハンドラーはこの型をerrors.Asで取り出し、{"error": message} 形式で返す。
type APIError struct {
	Status   int    // HTTPステータスコード
	Message  string // 利用者向けメッセージ（そのままレスポンスに載る）
	Category string // カテゴリ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%d %s] %s", e.Status, e.Category, e.Message)
}

// NewValidationError は入力不備エラー（400）を生成する。
func NewValidationError(message string) *APIError {
	return &APIError{Status: 400, Message: message, Category: CategoryValidation}
}

// NewAuthenticationError は認証失敗エラー（401）を生成する。
// 資格情報の誤りとトークンの無効・期限切れの両方に使う。
func NewAuthenticationError(message string) *APIError {
	return &APIError{Status: 401, Message: message, Category: CategoryAuth}
}

// NewNotFoundError は対象未検出エラー（404）を生成する。
func NewNotFoundError(message string) *APIError {
	return &APIError{Status: 404, Message: message, Category: CategoryNotFound}
}

// NewInternalError は内部エラー（500）を生成する。
// 詳細はログのみに記録し、利用者には一般的なメッセージを返すこと。
func NewInternalError(message string) *APIError {
	return &APIError{Status: 500, Message: message, Category: CategorySystem}
}

// NewUpstreamError はdev.to API側のエラーをそのままのステータスで伝搬する。
func NewUpstreamError(status int, message string) *APIError {
	category := CategorySystem
	switch {
	case status == 404:
		category = CategoryNotFound
	case status == 401 || status == 403:
		category = CategoryAuth
	case status >= 400 && status < 500:
		category = CategoryValidation
	}
	return &APIError{Status: status, Message: message, Category: category}
}
