// Package model はドメインモデルを定義する。
package model

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleAdmin は管理者。管理画面（/admin配下）にアクセスできる。
	RoleAdmin Role = "admin"
)

// User はサービス利用ユーザーを表す。
// 認証ディレクトリから取得され、セッション中は不変として扱う。
// パスワード関連のフィールドは持たないため、そのままAPIレスポンスに載せられる。
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Role     Role   `json:"role"`
}

// IsAdmin はユーザーが管理者ロールを持つかを返す。
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
