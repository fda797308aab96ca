// Package token はアクセストークン・リフレッシュトークンの発行と検証を提供する。
//
// 2種類のトークンは独立した署名鍵で署名される。アクセストークンの鍵が
// 漏洩してもリフレッシュトークンを偽造できないよう、鍵の派生は行わない。
// 検証はフェイルクローズド: 署名不一致・期限切れ・アルゴリズム不一致の
// いずれもnil（ゼロ値）へ収束し、呼び出し元へerrorを返さない。
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/devpress/internal/model"
)

// AccessClaims はアクセストークンのペイロード。
// 署名されるだけで暗号化はされないため、秘匿情報は含めない。
type AccessClaims struct {
	UserID string     `json:"userId"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// refreshClaims はリフレッシュトークンのペイロード。ユーザーIDのみを持つ。
type refreshClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Config はトークンサービスの設定。
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration // 既定 15分
	RefreshTTL    time.Duration // 既定 7日
}

// Service はHMAC-SHA256によるトークンの発行・検証を行う。
// nowを差し替えることでテストから期限切れを再現できる。
type Service struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewService はServiceを生成する。TTLが未指定（0以下）の場合は既定値を使う。
func NewService(cfg Config) *Service {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &Service{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock は時刻取得関数を差し替えたServiceを返す。テスト用。
func (s *Service) WithClock(now func() time.Time) *Service {
	clone := *s
	clone.now = now
	return &clone
}

// IssueAccessToken はユーザーのアクセストークンを発行する。
func (s *Service) IssueAccessToken(user *model.User) (string, error) {
	now := s.now()
	claims := AccessClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken はユーザーIDのみを持つリフレッシュトークンを発行する。
func (s *Service) IssueRefreshToken(userID string) (string, error) {
	now := s.now()
	claims := refreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken はアクセストークンを検証し、成功時はペイロードを返す。
// 署名不一致・期限切れ・別鍵で署名されたトークンはいずれもnilを返す。
func (s *Service) VerifyAccessToken(tokenStr string) *AccessClaims {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return s.accessKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return nil
	}
	return claims
}

// VerifyRefreshToken はリフレッシュトークンを検証し、成功時はユーザーIDを返す。
// 失敗時は空文字列を返す。アクセストークン鍵で署名されたトークンは通らない。
func (s *Service) VerifyRefreshToken(tokenStr string) string {
	claims := &refreshClaims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return s.refreshKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return ""
	}
	return claims.UserID
}

// AccessTTL はアクセストークンの有効期間を返す。Cookieのmax-age設定用。
func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL はリフレッシュトークンの有効期間を返す。Cookieのmax-age設定用。
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}
