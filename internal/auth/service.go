// Package auth は資格情報の検証とトークンによるセッションライフサイクルを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/devpress/internal/model"
	"github.com/hitoshi/devpress/internal/repository"
	"github.com/hitoshi/devpress/internal/token"
)

// 認証フローのセンチネルエラー。ハンドラーがステータスコードへ対応付ける。
var (
	// ErrInvalidCredentials はメールアドレス未登録とパスワード誤りの
	// 両方に使う。呼び分けるとユーザーの存在が漏れる。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken はリフレッシュトークンの欠落・無効・期限切れを表す。
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrUserNotFound はトークンは有効だがユーザーが存在しないことを表す。
	ErrUserNotFound = errors.New("user not found")
)

// TokenPair は発行済みのアクセストークンとリフレッシュトークンの組。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service は認証に関するビジネスロジックを提供する。
// ユーザーディレクトリにはrepository.UserRepositoryインターフェース経由でのみ触れる。
type Service struct {
	users  repository.UserRepository
	tokens *token.Service

	// モックディレクトリの共通パスワードのbcryptハッシュ。
	// 実運用の認証基盤ではユーザーごとのソルト付きハッシュに置き換える。
	passwordHash []byte
}

// NewService はServiceを生成する。起動時に共通モックパスワードをハッシュ化する。
func NewService(users repository.UserRepository, tokens *token.Service, mockPassword string) (*Service, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(mockPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash mock password: %w", err)
	}

	return &Service{
		users:        users,
		tokens:       tokens,
		passwordHash: hash,
	}, nil
}

// Login は資格情報を検証し、成功時はユーザーとトークンペアを返す。
// 未登録メールとパスワード誤りはどちらもErrInvalidCredentialsになる。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, TokenPair, error) {
	user, err := s.validateCredentials(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if user == nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, pair, nil
}

// Refresh はリフレッシュトークンを検証し、新しいトークンペアを発行する。
// トークンが無効ならErrInvalidRefreshToken、対応するユーザーが
// 存在しなければErrUserNotFoundを返し、どちらの場合もトークンは発行しない。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.User, TokenPair, error) {
	userID := s.tokens.VerifyRefreshToken(refreshToken)
	if userID == "" {
		return nil, TokenPair{}, ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, TokenPair{}, ErrUserNotFound
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	slog.Info("tokens refreshed", slog.String("user_id", user.ID))
	return user, pair, nil
}

// CurrentUser はアクセストークンから現在のユーザーを取得する。
// トークンが無効な場合とユーザーが消えている場合はnilを返す。
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*model.User, error) {
	claims := s.tokens.VerifyAccessToken(accessToken)
	if claims == nil {
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// validateCredentials はメールアドレスでユーザーを検索し、パスワードを
// bcrypt比較する。どちらが失敗しても同じnilを返す。
func (s *Service) validateCredentials(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	if bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) != nil {
		return nil, nil
	}
	return user, nil
}

// issueTokens はユーザーのアクセストークンとリフレッシュトークンを発行する。
func (s *Service) issueTokens(user *model.User) (TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
