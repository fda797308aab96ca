package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/devpress/internal/model"
	"github.com/hitoshi/devpress/internal/repository"
	"github.com/hitoshi/devpress/internal/token"
)

func testTokenService() *token.Service {
	return token.NewService(token.Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
	})
}

func testAuthService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(repository.NewMemoryUserRepo(), testTokenService(), "123456")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestLogin_ValidCredentials_ReturnsUserAndTokens(t *testing.T) {
	svc := testAuthService(t)

	user, pair, err := svc.Login(context.Background(), "jane@example.com", "123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if user.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleUser)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("expected both tokens to be issued")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Error("access and refresh tokens must differ")
	}
}

// 未登録メールとパスワード誤りが同一のエラーへ収束すること（存在の漏洩防止）
func TestLogin_InvalidCredentials_IndistinguishableError(t *testing.T) {
	svc := testAuthService(t)
	ctx := context.Background()

	_, _, wrongPass := svc.Login(ctx, "jane@example.com", "wrong")
	_, _, unknownUser := svc.Login(ctx, "nobody@example.com", "123456")

	if !errors.Is(wrongPass, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", wrongPass)
	}
	if !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v, want ErrInvalidCredentials", unknownUser)
	}
	if wrongPass.Error() != unknownUser.Error() {
		t.Error("error must not differ between unknown user and wrong password")
	}
}

func TestRefresh_ValidToken_IssuesNewPair(t *testing.T) {
	svc := testAuthService(t)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "john@example.com", "123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	user, newPair, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if user.ID != "1" {
		t.Errorf("user ID = %q, want %q", user.ID, "1")
	}
	if newPair.AccessToken == "" || newPair.RefreshToken == "" {
		t.Error("expected a fresh token pair")
	}
}

func TestRefresh_InvalidToken_Fails(t *testing.T) {
	svc := testAuthService(t)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, _, err := svc.Refresh(context.Background(), tok)
		if !errors.Is(err, ErrInvalidRefreshToken) {
			t.Errorf("Refresh(%q): got %v, want ErrInvalidRefreshToken", tok, err)
		}
	}
}

// アクセストークンをリフレッシュトークンとして使えないこと
func TestRefresh_AccessTokenRejected(t *testing.T) {
	svc := testAuthService(t)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "john@example.com", "123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, _, err = svc.Refresh(ctx, pair.AccessToken)
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("got %v, want ErrInvalidRefreshToken", err)
	}
}

// 有効なトークンだがユーザーが消えている場合、トークンを発行せずに
// ErrUserNotFoundを返すこと
func TestRefresh_UnknownUser_NoTokensIssued(t *testing.T) {
	tokens := testTokenService()
	empty := repository.NewMemoryUserRepoWithUsers(nil)
	svc, err := NewService(empty, tokens, "123456")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	refresh, err := tokens.IssueRefreshToken("ghost")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	user, pair, err := svc.Refresh(context.Background(), refresh)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
	if pair.AccessToken != "" || pair.RefreshToken != "" {
		t.Error("no tokens may be issued for an unknown user")
	}
}

func TestCurrentUser(t *testing.T) {
	svc := testAuthService(t)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "jane@example.com", "123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	user, err := svc.CurrentUser(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if user == nil || user.ID != "2" {
		t.Errorf("user = %+v, want ID 2", user)
	}

	anon, err := svc.CurrentUser(ctx, "invalid-token")
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if anon != nil {
		t.Errorf("expected nil for invalid token, got %+v", anon)
	}
}

// 期限切れのリフレッシュトークンで再ログインが強制されること
func TestRefresh_ExpiredToken_Fails(t *testing.T) {
	base := time.Now()
	issuing := token.NewService(token.Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
	}).WithClock(func() time.Time { return base })

	refresh, err := issuing.IssueRefreshToken("1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	verifying := token.NewService(token.Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
	}).WithClock(func() time.Time { return base.Add(7*24*time.Hour + time.Minute) })

	svc, err := NewService(repository.NewMemoryUserRepo(), verifying, "123456")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, _, err = svc.Refresh(context.Background(), refresh)
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("got %v, want ErrInvalidRefreshToken", err)
	}
}
