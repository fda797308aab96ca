package token

import (
	"testing"
	"time"

	"github.com/hitoshi/devpress/internal/model"
)

func testService() *Service {
	return NewService(Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
	})
}

func testUser() *model.User {
	return &model.User{
		ID:       "1",
		Name:     "John Doe",
		Email:    "john@example.com",
		Username: "johndoe",
		Role:     model.RoleAdmin,
	}
}

// 発行直後のアクセストークンはペイロードを復元できること（ラウンドトリップ則）
func TestAccessToken_RoundTrip(t *testing.T) {
	svc := testService()
	user := testUser()

	tok, err := svc.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	claims := svc.VerifyAccessToken(tok)
	if claims == nil {
		t.Fatal("expected valid claims, got nil")
	}
	if claims.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", claims.UserID, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("Email = %q, want %q", claims.Email, user.Email)
	}
	if claims.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, model.RoleAdmin)
	}
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	svc := testService()

	tok, err := svc.IssueRefreshToken("2")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	if got := svc.VerifyRefreshToken(tok); got != "2" {
		t.Errorf("VerifyRefreshToken = %q, want %q", got, "2")
	}
}

// 期限切れのアクセストークンはnilへ収束すること（panicやerrorを返さない）
func TestVerifyAccessToken_Expired_ReturnsNil(t *testing.T) {
	base := time.Now()
	svc := testService().WithClock(func() time.Time { return base })

	tok, err := svc.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	// 15分の既定TTLを1秒超えた時点で検証する
	late := testService().WithClock(func() time.Time {
		return base.Add(15*time.Minute + time.Second)
	})
	if claims := late.VerifyAccessToken(tok); claims != nil {
		t.Errorf("expected nil for expired token, got %+v", claims)
	}

	// 期限内なら通ること（境界の反対側）
	early := testService().WithClock(func() time.Time {
		return base.Add(14 * time.Minute)
	})
	if claims := early.VerifyAccessToken(tok); claims == nil {
		t.Error("expected valid claims before expiry")
	}
}

func TestVerifyRefreshToken_Expired_ReturnsEmpty(t *testing.T) {
	base := time.Now()
	svc := testService().WithClock(func() time.Time { return base })

	tok, err := svc.IssueRefreshToken("1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	late := testService().WithClock(func() time.Time {
		return base.Add(7*24*time.Hour + time.Second)
	})
	if got := late.VerifyRefreshToken(tok); got != "" {
		t.Errorf("expected empty userID for expired token, got %q", got)
	}
}

// 鍵空間の独立性: リフレッシュ鍵で署名したトークンはアクセス検証を通らず、
// その逆も成立しないこと
func TestVerify_CrossSecretTokens_Rejected(t *testing.T) {
	svc := testService()

	access, err := svc.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	refresh, err := svc.IssueRefreshToken("1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	if got := svc.VerifyRefreshToken(access); got != "" {
		t.Errorf("access token passed refresh verification: %q", got)
	}
	if claims := svc.VerifyAccessToken(refresh); claims != nil {
		t.Errorf("refresh token passed access verification: %+v", claims)
	}
}

func TestVerifyAccessToken_WrongSecret_ReturnsNil(t *testing.T) {
	tok, err := testService().IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	other := NewService(Config{
		AccessSecret:  "another-access-secret",
		RefreshSecret: "another-refresh-secret",
	})
	if claims := other.VerifyAccessToken(tok); claims != nil {
		t.Error("token signed with a different secret must not verify")
	}
}

func TestVerifyAccessToken_Garbage_ReturnsNil(t *testing.T) {
	svc := testService()

	for _, tok := range []string{"", "not-a-jwt", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		if claims := svc.VerifyAccessToken(tok); claims != nil {
			t.Errorf("VerifyAccessToken(%q) = %+v, want nil", tok, claims)
		}
	}
}

func TestNewService_DefaultTTLs(t *testing.T) {
	svc := testService()

	if svc.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want %v", svc.AccessTTL(), 15*time.Minute)
	}
	if svc.RefreshTTL() != 7*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want %v", svc.RefreshTTL(), 7*24*time.Hour)
	}
}
