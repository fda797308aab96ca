package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/devpress/internal/auth"
	"github.com/hitoshi/devpress/internal/middleware"
	"github.com/hitoshi/devpress/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login は資格情報を検証し、ユーザーとトークンペアを返す。
	Login(ctx context.Context, email, password string) (*model.User, auth.TokenPair, error)
	// Refresh はリフレッシュトークンを検証し、新しいトークンペアを発行する。
	Refresh(ctx context.Context, refreshToken string) (*model.User, auth.TokenPair, error)
	// CurrentUser はアクセストークンから現在のユーザーを返す。
	CurrentUser(ctx context.Context, accessToken string) (*model.User, error)
}

// AuthMetricsRecorder は認証操作のメトリクス記録インターフェース。
type AuthMetricsRecorder interface {
	RecordLogin(success bool)
	RecordRefresh(success bool)
}

// AuthHandler はCookieベース認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	cookies *CookieManager
	metrics AuthMetricsRecorder
	logger  *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnil可。
func NewAuthHandler(service AuthServiceInterface, cookies *CookieManager, metrics AuthMetricsRecorder, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookies: cookies,
		metrics: metrics,
		logger:  logger,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse はユーザー情報を包むAPIレスポンス。
// model.Userにはパスワード関連フィールドが存在しないため、
// そのまま返しても資格情報が漏れることはない。
type userResponse struct {
	User *model.User `json:"user"`
}

// Login はログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("Email e senha são obrigatórios"))
		return
	}

	if req.Email == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("Email e senha são obrigatórios"))
		return
	}

	user, tokens, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			// 未知のメールアドレスとパスワード誤りを区別しない
			h.recordLogin(false)
			middleware.WriteErrorResponse(w, model.NewAuthenticationError("Credenciais inválidas"))
			return
		}
		h.logger.Error("login failed", slog.String("error", err.Error()))
		h.recordLogin(false)
		middleware.WriteInternalServerError(w)
		return
	}

	h.cookies.SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken)
	h.recordLogin(true)

	h.logger.Info("login succeeded",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Logout はログアウトを処理する。
// POST /api/auth/logout
// セッションの有無にかかわらず常に200を返し、Cookieを削除する。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearAuthCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Logout realizado com sucesso",
	})
}

// Refresh はトークンの再発行を処理する。
// POST /api/auth/refresh
// リフレッシュトークンの検証に成功した場合のみ両Cookieを更新する。
// トークンは有効だがユーザーが存在しない場合は404を返し、トークンは発行しない。
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		h.recordRefresh(false)
		middleware.WriteErrorResponse(w, model.NewAuthenticationError("Refresh token não encontrado"))
		return
	}

	user, tokens, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.recordRefresh(false)
		switch {
		case errors.Is(err, auth.ErrInvalidRefreshToken):
			middleware.WriteErrorResponse(w, model.NewAuthenticationError("Refresh token inválido"))
		case errors.Is(err, auth.ErrUserNotFound):
			middleware.WriteErrorResponse(w, model.NewNotFoundError("Usuário não encontrado"))
		default:
			h.logger.Error("refresh failed", slog.String("error", err.Error()))
			middleware.WriteInternalServerError(w)
		}
		return
	}

	h.cookies.SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken)
	h.recordRefresh(true)

	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Session は現在のセッションのユーザー情報を返す。
// GET /api/session
// アクセストークンCookieが有効な場合のみ200、それ以外は401。
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		middleware.WriteUnauthorized(w)
		return
	}

	user, err := h.service.CurrentUser(r.Context(), cookie.Value)
	if err != nil || user == nil {
		// CurrentUserは無効トークンとユーザー消失をどちらもnilで返す
		middleware.WriteUnauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user})
}

func (h *AuthHandler) recordLogin(success bool) {
	if h.metrics != nil {
		h.metrics.RecordLogin(success)
	}
}

func (h *AuthHandler) recordRefresh(success bool) {
	if h.metrics != nil {
		h.metrics.RecordRefresh(success)
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
