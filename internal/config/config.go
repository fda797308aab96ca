// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 開発用フォールバックの署名鍵。本番モードでは使用を拒否する。
const (
	devAccessSecret  = "dev-access-secret-do-not-use"
	devRefreshSecret = "dev-refresh-secret-do-not-use"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Environment
	Env string // "development" または "production"

	// Token
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	// Mock user directory
	MockPassword string

	// Database（未設定の場合はインメモリのユーザーディレクトリを使う）
	DatabaseURL string

	// dev.to API
	DevtoBaseURL string
	DevtoAPIKey  string
	DevtoTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitLogin   int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// IsProduction は本番モードかどうかを返す。
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load は環境変数からConfigを読み込む。
// 本番モードで署名鍵が未設定の場合はエラーを返す（開発用フォールバックに
// 黙って落ちることを許さない）。開発モードではフォールバック使用を許可し、
// 呼び出し元が警告ログを出せるようInsecureSecretsで検知できる。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = getEnvString("APP_ENV", "development")
	if cfg.Env != "development" && cfg.Env != "production" {
		return nil, fmt.Errorf("invalid APP_ENV: %q (must be development or production)", cfg.Env)
	}

	cfg.AccessTokenSecret = os.Getenv("ACCESS_TOKEN_SECRET")
	cfg.RefreshTokenSecret = os.Getenv("REFRESH_TOKEN_SECRET")

	if cfg.IsProduction() {
		var missing []string
		if cfg.AccessTokenSecret == "" {
			missing = append(missing, "ACCESS_TOKEN_SECRET")
		}
		if cfg.RefreshTokenSecret == "" {
			missing = append(missing, "REFRESH_TOKEN_SECRET")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("required environment variables are not set in production: %v", missing)
		}
	}

	// 開発モードのみ: 未設定の鍵にフォールバック値を充てる
	if cfg.AccessTokenSecret == "" {
		cfg.AccessTokenSecret = devAccessSecret
	}
	if cfg.RefreshTokenSecret == "" {
		cfg.RefreshTokenSecret = devRefreshSecret
	}

	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be different")
	}

	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	cfg.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	cfg.MockPassword = getEnvString("MOCK_USER_PASSWORD", "123456")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.DevtoBaseURL = getEnvString("DEVTO_API_URL", "https://dev.to/api")
	cfg.DevtoAPIKey = os.Getenv("DEVTO_API_KEY")
	cfg.DevtoTimeout = getEnvDuration("DEVTO_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:3000")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// InsecureSecrets は開発用フォールバック鍵が使われているかを返す。
// 起動時の警告ログ用。
func (c *Config) InsecureSecrets() bool {
	return c.AccessTokenSecret == devAccessSecret || c.RefreshTokenSecret == devRefreshSecret
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
