package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Auth
	AuthSecretKey string
	ValidUsers    string // "user1:hash1,user2:hash2" 形式。空の場合はデモユーザーのみ。

	// Analyzer API
	APIBaseURL     string
	APIKey         string
	AnalyzeTimeout time.Duration
	PingTimeout    time.Duration

	// Session
	SessionMaxAge int

	// History
	HistoryLimit int

	// Rate Limit
	RateLimitGeneral int // 認証済みAPI全般（req/min/user）
	RateLimitLogin   int // ログイン試行（req/min/IP）

	// Logo proxy
	LogoMaxSize int64

	// Server
	ServerPort  string
	MetricsPort string
	BaseURL     string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.AuthSecretKey = os.Getenv("AUTH_SECRET_KEY")
	if cfg.AuthSecretKey == "" {
		missing = append(missing, "AUTH_SECRET_KEY")
	}

	cfg.APIBaseURL = strings.TrimRight(os.Getenv("WEBSITE_ANALYZER_API_URL"), "/")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "WEBSITE_ANALYZER_API_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ValidUsers = os.Getenv("VALID_USERS")
	cfg.APIKey = os.Getenv("WEBSITE_ANALYZER_API_KEY")
	cfg.AnalyzeTimeout = getEnvDuration("ANALYZE_TIMEOUT", 5*time.Minute)
	cfg.PingTimeout = getEnvDuration("PING_TIMEOUT", 10*time.Second)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", 50)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.LogoMaxSize = getEnvInt64("LOGO_MAX_SIZE", 2097152)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
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
