// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/oops"
)

// DevelopmentSessionSecret は SESSION_SECRET 未設定の開発環境でだけ使う署名鍵です。
const DevelopmentSessionSecret = "stock-manager-development-secret-change-me"

const minSessionSecretLength = 32

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// アプリケーション設定
	AppName      string // 画面タイトルに使うアプリ名
	AssetVersion string // フロントエンド資産のバージョン（不一致時は全画面リロード）
	PublicDir    string // 静的ファイル（js/css）の配置ディレクトリ

	// サーバー設定
	Port    string // HTTPサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// セッション設定
	SessionSecret          string // セッションクッキー署名用の秘密鍵
	SessionCookieName      string // セッションクッキー名
	SessionLifetimeMinutes int    // セッションクッキーの有効期間（分）

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ログイン試行制限
	LoginMaxAttempts int // 0 の場合は無効
	LoginLockMinutes int // 上限到達後にロックする時間（分）

	// ログイン履歴
	RedisURL         string // 空の場合はメモリに保持
	ActivityTTLHours int    // ログイン履歴の保持期間（時間）

	// ログ・メトリクス
	LogLevel       string // debug, info, warn, error
	LogFormat      string // json, console
	MetricsEnabled bool   // /metrics を公開するか
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		AppName:      getEnv("APP_NAME", "商品管理システム"),
		AssetVersion: getEnv("ASSET_VERSION", ""),
		PublicDir:    getEnv("PUBLIC_DIR", "public"),

		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		SessionSecret:          getEnv("SESSION_SECRET", ""),
		SessionCookieName:      getEnv("SESSION_COOKIE_NAME", "stock_session"),
		SessionLifetimeMinutes: getEnvAsInt("SESSION_LIFETIME_MINUTES", 120),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		LoginMaxAttempts: getEnvAsInt("LOGIN_MAX_ATTEMPTS", 0),
		LoginLockMinutes: getEnvAsInt("LOGIN_LOCK_MINUTES", 10),

		RedisURL:         getEnv("REDIS_URL", ""),
		ActivityTTLHours: getEnvAsInt("ACTIVITY_TTL_HOURS", 720), // 30日

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// IsRelease は本番モードで動作しているかを返します。
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// EffectiveSessionSecret はクッキー署名に使う秘密鍵を返します。
// 開発環境で未設定の場合は固定の開発用鍵を返します。
func (c *Config) EffectiveSessionSecret() string {
	if c.SessionSecret == "" && !c.IsRelease() {
		return DevelopmentSessionSecret
	}
	return c.SessionSecret
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.SessionLifetimeMinutes <= 0 {
		return invalid("SESSION_LIFETIME_MINUTES", "SESSION_LIFETIME_MINUTES must be positive")
	}
	if c.SessionCookieName == "" {
		return invalid("SESSION_COOKIE_NAME", "SESSION_COOKIE_NAME is required")
	}
	if c.LoginMaxAttempts < 0 {
		return invalid("LOGIN_MAX_ATTEMPTS", "LOGIN_MAX_ATTEMPTS must not be negative")
	}
	if c.LoginMaxAttempts > 0 && c.LoginLockMinutes <= 0 {
		return invalid("LOGIN_LOCK_MINUTES", "LOGIN_LOCK_MINUTES must be positive when LOGIN_MAX_ATTEMPTS is set")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return invalid("LOG_FORMAT", "LOG_FORMAT must be json or console")
	}

	// ローカル開発ではセッション鍵は任意
	if c.IsRelease() {
		if c.SessionSecret == "" {
			return invalid("SESSION_SECRET", "SESSION_SECRET is required in release mode")
		}
		if len(c.SessionSecret) < minSessionSecretLength {
			return invalid("SESSION_SECRET", "SESSION_SECRET must be at least 32 bytes in release mode")
		}
	}

	return nil
}

func invalid(key, message string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s", message)
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
