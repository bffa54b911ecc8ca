package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevSessionSecret 未配置 SESSION_SECRET 时使用的开发默认值，不可用于生产。
const DevSessionSecret = "diario-dev-secret"

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr         string
	Port               string
	DatabaseURL        string
	SessionSecret      string
	JWTSecret          string
	TokenTTL           time.Duration
	GinMode            string
	LogLevel           string
	RedisAddr          string
	PopularityCacheTTL time.Duration
	VisitDedupWindow   time.Duration
	VisitRollingWindow time.Duration
	MessagePurgeGrace  time.Duration
	ImgurClientID      string
	UploadDir          string
	UploadURL          string
	OTLPEndpoint       string
	SuperRootUserName  string
	SuperRootPassword  string
}

// Load 从环境变量（以及可选的 CONFIG_FILE）读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_PATH", "diario.db")
	v.SetDefault("SESSION_SECRET", DevSessionSecret)
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("POPULARITY_CACHE_TTL", "30s")
	v.SetDefault("VISIT_DEDUP_WINDOW", "5m")
	v.SetDefault("VISIT_ROLLING_WINDOW", "168h")
	v.SetDefault("MESSAGE_PURGE_GRACE", "24h")
	v.SetDefault("UPLOAD_DIR", "web/static/uploads")
	v.SetDefault("UPLOAD_URL", "/static/uploads")

	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		// 配置文件缺失时继续使用环境变量与默认值
		_ = v.ReadInConfig()
	}

	port := strings.TrimSpace(v.GetString("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(v.GetString("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databaseURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if databaseURL == "" {
		databaseURL = strings.TrimSpace(v.GetString("DATABASE_PATH"))
	}

	sessionSecret := strings.TrimSpace(v.GetString("SESSION_SECRET"))
	jwtSecret := strings.TrimSpace(v.GetString("JWT_SECRET"))
	if jwtSecret == "" {
		jwtSecret = sessionSecret
	}

	return AppConfig{
		ListenAddr:         listenAddr,
		Port:               port,
		DatabaseURL:        databaseURL,
		SessionSecret:      sessionSecret,
		JWTSecret:          jwtSecret,
		TokenTTL:           durationOr(v, "TOKEN_TTL", 24*time.Hour),
		GinMode:            strings.TrimSpace(v.GetString("GIN_MODE")),
		LogLevel:           strings.TrimSpace(v.GetString("LOG_LEVEL")),
		RedisAddr:          strings.TrimSpace(v.GetString("REDIS_ADDR")),
		PopularityCacheTTL: durationOr(v, "POPULARITY_CACHE_TTL", 30*time.Second),
		VisitDedupWindow:   durationOr(v, "VISIT_DEDUP_WINDOW", 5*time.Minute),
		VisitRollingWindow: durationOr(v, "VISIT_ROLLING_WINDOW", 7*24*time.Hour),
		MessagePurgeGrace:  durationOr(v, "MESSAGE_PURGE_GRACE", 24*time.Hour),
		ImgurClientID:      strings.TrimSpace(v.GetString("IMGUR_CLIENT_ID")),
		UploadDir:          strings.TrimSpace(v.GetString("UPLOAD_DIR")),
		UploadURL:          strings.TrimSpace(v.GetString("UPLOAD_URL")),
		OTLPEndpoint:       strings.TrimSpace(v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")),
		SuperRootUserName:  strings.TrimSpace(v.GetString("SUPER_ROOT_USER_NAME")),
		SuperRootPassword:  strings.TrimSpace(v.GetString("SUPER_ROOT_PASSWORD")),
	}
}

// durationOr 解析时长配置，非法或非正值回退到默认值。
func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// InsecureSecrets 报告会话或令牌签名密钥是否仍为公开的开发默认值。
func (c AppConfig) InsecureSecrets() bool {
	return c.SessionSecret == DevSessionSecret || c.JWTSecret == DevSessionSecret
}
