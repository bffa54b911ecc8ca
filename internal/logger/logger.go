package logger

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-ID"

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// New 构造 zap logger，release 模式输出 JSON，其余模式输出彩色控制台格式。
func New(level, ginMode string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.Set(strings.TrimSpace(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if ginMode != gin.ReleaseMode {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// SetGlobal 替换包级 logger。
func SetGlobal(l *zap.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L 返回包级 logger，未初始化时为 no-op。
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Middleware 记录每个请求的方法、路径、状态码与耗时，并透传请求 ID。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			L().Error("request failed", fields...)
		case len(c.Errors) > 0:
			L().Warn("request completed with errors", fields...)
		default:
			L().Info("request", fields...)
		}
	}
}
