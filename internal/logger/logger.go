// Package logger は zap ロガーの生成とリクエスト単位のアクセスログを提供します。
package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダー名です。
const RequestIDHeader = "X-Request-ID"

const (
	contextKey         = "logger"
	maxRequestIDLength = 128
)

// New はレベルと出力形式を指定して zap ロガーを作成します。
// format が "console" の場合は開発向けの表示、それ以外は JSON で出力します。
func New(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = atomicLevel

	return cfg.Build()
}

// Middleware はリクエストIDの採番、リクエスト用ロガーの設定、アクセスログ出力を行います。
func Middleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		reqLog := base.With(zap.String("request_id", requestID))
		c.Set(contextKey, reqLog)

		c.Next()

		reqLog.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// FromContext はリクエスト用ロガーを返します。未設定の場合は何も出力しないロガーを返します。
func FromContext(c *gin.Context) *zap.Logger {
	if c != nil {
		if v, ok := c.Get(contextKey); ok {
			if l, ok := v.(*zap.Logger); ok && l != nil {
				return l
			}
		}
	}
	return zap.NewNop()
}
