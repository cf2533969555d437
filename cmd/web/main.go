// Package main は商品管理システムのWebサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yourusername/stock-manager/internal/activity"
	"github.com/yourusername/stock-manager/internal/auth"
	"github.com/yourusername/stock-manager/internal/config"
	"github.com/yourusername/stock-manager/internal/directory"
	"github.com/yourusername/stock-manager/internal/logger"
	"github.com/yourusername/stock-manager/internal/metrics"
	"github.com/yourusername/stock-manager/internal/page"
	"github.com/yourusername/stock-manager/internal/routes"
)

const version = "0.1.0"

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.SessionSecret == "" {
		zlog.Warn("SESSION_SECRET is not set; using the development secret")
	}

	recorder, closeRecorder, err := newRecorder(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to set up activity store", zap.Error(err))
	}
	defer closeRecorder()

	router, err := newRouter(cfg, zlog, recorder)
	if err != nil {
		zlog.Fatal("failed to set up router", zap.Error(err))
	}

	// サーバーの起動
	addr := ":" + cfg.Port
	zlog.Info("starting web server", zap.String("addr", addr), zap.String("mode", cfg.GinMode))
	if err := router.Run(addr); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}

// newRecorder は REDIS_URL があれば Redis、なければメモリにログイン履歴を保存します。
func newRecorder(cfg *config.Config, zlog *zap.Logger) (activity.Recorder, func(), error) {
	if cfg.RedisURL == "" {
		zlog.Info("REDIS_URL is not set; keeping login activity in memory")
		return activity.NewMemoryStore(), func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opt)
	ttl := time.Duration(cfg.ActivityTTLHours) * time.Hour
	closeFn := func() {
		if err := rdb.Close(); err != nil {
			zlog.Warn("failed to close redis client", zap.Error(err))
		}
	}
	return activity.NewRedisStore(rdb, ttl), closeFn, nil
}

// newRouter はミドルウェアとルーティングを設定した gin エンジンを作成します。
func newRouter(cfg *config.Config, zlog *zap.Logger, recorder activity.Recorder) (*gin.Engine, error) {
	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery(), logger.Middleware(zlog))

	// セッションストアの設定
	store, err := auth.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	router.Use(sessions.Sessions(cfg.SessionCookieName, store))

	// CORSミドルウェアの設定（Vite の開発サーバーから叩けるように）
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"X-Requested-With",
		page.HeaderInertia,
		page.HeaderVersion,
		logger.RequestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{
		page.HeaderInertia,
		page.HeaderLocation,
		logger.RequestIDHeader,
	}
	router.Use(cors.New(corsConfig))

	renderer := page.NewRenderer(cfg.AppName, cfg.AssetVersion)
	renderer.Install(router)
	router.Use(renderer.VersionCheck())

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	authManager := auth.NewManager(auth.Options{
		Users:    directory.Default(),
		Renderer: renderer,
		Activity: recorder,
		Throttle: auth.NewThrottle(cfg.LoginMaxAttempts, time.Duration(cfg.LoginLockMinutes)*time.Minute),
		Metrics:  m,
	})
	renderer.Share(authManager.SharedProps)

	setupRoutes(router, cfg, renderer, authManager, m)
	return router, nil
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "stock-manager",
		"version": version,
	})
}

// setupRoutes は認証まわりとページの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, renderer *page.Renderer, authManager *auth.Manager, m *metrics.Metrics) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)
	if m != nil {
		router.GET("/metrics", m.Handler())
	}

	router.GET(auth.LoginPath, authManager.ShowLogin)
	router.POST(auth.LoginPath, authManager.Login)
	// ログアウトは未ログインでも同じ結果になるのでゲートを通さない
	router.POST(auth.LogoutPath, authManager.Logout)

	routes.Register(router, routes.Options{
		Renderer: renderer,
		Gate:     authManager.Gate,
		Props: map[string]routes.PropsFunc{
			routes.HomeComponent: authManager.ActivityProps,
		},
		PublicDir: cfg.PublicDir,
	})
}
