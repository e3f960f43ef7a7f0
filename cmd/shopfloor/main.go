package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-shopfloor/internal/config"
	"github.com/bitfantasy/nimo-shopfloor/internal/middleware"
	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/handler"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/metrics"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/service"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/storage"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-shopfloor service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("backend", cfg.Backend.BaseURL),
	)

	m := metrics.New()

	// ERP 后端客户端
	client, err := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, zapLogger.Named("backend"),
		backend.WithObserver(m.ObserveBackend),
	)
	if err != nil {
		zapLogger.Fatal("Failed to create backend client", zap.Error(err))
	}

	// 对象存储（可选）
	var objects *storage.ObjectStore
	if cfg.MinIO.Enabled() {
		objects, err = storage.NewObjectStore(cfg.MinIO)
		if err != nil {
			zapLogger.Fatal("Failed to create MinIO client", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		if err := objects.EnsureBucket(ctx); err != nil {
			zapLogger.Warn("MinIO bucket check failed, uploads go through the backend", zap.Error(err))
			objects = nil
		} else {
			zapLogger.Info("MinIO attachment storage enabled", zap.String("bucket", objects.Bucket()))
		}
		cancel()
	}

	services := service.NewServices(client, objects, cfg, m, zapLogger)
	handlers := handler.NewHandlers(services, zapLogger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, m)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, m *metrics.Metrics) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// 指标
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	// API v1
	handler.RegisterRoutes(r.Group("/api/v1"), h)
}
