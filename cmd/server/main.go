package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mintyspider/attendance-report/config"
	"github.com/mintyspider/attendance-report/internal/api/handler"
	"github.com/mintyspider/attendance-report/internal/api/middleware"
	"github.com/mintyspider/attendance-report/internal/api/router"
	"github.com/mintyspider/attendance-report/internal/repository"
	"github.com/mintyspider/attendance-report/internal/roster"
	"github.com/mintyspider/attendance-report/internal/service"
	"github.com/mintyspider/attendance-report/pkg/jwt"
	applogger "github.com/mintyspider/attendance-report/pkg/logger"
	"github.com/mintyspider/attendance-report/pkg/redis"
)

func main() {
	// 0. .env（可选）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("ATTEND_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Auth.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("storage", cfg.Storage.Driver),
	)

	// 3. 课程名册（缺失或格式错误为致命错误）
	catalog, err := roster.Load(cfg.Storage.RosterFile)
	if err != nil {
		logger.Fatal("加载课程名册失败", zap.String("path", cfg.Storage.RosterFile), zap.Error(err))
	}
	logger.Info("课程名册已加载", zap.Strings("subjects", catalog.Names()))

	// 4. 考勤数据存储
	repo, closeRepo, err := repository.Open(cfg, logger)
	if err != nil {
		logger.Fatal("初始化考勤数据存储失败", zap.Error(err))
	}
	defer closeRepo()

	// 5. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		rdb     *redis.Client
		cache   service.ReportCache
		limiter middleware.RateLimiter
	)
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，报表缓存与速率限制将不可用", zap.Error(err))
			rdb = nil
		} else {
			cache, limiter = rdb, rdb
		}
	}

	// 6. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 依赖注入: Repository → Service → Handler
	svc := service.NewService(cfg, catalog, repo, cache, logger)
	h := handler.NewHandler(svc, cfg.Server.MaxUploadBytes)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, limiter, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // 大报表渲染耗时较长
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
