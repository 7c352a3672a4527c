package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"icodses/backend/config"
	"icodses/backend/internal/api/handler"
	"icodses/backend/internal/api/router"
	"icodses/backend/internal/repository"
	"icodses/backend/internal/service"
	"icodses/backend/internal/worker"
	"icodses/backend/pkg/database"
	"icodses/backend/pkg/jwt"
	applogger "icodses/backend/pkg/logger"
	"icodses/backend/pkg/mailer"
	"icodses/backend/pkg/metrics"
	"icodses/backend/pkg/redis"
	"icodses/backend/pkg/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("ICODSES_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
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
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("single_reviewer_per_paper", cfg.Review.SinglePerPaper),
	)

	// 3. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.Driver, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 可选依赖：Redis 与 S3 归档，不可用时降级运行
	deps := service.Deps{
		JWT:    jwt.NewManager(&cfg.Auth),
		Mailer: mailer.New(&cfg.Mail, logger),
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，Token 黑名单与限流将不可用", zap.Error(err))
			rdb = nil
		} else {
			deps.Tokens = rdb
		}
	}

	if cfg.Storage.Enabled() {
		archive, err := storage.NewS3Archive(context.Background(), &cfg.Storage)
		if err != nil {
			logger.Warn("S3 初始化失败，摘要仅保存在数据库", zap.Error(err))
		} else {
			deps.Archive = archive
		}
	}

	metrics.Register()

	// 5. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, deps, logger)
	h := handler.NewHandler(svc)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := svc.Auth.EnsureAdmin(seedCtx, cfg.Seed); err != nil {
		logger.Error("初始化管理员失败", zap.Error(err))
	}
	seedCancel()

	// 6. 发件箱投递任务
	outbox, err := worker.NewOutboxWorker(cfg.Outbox.Schedule, cfg.Outbox.RunTimeout, svc.Notification, logger)
	if err != nil {
		logger.Fatal("发件箱任务初始化失败", zap.Error(err))
	}
	outbox.Start()

	// 7. 启动 HTTP 服务器（优雅关闭）
	engine := router.Setup(cfg, h, deps.JWT, rdb, repo, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 8. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	if err := outbox.Stop(ctx); err != nil {
		logger.Warn("发件箱任务未在超时前结束", zap.Error(err))
	}

	sqlDB.Close()
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
