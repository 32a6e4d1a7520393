package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpAdapter "github.com/haha-dream/lanyard-bridge/internal/adapters/in/http"
	"github.com/haha-dream/lanyard-bridge/internal/adapters/in/lanyard"
	"github.com/haha-dream/lanyard-bridge/internal/adapters/out/mq"
	"github.com/haha-dream/lanyard-bridge/internal/adapters/out/onebot"
	redisRepo "github.com/haha-dream/lanyard-bridge/internal/adapters/out/redis"
	"github.com/haha-dream/lanyard-bridge/internal/application"
	"github.com/haha-dream/lanyard-bridge/internal/config"
	outPorts "github.com/haha-dream/lanyard-bridge/internal/ports/out"
	"github.com/haha-dream/lanyard-bridge/pkg/zlog"
)

func main() {
	// 加载配置，缺 user_id 或群号这里直接失败
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	os.Setenv("APP_ENV", env)

	logCfgPath := filepath.Join(".", "configs", fmt.Sprintf("config.%s.yaml", env))
	if _, err := os.Stat(logCfgPath); os.IsNotExist(err) {
		logCfgPath = filepath.Join("..", "configs", fmt.Sprintf("config.%s.yaml", env))
	}

	logCfg, err := zlog.LoadConfig(logCfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载日志配置失败: %v\n", err)
		os.Exit(1)
	}
	logCfg.Service = "lanyard-bridge"
	zlog.MustInitGlobal(*logCfg)
	defer zap.L().Sync()

	logger := zap.L()
	logger.Info("lanyard-bridge starting",
		zap.String("env", env),
		zap.String("user_id", cfg.UserID))

	promRegistry := prometheus.NewRegistry()
	if logCfg.EnableMetric {
		zlog.RegisterMetrics(promRegistry)
	}

	// 初始化 Redis
	redisClient, err := initRedis(cfg)
	if err != nil {
		logger.Fatal("Failed to init redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis 连接成功")

	stateRepo := redisRepo.NewStateRepositoryRedis(redisClient)

	// 群消息通道
	sender, err := onebot.NewGroupSenderOneBot(onebot.Config{
		BaseURL:     cfg.OneBot.BaseURL,
		AccessToken: cfg.OneBot.AccessToken,
		Timeout:     time.Duration(cfg.OneBot.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to init onebot sender", zap.Error(err))
	}

	// 变更事件发布，未配置 broker 时关闭
	var events outPorts.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		events, err = mq.NewKafkaEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Fatal("Failed to init kafka publisher", zap.Error(err))
		}
		defer events.Close()
		logger.Info("Kafka 事件发布已启用", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// 组装同步引擎
	dispatcher := application.NewDispatcher(sender, logger)
	engine := application.NewSyncEngine(cfg.UserID, cfg.EnableActivities, stateRepo, dispatcher, events, logger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	if err := engine.Start(startCtx, cfg.QQGroups); err != nil {
		cancelStart()
		logger.Fatal("Failed to start sync engine", zap.Error(err))
	}
	cancelStart()

	// 启动 WebSocket 会话
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := lanyard.NewSession(cfg.LanyardURL, cfg.UserID, engine, logger)
	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("session exited", zap.Error(err))
		}
	}()

	// 管理接口
	if env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))

	admin := httpAdapter.NewAdminController(engine, func() string {
		return string(session.State())
	})
	admin.RegisterRoutes(router)

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		logger.Info("admin API listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	cancel()
	<-sessionDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
