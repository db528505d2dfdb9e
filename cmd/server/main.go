package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cafehub/internal/config"
	"cafehub/internal/handler"
	"cafehub/internal/infrastructure/database"
	"cafehub/internal/infrastructure/lock"
	"cafehub/internal/infrastructure/mq"
	"cafehub/internal/job"
	"cafehub/internal/telemetry"
	"cafehub/pkg/idgen"

	"github.com/google/uuid"
)

func main() {
	configPath := "config/config.yaml"
	if p := os.Getenv("CAFEHUB_CONFIG"); p != "" {
		configPath = p
	}

	// 加载配置
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化 ID 生成器
	if err := idgen.Init(1); err != nil {
		log.Fatalf("初始化ID生成器失败: %v", err)
	}

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	pool := database.NewPool(db, cfg.Database.SwapGrace())

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, &cfg.Telemetry)
	if err != nil {
		log.Fatalf("初始化链路追踪失败: %v", err)
	}

	// 启动本地消息投递
	publisher, err := mq.NewPublisher(cfg)
	switch {
	case errors.Is(err, mq.ErrNoPublisher):
		log.Println("[Main] 未配置 Kafka/Redis，事件保留在本地消息表中")
	case err != nil:
		log.Fatalf("初始化消息投递失败: %v", err)
	default:
		outboxSender := job.NewOutboxSender(pool, publisher, &cfg.Outbox)
		if cfg.Redis.Enabled {
			rdb := mq.NewRedisClient(&cfg.Redis)
			defer rdb.Close()
			outboxSender.WithRelayLock(lock.NewOutboxRelayLock(rdb, uuid.NewString(), 10*cfg.Outbox.Interval()))
		}
		go outboxSender.Start(ctx)
	}

	// 配置文件中的数据库连接变化时热切换
	current := cfg.Database
	loader.Watch(func(next *config.Config) {
		if next.Database == current {
			return
		}
		if err := pool.Reconnect(ctx, &next.Database); err != nil {
			log.Printf("[Main] 切换数据库失败，继续使用旧连接: %v", err)
			return
		}
		current = next.Database
	})

	// 设置路由
	router := handler.SetupRouter(pool, cfg)

	// 启动 HTTP 服务
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Printf("服务启动，监听端口: %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 取消上下文，停止后台任务
	cancel()

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("服务关闭异常: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Printf("链路追踪关闭异常: %v", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Printf("消息投递关闭异常: %v", err)
		}
	}
	if err := pool.Close(); err != nil {
		log.Printf("数据库关闭异常: %v", err)
	}

	log.Println("服务已关闭")
}
