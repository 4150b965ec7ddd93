// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"solar-assistant-go/internal/config"
	"solar-assistant-go/internal/handler"
	"solar-assistant-go/internal/pipeline"
	"solar-assistant-go/internal/repository"
	"solar-assistant-go/internal/service"
	"solar-assistant-go/pkg/database"
	"solar-assistant-go/pkg/kafka"
	"solar-assistant-go/pkg/llm"
	"solar-assistant-go/pkg/log"
	"solar-assistant-go/pkg/token"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// 0. 加载 .env（不存在时忽略）
	_ = godotenv.Load()

	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			log.Fatalf("⚠️ ERROR: GEMINI_API_KEY is not set")
		}
		log.Fatal("配置校验失败", err)
	}

	// 3. 按需初始化数据库和 Redis
	if cfg.Transcript.Backend == config.TranscriptBackendRedis || cfg.Kafka.Enabled() {
		database.InitRedis(cfg.Database.Redis)
	}
	if cfg.Database.MySQL.Enabled() {
		database.InitMySQL(cfg.Database.MySQL.DSN)
	}

	sessions := token.NewSessionManager(cfg.Session.Secret, cfg.Session.TTLHours)
	if sessions.Ephemeral() {
		log.Warn("未配置 session.secret，使用随机密钥，重启后会话将失效")
	}

	// 4. 初始化 Repository
	var transcriptRepo repository.TranscriptRepository
	if cfg.Transcript.Backend == config.TranscriptBackendRedis {
		transcriptRepo = repository.NewRedisTranscriptRepository(database.RDB, sessions.TTL(), cfg.Transcript.MaxTurns)
	} else {
		transcriptRepo = repository.NewMemoryTranscriptRepository(cfg.Transcript.MaxTurns)
	}
	var archiveRepo repository.ArchiveRepository
	if cfg.Database.MySQL.Enabled() {
		archiveRepo = repository.NewArchiveRepository(database.DB)
	}

	// 5. 初始化归档管道：Kafka 优先，其次直接写库，都未配置时不归档
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	var archiver service.TurnArchiver
	var producer *kafka.Producer
	switch {
	case cfg.Kafka.Enabled() && archiveRepo != nil:
		producer = kafka.NewProducer(cfg.Kafka)
		archiver = producer
		go kafka.StartConsumer(consumerCtx, cfg.Kafka, pipeline.NewArchiver(archiveRepo), database.RDB)
	case cfg.Kafka.Enabled():
		// 只发送，由其他实例消费写库
		producer = kafka.NewProducer(cfg.Kafka)
		archiver = producer
	case archiveRepo != nil:
		archiver = pipeline.NewArchiver(archiveRepo)
	default:
		log.Info("未配置 Kafka 与 MySQL，问答不归档")
	}

	// 6. 初始化 Service (依赖注入)
	llmClient, err := llm.NewClient(context.Background(), cfg.Gemini)
	if err != nil {
		log.Fatal("Gemini 客户端初始化失败", err)
	}
	services := handler.Services{
		Chat: service.NewChatService(
			service.NewDomainFilter(cfg.Assistant),
			llmClient,
			transcriptRepo,
			archiver,
			cfg.Assistant,
			cfg.Gemini,
		),
		Transcript: service.NewTranscriptService(transcriptRepo),
		Archive:    service.NewArchiveService(archiveRepo),
	}

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(cfg, services, sessions)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	stopConsumer()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	log.Info("服务已优雅关闭")
}
