// Package main 是应用程序的入口点。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	"yeti-ai-go/internal/config"
	"yeti-ai-go/internal/handler"
	"yeti-ai-go/internal/middleware"
	"yeti-ai-go/internal/pipeline"
	"yeti-ai-go/internal/planner"
	"yeti-ai-go/internal/repository"
	"yeti-ai-go/internal/service"
	"yeti-ai-go/pkg/browser"
	"yeti-ai-go/pkg/database"
	"yeti-ai-go/pkg/es"
	"yeti-ai-go/pkg/kafka"
	"yeti-ai-go/pkg/llm"
	"yeti-ai-go/pkg/log"
	"yeti-ai-go/pkg/notify"
	"yeti-ai-go/pkg/search"
	"yeti-ai-go/pkg/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 初始化配置
	cfg := config.MustLoad(*configPath)

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// 3. 初始化 Redis 与可选的归档基础设施，均在不可用时降级
	var rdb *redis.Client
	var memoryRepo repository.MemoryRepository
	var taskRepo repository.BrowseTaskRepository
	if client, err := database.NewRedis(cfg.Redis.URL); err != nil {
		log.Errorf("Redis 初始化失败，记忆功能不可用: %v", err)
	} else {
		rdb = client
		defer rdb.Close()
		memoryRepo = repository.NewMemoryRepository(rdb, cfg.Redis.KeyPrefix, cfg.Redis.Retention())
		taskRepo = repository.NewBrowseTaskRepository(rdb)
	}

	var screenshots storage.ScreenshotStore
	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinIO(rootCtx, cfg.MinIO)
		if err != nil {
			log.Errorf("MinIO 初始化失败，截图归档不可用: %v", err)
		} else {
			screenshots = store
		}
	}

	var pageIndex es.PageIndex
	if cfg.Elasticsearch.Addresses != "" {
		idx, err := es.NewPageIndex(rootCtx, cfg.Elasticsearch)
		if err != nil {
			log.Errorf("es 初始化失败，页面检索不可用: %v", err)
		} else {
			pageIndex = idx
		}
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(cfg.Kafka)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Warnf("关闭 Kafka 生产者失败: %v", err)
			}
		}()
	}

	// 4. 初始化 Service (依赖注入)
	router := planner.NewRouter(cfg.LLM.Models)
	var turnPublisher notify.TurnPublisher
	var taskProducer service.TaskProducer
	if producer != nil {
		turnPublisher = producer
		taskProducer = producer
	}
	notifier := notify.NewNotifier(
		time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second,
		notify.NewWebhookSink(cfg.Webhook),
		notify.NewKafkaSink(turnPublisher),
	)
	memoryService := service.NewMemoryService(memoryRepo)
	chatService := service.NewChatService(
		llm.NewClient(cfg.LLM),
		search.NewClient(cfg.Search),
		memoryService,
		notifier,
		router,
		cfg.LLM,
		cfg.Identity,
	)
	browseService := service.NewBrowseService(browser.NewLauncher(cfg.Browser), screenshots, cfg.Browser)
	archiveService := service.NewArchiveService(taskProducer, taskRepo, pageIndex)

	// 5. 启动后台 Kafka 消费者
	var consumerWG sync.WaitGroup
	if cfg.Kafka.Enabled() && taskRepo != nil {
		processor := pipeline.NewProcessor(browseService, screenshots, pageIndex, taskRepo)
		consumerWG.Add(1)
		go func() {
			defer consumerWG.Done()
			kafka.StartConsumer(rootCtx, cfg.Kafka, processor, taskRepo)
		}()
	}

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.Server.AllowedOrigins
	corsCfg.AllowCredentials = true
	r.Use(cors.New(corsCfg), middleware.Metrics(), middleware.RequestLogger(), gin.Recovery())

	// 7. 注册路由
	var pinger handler.Pinger
	if rdb != nil {
		pinger = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	systemHandler := handler.NewSystemHandler(router, cfg.Identity, pinger)
	chatHandler := handler.NewChatHandler(chatService)
	memoryHandler := handler.NewMemoryHandler(memoryService)
	agentHandler := handler.NewAgentHandler(browseService, archiveService)

	r.GET("/", systemHandler.Root)
	r.GET("/models", systemHandler.Models)
	r.GET("/healthz", systemHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/chat", chatHandler.Chat)
	r.GET("/chat/ws", chatHandler.Handle)

	memory := r.Group("/memory")
	{
		memory.GET("/:sessionId", memoryHandler.Get)
		memory.DELETE("/:sessionId", memoryHandler.Clear)
	}

	agent := r.Group("/agent")
	{
		agent.GET("/status/:sessionId", agentHandler.Status)
		agent.POST("/browse", agentHandler.Browse)
		agent.POST("/browse/tasks", agentHandler.EnqueueTask)
		agent.GET("/browse/tasks/:taskId", agentHandler.TaskStatus)
		agent.GET("/pages/search", agentHandler.SearchPages)
	}

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

	// 停止 Kafka 消费者，并等待后台的记忆写入与通知结束
	cancelRoot()
	consumerWG.Wait()
	chatService.Wait()
	notifier.Wait()
	log.Info("服务已优雅关闭")
}
