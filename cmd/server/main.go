// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatbot-go/internal/config"
	"chatbot-go/internal/handler"
	"chatbot-go/internal/middleware"
	"chatbot-go/internal/model"
	"chatbot-go/internal/pipeline"
	"chatbot-go/internal/repository"
	"chatbot-go/internal/service"
	"chatbot-go/pkg/database"
	"chatbot-go/pkg/langdetect"
	"chatbot-go/pkg/llm"
	"chatbot-go/pkg/log"
	"chatbot-go/pkg/wiki"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据存储
	database.InitSQL(cfg.Database)
	if err := database.DB.AutoMigrate(&model.ChatTurn{}); err != nil {
		log.Fatal("数据库迁移失败", err)
	}
	if cfg.Database.Redis.Enabled {
		database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	}

	// 4. 初始化 Repository
	historyRepo := repository.NewHistoryRepository(database.DB)
	var answerCache repository.AnswerCacheRepository
	if cfg.Database.Redis.Enabled {
		answerCache = repository.NewAnswerCacheRepository(database.RDB, time.Duration(cfg.Cache.TTLHours)*time.Hour)
	}

	// 5. 初始化 Service (依赖注入)
	llmClient := llm.NewClient(cfg.LLM)
	wikiClient := wiki.NewClient(cfg.Wiki)
	detector := langdetect.NewDetector()
	interceptor := pipeline.NewInterceptor()
	chatService := service.NewChatService(
		cfg.LLM,
		cfg.Wiki.FactKeywords,
		historyRepo,
		answerCache,
		llmClient,
		wikiClient,
		interceptor,
		detector,
	)
	historyService := service.NewHistoryService(historyRepo)

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 自定义日志中间件 + Recovery 兜底未处理的 panic，再挂会话 Cookie
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.Session(cfg.Session))

	// 7. 注册路由
	chatHandler := handler.NewChatHandler(chatService)
	historyHandler := handler.NewHistoryHandler(historyService)

	r.GET("/", chatHandler.Home)
	r.POST("/chat", chatHandler.Chat)
	r.GET("/history", historyHandler.History)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/chat", chatHandler.ChatAPI)
		apiV1.GET("/history", historyHandler.HistoryAPI)
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
