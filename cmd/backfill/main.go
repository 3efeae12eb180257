// Package main 是一次性的维护任务：为缺失时间戳的遗留对话记录
// 补写严格递增的模拟时间戳，结束于当前时刻。
package main

import (
	"context"
	"flag"

	"chatbot-go/internal/config"
	"chatbot-go/internal/model"
	"chatbot-go/internal/repository"
	"chatbot-go/internal/service"
	"chatbot-go/pkg/database"
	"chatbot-go/pkg/log"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	config.Init(*configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, "console", "")
	defer log.Sync()

	database.InitSQL(cfg.Database)
	if err := database.DB.AutoMigrate(&model.ChatTurn{}); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	historyRepo := repository.NewHistoryRepository(database.DB)
	historyService := service.NewHistoryService(historyRepo)

	n, err := historyService.BackfillTimestamps(context.Background())
	if err != nil {
		log.Fatal("补写时间戳失败", err)
	}
	log.Infof("已为 %d 条记录补写时间戳", n)
}
