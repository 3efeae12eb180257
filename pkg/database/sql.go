// Package database 管理底层数据存储的连接生命周期。
package database

import (
	"time"

	"chatbot-go/internal/config"
	"chatbot-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitSQL 根据配置初始化关系型数据库连接。
// 默认使用单文件嵌入式 SQLite；部署到多实例环境时可切换为 MySQL DSN。
func InitSQL(cfg config.DatabaseConfig) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.MySQL.DSN)
	default:
		path := cfg.SQLite.Path
		if path == "" {
			path = "chatbot.db"
		}
		dialector = sqlite.Open(path)
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	if cfg.Driver == "mysql" {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	} else {
		// SQLite 是单写者存储，限制连接数交由其自身的文件锁处理并发
		sqlDB.SetMaxOpenConns(1)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Infof("database connected successfully (driver=%s)", cfg.Driver)
}
