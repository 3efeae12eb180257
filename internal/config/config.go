// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Session  SessionConfig  `mapstructure:"session"`
	Cache    CacheConfig    `mapstructure:"cache"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Wiki     WikiConfig     `mapstructure:"wiki"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据存储的配置。
type DatabaseConfig struct {
	Driver string       `mapstructure:"driver"` // "sqlite" 或 "mysql"
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// SQLiteConfig 存储 SQLite 数据库文件的配置。
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。Redis 仅作为可选的答案缓存前置层。
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// SessionConfig 存储浏览器会话 Cookie 相关的配置。
type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	TTLDays    int    `mapstructure:"ttl_days"`
}

// CacheConfig 控制 Redis 答案缓存的行为。
type CacheConfig struct {
	TTLHours int `mapstructure:"ttl_hours"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	Provider   string              `mapstructure:"provider"` // "openai" 或 "local"
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Structured bool                `mapstructure:"structured"` // 是否要求返回 language+text 结构化载荷
	Generation LLMGenerationConfig `mapstructure:"generation"`
	Prompts    map[string]string   `mapstructure:"prompts"` // 语言代码 -> 系统提示
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// WikiConfig 存储百科事实查询相关的配置。
type WikiConfig struct {
	Language       string   `mapstructure:"language"`
	BaseURL        string   `mapstructure:"base_url"`         // 留空则使用 https://<language>.wikipedia.org
	CountryBaseURL string   `mapstructure:"country_base_url"` // 留空则使用 https://restcountries.com
	UserAgent      string   `mapstructure:"user_agent"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	FactKeywords   []string `mapstructure:"fact_keywords"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
