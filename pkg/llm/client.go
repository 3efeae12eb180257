// Package llm provides clients for interacting with Large Language Models.
package llm

import (
	"context"

	"chatbot-go/internal/config"
)

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Client 定义生成后端的接口。实现方返回纯文本；
// 当系统提示要求结构化载荷时，上层用 ParseReply 做尽力而为的解析。
type Client interface {
	ChatMessages(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
}

// NewClient 根据配置中的 provider 创建对应的 LLM 客户端。
func NewClient(cfg config.LLMConfig) Client {
	switch cfg.Provider {
	case "local":
		return newLocalClient(cfg)
	default:
		return newOpenAIClient(cfg)
	}
}

// paramsFromConfig 从全局配置注入生成参数（若非零值）。
func paramsFromConfig(cfg config.LLMConfig) *GenerationParams {
	gen := &GenerationParams{}
	if cfg.Generation.Temperature != 0 {
		t := cfg.Generation.Temperature
		gen.Temperature = &t
	}
	if cfg.Generation.TopP != 0 {
		p := cfg.Generation.TopP
		gen.TopP = &p
	}
	if cfg.Generation.MaxTokens != 0 {
		m := cfg.Generation.MaxTokens
		gen.MaxTokens = &m
	}
	return gen
}
