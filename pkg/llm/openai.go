package llm

import (
	"context"
	"fmt"

	"chatbot-go/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// openaiClient 通过托管的聊天补全 API 生成回答。
type openaiClient struct {
	cfg    config.LLMConfig
	client *openai.Client
}

func newOpenAIClient(cfg config.LLMConfig) Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &openaiClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// ChatMessages 以 role-based 消息调用聊天补全接口并返回完整文本。
func (c *openaiClient) ChatMessages(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	if gen == nil {
		gen = paramsFromConfig(c.cfg)
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if gen.Temperature != nil {
		req.Temperature = float32(*gen.Temperature)
	}
	if gen.TopP != nil {
		req.TopP = float32(*gen.TopP)
	}
	if gen.MaxTokens != nil {
		req.MaxTokens = *gen.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat api returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
