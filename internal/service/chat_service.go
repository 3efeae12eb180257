// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatbot-go/internal/config"
	"chatbot-go/internal/model"
	"chatbot-go/internal/pipeline"
	"chatbot-go/internal/repository"
	"chatbot-go/pkg/llm"
	"chatbot-go/pkg/log"
)

// ChatService 定义了应答解析的接口：给定会话与原始输入，产出最终回答。
type ChatService interface {
	Respond(ctx context.Context, sessionID, userInput string) (model.Answer, error)
}

// FactClient 是百科事实查询的抽象，便于在测试中替换。
type FactClient interface {
	Summary(ctx context.Context, query string) (string, error)
	CountryFact(ctx context.Context, country, fact string) (string, error)
}

// LanguageDetector 将输入文本映射为语言代码，检测不出时返回空串。
type LanguageDetector interface {
	Detect(text string) string
}

type chatService struct {
	llmCfg       config.LLMConfig
	factKeywords map[string]struct{}
	repo         repository.HistoryRepository
	cache        repository.AnswerCacheRepository // 可为 nil，此时直接查 SQL
	llmClient    llm.Client
	factClient   FactClient
	interceptor  *pipeline.Interceptor
	detector     LanguageDetector
}

// NewChatService 创建一个新的 ChatService 实例。cache 传 nil 表示不启用 Redis 前置缓存。
func NewChatService(
	llmCfg config.LLMConfig,
	factKeywords []string,
	repo repository.HistoryRepository,
	cache repository.AnswerCacheRepository,
	llmClient llm.Client,
	factClient FactClient,
	interceptor *pipeline.Interceptor,
	detector LanguageDetector,
) ChatService {
	if len(factKeywords) == 0 {
		factKeywords = []string{"capital", "president", "define", "weather", "population", "currency"}
	}
	kwSet := make(map[string]struct{}, len(factKeywords))
	for _, kw := range factKeywords {
		kwSet[strings.ToLower(kw)] = struct{}{}
	}
	return &chatService{
		llmCfg:       llmCfg,
		factKeywords: kwSet,
		repo:         repo,
		cache:        cache,
		llmClient:    llmClient,
		factClient:   factClient,
		interceptor:  interceptor,
		detector:     detector,
	}
}

// Respond 按固定顺序解析一次请求：拦截 → 缓存 → 生成 → 过滤后落库。
// 每个分支都是终态，命中即返回；后端失败会转成道歉文本而不是错误。
func (s *chatService) Respond(ctx context.Context, sessionID, userInput string) (model.Answer, error) {
	normalized := pipeline.Normalize(userInput)

	// 1. 拦截：日期/时间类问题从本地时钟回答，不碰缓存也不碰后端，且永不落库
	if ans, ok := s.interceptor.Detect(normalized); ok {
		return model.Answer{Text: ans, Source: "interceptor"}, nil
	}

	// 2. 缓存：同一会话问过一模一样（归一化后）的问题，原样复述之前的回答。
	// 命中不重复落库：把旧回答在新时间点再插一行，会让 /history
	// 出现从未发生过的对话，还会破坏只追加日志的语义。
	if s.cache != nil {
		if text, hit, err := s.cache.Get(ctx, sessionID, normalized); err != nil {
			log.Warnf("查询 Redis 答案缓存失败: %v", err)
		} else if hit {
			return model.Answer{Text: text, Source: "cache"}, nil
		}
	}
	if turn, err := s.repo.LatestByNormalized(ctx, sessionID, normalized); err != nil {
		log.Error("查询历史记录失败", err)
	} else if turn != nil {
		if s.cache != nil {
			if err := s.cache.Set(ctx, sessionID, normalized, turn.BotResponse); err != nil {
				log.Warnf("回填 Redis 答案缓存失败: %v", err)
			}
		}
		return model.Answer{Text: turn.BotResponse, Language: turn.Language, Source: "cache"}, nil
	}

	// 3. 生成：事实类关键词走百科查询，其余交给生成后端
	langCode := s.detector.Detect(userInput)
	answer, persistable := s.generate(ctx, userInput, normalized, langCode)

	// 回声保护：生成结果只是复读输入时换成固定答复，不落库
	if strings.EqualFold(strings.TrimSpace(answer.Text), strings.TrimSpace(userInput)) {
		answer.Text = "I'm still learning! Can you ask me in a different way?"
		persistable = false
	}

	// 4. 落库：通过有效性过滤且不像日期/时间应答的输出才持久化
	if persistable && s.shouldPersist(answer.Text) {
		now := time.Now()
		turn := &model.ChatTurn{
			SessionID:       sessionID,
			UserInput:       userInput,
			NormalizedInput: normalized,
			BotResponse:     answer.Text,
			Timestamp:       &now,
			Language:        answer.Language,
		}
		if err := s.repo.Insert(ctx, turn); err != nil {
			// 落库失败不影响把回答交给用户
			log.Error("写入历史记录失败", err)
		} else if s.cache != nil {
			if err := s.cache.Set(ctx, sessionID, normalized, answer.Text); err != nil {
				log.Warnf("写入 Redis 答案缓存失败: %v", err)
			}
		}
	}

	return answer, nil
}

// generate 产出一条新回答。第二个返回值表明该回答是否允许进入落库流程。
func (s *chatService) generate(ctx context.Context, userInput, normalized, langCode string) (model.Answer, bool) {
	if s.isFactualQuery(normalized) {
		text, err := s.lookupFact(ctx, normalized)
		if err != nil {
			log.Warnf("百科查询失败: %v", err)
			return model.Answer{
				Text:     "I couldn't find an answer. Try asking differently!",
				Language: langCode,
				Source:   "wiki",
			}, false
		}
		return model.Answer{Text: text, Language: langCode, Source: "wiki"}, true
	}

	messages := []llm.Message{
		{Role: "system", Content: s.systemPrompt(langCode)},
		{Role: "user", Content: userInput},
	}
	raw, err := s.llmClient.ChatMessages(ctx, messages, nil)
	if err != nil {
		log.Error("生成后端调用失败", err)
		// 道歉文本带上失败详情。"error" 字样保证它必然被有效性过滤器拦下
		return model.Answer{
			Text:     fmt.Sprintf("I'm having trouble answering right now (error: %v). Please try again later!", err),
			Language: langCode,
			Source:   "llm",
		}, false
	}

	reply := llm.ParseReply(raw)
	if reply.Language == "" {
		reply.Language = langCode
	}
	return model.Answer{Text: reply.Text, Language: reply.Language, Source: "llm"}, true
}

// shouldPersist 实施落库前的三道检查：有效性过滤、
// 日期/时间应答模式、以及输出本身是否是一个可拦截的问题。
func (s *chatService) shouldPersist(text string) bool {
	if !pipeline.IsValid(text) {
		return false
	}
	if pipeline.LooksLikeDatetimeAnswer(text) {
		return false
	}
	if _, ok := s.interceptor.Detect(pipeline.Normalize(text)); ok {
		return false
	}
	return true
}

// systemPrompt 按检测到的语言选择本地化系统提示；
// 启用结构化模式时追加 language+text 载荷约定。
func (s *chatService) systemPrompt(langCode string) string {
	prompt := s.llmCfg.Prompts[langCode]
	if prompt == "" {
		prompt = s.llmCfg.Prompts["en"]
	}
	if prompt == "" {
		prompt = "You are a friendly conversational assistant. Keep your answers short."
	}
	if s.llmCfg.Structured {
		prompt += ` Reply with a single JSON object of the form {"language": "<ISO 639-1 code of the user's language>", "text": "<your reply>"} and nothing else.`
	}
	return prompt
}

// isFactualQuery 判断输入是否包含事实类关键词。
func (s *chatService) isFactualQuery(normalized string) bool {
	for _, token := range pipeline.Tokenize(normalized) {
		if _, ok := s.factKeywords[token]; ok {
			return true
		}
	}
	return false
}

// lookupFact 执行两步百科查询。"capital of X" 这类国家属性问题
// 走结构化属性查询，其余走搜索加摘要。
func (s *chatService) lookupFact(ctx context.Context, normalized string) (string, error) {
	for _, fact := range []string{"capital", "population", "currency"} {
		if !containsToken(normalized, fact) {
			continue
		}
		if idx := strings.LastIndex(normalized, " of "); idx >= 0 {
			country := strings.TrimSpace(strings.TrimPrefix(normalized[idx+4:], "the "))
			if country != "" {
				return s.factClient.CountryFact(ctx, country, fact)
			}
		}
	}

	query := normalized
	for _, prefix := range []string{"define ", "who is ", "who was ", "what is ", "tell me about "} {
		if strings.HasPrefix(query, prefix) {
			query = strings.TrimPrefix(query, prefix)
			break
		}
	}
	return s.factClient.Summary(ctx, query)
}

func containsToken(normalized, want string) bool {
	for _, token := range pipeline.Tokenize(normalized) {
		if token == want {
			return true
		}
	}
	return false
}
