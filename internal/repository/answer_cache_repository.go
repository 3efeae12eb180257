package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// AnswerCacheRepository 是答案缓存的可选 Redis 前置层。
// SQL 历史表始终是事实来源；这里只是把"同一会话问过同样的问题"
// 的热路径查询兜在内存里。未配置 Redis 时整层缺省不存在。
type AnswerCacheRepository interface {
	Get(ctx context.Context, sessionID, normalized string) (string, bool, error)
	Set(ctx context.Context, sessionID, normalized, response string) error
}

type redisAnswerCacheRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewAnswerCacheRepository 创建一个新的 AnswerCacheRepository 实例。
func NewAnswerCacheRepository(redisClient *redis.Client, ttl time.Duration) AnswerCacheRepository {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &redisAnswerCacheRepository{redisClient: redisClient, ttl: ttl}
}

func answerKey(sessionID, normalized string) string {
	return fmt.Sprintf("answer:%s:%s", sessionID, normalized)
}

// Get 查询缓存的应答文本。未命中时返回 (_, false, nil)。
func (r *redisAnswerCacheRepository) Get(ctx context.Context, sessionID, normalized string) (string, bool, error) {
	val, err := r.redisClient.Get(ctx, answerKey(sessionID, normalized)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached answer: %w", err)
	}
	return val, true, nil
}

// Set 写入缓存的应答文本，带 TTL。
func (r *redisAnswerCacheRepository) Set(ctx context.Context, sessionID, normalized, response string) error {
	err := r.redisClient.Set(ctx, answerKey(sessionID, normalized), response, r.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set cached answer: %w", err)
	}
	return nil
}
