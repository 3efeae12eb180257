package service

import (
	"context"
	"time"

	"chatbot-go/internal/model"
	"chatbot-go/internal/repository"
)

// HistoryService 定义了历史记录相关的业务逻辑接口。
type HistoryService interface {
	ListTurns(ctx context.Context, sessionID string) ([]model.ChatTurn, error)
	BackfillTimestamps(ctx context.Context) (int, error)
}

type historyService struct {
	repo repository.HistoryRepository
	now  func() time.Time
}

// NewHistoryService 创建一个新的 HistoryService。
func NewHistoryService(repo repository.HistoryRepository) HistoryService {
	return &historyService{repo: repo, now: time.Now}
}

// NewHistoryServiceWithClock 允许注入时钟，主要用于测试。
func NewHistoryServiceWithClock(repo repository.HistoryRepository, now func() time.Time) HistoryService {
	return &historyService{repo: repo, now: now}
}

// ListTurns 返回一个会话的全部对话记录，按时间升序。
func (s *historyService) ListTurns(ctx context.Context, sessionID string) ([]model.ChatTurn, error) {
	return s.repo.ListBySession(ctx, sessionID)
}

// BackfillTimestamps 为缺失时间戳的遗留记录补写模拟时间戳：
// 按主键顺序从 now-len 分钟起逐条加一分钟，严格递增并结束在当前时刻附近。
// 这是唯一会改写既有行的维护路径。
func (s *historyService) BackfillTimestamps(ctx context.Context) (int, error) {
	rows, err := s.repo.FindMissingTimestamp(ctx)
	if err != nil {
		return 0, err
	}
	base := s.now().Add(-time.Duration(len(rows)) * time.Minute)
	for i, row := range rows {
		ts := base.Add(time.Duration(i+1) * time.Minute)
		if err := s.repo.SetTimestamp(ctx, row.ID, ts); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}
