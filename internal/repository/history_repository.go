// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"time"

	"chatbot-go/internal/model"

	"gorm.io/gorm"
)

// HistoryRepository 定义了对话历史记录的持久化操作。
// 历史是只追加的日志：没有更新和删除路径，唯一的写回是
// 维护任务为遗留数据补写时间戳。
type HistoryRepository interface {
	Insert(ctx context.Context, turn *model.ChatTurn) error
	LatestByNormalized(ctx context.Context, sessionID, normalized string) (*model.ChatTurn, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.ChatTurn, error)
	FindMissingTimestamp(ctx context.Context) ([]model.ChatTurn, error)
	SetTimestamp(ctx context.Context, id uint, ts time.Time) error
}

// historyRepository 是 HistoryRepository 接口的 GORM 实现。
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建一个新的 HistoryRepository 实例。
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// Insert 在数据库中追加一条新的对话记录。
func (r *historyRepository) Insert(ctx context.Context, turn *model.ChatTurn) error {
	return r.db.WithContext(ctx).Create(turn).Error
}

// LatestByNormalized 查找该会话中与归一化输入完全一致的最近一条记录。
// 未命中时返回 (nil, nil)。
func (r *historyRepository) LatestByNormalized(ctx context.Context, sessionID, normalized string) (*model.ChatTurn, error) {
	var turn model.ChatTurn
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND normalized_input = ?", sessionID, normalized).
		Order("id DESC").
		First(&turn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

// ListBySession 按时间升序返回一个会话的全部对话记录。
func (r *historyRepository) ListBySession(ctx context.Context, sessionID string) ([]model.ChatTurn, error) {
	var turns []model.ChatTurn
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC, id ASC").
		Find(&turns).Error
	return turns, err
}

// FindMissingTimestamp 返回所有缺失时间戳的遗留记录，按主键升序。
func (r *historyRepository) FindMissingTimestamp(ctx context.Context) ([]model.ChatTurn, error) {
	var turns []model.ChatTurn
	err := r.db.WithContext(ctx).
		Where("timestamp IS NULL").
		Order("id ASC").
		Find(&turns).Error
	return turns, err
}

// SetTimestamp 为一条遗留记录补写时间戳。仅供补写任务使用。
func (r *historyRepository) SetTimestamp(ctx context.Context, id uint, ts time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ChatTurn{}).
		Where("id = ?", id).
		Update("timestamp", ts).Error
}
