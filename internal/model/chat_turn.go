// Package model 包含了应用的数据模型定义。
package model

import "time"

// ChatTurn 代表一次单独的问答交互。一条记录写入后不再更新或删除，
// 唯一的例外是维护脚本为缺失时间戳的历史数据补写时间戳。
type ChatTurn struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	SessionID       string     `gorm:"index;size:64;not null" json:"sessionId"`
	UserInput       string     `gorm:"type:text;not null" json:"userInput"`
	NormalizedInput string     `gorm:"index;type:text;not null" json:"-"` // 仅作缓存键，不对用户展示
	BotResponse     string     `gorm:"type:text;not null" json:"botResponse"`
	Timestamp       *time.Time `gorm:"index" json:"timestamp"`
	Language        string     `gorm:"size:8" json:"language,omitempty"` // 检测到的语言代码，早期数据为空
}

func (ChatTurn) TableName() string {
	return "chat_turns"
}

// Answer 是应答流程返回给处理器层的结果。
type Answer struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Source   string `json:"source"` // "interceptor" / "cache" / "wiki" / "llm"
}
