package pipeline

import (
	"fmt"
	"time"
)

// interceptRule 是一组 (关键词, 应答) 规则。规则按切片顺序求值，首个命中者胜出。
type interceptRule struct {
	name     string
	keywords []string
	answer   func(now time.Time) string
}

// Interceptor 从本地时钟回答固定模式的日期/时间类问题。
// 它必须在任何缓存查询和外部调用之前运行，且其应答永不持久化：
// 这些答案每次都要重新计算，落库会让缓存里留下过期的时间。
//
// 规则优先级固定为：时间 → 日期 → 星期 → 月份 → 年份 → 昨天 → 明天 → 周数。
// 因此像 "today" 这种同时触发日期与星期的词，总是按日期规则回答。
type Interceptor struct {
	now   func() time.Time
	rules []interceptRule
}

// NewInterceptor 创建使用系统时钟的拦截器。
func NewInterceptor() *Interceptor {
	return NewInterceptorWithClock(time.Now)
}

// NewInterceptorWithClock 允许注入时钟，主要用于测试。
func NewInterceptorWithClock(now func() time.Time) *Interceptor {
	return &Interceptor{
		now: now,
		rules: []interceptRule{
			{
				name:     "time",
				keywords: []string{"time", "clock"},
				answer: func(now time.Time) string {
					return fmt.Sprintf("The time is %s.", now.Format("15:04:05"))
				},
			},
			{
				name:     "date",
				keywords: []string{"date", "today"},
				answer: func(now time.Time) string {
					return fmt.Sprintf("Today's date is %s.", now.Format("Monday, January 02, 2006"))
				},
			},
			{
				name:     "weekday",
				keywords: []string{"day", "weekday"},
				answer: func(now time.Time) string {
					return fmt.Sprintf("Today is %s.", now.Format("Monday"))
				},
			},
			{
				name:     "month",
				keywords: []string{"month"},
				answer: func(now time.Time) string {
					return fmt.Sprintf("It is %s.", now.Format("January"))
				},
			},
			{
				name:     "year",
				keywords: []string{"year"},
				answer: func(now time.Time) string {
					return fmt.Sprintf("The year is %s.", now.Format("2006"))
				},
			},
			{
				name:     "yesterday",
				keywords: []string{"yesterday"},
				answer: func(now time.Time) string {
					return fmt.Sprintf("Yesterday was %s.", now.AddDate(0, 0, -1).Format("Monday, January 02, 2006"))
				},
			},
			{
				name:     "tomorrow",
				keywords: []string{"tomorrow"},
				answer: func(now time.Time) string {
					return fmt.Sprintf("Tomorrow is %s.", now.AddDate(0, 0, 1).Format("Monday, January 02, 2006"))
				},
			},
			{
				name:     "week",
				keywords: []string{"week"},
				answer: func(now time.Time) string {
					year, week := now.ISOWeek()
					return fmt.Sprintf("It is week %d of %d.", week, year)
				},
			},
		},
	}
}

// Detect 对归一化后的输入做关键词匹配。命中时返回按当前时钟计算的应答。
func (i *Interceptor) Detect(normalized string) (string, bool) {
	tokens := Tokenize(normalized)
	if len(tokens) == 0 {
		return "", false
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	for _, r := range i.rules {
		for _, kw := range r.keywords {
			if _, ok := set[kw]; ok {
				return r.answer(i.now()), true
			}
		}
	}
	return "", false
}
