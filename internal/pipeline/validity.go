package pipeline

import (
	"regexp"
	"strings"
)

// failureMarkers 是后端输出中表明生成失败的子串（不区分大小写）。
// 含有这些子串的回答仍会返回给用户，但不允许写入历史记录。
var failureMarkers = []string{
	"error",
	"insufficient_quota",
	"exceeded your quota",
	"traceback",
	"exception",
	"deprecated",
}

// IsValid 判断后端输出是否可以持久化。
// 空白文本与包含失败标记的文本一律拒绝。
func IsValid(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	lowered := strings.ToLower(trimmed)
	for _, marker := range failureMarkers {
		if strings.Contains(lowered, marker) {
			return false
		}
	}
	return true
}

// datetimeAnswerPatterns 识别"长得像日期/时间应答"的输出。
// 注意这是针对输出文本的模式集，与 Interceptor 针对输入的关键词组是两套东西：
// 后端偶尔会自己报出当前日期或时间，这类内容一旦入库就会变成过期事实。
var datetimeAnswerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}:\d{2}(:\d{2})?\b`),
	regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday),\s+\w+\s+\d{1,2},\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\btoday'?s date\b`),
	regexp.MustCompile(`(?i)\bthe year is \d{4}\b`),
	regexp.MustCompile(`(?i)\bweek \d{1,2} of \d{4}\b`),
}

// LooksLikeDatetimeAnswer 判断输出文本是否疑似日期/时间类应答。
func LooksLikeDatetimeAnswer(text string) bool {
	for _, p := range datetimeAnswerPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
