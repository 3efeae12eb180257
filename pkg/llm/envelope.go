package llm

import (
	"encoding/json"
	"strings"
)

// Reply 是生成后端的最终结果：应答文本加上可选的语言代码。
type Reply struct {
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
}

// ParseReply 尽力解析结构化的 language+text 载荷。
// 模型并不总是守约：任何解析失败都退化为把原始文本当作纯文本应答，
// 语言留空，绝不因此让请求失败。
func ParseReply(raw string) Reply {
	trimmed := strings.TrimSpace(raw)
	candidate := stripCodeFence(trimmed)

	var payload struct {
		Language string `json:"language"`
		Text     string `json:"text"`
	}
	if strings.HasPrefix(candidate, "{") {
		if err := json.Unmarshal([]byte(candidate), &payload); err == nil && strings.TrimSpace(payload.Text) != "" {
			return Reply{
				Language: strings.ToLower(strings.TrimSpace(payload.Language)),
				Text:     strings.TrimSpace(payload.Text),
			}
		}
	}
	return Reply{Text: trimmed}
}

// stripCodeFence 去掉模型习惯性包裹的 ```json ... ``` 围栏。
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
