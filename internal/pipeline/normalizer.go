// Package pipeline 实现请求归一化与应答解析流程中的纯逻辑部件。
package pipeline

import "strings"

// asciiPunctuation 是固定的 ASCII 标点集合。归一化只剥离这个集合：
// 它是唯一的缓存键来源，扩大字符集会使所有已持久化的键失效，
// 因此不做 Unicode 标点处理。
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalize 将用户输入规约为缓存键：全小写并去除 ASCII 标点。
// 幂等：Normalize(Normalize(x)) == Normalize(x)。
func Normalize(text string) string {
	lowered := strings.ToLower(text)
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(asciiPunctuation, r) {
			return -1
		}
		return r
	}, lowered)
}

// Tokenize 将归一化后的文本按空白切分为词元，用于关键词匹配。
func Tokenize(normalized string) []string {
	return strings.Fields(normalized)
}
