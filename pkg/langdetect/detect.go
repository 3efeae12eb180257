// Package langdetect 封装输入文本的语言检测。
package langdetect

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Detector 将用户输入映射为 ISO 639-1 语言代码。
// 候选语言集刻意收窄：检测器在短文本上本就不可靠，
// 范围越大误判越多，而系统提示只为少数语言做了本地化。
type Detector struct {
	detector lingua.LanguageDetector
}

// NewDetector 创建语言检测器。
func NewDetector() *Detector {
	languages := []lingua.Language{
		lingua.English,
		lingua.Swedish,
		lingua.German,
		lingua.French,
		lingua.Spanish,
	}
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build(),
	}
}

// Detect 返回检测到的语言代码（如 "en"、"sv"）。检测不出时返回空串。
func (d *Detector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
