package service

import (
	"strings"
	"unicode"

	"solar-assistant-go/internal/config"
	"solar-assistant-go/internal/model"
)

// DefaultKeywords 是判定问题属于太阳能领域的关键词。
var DefaultKeywords = []string{
	"solar", "photovoltaic", "pv", "renewable energy", "sun",
	"solar panel", "net metering", "solar cell", "solar inverter",
	"solar energy", "solar power", "solar battery",
}

// DefaultPronouns 是需要结合上文才能判断主题的指代词。
var DefaultPronouns = []string{"it", "this", "that", "they", "them", "these", "those"}

// DefaultLookbackDepth 是指代词最多回溯的轮数。
const DefaultLookbackDepth = 3

// DomainFilter 是一个基于关键词的领域判定器。
type DomainFilter struct {
	keywords      []string
	pronouns      map[string]struct{}
	lookbackDepth int
}

// NewDomainFilter 根据助手配置创建 DomainFilter，空列表回退到默认值。
// LookbackDepth 为 0 表示未设置，使用 DefaultLookbackDepth；负数关闭指代回溯。
func NewDomainFilter(cfg config.AssistantConfig) *DomainFilter {
	keywords := normalize(cfg.Keywords)
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	pronounList := normalize(cfg.Pronouns)
	if len(pronounList) == 0 {
		pronounList = DefaultPronouns
	}
	pronouns := make(map[string]struct{}, len(pronounList))
	for _, p := range pronounList {
		pronouns[p] = struct{}{}
	}
	depth := cfg.LookbackDepth
	switch {
	case depth == 0:
		depth = DefaultLookbackDepth
	case depth < 0:
		depth = 0
	}
	return &DomainFilter{
		keywords:      keywords,
		pronouns:      pronouns,
		lookbackDepth: depth,
	}
}

// IsSolarRelated 判断输入是否属于太阳能领域。
// 命中关键词直接返回 true；否则若包含指代词，则对最近一轮用户问题递归判定，
// 递归使用该轮之前的历史，最多回溯 lookbackDepth 轮。
func (f *DomainFilter) IsSolarRelated(input string, history []model.Turn) bool {
	return f.isRelated(input, history, f.lookbackDepth)
}

func (f *DomainFilter) isRelated(input string, history []model.Turn, depth int) bool {
	lowered := strings.ToLower(input)
	for _, kw := range f.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}

	if depth == 0 || len(history) == 0 || !f.hasPronoun(lowered) {
		return false
	}
	last := len(history) - 1
	return f.isRelated(history[last].Question, history[:last], depth-1)
}

func (f *DomainFilter) hasPronoun(lowered string) bool {
	tokens := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if _, ok := f.pronouns[tok]; ok {
			return true
		}
	}
	return false
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
