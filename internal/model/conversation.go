// Package model 包含了应用的数据模型定义。
package model

import (
	"time"
	"unicode/utf8"
)

// previewRunes 是历史列表中问题摘要的最大字符数。
const previewRunes = 50

// Turn 代表一次问答交互，按追加顺序构成会话的对话记录。
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	InDomain  bool      `json:"inDomain"`
	Failed    bool      `json:"failed"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryEntry 是“查看历史”列表中的一行。
type HistoryEntry struct {
	Preview  string `json:"preview"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Entry 将 Turn 转换为历史列表条目。
func (t Turn) Entry() HistoryEntry {
	return HistoryEntry{
		Preview:  Preview(t.Question),
		Question: t.Question,
		Answer:   t.Answer,
	}
}

// Preview 截取问题的前 50 个字符并附加省略号。
func Preview(question string) string {
	if utf8.RuneCountInString(question) <= previewRunes {
		return question + "..."
	}
	runes := []rune(question)
	return string(runes[:previewRunes]) + "..."
}
