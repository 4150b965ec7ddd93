package service

import (
	"context"
	"solar-assistant-go/internal/model"
	"solar-assistant-go/internal/repository"
)

// TranscriptService 定义了会话对话记录的业务逻辑接口。
type TranscriptService interface {
	History(ctx context.Context, sessionID string) ([]model.Turn, error)
	Entries(ctx context.Context, sessionID string) ([]model.HistoryEntry, error)
	Clear(ctx context.Context, sessionID string) error
}

type transcriptService struct {
	repo repository.TranscriptRepository
}

// NewTranscriptService 创建一个新的 TranscriptService。
func NewTranscriptService(repo repository.TranscriptRepository) TranscriptService {
	return &transcriptService{repo: repo}
}

// History 获取会话的完整对话记录。
func (s *transcriptService) History(ctx context.Context, sessionID string) ([]model.Turn, error) {
	return s.repo.List(ctx, sessionID)
}

// Entries 返回用于“查看历史”列表的条目。
func (s *transcriptService) Entries(ctx context.Context, sessionID string) ([]model.HistoryEntry, error) {
	turns, err := s.repo.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entries := make([]model.HistoryEntry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, t.Entry())
	}
	return entries, nil
}

// Clear 清空会话的对话记录。
func (s *transcriptService) Clear(ctx context.Context, sessionID string) error {
	return s.repo.Clear(ctx, sessionID)
}
