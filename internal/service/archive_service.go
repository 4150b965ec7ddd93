package service

import (
	"context"
	"errors"
	"solar-assistant-go/internal/model"
	"solar-assistant-go/internal/repository"
)

// ErrArchiveDisabled 表示未配置归档数据库。
var ErrArchiveDisabled = errors.New("archive is not configured")

const (
	defaultArchiveLimit = 50
	maxArchiveLimit     = 200
)

// ArchiveService 定义了归档查询的接口。
type ArchiveService interface {
	ListRecent(ctx context.Context, sessionID string, limit int) ([]model.ArchivedTurn, error)
}

type archiveService struct {
	repo repository.ArchiveRepository
}

// NewArchiveService 创建一个新的 ArchiveService；repo 为 nil 表示归档未启用。
func NewArchiveService(repo repository.ArchiveRepository) ArchiveService {
	return &archiveService{repo: repo}
}

// ListRecent 返回最近的归档记录，limit 被限制在 [1, 200]，非正数使用默认值 50。
func (s *archiveService) ListRecent(ctx context.Context, sessionID string, limit int) ([]model.ArchivedTurn, error) {
	if s.repo == nil {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 {
		limit = defaultArchiveLimit
	}
	if limit > maxArchiveLimit {
		limit = maxArchiveLimit
	}
	return s.repo.ListRecent(ctx, sessionID, limit)
}
