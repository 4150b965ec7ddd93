// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"context"
	"solar-assistant-go/internal/model"

	"gorm.io/gorm"
)

// ArchiveRepository 接口定义了问答归档的数据操作方法。
type ArchiveRepository interface {
	Create(ctx context.Context, turn *model.ArchivedTurn) error
	ListRecent(ctx context.Context, sessionID string, limit int) ([]model.ArchivedTurn, error)
}

type archiveRepository struct {
	db *gorm.DB
}

// NewArchiveRepository 创建一个新的 ArchiveRepository 实例。
func NewArchiveRepository(db *gorm.DB) ArchiveRepository {
	return &archiveRepository{db: db}
}

// Create 在数据库中插入一条归档记录。
func (r *archiveRepository) Create(ctx context.Context, turn *model.ArchivedTurn) error {
	return r.db.WithContext(ctx).Create(turn).Error
}

// ListRecent 按时间倒序返回归档记录；sessionID 为空时返回所有会话。
func (r *archiveRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]model.ArchivedTurn, error) {
	var turns []model.ArchivedTurn
	query := r.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}
	err := query.Find(&turns).Error
	return turns, err
}
