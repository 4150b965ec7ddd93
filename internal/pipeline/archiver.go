// Package pipeline 定义了问答归档的核心流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"solar-assistant-go/internal/model"
	"solar-assistant-go/internal/repository"
	"solar-assistant-go/pkg/log"
	"solar-assistant-go/pkg/tasks"
	"time"
)

// ErrIncompleteTask 表示任务缺少会话或问题，无法归档。
var ErrIncompleteTask = errors.New("archive task is missing session id or question")

// Archiver 将问答归档任务写入数据库。
type Archiver struct {
	archiveRepo repository.ArchiveRepository
}

// NewArchiver 创建一个新的 Archiver 实例。
func NewArchiver(archiveRepo repository.ArchiveRepository) *Archiver {
	return &Archiver{archiveRepo: archiveRepo}
}

// Archive 是归档的主函数，既被 Kafka 消费者调用，也可由聊天服务直接调用。
func (a *Archiver) Archive(ctx context.Context, task tasks.TurnArchiveTask) error {
	if task.SessionID == "" || task.Question == "" {
		return ErrIncompleteTask
	}
	createdAt := task.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	record := &model.ArchivedTurn{
		SessionID: task.SessionID,
		Question:  task.Question,
		Answer:    task.Answer,
		InDomain:  task.InDomain,
		Failed:    task.Failed,
		CreatedAt: model.LocalTime(createdAt),
	}
	if err := a.archiveRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("写入归档记录失败: %w", err)
	}
	log.Infow("[Archiver] 问答已归档", "sessionID", task.SessionID, "id", record.ID, "inDomain", task.InDomain)
	return nil
}
