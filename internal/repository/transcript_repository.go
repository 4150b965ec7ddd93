// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"solar-assistant-go/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
)

// TranscriptRepository 定义了会话对话记录的操作接口。
// 对话记录只允许在末尾追加，或整体清空。
type TranscriptRepository interface {
	Append(ctx context.Context, sessionID string, turn model.Turn) error
	List(ctx context.Context, sessionID string) ([]model.Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

type redisTranscriptRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
	maxTurns    int
}

// NewRedisTranscriptRepository 创建一个基于 Redis 列表的 TranscriptRepository。
// maxTurns 为 0 表示不限制条数。
func NewRedisTranscriptRepository(redisClient *redis.Client, ttl time.Duration, maxTurns int) TranscriptRepository {
	return &redisTranscriptRepository{redisClient: redisClient, ttl: ttl, maxTurns: maxTurns}
}

func transcriptKey(sessionID string) string {
	return fmt.Sprintf("session:%s:transcript", sessionID)
}

// Append 将一轮问答追加到 Redis 列表末尾，并刷新过期时间。
func (r *redisTranscriptRepository) Append(ctx context.Context, sessionID string, turn model.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}
	key := transcriptKey(sessionID)
	pipe := r.redisClient.TxPipeline()
	pipe.RPush(ctx, key, data)
	if r.maxTurns > 0 {
		// 只保留最近 maxTurns 轮
		pipe.LTrim(ctx, key, int64(-r.maxTurns), -1)
	}
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// List 按追加顺序返回完整的对话记录。
func (r *redisTranscriptRepository) List(ctx context.Context, sessionID string) ([]model.Turn, error) {
	items, err := r.redisClient.LRange(ctx, transcriptKey(sessionID), 0, -1).Result()
	if err == redis.Nil {
		return []model.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	turns := make([]model.Turn, 0, len(items))
	for _, item := range items {
		var turn model.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Clear 删除会话的全部对话记录。
func (r *redisTranscriptRepository) Clear(ctx context.Context, sessionID string) error {
	if err := r.redisClient.Del(ctx, transcriptKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}
	return nil
}
