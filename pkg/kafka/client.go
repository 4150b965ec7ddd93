// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"solar-assistant-go/internal/config"
	"solar-assistant-go/pkg/log"
	"solar-assistant-go/pkg/tasks"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts 是单条消息处理失败后允许的最大重试次数。
const maxAttempts = 3

// TaskProcessor defines the interface for any service that can archive a turn.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Archive(ctx context.Context, task tasks.TurnArchiveTask) error
}

// Producer 将问答归档任务发送到 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// Archive 发送一个问答归档任务到 Kafka，同一会话的消息使用相同的 key 以保持顺序。
func (p *Producer) Archive(ctx context.Context, task tasks.TurnArchiveTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.SessionID),
		Value: taskBytes,
	})
}

// Close 关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// messageReader 是消费循环依赖的 kafka.Reader 子集。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// 重试间隔，测试中可以调小。
var (
	retryBackoff = 500 * time.Millisecond
	fetchBackoff = 2 * time.Second
)

// StartConsumer 启动一个 Kafka 消费者来处理归档任务，ctx 取消时退出。
// rdb 用于跨进程记录失败次数；为 nil 时只在本进程内计数。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, rdb *redis.Client) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,    // 归档消息很小，不等待攒批
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	consume(ctx, r, processor, rdb)
	log.Info("Kafka 消费者已停止")
}

// consume 逐条处理消息。一条消息处理完成（成功、格式错误或重试耗尽）后才提交并读取下一条，
// 保证提交的 offset 不会越过尚未处理完的消息。
func consume(ctx context.Context, r messageReader, processor TaskProcessor, rdb *redis.Client) {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("从 Kafka 读取消息失败，%s 后重试: %v", fetchBackoff, err)
			if !sleep(ctx, fetchBackoff) {
				return
			}
			continue
		}

		if !handleMessage(ctx, processor, rdb, m) {
			// 停机时保留未提交的消息，重启后重新投递
			return
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handleMessage 处理单条消息，失败时原地重试，最多 maxAttempts 次。
// 返回 false 表示 ctx 已取消，消息不应提交。
func handleMessage(ctx context.Context, processor TaskProcessor, rdb *redis.Client, m kafka.Message) bool {
	var task tasks.TurnArchiveTask
	if err := json.Unmarshal(m.Value, &task); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		return true
	}

	for attempt := 1; ; attempt++ {
		err := processor.Archive(ctx, task)
		if err == nil {
			if rdb != nil {
				_ = rdb.Del(ctx, attemptsKey(task)).Err()
			}
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		failures := recordFailure(ctx, rdb, task, attempt)
		log.Warnw("归档任务失败", "sessionID", task.SessionID, "attempt", failures, "error", err)
		if failures >= maxAttempts {
			log.Errorf("归档任务多次失败(>=%d)，提交 offset 终止重试: session=%s", maxAttempts, task.SessionID)
			if rdb != nil {
				_ = rdb.Del(ctx, attemptsKey(task)).Err()
			}
			return true
		}
		if !sleep(ctx, time.Duration(failures)*retryBackoff) {
			return false
		}
	}
}

// recordFailure 使用 Redis 计数失败次数，使重启前后的尝试合并计算。
// Redis 不可用时退回本进程的计数。
func recordFailure(ctx context.Context, rdb *redis.Client, task tasks.TurnArchiveTask, local int) int {
	if rdb == nil {
		return local
	}
	key := attemptsKey(task)
	attempts, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		log.Warnf("记录归档失败次数失败: %v", err)
		return local
	}
	_ = rdb.Expire(ctx, key, 24*time.Hour).Err()
	if int(attempts) < local {
		return local
	}
	return int(attempts)
}

func attemptsKey(task tasks.TurnArchiveTask) string {
	return fmt.Sprintf("kafka:attempts:%s", task.Key())
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
