package database

import (
	"context"
	"solar-assistant-go/internal/config"
	"solar-assistant-go/pkg/log"
	"time"

	"github.com/go-redis/redis/v8"
)

// RDB 保存对话记录与 Kafka 重试计数共用的 Redis 客户端。
var RDB *redis.Client

// NewRedisClient 创建 Redis 客户端并在 timeout 内完成一次 PING。
func NewRedisClient(cfg config.RedisConfig, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// InitRedis 初始化全局 Redis 客户端，连接失败时退出程序
func InitRedis(cfg config.RedisConfig) {
	client, err := NewRedisClient(cfg, 5*time.Second)
	if err != nil {
		log.Fatal("failed to connect to redis", err)
	}
	RDB = client
	log.Infow("Redis client connected successfully", "addr", cfg.Addr, "db", cfg.DB)
}
