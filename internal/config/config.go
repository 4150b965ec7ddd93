// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// ErrMissingAPIKey 表示未配置 Gemini 凭证。
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// 指令注入方式
const (
	InstructionModeInline = "inline"
	InstructionModeSystem = "system"
)

// 对话记录存储后端
const (
	TranscriptBackendMemory = "memory"
	TranscriptBackendRedis  = "redis"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	Session    SessionConfig    `mapstructure:"session"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// GeminiConfig 存储 Gemini 生成接口相关的配置。
type GeminiConfig struct {
	APIKey          string                 `mapstructure:"api_key"`
	Model           string                 `mapstructure:"model"`
	TimeoutSeconds  int                    `mapstructure:"timeout_seconds"`
	InstructionMode string                 `mapstructure:"instruction_mode"`
	Generation      GeminiGenerationConfig `mapstructure:"generation"`
}

// GeminiGenerationConfig 配置生成相关参数（可选，零值表示使用模型默认值）。
type GeminiGenerationConfig struct {
	Temperature float32 `mapstructure:"temperature"`
	TopP        float32 `mapstructure:"top_p"`
}

// AssistantConfig 描述助手的领域限制与固定文案。
type AssistantConfig struct {
	Title         string   `mapstructure:"title"`
	Placeholder   string   `mapstructure:"placeholder"`
	Instructions  string   `mapstructure:"instructions"`
	RefusalText   string   `mapstructure:"refusal_text"`
	ErrorPrefix   string   `mapstructure:"error_prefix"`
	Keywords      []string `mapstructure:"keywords"`
	Pronouns      []string `mapstructure:"pronouns"`
	LookbackDepth int      `mapstructure:"lookback_depth"`
}

// SessionConfig 存储浏览器会话 cookie 的配置。
type SessionConfig struct {
	Secret     string `mapstructure:"secret"`
	CookieName string `mapstructure:"cookie_name"`
	TTLHours   int    `mapstructure:"ttl_hours"`
}

// TranscriptConfig 存储对话记录的存储配置。
type TranscriptConfig struct {
	Backend  string `mapstructure:"backend"`
	MaxTurns int    `mapstructure:"max_turns"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。DSN 为空时不启用归档。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时不启用。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// AdminConfig 存储管理接口的配置。
type AdminConfig struct {
	KeyHash string `mapstructure:"key_hash"`
}

// Enabled 表示是否配置了 Kafka。
func (k KafkaConfig) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

// Enabled 表示是否配置了 MySQL 归档库。
func (m MySQLConfig) Enabled() bool {
	return strings.TrimSpace(m.DSN) != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout_seconds", 60)
	v.SetDefault("gemini.instruction_mode", InstructionModeInline)
	v.SetDefault("assistant.title", "☀️ Solar Industry AI Assistant")
	v.SetDefault("assistant.placeholder", "Ask about solar technology...")
	v.SetDefault("assistant.instructions", DefaultInstructions)
	v.SetDefault("assistant.refusal_text", "⚠️ Sorry, I can only answer questions related to solar energy.")
	v.SetDefault("assistant.error_prefix", "⚠️ Google Gemini API Error")
	v.SetDefault("assistant.lookback_depth", 3)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookie_name", "solar_session")
	v.SetDefault("session.ttl_hours", 24)
	v.SetDefault("transcript.backend", TranscriptBackendMemory)
	v.SetDefault("transcript.max_turns", 0)
	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "solar-turns")
	v.SetDefault("kafka.group_id", "solar-assistant-archiver")
	v.SetDefault("admin.key_hash", "")
}

// DefaultInstructions 是限定助手只回答太阳能问题的系统提示。
const DefaultInstructions = `You are a Solar Industry Expert AI Assistant.
Provide accurate and professional information about:
- Solar Panel Technology
- Installation Processes
- Maintenance Requirements
- Cost & ROI Analysis
- Industry Regulations
- Market Trends

Only answer questions related to solar energy. If a question is not related to solar, politely refuse to answer.`

// Load 从指定路径读取 YAML 文件并叠加环境变量，返回解析后的配置。
// 配置文件不存在时只使用默认值与环境变量。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 凭证沿用惯用的环境变量名
	if err := v.BindEnv("gemini.api_key", "GEMINI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("绑定环境变量失败: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 初始化配置加载，并将结果写入 Conf 变量。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}

// Validate 检查启动所需的配置项。
func (c Config) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return ErrMissingAPIKey
	}
	switch c.Gemini.InstructionMode {
	case InstructionModeInline, InstructionModeSystem:
	default:
		return fmt.Errorf("unsupported gemini.instruction_mode %q", c.Gemini.InstructionMode)
	}
	switch c.Transcript.Backend {
	case TranscriptBackendMemory, TranscriptBackendRedis:
	default:
		return fmt.Errorf("unsupported transcript.backend %q", c.Transcript.Backend)
	}
	if c.Transcript.MaxTurns < 0 {
		return fmt.Errorf("transcript.max_turns cannot be negative, got %d", c.Transcript.MaxTurns)
	}
	if c.Session.TTLHours <= 0 {
		return fmt.Errorf("session.ttl_hours must be positive, got %d", c.Session.TTLHours)
	}
	return nil
}
