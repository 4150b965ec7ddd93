// Package llm provides a client for interacting with the Gemini generation API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"solar-assistant-go/internal/config"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"
)

// Message roles understood by the client.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoContent is returned when a request carries no user/assistant messages.
var ErrNoContent = errors.New("no messages to send")

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("gemini returned an empty response")

// MessageWriter defines an interface for writing WebSocket messages.
// This allows both a standard websocket.Conn and our interceptor to be used.
type MessageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Client defines the interface for an LLM client.
type Client interface {
	// Generate 以 role-based 消息调用生成接口，返回完整文本。
	Generate(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
	// StreamGenerate 以流式方式调用生成接口，并将每个文本分块写入 writer。
	StreamGenerate(ctx context.Context, messages []Message, gen *GenerationParams, writer MessageWriter) error
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float32
	TopP        *float32
}

type geminiClient struct {
	cfg    config.GeminiConfig
	client *genai.Client
}

// NewClient creates a Gemini client backed by the GenAI SDK.
func NewClient(ctx context.Context, cfg config.GeminiConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, config.ErrMissingAPIKey
	}
	if cfg.Model == "" {
		return nil, errors.New("gemini model name cannot be empty")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &geminiClient{cfg: cfg, client: c}, nil
}

func (c *geminiClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.TimeoutSeconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
}

func (c *geminiClient) Generate(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	contents, genConfig, err := buildRequest(messages, c.params(gen))
	if err != nil {
		return "", err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *geminiClient) StreamGenerate(ctx context.Context, messages []Message, gen *GenerationParams, writer MessageWriter) error {
	contents, genConfig, err := buildRequest(messages, c.params(gen))
	if err != nil {
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	wrote := false
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.cfg.Model, contents, genConfig) {
		if err != nil {
			return fmt.Errorf("failed to read from stream: %w", err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		if err := writer.WriteMessage(websocket.TextMessage, []byte(chunk)); err != nil {
			return fmt.Errorf("failed to write message to websocket: %w", err)
		}
		wrote = true
	}
	if !wrote {
		return ErrEmptyResponse
	}
	return nil
}

// params 传参优先，否则从配置注入非零值。
func (c *geminiClient) params(gen *GenerationParams) *GenerationParams {
	if gen != nil {
		return gen
	}
	return ParamsFromConfig(c.cfg.Generation)
}

// ParamsFromConfig 将配置中的非零生成参数转换为 GenerationParams，全部为零时返回 nil。
func ParamsFromConfig(cfg config.GeminiGenerationConfig) *GenerationParams {
	var gp GenerationParams
	if cfg.Temperature != 0 {
		gp.Temperature = genai.Ptr(cfg.Temperature)
	}
	if cfg.TopP != 0 {
		gp.TopP = genai.Ptr(cfg.TopP)
	}
	if gp.Temperature == nil && gp.TopP == nil {
		return nil
	}
	return &gp
}

// buildRequest 将通用消息转换为 Gemini 的 Content 列表。
// system 消息合并为 SystemInstruction，assistant 映射为 model 角色。
func buildRequest(messages []Message, gen *GenerationParams) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	var (
		contents []*genai.Content
		system   []string
	)
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  getRole(msg.Role),
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	if len(contents) == 0 {
		return nil, nil, ErrNoContent
	}

	var genConfig *genai.GenerateContentConfig
	if len(system) > 0 || gen != nil {
		genConfig = &genai.GenerateContentConfig{}
	}
	if len(system) > 0 {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}
	if gen != nil {
		genConfig.Temperature = gen.Temperature
		genConfig.TopP = gen.TopP
	}
	return contents, genConfig, nil
}

func getRole(role string) string {
	switch role {
	case RoleAssistant:
		return genai.RoleModel
	default:
		return genai.RoleUser
	}
}
