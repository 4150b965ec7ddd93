// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"solar-assistant-go/internal/config"
	"solar-assistant-go/internal/model"
	"solar-assistant-go/internal/repository"
	"solar-assistant-go/pkg/llm"
	"solar-assistant-go/pkg/log"
	"solar-assistant-go/pkg/tasks"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ErrEmptyQuestion 表示提交的问题为空。
var ErrEmptyQuestion = errors.New("question is empty")

// TurnArchiver 接收每一轮完成的问答，可由 Kafka 生产者或直接写库的 Archiver 实现。
type TurnArchiver interface {
	Archive(ctx context.Context, task tasks.TurnArchiveTask) error
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	// Ask 处理一次提交并返回追加到对话记录中的新一轮问答。
	Ask(ctx context.Context, sessionID, question string) (*model.Turn, error)
	// StreamAnswer 与 Ask 流程相同，但将回答以 {"chunk": "..."} 分块写入 writer。
	StreamAnswer(ctx context.Context, sessionID, question string, writer llm.MessageWriter) (*model.Turn, error)
}

type chatService struct {
	filter         *DomainFilter
	llmClient      llm.Client
	transcriptRepo repository.TranscriptRepository
	archiver       TurnArchiver
	assistant      config.AssistantConfig
	gemini         config.GeminiConfig
}

// NewChatService 创建一个新的 ChatService 实例。archiver 可以为 nil。
func NewChatService(
	filter *DomainFilter,
	llmClient llm.Client,
	transcriptRepo repository.TranscriptRepository,
	archiver TurnArchiver,
	assistant config.AssistantConfig,
	gemini config.GeminiConfig,
) ChatService {
	return &chatService{
		filter:         filter,
		llmClient:      llmClient,
		transcriptRepo: transcriptRepo,
		archiver:       archiver,
		assistant:      assistant,
		gemini:         gemini,
	}
}

// Ask 判定领域、调用 Gemini（仅限领域内问题）并追加对话记录。
func (s *chatService) Ask(ctx context.Context, sessionID, question string) (*model.Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	history, err := s.transcriptRepo.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	turn := model.Turn{Question: question, InDomain: s.filter.IsSolarRelated(question, history)}
	if !turn.InDomain {
		turn.Answer = s.assistant.RefusalText
	} else {
		answer, err := s.llmClient.Generate(ctx, s.composeMessages(history, question), llm.ParamsFromConfig(s.gemini.Generation))
		if err != nil {
			log.Errorw("Gemini 调用失败", "sessionID", sessionID, "error", err)
			turn.Answer = s.formatError(err)
			turn.Failed = true
		} else {
			turn.Answer = answer
		}
	}

	if err := s.record(ctx, sessionID, &turn); err != nil {
		return nil, err
	}
	return &turn, nil
}

// StreamAnswer 协调领域判定与 Gemini 流式生成，并在结束后保存对话记录。
func (s *chatService) StreamAnswer(ctx context.Context, sessionID, question string, writer llm.MessageWriter) (*model.Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	history, err := s.transcriptRepo.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	// 拦截 writer 以捕获完整答案，并包装为 JSON 分块
	answerBuilder := &strings.Builder{}
	interceptor := &chunkWriter{writer: writer, answer: answerBuilder}

	turn := model.Turn{Question: question, InDomain: s.filter.IsSolarRelated(question, history)}
	if !turn.InDomain {
		turn.Answer = s.assistant.RefusalText
		if err := interceptor.WriteMessage(websocket.TextMessage, []byte(turn.Answer)); err != nil {
			return nil, err
		}
	} else {
		err := s.llmClient.StreamGenerate(ctx, s.composeMessages(history, question), llm.ParamsFromConfig(s.gemini.Generation), interceptor)
		switch {
		case err != nil && interceptor.writeErr != nil:
			// 客户端已断开，没有可保存的完整回答
			return nil, err
		case err != nil:
			log.Errorw("Gemini 流式调用失败", "sessionID", sessionID, "error", err)
			turn.Answer = s.formatError(err)
			turn.Failed = true
			if werr := writeJSON(writer, map[string]string{"chunk": turn.Answer}); werr != nil {
				return nil, werr
			}
		default:
			turn.Answer = answerBuilder.String()
		}
	}

	if err := s.record(ctx, sessionID, &turn); err != nil {
		return nil, err
	}
	sendCompletion(writer)
	return &turn, nil
}

// composeMessages 将对话记录与新问题组装为带角色的消息列表。
func (s *chatService) composeMessages(history []model.Turn, input string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)*2+2)
	if instructions := s.assistant.Instructions; instructions != "" {
		switch {
		case s.gemini.InstructionMode == config.InstructionModeSystem:
			msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: instructions})
		case len(history) == 0:
			// inline 模式只在会话第一轮注入指令
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: instructions})
		}
	}
	for _, t := range history {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: t.Question},
			llm.Message{Role: llm.RoleAssistant, Content: t.Answer},
		)
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: input})
}

func (s *chatService) formatError(err error) string {
	return fmt.Sprintf("%s: %s", s.assistant.ErrorPrefix, err.Error())
}

// record 追加对话记录并提交归档；归档失败只记录日志。
func (s *chatService) record(ctx context.Context, sessionID string, turn *model.Turn) error {
	turn.CreatedAt = time.Now().UTC()
	// 使用不可取消的上下文，即使原始请求被取消也保存已经生成的答案
	saveCtx := context.WithoutCancel(ctx)
	if err := s.transcriptRepo.Append(saveCtx, sessionID, *turn); err != nil {
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	log.Infow("对话记录已追加", "sessionID", sessionID, "inDomain", turn.InDomain, "failed", turn.Failed)

	if s.archiver == nil {
		return nil
	}
	task := tasks.TurnArchiveTask{
		SessionID: sessionID,
		Question:  turn.Question,
		Answer:    turn.Answer,
		InDomain:  turn.InDomain,
		Failed:    turn.Failed,
		CreatedAt: turn.CreatedAt,
	}
	if err := s.archiver.Archive(saveCtx, task); err != nil {
		log.Errorf("Failed to archive turn: %v", err)
	}
	return nil
}

// chunkWriter 是对 MessageWriter 的封装，用于捕获写入的分块。
type chunkWriter struct {
	writer   llm.MessageWriter
	answer   *strings.Builder
	writeErr error
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *chunkWriter) WriteMessage(messageType int, data []byte) error {
	w.answer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	payload, _ := json.Marshal(map[string]string{"chunk": string(data)})
	if err := w.writer.WriteMessage(messageType, payload); err != nil {
		w.writeErr = err
		return err
	}
	return nil
}

func writeJSON(writer llm.MessageWriter, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writer.WriteMessage(websocket.TextMessage, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(writer llm.MessageWriter) {
	_ = writeJSON(writer, map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"message":   "响应已完成",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	})
}
