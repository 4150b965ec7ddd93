package service

import (
	"context"
	"errors"
	"sync"

	"solar-assistant-go/internal/config"
	"solar-assistant-go/internal/model"
	"solar-assistant-go/pkg/llm"
	"solar-assistant-go/pkg/tasks"
)

type fakeLLM struct {
	mu       sync.Mutex
	answer   string
	chunks   []string
	err      error
	calls    [][]llm.Message
	lastGen  *llm.GenerationParams
	streamed int
}

func (f *fakeLLM) Generate(_ context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	f.lastGen = gen
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeLLM) StreamGenerate(_ context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) error {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	f.lastGen = gen
	f.mu.Unlock()
	for _, c := range f.chunks {
		if err := writer.WriteMessage(1, []byte(c)); err != nil {
			return err
		}
		f.streamed++
	}
	return f.err
}

type recordingWriter struct {
	frames [][]byte
	failAt int
}

func (w *recordingWriter) WriteMessage(_ int, data []byte) error {
	if w.failAt > 0 && len(w.frames)+1 >= w.failAt {
		return errors.New("connection closed")
	}
	w.frames = append(w.frames, append([]byte(nil), data...))
	return nil
}

type fakeArchiver struct {
	tasks []tasks.TurnArchiveTask
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, task tasks.TurnArchiveTask) error {
	f.tasks = append(f.tasks, task)
	return f.err
}

type fakeArchiveRepo struct {
	gotSession string
	gotLimit   int
	turns      []model.ArchivedTurn
}

func (f *fakeArchiveRepo) Create(context.Context, *model.ArchivedTurn) error { return nil }

func (f *fakeArchiveRepo) ListRecent(_ context.Context, sessionID string, limit int) ([]model.ArchivedTurn, error) {
	f.gotSession = sessionID
	f.gotLimit = limit
	return f.turns, nil
}

func testAssistantConfig() config.AssistantConfig {
	return config.AssistantConfig{
		Instructions:  "Only answer solar questions.",
		RefusalText:   "⚠️ Sorry, I can only answer questions related to solar energy.",
		ErrorPrefix:   "⚠️ Google Gemini API Error",
		LookbackDepth: 3,
	}
}

func testGeminiConfig(mode string) config.GeminiConfig {
	return config.GeminiConfig{Model: "gemini-2.0-flash", InstructionMode: mode}
}
