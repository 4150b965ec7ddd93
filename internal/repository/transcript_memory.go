package repository

import (
	"context"
	"solar-assistant-go/internal/model"
	"sync"
)

type memoryTranscriptRepository struct {
	mu          sync.RWMutex
	transcripts map[string][]model.Turn
	maxTurns    int
}

// NewMemoryTranscriptRepository 创建一个进程内的 TranscriptRepository，适用于单实例部署与测试。
func NewMemoryTranscriptRepository(maxTurns int) TranscriptRepository {
	return &memoryTranscriptRepository{
		transcripts: make(map[string][]model.Turn),
		maxTurns:    maxTurns,
	}
}

func (r *memoryTranscriptRepository) Append(_ context.Context, sessionID string, turn model.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	turns := append(r.transcripts[sessionID], turn)
	if r.maxTurns > 0 && len(turns) > r.maxTurns {
		turns = append([]model.Turn(nil), turns[len(turns)-r.maxTurns:]...)
	}
	r.transcripts[sessionID] = turns
	return nil
}

func (r *memoryTranscriptRepository) List(_ context.Context, sessionID string) ([]model.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	turns := r.transcripts[sessionID]
	copied := make([]model.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

func (r *memoryTranscriptRepository) Clear(_ context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.transcripts, sessionID)
	r.mu.Unlock()
	return nil
}
