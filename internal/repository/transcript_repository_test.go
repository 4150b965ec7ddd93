package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-assistant-go/internal/model"
)

func newRedisRepo(t *testing.T, ttl time.Duration, maxTurns int) (TranscriptRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisTranscriptRepository(rdb, ttl, maxTurns), mr
}

func TestRedisTranscriptAppendKeepsOrder(t *testing.T) {
	repo, _ := newRedisRepo(t, time.Hour, 0)
	ctx := context.Background()

	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Append(ctx, "s1", model.Turn{
			Question:  fmt.Sprintf("q%d", i),
			Answer:    fmt.Sprintf("a%d", i),
			InDomain:  i%2 == 0,
			CreatedAt: created,
		}))
	}

	turns, err := repo.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	for i, turn := range turns {
		assert.Equal(t, fmt.Sprintf("q%d", i), turn.Question)
		assert.Equal(t, fmt.Sprintf("a%d", i), turn.Answer)
		assert.Equal(t, i%2 == 0, turn.InDomain)
		assert.True(t, created.Equal(turn.CreatedAt))
	}

	other, err := repo.List(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRedisTranscriptTrimsToMaxTurns(t *testing.T) {
	repo, mr := newRedisRepo(t, time.Hour, 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, "s1", model.Turn{Question: fmt.Sprintf("q%d", i)}))
	}

	turns, err := repo.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q3", turns[0].Question)
	assert.Equal(t, "q4", turns[1].Question)

	items, err := mr.List(transcriptKey("s1"))
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRedisTranscriptExpires(t *testing.T) {
	repo, mr := newRedisRepo(t, time.Hour, 0)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, "s1", model.Turn{Question: "q"}))
	assert.Equal(t, time.Hour, mr.TTL(transcriptKey("s1")))

	mr.FastForward(2 * time.Hour)
	turns, err := repo.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisTranscriptClear(t *testing.T) {
	repo, mr := newRedisRepo(t, time.Hour, 0)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, "s1", model.Turn{Question: "q"}))
	require.NoError(t, repo.Append(ctx, "s2", model.Turn{Question: "kept"}))
	require.NoError(t, repo.Clear(ctx, "s1"))

	assert.False(t, mr.Exists(transcriptKey("s1")))
	turns, err := repo.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	kept, err := repo.List(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	// 清空后继续追加从头开始
	require.NoError(t, repo.Append(ctx, "s1", model.Turn{Question: "fresh"}))
	turns, err = repo.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "fresh", turns[0].Question)
}
