package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, time.March, 7, 15, 45, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		require.NoError(t, store.Append(ctx, Record{
			SessionID: "s1",
			Role:      role,
			Content:   fmt.Sprintf("turn %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, store.Append(ctx, Record{SessionID: "s2", Role: "user", Content: "other", PIIRedacted: true}))

	recent, err := store.Recent(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "turn 2", recent[0].Content)
	assert.Equal(t, "turn 4", recent[2].Content)
	assert.NotEmpty(t, recent[0].ID)
	assert.True(t, recent[2].CreatedAt.Equal(base.Add(4*time.Second)))

	all, err := store.Recent(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	other, err := store.Recent(ctx, "s2", 10)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.True(t, other[0].PIIRedacted)
	assert.False(t, other[0].CreatedAt.IsZero())

	none, err := store.Recent(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryStore(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()
	exerciseStore(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewStore(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "log", "chat.db"))
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*SQLiteStore)
	require.True(t, ok, "expected sqlite backend, got %T", store)
	exerciseStore(t, store)
}

func TestNewStoreSelectsBackend(t *testing.T) {
	store, err := NewStore(context.Background(), "  ")
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, store)

	_, err = NewStore(context.Background(), "mysql://localhost/db")
	assert.Error(t, err)
}
