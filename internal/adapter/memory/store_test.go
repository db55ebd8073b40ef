package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbansafe/risk-engine/internal/adapter/memory"
	"github.com/urbansafe/risk-engine/internal/domain"
)

func TestStore_FindAll_Empty(t *testing.T) {
	store := memory.New()

	incidents, err := store.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, incidents)
}

func TestStore_InsertAndFindAll(t *testing.T) {
	store := memory.New()
	base := time.Date(2024, time.April, 24, 12, 0, 0, 0, time.UTC)

	// Inserted oldest-first; FindAll must return newest-first.
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(context.Background(), domain.Incident{
			ID:        string(rune('a' + i)),
			Type:      "theft",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	incidents, err := store.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, incidents, 3)
	assert.Equal(t, "c", incidents[0].ID)
	assert.Equal(t, "b", incidents[1].ID)
	assert.Equal(t, "a", incidents[2].ID)
}

func TestStore_FindAll_ReturnsCopy(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Insert(context.Background(), domain.Incident{ID: "x", Type: "theft"}))

	first, err := store.FindAll(context.Background())
	require.NoError(t, err)
	first[0].Type = "mutated"

	second, err := store.FindAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "theft", second[0].Type)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := memory.New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Insert(context.Background(), domain.Incident{ID: string(rune('a' + i))})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.FindAll(context.Background())
		}()
	}
	wg.Wait()

	incidents, err := store.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, incidents, 10)
}

func TestStore_CheckReadiness(t *testing.T) {
	assert.NoError(t, memory.New().CheckReadiness(context.Background()))
}
