//go:build integration

package subscribers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpad/quillpad/internal/database/dbtest"
)

func TestRepository_IncrementUsage_Concurrent(t *testing.T) {
	repo := NewRepository(dbtest.NewPool(t))
	ctx := context.Background()

	s := &Subscriber{Email: "free@example.com"}
	require.NoError(t, repo.Create(ctx, s))

	const limit = 5
	var succeeded atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2*limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.IncrementUsage(ctx, s.ID, limit)
			assert.NoError(t, err)
			if ok {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, limit, succeeded.Load())
	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, got.UsageCount)
}

func TestRepository_IncrementExports_ResetsOnNewMonth(t *testing.T) {
	repo := NewRepository(dbtest.NewPool(t))
	ctx := context.Background()

	jan := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	s := &Subscriber{Email: "exports@example.com", ExportCount: 3, ExportResetAt: &jan}
	require.NoError(t, repo.Create(ctx, s))

	_, ok, err := repo.IncrementExports(ctx, s.ID, 3, jan.Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "january allowance is used up")

	count, ok, err := repo.IncrementExports(ctx, s.ID, 3, time.Date(2024, 2, 1, 0, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, count)
}

func TestRepository_GetByID_Missing(t *testing.T) {
	repo := NewRepository(dbtest.NewPool(t))

	got, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)

	_, ok, err := repo.IncrementUsage(context.Background(), uuid.New(), 5)
	require.NoError(t, err)
	assert.False(t, ok, "missing subscriber must not be incremented")
}
