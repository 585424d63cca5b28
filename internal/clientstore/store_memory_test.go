package clientstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("set if absent keeps the first value", func(t *testing.T) {
		s := NewInMemory()
		v, created, err := s.SetIfAbsent(ctx, "dev-1", KeyUserID, "first")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "first", v)

		v, created, err = s.SetIfAbsent(ctx, "dev-1", KeyUserID, "second")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "first", v)
	})

	t.Run("scopes are isolated", func(t *testing.T) {
		s := NewInMemory()
		require.NoError(t, s.Set(ctx, "dev-1", KeyReferrer, "https://a.example"))

		_, err := s.Get(ctx, "dev-2", KeyReferrer)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("clear removes the value", func(t *testing.T) {
		s := NewInMemory()
		require.NoError(t, s.Set(ctx, "dev-1", KeyReferrer, "https://a.example"))
		require.NoError(t, s.Clear(ctx, "dev-1", KeyReferrer))

		_, err := s.Get(ctx, "dev-1", KeyReferrer)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("missing scope is rejected", func(t *testing.T) {
		s := NewInMemory()
		_, err := s.Get(ctx, "", KeyUserID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("concurrent first writes agree", func(t *testing.T) {
		s := NewInMemory()
		const workers = 32
		results := make([]string, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, _, err := s.SetIfAbsent(ctx, "dev-1", KeyUserID, string(rune('a'+i%26)))
				assert.NoError(t, err)
				results[i] = v
			}(i)
		}
		wg.Wait()
		for _, v := range results {
			assert.Equal(t, results[0], v)
		}
	})
}
