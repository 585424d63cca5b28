package optimistic

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID     string
	Active bool
}

func cloneItems(v []item) []item { return slices.Clone(v) }

func toggle(id string) func(string, []item) []item {
	return func(_ string, items []item) []item {
		for i := range items {
			if items[i].ID == id {
				items[i].Active = !items[i].Active
			}
		}
		return items
	}
}

func all(string) bool { return true }

func TestMutate_RollbackRestoresExactSnapshot(t *testing.T) {
	c := New[string](cloneItems)
	original := []item{{ID: "X", Active: true}, {ID: "Y", Active: false}}
	c.Put("page=1", original)

	var during []item
	err := c.Mutate(context.Background(), all, toggle("X"), func(context.Context) error {
		during, _ = c.Get("page=1")
		return errors.New("server said no")
	})
	require.EqualError(t, err, "server said no")

	assert.Equal(t, []item{{ID: "X", Active: false}, {ID: "Y", Active: false}}, during, "patch is visible while committing")
	got, ok := c.Get("page=1")
	require.True(t, ok)
	assert.Equal(t, []item{{ID: "X", Active: true}, {ID: "Y", Active: false}}, got)
	assert.Equal(t, []item{{ID: "X", Active: true}, {ID: "Y", Active: false}}, original, "caller's slice is never aliased")
}

func TestMutate_SuccessInvalidatesMatchingOnly(t *testing.T) {
	c := New[string](cloneItems)
	c.Put("df-1/page=1", []item{{ID: "X"}})
	c.Put("df-2/page=1", []item{{ID: "Z"}})

	err := c.Mutate(context.Background(),
		func(k string) bool { return k[:4] == "df-1" },
		toggle("X"),
		func(context.Context) error { return nil },
	)
	require.NoError(t, err)

	_, ok := c.Get("df-1/page=1")
	assert.False(t, ok)
	_, ok = c.Get("df-2/page=1")
	assert.True(t, ok)
}

func TestMutate_NoMatchStillCommits(t *testing.T) {
	c := New[string, []item](nil)
	committed := false
	err := c.Mutate(context.Background(), all, toggle("X"), func(context.Context) error {
		committed = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Zero(t, c.Len())
}

func TestInvalidate(t *testing.T) {
	c := New[int, string](nil)
	c.Put(1, "a")
	c.Put(2, "b")
	c.Invalidate(func(k int) bool { return k == 1 })
	assert.Equal(t, 1, c.Len())
}

func TestGet_StaleEntriesAreMisses(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	c := New[string](cloneItems, WithStaleAfter(5*time.Second), WithClock(func() time.Time { return now }))
	c.Put("page=1", []item{{ID: "X"}})

	now = now.Add(4 * time.Second)
	_, ok := c.Get("page=1")
	assert.True(t, ok)

	// a patch keeps the fetch time of the listing it was applied to
	require.Error(t, c.Mutate(context.Background(), all, toggle("X"), func(context.Context) error {
		return errors.New("refused")
	}))
	now = now.Add(time.Second)
	_, ok = c.Get("page=1")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestPut_EvictsBeyondSize(t *testing.T) {
	c := New[int, string](nil, WithSize(4))
	for i := range 1000 {
		c.Put(i, "page")
	}
	assert.Equal(t, 4, c.Len())
	_, ok := c.Get(999)
	assert.True(t, ok, "most recent entry survives")
	_, ok = c.Get(0)
	assert.False(t, ok)
}

func TestMutate_FailureAfterConcurrentSuccessDropsSnapshot(t *testing.T) {
	c := New[string](cloneItems)
	c.Put("page=1", []item{{ID: "X"}, {ID: "Y"}})

	add := func(_ string, items []item) []item { return append([]item{{ID: "A"}}, items...) }
	err := c.Mutate(context.Background(), all, toggle("X"), func(ctx context.Context) error {
		require.NoError(t, c.Mutate(ctx, all, add, func(context.Context) error { return nil }))
		return errors.New("toggle refused")
	})
	require.Error(t, err)

	_, ok := c.Get("page=1")
	assert.False(t, ok, "snapshot predates the committed create; next read refetches")
}

func TestMutate_NestedFailuresUnwindInOrder(t *testing.T) {
	c := New[string](cloneItems)
	c.Put("page=1", []item{{ID: "X", Active: true}, {ID: "Y"}})

	err := c.Mutate(context.Background(), all, toggle("X"), func(ctx context.Context) error {
		inner := c.Mutate(ctx, all, toggle("Y"), func(context.Context) error { return errors.New("y refused") })
		require.Error(t, inner)
		during, _ := c.Get("page=1")
		assert.Equal(t, []item{{ID: "X", Active: false}, {ID: "Y"}}, during, "outer patch survives inner rollback")
		return errors.New("x refused")
	})
	require.Error(t, err)

	got, ok := c.Get("page=1")
	require.True(t, ok)
	assert.Equal(t, []item{{ID: "X", Active: true}, {ID: "Y"}}, got)
}
