package identity

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmsportal/internal/clientstore"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/platform/sentinel"
)

var v4Pattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

type countingMetrics struct{ created int }

func (m *countingMetrics) IncrementIdentitiesCreated() { m.created++ }

type brokenStore struct{}

func (brokenStore) Get(context.Context, string, string) (string, error) {
	return "", sentinel.ErrUnavailable
}

func (brokenStore) SetIfAbsent(context.Context, string, string, string) (string, bool, error) {
	return "", false, sentinel.ErrUnavailable
}

func (brokenStore) Clear(context.Context, string, string) error { return nil }

func TestGetOrCreateUserID(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent within a scope", func(t *testing.T) {
		m := &countingMetrics{}
		r := New(clientstore.NewInMemory(), WithMetrics(m))

		first, err := r.GetOrCreateUserID(ctx, "dev-1")
		require.NoError(t, err)
		second, err := r.GetOrCreateUserID(ctx, "dev-1")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Regexp(t, v4Pattern, first)
		assert.Equal(t, 1, m.created)
	})

	t.Run("clearing storage yields a new identifier", func(t *testing.T) {
		r := New(clientstore.NewInMemory())

		first, err := r.GetOrCreateUserID(ctx, "dev-1")
		require.NoError(t, err)
		require.NoError(t, r.Forget(ctx, "dev-1"))
		second, err := r.GetOrCreateUserID(ctx, "dev-1")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("scopes get distinct identifiers", func(t *testing.T) {
		r := New(clientstore.NewInMemory())
		a, err := r.GetOrCreateUserID(ctx, "dev-a")
		require.NoError(t, err)
		b, err := r.GetOrCreateUserID(ctx, "dev-b")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("falls back when strong source fails", func(t *testing.T) {
		r := New(clientstore.NewInMemory(), WithGenerator(func() (uuid.UUID, error) {
			return uuid.Nil, errors.New("entropy exhausted")
		}))

		id, err := r.GetOrCreateUserID(ctx, "dev-1")
		require.NoError(t, err)
		assert.Regexp(t, v4Pattern, id)
	})

	t.Run("missing scope is unavailable", func(t *testing.T) {
		r := New(clientstore.NewInMemory())
		id, err := r.GetOrCreateUserID(ctx, "")
		assert.Empty(t, id)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("blank stored identity is unavailable", func(t *testing.T) {
		store := clientstore.NewInMemory()
		require.NoError(t, store.Set(ctx, "dev-1", clientstore.KeyUserID, ""))
		m := &countingMetrics{}
		r := New(store, WithMetrics(m))

		id, err := r.GetOrCreateUserID(ctx, "dev-1")
		assert.Empty(t, id)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.Zero(t, m.created)
	})

	t.Run("broken storage is unavailable", func(t *testing.T) {
		r := New(brokenStore{})
		id, err := r.GetOrCreateUserID(ctx, "dev-1")
		assert.Empty(t, id)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestFallbackV4Shape(t *testing.T) {
	for range 100 {
		assert.Regexp(t, v4Pattern, fallbackV4())
	}
}
