// Package storagetest holds the behaviour every storage.Store must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mamaboss/internal/storage"
)

// Run exercises a fresh store from newStore against the Store contract.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "u1", storage.KeyTasks)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("set then get overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "u1", storage.KeyTasks, []byte(`[{"id":"1"}]`)))
		require.NoError(t, s.Set(ctx, "u1", storage.KeyTasks, []byte(`[{"id":"2"}]`)))

		got, err := s.Get(ctx, "u1", storage.KeyTasks)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"2"}]`, string(got))
	})

	t.Run("scopes are isolated", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "u1", storage.KeyGoals, []byte(`["a"]`)))
		require.NoError(t, s.Set(ctx, "u2", storage.KeyGoals, []byte(`["b"]`)))
		require.NoError(t, s.Set(ctx, storage.GlobalScope, storage.KeyAccounts, []byte(`[]`)))

		got, err := s.Get(ctx, "u2", storage.KeyGoals)
		require.NoError(t, err)
		assert.JSONEq(t, `["b"]`, string(got))

		scopes, err := s.Scopes(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2"}, scopes)
	})

	t.Run("remove and clear", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "u1", storage.KeyTasks, []byte(`[]`)))
		require.NoError(t, s.Set(ctx, "u1", storage.KeyEvents, []byte(`[]`)))

		keys, err := s.Keys(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{storage.KeyEvents, storage.KeyTasks}, keys)

		require.NoError(t, s.Remove(ctx, "u1", storage.KeyTasks))
		require.NoError(t, s.Remove(ctx, "u1", storage.KeyTasks), "removing twice is not an error")
		_, err = s.Get(ctx, "u1", storage.KeyTasks)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, s.Clear(ctx, "u1"))
		keys, err = s.Keys(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}
