package store_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulaone/rolesync/internal/store"
)

func newRedisStore(t *testing.T) *store.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	c := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return store.NewRedisWithClient(c, "rolesync")
}

func TestRedisStore_SetGetRemove(t *testing.T) {
	rs := newRedisStore(t)

	require.NoError(t, rs.Set("k", "v"))
	v, err := rs.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, rs.Remove("k"))
	_, err = rs.Get("k")
	assert.True(t, store.IsNotFound(err))
}

func TestRedisStore_ClearOnlyTouchesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	c := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })

	rs := store.NewRedisWithClient(c, "rolesync")
	other := store.NewRedisWithClient(c, "otherapp")

	require.NoError(t, rs.Set("a", "1"))
	require.NoError(t, rs.Set("b", "2"))
	require.NoError(t, other.Set("a", "keep"))

	require.NoError(t, rs.Clear())

	_, err := rs.Get("a")
	assert.True(t, store.IsNotFound(err))
	v, err := other.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "keep", v)
}
