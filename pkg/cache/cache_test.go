package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelsoc/soc-core/pkg/logger"
)

func TestNoopValkeySetGetDelete(t *testing.T) {
	c := NewNoopValkey(logger.New("error"))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	b, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), b)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.Error(t, err)
}

func TestNoopValkeyMarshalsStructs(t *testing.T) {
	c := NewNoopValkey(logger.New("error"))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "j", map[string]int{"a": 1}, 0))
	b, err := c.Get(ctx, "j")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))
}

func TestNoopValkeyLockIsExclusive(t *testing.T) {
	c := NewNoopValkey(logger.New("error"))
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "pass", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "pass", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, "pass"))
	ok, err = c.AcquireLock(ctx, "pass", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoopValkeyIncrement(t *testing.T) {
	c := NewNoopValkey(logger.New("error"))
	ctx := context.Background()

	n, err := c.Increment(ctx, "bucket", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = c.Increment(ctx, "bucket", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
