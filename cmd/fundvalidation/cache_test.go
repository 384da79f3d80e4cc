package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otaviosalomao/FundValidation/internal/cache"
	"github.com/otaviosalomao/FundValidation/internal/model"
)

func TestCacheInvalidate_FileEntry(t *testing.T) {
	ctx := context.Background()
	fs, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)

	key := cache.FeedKey(314, model.PeriodCurrentMonth)
	require.NoError(t, fs.Set(ctx, key, []byte(`[]`), time.Hour))

	c := &cacheCmd{source: "api", id: 314, period: int(model.PeriodCurrentMonth)}
	require.NoError(t, c.do(ctx, "invalidate", fs))

	_, found, err := fs.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	// A second invalidation finds nothing and is not an error.
	assert.NoError(t, c.do(ctx, "invalidate", fs))
}

func TestCacheInvalidate_DBKeyUsesDateWindow(t *testing.T) {
	c := &cacheCmd{source: "db", id: 315, period: int(model.PeriodCurrentMonth), date: "2025-08-19"}
	key, err := c.key()
	require.NoError(t, err)

	window, err := model.PeriodCurrentMonth.Window(time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, cache.QuotasKey(315, model.PeriodCurrentMonth, window), key)
}

func TestCacheCommand_RejectsBadInput(t *testing.T) {
	fs, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, (&cacheCmd{source: "api", id: 314, period: 9}).do(ctx, "invalidate", fs))
	assert.Error(t, (&cacheCmd{source: "ftp", id: 314, period: 2}).do(ctx, "invalidate", fs))
	assert.Error(t, (&cacheCmd{}).do(ctx, "compact", fs))
}
