// internal/common/database/redis_test.go
package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cre-workers/internal/common/config"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// ==========================
// Analysis cache
// ==========================

func TestRedisAnalysisCache_RoundTrip(t *testing.T) {
	mr, client := newMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	payload, ok, err := client.GetAnalysis(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, payload)

	require.NoError(t, client.SetAnalysis(ctx, "abc", []byte(`{"ner":10}`), time.Minute))
	assert.True(t, mr.Exists("lease:analysis:abc"))

	payload, ok, err = client.GetAnalysis(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"ner":10}`, string(payload))

	mr.FastForward(2 * time.Minute)
	_, ok, err = client.GetAnalysis(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire after ttl")
}

func TestRedisAnalysisCache_Invalidate(t *testing.T) {
	mr, client := newMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, client.SetAnalysis(ctx, "a", []byte("1"), 0))
	require.NoError(t, client.SetAnalysis(ctx, "b", []byte("2"), 0))
	require.NoError(t, client.InvalidateAnalysis(ctx, "a", "b"))
	require.NoError(t, client.InvalidateAnalysis(ctx))

	assert.False(t, mr.Exists("lease:analysis:a"))
	assert.False(t, mr.Exists("lease:analysis:b"))
}

func TestRedisAnalysisCache_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := NewRedisFromClient(db)
	ctx := context.Background()

	mock.ExpectGet("lease:analysis:k").SetErr(errors.New("connection reset"))
	_, ok, err := client.GetAnalysis(ctx, "k")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "connection reset")

	mock.ExpectGet("lease:analysis:miss").RedisNil()
	_, ok, err = client.GetAnalysis(ctx, "miss")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectPing().SetErr(redis.ErrClosed)
	require.Error(t, client.Ping(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}
