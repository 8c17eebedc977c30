package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishToStream_FlattensValues(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	id, err := PublishToStream(ctx, client, "events", 0, map[string]interface{}{
		"name":  "gnWise",
		"rows":  12,
		"ms":    int64(40),
		"ratio": 0.5,
		"ok":    true,
		"at":    time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
		"codes": []string{"GN-01", "GN-02"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := client.XRange(ctx, "events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	v := msgs[0].Values
	assert.Equal(t, "gnWise", v["name"])
	assert.Equal(t, "12", v["rows"])
	assert.Equal(t, "40", v["ms"])
	assert.Equal(t, "0.5", v["ratio"])
	assert.Equal(t, "true", v["ok"])
	assert.Equal(t, "2024-01-31T12:00:00Z", v["at"])
	assert.Equal(t, `["GN-01","GN-02"]`, v["codes"])
}

func TestPing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, Ping(context.Background(), client))
	require.NoError(t, Close(client))
	assert.NoError(t, Close(nil))
}
