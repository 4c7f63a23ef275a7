package cache

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobRecord(id int) printing.SubmissionRecord {
	return printing.SubmissionRecord{
		JobID:    &id,
		State:    printing.SubmissionResolved,
		Document: "1a2b3c4d_report.pdf",
		Printer:  "Office-Laser",
	}
}

func exerciseSubmissionCache(t *testing.T, c printing.SubmissionCache) {
	ctx := context.Background()

	t.Run("miss for unknown key", func(t *testing.T) {
		record, found, err := c.Get(ctx, "unknown-"+uuid.NewString())
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, record)
	})

	t.Run("stored record is returned", func(t *testing.T) {
		key := "key-" + uuid.NewString()
		require.NoError(t, c.Put(ctx, key, jobRecord(42), time.Hour))

		record, found, err := c.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, found)
		require.NotNil(t, record.JobID)
		assert.Equal(t, 42, *record.JobID)
		assert.Equal(t, printing.SubmissionResolved, record.State)
		assert.Equal(t, "Office-Laser", record.Printer)
	})

	t.Run("unresolved record keeps a null job id", func(t *testing.T) {
		key := "key-" + uuid.NewString()
		require.NoError(t, c.Put(ctx, key, printing.SubmissionRecord{State: printing.SubmissionUnresolved}, time.Hour))

		record, found, err := c.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, found)
		assert.Nil(t, record.JobID)
	})

	t.Run("later put replaces earlier", func(t *testing.T) {
		key := "key-" + uuid.NewString()
		require.NoError(t, c.Put(ctx, key, jobRecord(1), time.Hour))
		require.NoError(t, c.Put(ctx, key, jobRecord(2), time.Hour))

		record, _, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 2, *record.JobID)
	})
}

func TestInMemorySubmissionCache(t *testing.T) {
	c := NewInMemorySubmissionCache()
	defer c.Close()

	exerciseSubmissionCache(t, c)

	t.Run("expired entries are not returned", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, c.Put(ctx, "short", jobRecord(7), 10*time.Millisecond))
		time.Sleep(20 * time.Millisecond)

		_, found, err := c.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, found)

		c.cleanup()
		_, stillThere := c.entries["short"]
		assert.False(t, stillThere)
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, c.Put(ctx, "copy", jobRecord(9), time.Hour))
		record, _, _ := c.Get(ctx, "copy")
		*record.JobID = 100

		again, _, _ := c.Get(ctx, "copy")
		assert.Equal(t, 9, *again.JobID)
	})
}

func TestInMemorySubmissionCache_CloseIsIdempotent(t *testing.T) {
	c := NewInMemorySubmissionCache()
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

// Redis tests run only when PRINTDESK_TEST_REDIS_ADDR points at a server
func TestRedisSubmissionCache(t *testing.T) {
	addr := os.Getenv("PRINTDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PRINTDESK_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())

	c := NewRedisSubmissionCacheWithClient(client, "printdesk:test:"+uuid.NewString()+":")
	defer c.Close()

	exerciseSubmissionCache(t, c)
}

func TestSubmissionCacheFactory(t *testing.T) {
	t.Run("disabled redis uses memory", func(t *testing.T) {
		c, err := NewSubmissionCacheFactory(config.RedisConfig{Enabled: false}).CreateCache()
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &InMemorySubmissionCache{}, c)
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: unusedPort(t)}
		c, err := NewSubmissionCacheFactory(cfg).CreateCache()
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &InMemorySubmissionCache{}, c)
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: unusedPort(t)}
		_, err := NewSubmissionCacheFactory(cfg, WithInMemoryFallback(false)).CreateCache()
		assert.Error(t, err)
	})
}

// unusedPort returns a local port that was free a moment ago
func unusedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}
