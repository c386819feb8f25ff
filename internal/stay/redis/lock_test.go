package redis_test

import (
	"context"
	"testing"
	"time"

	plotredis "ms-campsite/internal/stay/redis"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MockRedisClient is a map-backed stand-in for the redis operations the
// plot lock uses.
type MockRedisClient struct {
	lockMap map[string]string
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		lockMap: make(map[string]string),
	}
}

func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	cmd := new(redis.BoolCmd)

	if _, exists := m.lockMap[key]; !exists {
		m.lockMap[key] = value.(string)
		cmd.SetVal(true)
	} else {
		cmd.SetVal(false)
	}

	return cmd
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := new(redis.StringCmd)

	if val, exists := m.lockMap[key]; exists {
		cmd.SetVal(val)
	} else {
		cmd.SetErr(redis.Nil)
	}

	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := new(redis.IntCmd)
	count := int64(0)

	for _, key := range keys {
		if _, exists := m.lockMap[key]; exists {
			delete(m.lockMap, key)
			count++
		}
	}

	cmd.SetVal(count)
	return cmd
}

func TestLockPlotsAllOrNothing(t *testing.T) {
	client := NewMockRedisClient()
	lock := plotredis.NewRedis(client, time.Minute)

	plotIDs := []string{"plot-a1", "plot-a2", "plot-a3"}

	locked, err := lock.LockPlots(plotIDs, "stay-1")
	require.NoError(t, err)
	assert.True(t, locked)

	// A second stay contending for an overlapping set gets nothing, and the
	// plots it briefly grabbed are rolled back.
	locked, err = lock.LockPlots([]string{"plot-b1", "plot-a2"}, "stay-2")
	require.NoError(t, err)
	assert.False(t, locked)
	_, stillHeld := client.lockMap["plot_lock:plot-b1"]
	assert.False(t, stillHeld, "partial grab must be rolled back")

	// The first stay still owns its locks.
	assert.Equal(t, "stay-1", client.lockMap["plot_lock:plot-a2"])
}

func TestUnlockPlotsOwnershipCheck(t *testing.T) {
	client := NewMockRedisClient()
	lock := plotredis.NewRedis(client, time.Minute)

	locked, err := lock.LockPlots([]string{"plot-a1"}, "stay-1")
	require.NoError(t, err)
	require.True(t, locked)

	// A stay that does not own the lock cannot release it.
	require.NoError(t, lock.UnlockPlots([]string{"plot-a1"}, "stay-2"))
	assert.Equal(t, "stay-1", client.lockMap["plot_lock:plot-a1"])

	// The owner can.
	require.NoError(t, lock.UnlockPlots([]string{"plot-a1"}, "stay-1"))
	_, stillHeld := client.lockMap["plot_lock:plot-a1"]
	assert.False(t, stillHeld)

	// Unlocking an already-released plot is a no-op.
	require.NoError(t, lock.UnlockPlots([]string{"plot-a1"}, "stay-1"))
}

func TestLockPlotReacquireAfterUnlock(t *testing.T) {
	client := NewMockRedisClient()
	lock := plotredis.NewRedis(client, time.Minute)

	locked, err := lock.LockPlot("plot-a1", "stay-1")
	require.NoError(t, err)
	require.True(t, locked)

	locked, err = lock.LockPlot("plot-a1", "stay-2")
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, lock.UnlockPlot("plot-a1", "stay-1"))

	locked, err = lock.LockPlot("plot-a1", "stay-2")
	require.NoError(t, err)
	assert.True(t, locked)
}

// TestRedisIntegration tests the plot lock against a real Redis container.
func TestRedisIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)

	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})
	defer client.Close()

	lock := plotredis.NewRedis(client, time.Minute)

	plotIDs := []string{"plot-a1", "plot-a2", "plot-a3"}
	stayID := "test-stay-id"

	locked, err := lock.LockPlots(plotIDs, stayID)
	require.NoError(t, err)
	assert.True(t, locked, "Expected plots to be lockable")

	locked, err = lock.LockPlots(plotIDs, "another-stay-id")
	require.NoError(t, err)
	assert.False(t, locked, "Expected plots to be already locked")

	err = lock.UnlockPlots(plotIDs, stayID)
	require.NoError(t, err)

	locked, err = lock.LockPlots(plotIDs, stayID)
	require.NoError(t, err)
	assert.True(t, locked, "Expected plots to be lockable after unlock")
}
