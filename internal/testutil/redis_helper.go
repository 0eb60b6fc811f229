// Package testutil provides shared test helpers: an in-memory Redis, a
// fake AquaWiz upstream server, and sensor data fixtures.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// SetupMiniRedis starts an in-memory Redis server for tests.
// The server is shut down automatically when the test finishes.
func SetupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr
}

// NewTestRedisClient returns a go-redis client bound to the given
// miniredis instance, closed automatically on test cleanup.
func NewTestRedisClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client
}
