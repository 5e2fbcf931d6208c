//go:build integration

package locks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedisLocker(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	client, err := ConnectRedis(ctx, addr, 0)
	require.NoError(t, err)
	defer client.Close()

	l := NewRedisLocker(client, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	unlock, err := l.Lock(ctx, TournamentKey("cup"))
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, TournamentKey("cup"))
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()

	again, err := l.Lock(ctx, TournamentKey("cup"))
	require.NoError(t, err)
	again()
}

func TestRedisLockerExpiry(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	client, err := ConnectRedis(ctx, addr, 0)
	require.NoError(t, err)
	defer client.Close()

	l := NewRedisLocker(client, 100*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	redisKey := l.prefix + TeamKey("abc")

	// A holder that crashed leaves its key behind until the ttl runs out.
	require.NoError(t, client.Set(ctx, redisKey, "crashed-holder", 100*time.Millisecond).Err())

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	fresh, err := l.Lock(waitCtx, TeamKey("abc"))
	require.NoError(t, err)

	// Releasing with another holder's token must not drop the new holder's key.
	l.release(TeamKey("abc"), redisKey, "crashed-holder")
	n, err := client.Exists(ctx, redisKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	fresh()
}

func TestRedisLockerOutlivesTTLWhileHeld(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	client, err := ConnectRedis(ctx, addr, 0)
	require.NoError(t, err)
	defer client.Close()

	l := NewRedisLocker(client, 150*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	unlock, err := l.Lock(ctx, TournamentKey("long"))
	require.NoError(t, err)
	time.Sleep(600 * time.Millisecond)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, TournamentKey("long"))
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	n, err := client.Exists(ctx, l.prefix+TournamentKey("long")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
