package redis_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	redisrepo "github.com/kirinyoku/cinema-booking/internal/repository/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestKeys(t *testing.T) {
	k := domain.ShowtimeKey{MovieID: "m1", Cinema: "Hall:1", Date: "2025-03-01", Time: "19:30"}

	assert.Equal(t, "cinema:v1:showtime:m1:Hall%3A1:2025-03-01:19%3A30:seats", redisrepo.KeyShowtimeSeats(k))
	assert.NotEqual(t,
		redisrepo.KeyShowtimeSeats(k),
		redisrepo.KeyShowtimeSeats(domain.ShowtimeKey{MovieID: "m1", Cinema: "Hall", Date: "2025-03-01", Time: "1:19:30"}),
	)
	assert.True(t, strings.HasPrefix(redisrepo.KeyIdemCreate("abc"), "cinema:v1:idem:"))
}

func TestNilCache(t *testing.T) {
	ctx := context.Background()
	var c *redisrepo.Cache

	calls := 0
	for range 2 {
		v, err := redisrepo.GetOrSetJSON(ctx, c, "k", time.Minute, func(context.Context) (int, error) {
			calls++
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, c.InvalidateShowtime(ctx, domain.ShowtimeKey{}))

	var ps *redisrepo.ShowtimePubSub
	assert.NoError(t, ps.PublishShowtimeChanged(ctx, domain.ShowtimeKey{}))
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

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
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedisIntegration(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	t.Run("cache", func(t *testing.T) {
		c := redisrepo.New(client)
		var calls atomic.Int32
		load := func(context.Context) ([]string, error) {
			calls.Add(1)
			return []string{"A1", "A2"}, nil
		}

		k := domain.ShowtimeKey{MovieID: "m1", Cinema: "c", Date: "2025-03-01", Time: "19:30"}
		key := redisrepo.KeyShowtimeSeats(k)

		for range 3 {
			v, err := redisrepo.GetOrSetJSON(ctx, c, key, time.Minute, load)
			require.NoError(t, err)
			assert.Equal(t, []string{"A1", "A2"}, v)
		}
		assert.EqualValues(t, 1, calls.Load())

		require.NoError(t, c.InvalidateShowtime(ctx, k))
		_, err := redisrepo.GetOrSetJSON(ctx, c, key, time.Minute, load)
		require.NoError(t, err)
		assert.EqualValues(t, 2, calls.Load())

		boom := errors.New("boom")
		_, err = redisrepo.GetOrSetJSON(ctx, c, "other", time.Minute, func(context.Context) (int, error) {
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)
		_, ok, err := redisrepo.GetJSON[int](ctx, c, "other")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("limiter", func(t *testing.T) {
		l := redisrepo.NewSlidingWindowLimiter(client, "create", 2, time.Minute)

		for i := range 2 {
			ok, n, _, err := l.Allow(ctx, "client-1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.EqualValues(t, i+1, n)
		}

		ok, n, retry, err := l.Allow(ctx, "client-1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.EqualValues(t, 2, n)
		assert.Greater(t, retry, time.Duration(0))
		assert.LessOrEqual(t, retry, time.Minute)

		// refused hits are not recorded
		ok, n, _, err = l.Allow(ctx, "client-1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.EqualValues(t, 2, n)

		members, err := client.ZCard(ctx, redisrepo.KeyRateLimit("create", "client-1")).Result()
		require.NoError(t, err)
		assert.EqualValues(t, 2, members)

		ok, _, _, err = l.Allow(ctx, "client-2")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("idempotency", func(t *testing.T) {
		s := redisrepo.NewIdempotencyStore(client, time.Hour, time.Minute)
		key := redisrepo.KeyIdemCreate("req-1")

		state, _, err := s.Begin(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, redisrepo.IdemAcquired, state)

		state, _, err = s.Begin(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, redisrepo.IdemInFlight, state)

		require.NoError(t, s.Save(ctx, key, `{"id":1}`))
		state, payload, err := s.Begin(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, redisrepo.IdemDone, state)
		assert.JSONEq(t, `{"id":1}`, payload)

		require.NoError(t, s.Release(ctx, key))
		state, _, err = s.Begin(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, redisrepo.IdemAcquired, state)
	})

	t.Run("pubsub", func(t *testing.T) {
		ps := redisrepo.NewShowtimePubSub(client)
		k := domain.ShowtimeKey{MovieID: "m1", Cinema: "c", Date: "2025-03-01", Time: "19:30"}

		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		got := make(chan domain.ShowtimeKey, 1)
		go func() {
			_ = ps.Subscribe(subCtx, func(_ context.Context, k domain.ShowtimeKey) {
				select {
				case got <- k:
				default:
				}
			})
		}()

		require.Eventually(t, func() bool {
			_ = ps.PublishShowtimeChanged(ctx, k)
			select {
			case v := <-got:
				return v == k
			default:
				return false
			}
		}, 5*time.Second, 100*time.Millisecond)
	})
}
