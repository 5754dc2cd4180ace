//go:build integration

package local_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/storage/local"
)

var client *redis.Client

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dc, err := tc.NewDockerCompose("../../../docker-compose.test.yml")
	if err != nil {
		log.Fatalf("compose init: %v", err)
	}
	defer func() {
		if err := dc.Down(context.Background(), tc.RemoveOrphans(true)); err != nil {
			log.Printf("compose down: %v", err)
		}
	}()

	err = dc.
		WaitForService("redis", wait.ForListeningPort("6379/tcp")).
		Up(ctx, tc.RunServices("redis"), tc.Wait(true))
	if err != nil {
		log.Fatalf("compose up: %v", err)
	}

	container, err := dc.ServiceContainer(ctx, "redis")
	if err != nil {
		log.Fatalf("redis container: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	client = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer func() { _ = client.Close() }()

	return m.Run()
}

func TestRedisKV(t *testing.T) {
	ctx := context.Background()
	kv := local.NewRedisKV(client, local.RedisConfig{Prefix: "test:kv:", TTL: time.Hour})

	_, ok, err := kv.Get("cart")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("cart", []byte(`{"items":[]}`)))
	data, ok, err := kv.Get("cart")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"items":[]}`, string(data))

	ttl, err := client.TTL(ctx, "test:kv:cart").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, kv.Delete("cart"))
	require.NoError(t, kv.Delete("cart"))
	_, ok, err = kv.Get("cart")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_DevicesAreIsolated(t *testing.T) {
	kiosk1 := local.NewStore(local.NewRedisKV(client, local.RedisConfig{Prefix: "test:kiosk-1:"}))
	kiosk2 := local.NewStore(local.NewRedisKV(client, local.RedisConfig{Prefix: "test:kiosk-2:"}))

	require.NoError(t, kiosk1.Save(cart.Empty().Add(cart.ByID("A"), 2)))

	c, ok, err := kiosk1.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, c.Quantity(cart.ByID("A")))

	_, ok, err = kiosk2.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kiosk1.Clear())
	_, ok, err = kiosk1.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}
