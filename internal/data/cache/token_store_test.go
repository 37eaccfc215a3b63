package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, prefix string) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenStore(client, prefix), mr
}

func TestTokenStore_Key(t *testing.T) {
	withPrefix, _ := newTestStore(t, "stk-gateway")
	assert.Equal(t, "stk-gateway:mpesa:access_token", withPrefix.Key())

	bare, _ := newTestStore(t, "")
	assert.Equal(t, "mpesa:access_token", bare.Key())
}

func TestTokenStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, "stk-gateway")

	token, err := store.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "miss is not an error")

	require.NoError(t, store.SetToken(ctx, "tok-1", 50*time.Minute))

	token, err = store.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, 50*time.Minute, mr.TTL(store.Key()))

	mr.FastForward(51 * time.Minute)
	token, err = store.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestTokenStore_ServerError(t *testing.T) {
	store, mr := newTestStore(t, "")
	mr.SetError("ERR forced failure")

	_, err := store.GetToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read cached access token")

	err = store.SetToken(context.Background(), "tok", time.Minute)
	require.Error(t, err)
}
