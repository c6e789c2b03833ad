package cart_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chowpati-api/internal/cart"
)

// rejectExpire fails every EXPIRE command.
type rejectExpire struct{}

func (rejectExpire) DialHook(next redis.DialHook) redis.DialHook { return next }

func (rejectExpire) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "expire" {
			err := errors.New("expire rejected")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (rejectExpire) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisStoreLoadRefreshesTTL(t *testing.T) {
	mr, client := newRedis(t)
	store := cart.RedisStore{Client: client, TTL: time.Hour}
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "c1", []cart.LineItem{{Product: americanDryFruit, Size: fiveLitre, Quantity: 1}}))
	mr.FastForward(50 * time.Minute)
	_, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, time.Hour, mr.TTL("cart:c1"))

	_, err = store.Load(ctx, "missing")
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestRedisStoreLogsFailedTTLRefresh(t *testing.T) {
	mr, client := newRedis(t)
	client.AddHook(rejectExpire{})
	var buf bytes.Buffer
	store := cart.RedisStore{
		Client: client,
		TTL:    time.Hour,
		Logger: zerolog.New(&buf).Level(zerolog.DebugLevel),
	}
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "c1", []cart.LineItem{{Product: americanDryFruit, Size: fiveLitre, Quantity: 2}}))
	items, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 2, items[0].Quantity)
	require.True(t, mr.Exists("cart:c1"))

	require.Contains(t, buf.String(), "refresh cart ttl")
	require.Contains(t, buf.String(), "expire rejected")
	require.Contains(t, buf.String(), `"cart_id":"c1"`)
}
