package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { raw.Close() })
	return &Client{store: raw, raw: raw}
}

func TestGetMissingKeyIsNotAnError(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "pd:missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "pd:present", "value", time.Minute))
	val, ok, err := c.Get(ctx, "pd:present")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value", val)
}

func TestDeletePattern(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, c.NearbySearchKey("a"), "1", 0))
	require.NoError(t, c.Set(ctx, c.NearbySearchKey("b"), "2", 0))
	require.NoError(t, c.Set(ctx, c.RiderDeliveriesKey("rider-1"), "3", 0))

	deleted, err := c.DeletePattern(ctx, c.NearbySearchPattern())
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	_, ok, err := c.Get(ctx, c.NearbySearchKey("a"))
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = c.Get(ctx, c.RiderDeliveriesKey("rider-1"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestKeyBuilders(t *testing.T) {
	c := newTestClient(t)

	require.Equal(t, "pd:nearby:abc", c.NearbySearchKey("abc"))
	require.Equal(t, "pd:offer_list:biz-1:page", c.BusinessOffersKey("biz-1", "page"))
	require.Equal(t, "pd:offer_list:biz-1:*", c.BusinessOffersPattern("biz-1"))
	require.Equal(t, "pd:deliveries:rider-9", c.RiderDeliveriesKey("rider-9"))
	require.Equal(t, "pd:auth:email:user@example.com", c.AuthEmailKey("User@Example.com"))
}

func TestFixedWindowAllow(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, count, err := c.FixedWindowAllow(ctx, "login:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed)
		require.Equal(t, int64(i), count)
	}

	allowed, count, err := c.FixedWindowAllow(ctx, "login:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, int64(4), count)
}
