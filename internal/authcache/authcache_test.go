package authcache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"

	"github.com/charging-platform/ocpp-central-system/internal/cache"
)

func newTestCache() (*Cache, redismock.ClientMock) {
	client, mock := redismock.NewClientMock()
	localCfg := cache.DefaultConfig()
	localCfg.DefaultTTL = time.Minute
	return &Cache{
		client: client,
		prefix: "ocpp:",
		ttl:    time.Minute,
		local:  cache.NewLRUCache(localCfg),
	}, mock
}

func TestIsIDTagAllowed_HitsRedisOnColdLocalCache(t *testing.T) {
	c, mock := newTestCache()
	mock.ExpectGet("ocpp:idtag:goodtag").SetVal("1")

	assert.True(t, c.IsIDTagAllowed(context.Background(), "GOODTAG"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsIDTagAllowed_CachesResultLocallyAfterFirstLookup(t *testing.T) {
	c, mock := newTestCache()
	mock.ExpectGet("ocpp:idtag:goodtag").SetVal("1")

	assert.True(t, c.IsIDTagAllowed(context.Background(), "GOODTAG"))
	// Second call must be served from the local tier: no further Redis
	// expectation is registered, so ExpectationsWereMet would fail if
	// IsIDTagAllowed hit Redis again.
	assert.True(t, c.IsIDTagAllowed(context.Background(), "GOODTAG"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsIDTagAllowed_MissingKeyIsNotAllowed(t *testing.T) {
	c, mock := newTestCache()
	mock.ExpectGet("ocpp:idtag:unknowntag").RedisNil()

	assert.False(t, c.IsIDTagAllowed(context.Background(), "UnknownTag"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigGet_FallsBackToRedisThenCachesLocally(t *testing.T) {
	c, mock := newTestCache()
	mock.ExpectGet("ocpp:config:1:HeartbeatInterval").SetVal("300")

	val, ok := c.ConfigGet(context.Background(), 1, "HeartbeatInterval")
	assert.True(t, ok)
	assert.Equal(t, "300", val)

	val2, ok2 := c.ConfigGet(context.Background(), 1, "HeartbeatInterval")
	assert.True(t, ok2)
	assert.Equal(t, "300", val2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigGet_MissingKeyIsNotFound(t *testing.T) {
	c, mock := newTestCache()
	mock.ExpectGet("ocpp:config:1:Unset").RedisNil()

	_, ok := c.ConfigGet(context.Background(), 1, "Unset")

	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigSet_WritesThroughToRedisAndLocalTier(t *testing.T) {
	c, mock := newTestCache()
	mock.ExpectSet("ocpp:config:1:HeartbeatInterval", "300", 0).SetVal("OK")

	c.ConfigSet(context.Background(), 1, "HeartbeatInterval", "300")

	val, ok := c.local.Get("ocpp:config:1:HeartbeatInterval")
	assert.True(t, ok)
	assert.Equal(t, "300", val)
	assert.NoError(t, mock.ExpectationsWereMet())
}
