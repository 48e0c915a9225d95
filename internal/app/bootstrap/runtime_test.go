package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-page-studio/internal/bookingpage"
	appconfig "github.com/wolfman30/booking-page-studio/internal/config"
	"github.com/wolfman30/booking-page-studio/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), nil, nil, true); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
	if client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: "  "}, nil, true); client != nil {
		t.Fatalf("expected nil client for blank address")
	}
}

func TestBuildRedisClientVerifiesPing(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logging.New("error")

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true)
	require.NotNil(t, client)
	defer client.Close()

	mr.Close()
	dead := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true)
	assert.Nil(t, dead)
}

func TestBuildPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	pool, err := BuildPostgresPool(context.Background(), "", logging.New("error"))
	require.NoError(t, err)
	assert.Nil(t, pool)

	svc, db := BuildAuditService(nil)
	assert.Nil(t, svc)
	assert.Nil(t, db)
}

func TestBuildSynchronizerInMemoryRoundTrip(t *testing.T) {
	cfg := &appconfig.Config{LoadTimeout: time.Second, SaveTimeout: time.Second}
	syncer := BuildSynchronizer(cfg, Deps{}, logging.New("error"))
	ctx := context.Background()

	settings := bookingpage.DefaultSettings("biz-1")
	settings.BusinessName = "Glow Studio"
	require.NoError(t, syncer.Persist(ctx, settings))

	got, err := syncer.Fetch(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "Glow Studio", got.BusinessName)
}

func TestBuildSynchronizerUsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr(), LocalCacheTTL: time.Minute}
	client := BuildRedisClient(context.Background(), cfg, nil, false)
	require.NotNil(t, client)
	defer client.Close()

	syncer := BuildSynchronizer(cfg, Deps{Redis: client}, logging.New("error"))
	ctx := context.Background()
	syncer.Remember(ctx, bookingpage.DefaultSettings("biz-2"))

	assert.True(t, mr.Exists("bookingpage:cache:biz-2"))
	_, ok := syncer.Hydrate(ctx, "biz-2")
	assert.True(t, ok)
}

func TestSessionOptionsFromConfig(t *testing.T) {
	opts := SessionOptions(&appconfig.Config{LoadTimeout: 3 * time.Second, SaveTimeout: 4 * time.Second, AutosaveEnabled: true})
	assert.Equal(t, 3*time.Second, opts.LoadTimeout)
	assert.Equal(t, 4*time.Second, opts.SaveTimeout)
	assert.True(t, opts.Autosave)
	assert.Zero(t, SessionOptions(nil))
}
