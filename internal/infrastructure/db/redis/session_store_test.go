package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionStore_GetMissingKey(t *testing.T) {
	_, client := newMiniredis(t)
	s := NewSessionStore(client, "hive_dashboard:default:")

	_, err := s.Get(context.Background(), domain.SessionRecordKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestSessionStore_SetGetDeleteUnderPrefix(t *testing.T) {
	mr, client := newMiniredis(t)
	ctx := context.Background()
	s := NewSessionStore(client, "hive_dashboard:a:")
	other := NewSessionStore(client, "hive_dashboard:b:")

	require.NoError(t, s.Set(ctx, domain.SessionRecordKey, `{"user":{"id":"1"}}`))
	require.NoError(t, s.Set(ctx, domain.DemoStartedAtKey, "1777626000000"))

	raw, err := mr.Get("hive_dashboard:a:" + domain.SessionRecordKey)
	require.NoError(t, err)
	assert.Equal(t, `{"user":{"id":"1"}}`, raw)
	assert.Zero(t, mr.TTL("hive_dashboard:a:"+domain.SessionRecordKey), "session keys must not expire")

	v, err := s.Get(ctx, domain.SessionRecordKey)
	require.NoError(t, err)
	assert.Equal(t, raw, v)

	_, err = other.Get(ctx, domain.SessionRecordKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound, "scopes are isolated")

	require.NoError(t, s.Delete(ctx, domain.DemoStartedAtKey, domain.SessionRecordKey))
	assert.False(t, mr.Exists("hive_dashboard:a:"+domain.SessionRecordKey))
	assert.False(t, mr.Exists("hive_dashboard:a:"+domain.DemoStartedAtKey))

	require.NoError(t, s.Delete(ctx))
}

func TestSessionStore_ServerDown(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewSessionStore(client, "p:")
	mr.Close()

	_, err := s.Get(context.Background(), domain.SessionRecordKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrKeyNotFound)
	assert.Error(t, HealthCheck(client)(context.Background()))
}

func TestDedupChecker_MarkThenDuplicate(t *testing.T) {
	mr, client := newMiniredis(t)
	ctx := context.Background()
	d := NewDedupChecker(client, "hive_backend:", 10*time.Minute)
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	dup, err := d.IsDuplicate(ctx, "h1", at)
	require.NoError(t, err)
	assert.False(t, dup)

	require.NoError(t, d.Mark(ctx, "h1", at))
	dup, err = d.IsDuplicate(ctx, "h1", at)
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = d.IsDuplicate(ctx, "h1", at.Add(time.Millisecond))
	require.NoError(t, err)
	assert.False(t, dup, "a different timestamp is a new reading")

	mr.FastForward(11 * time.Minute)
	dup, err = d.IsDuplicate(ctx, "h1", at)
	require.NoError(t, err)
	assert.False(t, dup, "marks expire after the window")
}
