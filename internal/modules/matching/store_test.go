package matching

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifelink/internal/types"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestStoreRecordDispatch(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return at }

	_, ok, err := store.DispatchedAt(ctx, "req_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.RecordDispatch(ctx, "req_1", []types.ID{"d2", "d1"}))

	got, ok, err := store.DispatchedAt(ctx, "req_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(at))

	donors, err := store.NotifiedDonors(ctx, "req_1")
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"d1", "d2"}, donors)

	assert.Equal(t, dispatchTTL, mr.TTL("matching:request:req_1:dispatched_at"))
	assert.Equal(t, dispatchTTL, mr.TTL("matching:request:req_1:notified"))
}

func TestStoreRecordDispatchWithoutDonors(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordDispatch(ctx, "req_2", nil))

	_, ok, err := store.DispatchedAt(ctx, "req_2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("matching:request:req_2:notified"))

	donors, err := store.NotifiedDonors(ctx, "req_2")
	require.NoError(t, err)
	assert.Empty(t, donors)
}

func TestStoreRepeatedDispatchGrowsSet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordDispatch(ctx, "req_3", []types.ID{"d1"}))
	require.NoError(t, store.RecordDispatch(ctx, "req_3", []types.ID{"d1", "d4"}))

	donors, err := store.NotifiedDonors(ctx, "req_3")
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"d1", "d4"}, donors)
}

func TestStoreRejectsCorruptTimestamp(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, mr.Set("matching:request:req_4:dispatched_at", "yesterday"))

	_, _, err := store.DispatchedAt(context.Background(), "req_4")
	assert.Error(t, err)
}

func TestBroadcastRecordsDispatchInRedis(t *testing.T) {
	store, _ := newTestStore(t)
	f := newFixture(t, mkDonor("d1", types.OPos, true, 2))
	svc := NewService(f.donors, f.inbox, nil, WithDispatchStore(store))

	_, err := svc.Broadcast(context.Background(), f.req, 25)
	require.NoError(t, err)

	donors, err := store.NotifiedDonors(context.Background(), f.req.ID)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"d1"}, donors)
}
