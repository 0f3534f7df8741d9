package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parohia/parohia/internal/database/testutil"
)

func TestDatabaseStoreSetGet(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "greeting", []byte("salut"), time.Minute))

	value, found, err := store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("salut"), value)

	_, found, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreOverwrite(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", []byte("one"), time.Minute))
	require.NoError(t, store.Set(ctx, "key", []byte("two"), time.Minute))

	value, found, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("two"), value)
}

func TestDatabaseStoreExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, found, err := store.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, store.Delete(ctx, "a", "b"))

	_, found, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreNilHandle(t *testing.T) {
	store := NewDatabaseStore(nil)
	require.Nil(t, store)

	err := store.Set(context.Background(), "k", nil, 0)
	require.Error(t, err)
}
