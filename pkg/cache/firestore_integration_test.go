//go:build integration

package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/go-intseq/pkg/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type firestoreTestValue struct {
	Name  string
	Count int
}

func TestFirestoreStore_Integration(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	const projectID = "test-project"
	const collectionName = "test-collection"
	const docID = "fib.go:10"

	// The client picks up the emulator from the environment.
	client, err := firestore.NewClient(ctx, projectID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cfg := &cache.FirestoreConfig{
		ProjectID:      projectID,
		CollectionName: collectionName,
	}
	store, err := cache.NewFirestoreStore[string, firestoreTestValue](cfg, client, zerolog.Nop())
	require.NoError(t, err)

	t.Run("Write then Fetch", func(t *testing.T) {
		want := firestoreTestValue{Name: "test-item", Count: 42}
		require.NoError(t, store.WriteToCache(ctx, docID, want))

		retrieved, err := store.FetchFromCache(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, want, retrieved)
	})

	t.Run("Fetch Miss", func(t *testing.T) {
		_, err := store.FetchFromCache(ctx, "non-existent-doc")
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("Keys with slashes are escaped", func(t *testing.T) {
		want := firestoreTestValue{Name: "slashed", Count: 1}
		require.NoError(t, store.WriteToCache(ctx, "a/b", want))

		got, err := store.FetchFromCache(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, store.WriteToCache(ctx, "gone", firestoreTestValue{Name: "gone"}))
		require.NoError(t, store.Invalidate(ctx, "gone"))

		_, err := store.FetchFromCache(ctx, "gone")
		assert.ErrorIs(t, err, cache.ErrMiss)
	})
}
