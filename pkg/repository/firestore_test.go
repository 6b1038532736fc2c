package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/simplemem/pkg/model"
	"github.com/m-mizutani/simplemem/pkg/repository"
)

func setupFirestore(t *testing.T) *repository.FirestoreStore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID must be set to run Firestore tests")
	}

	store, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestFirestoreAppendAndSearch(t *testing.T) {
	store := setupFirestore(t)
	ctx := context.Background()

	ns := mustNamespace(t, "test-tenant", "firestore-search")
	t.Cleanup(func() { _ = store.Clear(ctx, ns) })
	gt.NoError(t, store.Clear(ctx, ns))

	now := time.Now().UTC()
	gt.NoError(t, store.Append(ctx, ns, newRecord("the cat sat on the mat", []float32{1, 0, 0}, now)))
	gt.NoError(t, store.Append(ctx, ns, newRecord("dogs chase squirrels", []float32{0, 1, 0}, now)))

	results, err := store.Search(ctx, ns, []float32{1, 0, 0}, 1)
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
	gt.Equal(t, results[0].Record.Content, "the cat sat on the mat")
}

func TestFirestoreTieBreakRecency(t *testing.T) {
	store := setupFirestore(t)
	ctx := context.Background()

	ns := mustNamespace(t, "test-tenant", "firestore-ties")
	t.Cleanup(func() { _ = store.Clear(ctx, ns) })
	gt.NoError(t, store.Clear(ctx, ns))

	// Identical embeddings score the same, so the timestamps alone
	// decide the order: newest first.
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	same := []float32{1, 0, 0}
	gt.NoError(t, store.Append(ctx, ns, newRecord("middle", same, t0.Add(time.Hour))))
	gt.NoError(t, store.Append(ctx, ns, newRecord("oldest", same, t0)))
	gt.NoError(t, store.Append(ctx, ns, newRecord("newest", same, t0.Add(2*time.Hour))))

	results, err := store.Search(ctx, ns, same, 3)
	gt.NoError(t, err)
	gt.A(t, results).Length(3)
	gt.Equal(t, results[0].Record.Content, "newest")
	gt.Equal(t, results[1].Record.Content, "middle")
	gt.Equal(t, results[2].Record.Content, "oldest")
}

func TestFirestoreDimensionMismatch(t *testing.T) {
	store := setupFirestore(t)
	ctx := context.Background()

	ns := mustNamespace(t, "test-tenant", "firestore-dim")
	t.Cleanup(func() { _ = store.Clear(ctx, ns) })
	gt.NoError(t, store.Clear(ctx, ns))

	gt.NoError(t, store.Append(ctx, ns, newRecord("first", []float32{1, 0, 0}, time.Now())))

	err := store.Append(ctx, ns, newRecord("wrong width", []float32{1, 0}, time.Now()))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDimensionMismatch))

	stats, err := store.Stats(ctx, ns)
	gt.NoError(t, err)
	gt.Equal(t, stats.RecordCount, 1)
	gt.Equal(t, stats.Dimension, 3)
}

func TestFirestoreClearIdempotent(t *testing.T) {
	store := setupFirestore(t)
	ctx := context.Background()

	ns := mustNamespace(t, "test-tenant", "firestore-clear")
	gt.NoError(t, store.Clear(ctx, ns))
	gt.NoError(t, store.Clear(ctx, ns))

	_, err := store.Dimension(ctx, ns)
	gt.True(t, errors.Is(err, model.ErrTableNotFound))
}
