package repository

import (
	"context"
	"io"
	"sort"

	"github.com/m-mizutani/simplemem/pkg/model"
)

// Store defines the interface for vector record persistence. A table is
// identified by its Namespace; tables are created lazily by the first
// Append and their embedding dimension is fixed at that moment.
type Store interface {
	// Append stores a record in the namespace's table. The table is
	// created on first write with the record's embedding dimension;
	// subsequent writes with a different dimension fail with
	// model.ErrDimensionMismatch and leave the table unchanged.
	Append(ctx context.Context, ns model.Namespace, rec *model.MemoryRecord) error

	// Search returns up to limit records ordered by cosine similarity
	// (descending). Searching a table that does not exist fails with
	// model.ErrTableNotFound; a query vector of the wrong dimension
	// fails with model.ErrDimensionMismatch.
	Search(ctx context.Context, ns model.Namespace, embedding []float32, limit int) ([]model.ScoredRecord, error)

	// Dimension returns the established embedding dimension of the
	// table, or model.ErrTableNotFound if it was never written to.
	Dimension(ctx context.Context, ns model.Namespace) (int, error)

	// Stats reports record count, dimension and timestamp range.
	Stats(ctx context.Context, ns model.Namespace) (*model.TableStats, error)

	// Clear drops the table and all its records. Clearing a table that
	// does not exist is a no-op.
	Clear(ctx context.Context, ns model.Namespace) error

	// Close releases underlying resources.
	Close() error
}

// sortByScore orders results by similarity descending, breaking ties by
// recency so equally similar records come back newest first. Every
// backend applies it so Search ordering is deterministic regardless of
// the underlying engine's internal order.
func sortByScore(records []model.ScoredRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].Record.Timestamp.After(records[j].Record.Timestamp)
	})
}

// Exporter is implemented by stores that can serialize their whole
// on-disk state for backup. The archive produced by Export round-trips
// through Import on an empty store of the same kind.
type Exporter interface {
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader) error
}
