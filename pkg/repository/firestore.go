package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/m-mizutani/simplemem/pkg/model"
)

const (
	tenantCollection  = "tenants"
	tableCollection   = "tables"
	recordsCollection = "records"

	embeddingField = "embedding"
	distanceField  = "vector_distance"
)

// FirestoreStore implements Store on Cloud Firestore. The table schema
// lives on the table document itself; records are a subcollection
// queried with native vector search.
type FirestoreStore struct {
	client *firestore.Client
}

type firestoreTableDoc struct {
	Dimension int       `firestore:"dimension"`
	Oldest    time.Time `firestore:"oldest"`
	Newest    time.Time `firestore:"newest"`
}

type firestoreRecordDoc struct {
	Speaker   string             `firestore:"speaker"`
	Content   string             `firestore:"content"`
	Timestamp time.Time          `firestore:"timestamp"`
	Embedding firestore.Vector32 `firestore:"embedding"`
}

// firestoreSearchDoc adds the distance field FindNearest writes into
// each result.
type firestoreSearchDoc struct {
	firestoreRecordDoc
	Distance float64 `firestore:"vector_distance"`
}

// NewFirestore creates a Firestore-backed store. databaseID may be
// empty for the project's default database.
func NewFirestore(ctx context.Context, projectID, databaseID string) (*FirestoreStore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client", goerr.V("project", projectID))
	}

	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) tableRef(ns model.Namespace) *firestore.DocumentRef {
	return s.client.Collection(tenantCollection).Doc(ns.Tenant).Collection(tableCollection).Doc(ns.Table)
}

func (s *FirestoreStore) recordsRef(ns model.Namespace) *firestore.CollectionRef {
	return s.tableRef(ns).Collection(recordsCollection)
}

func (s *FirestoreStore) Append(ctx context.Context, ns model.Namespace, rec *model.MemoryRecord) error {
	if len(rec.Embedding) == 0 {
		return goerr.Wrap(model.ErrValidation, "record has no embedding", goerr.V("id", rec.ID))
	}

	tableRef := s.tableRef(ns)
	recordRef := s.recordsRef(ns).Doc(string(rec.ID))

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(tableRef)
		switch {
		case status.Code(err) == codes.NotFound:
			// First write establishes the table schema.
			if err := tx.Set(tableRef, firestoreTableDoc{
				Dimension: len(rec.Embedding),
				Oldest:    rec.Timestamp,
				Newest:    rec.Timestamp,
			}); err != nil {
				return err
			}

		case err != nil:
			return err

		default:
			var table firestoreTableDoc
			if err := snap.DataTo(&table); err != nil {
				return err
			}
			if table.Dimension != len(rec.Embedding) {
				return goerr.Wrap(model.ErrDimensionMismatch, "embedding dimension does not match table",
					goerr.V("table", ns.String()),
					goerr.V("expected", table.Dimension),
					goerr.V("actual", len(rec.Embedding)))
			}

			updated := table
			if rec.Timestamp.Before(table.Oldest) {
				updated.Oldest = rec.Timestamp
			}
			if rec.Timestamp.After(table.Newest) {
				updated.Newest = rec.Timestamp
			}
			if updated != table {
				if err := tx.Set(tableRef, updated); err != nil {
					return err
				}
			}
		}

		return tx.Set(recordRef, firestoreRecordDoc{
			Speaker:   rec.Speaker,
			Content:   rec.Content,
			Timestamp: rec.Timestamp,
			Embedding: firestore.Vector32(rec.Embedding),
		})
	})
	if err != nil {
		return goerr.Wrap(err, "failed to store record", goerr.V("id", rec.ID))
	}

	return nil
}

func (s *FirestoreStore) Search(ctx context.Context, ns model.Namespace, embedding []float32, limit int) ([]model.ScoredRecord, error) {
	dim, err := s.Dimension(ctx, ns)
	if err != nil {
		return nil, err
	}
	if len(embedding) != dim {
		return nil, goerr.Wrap(model.ErrDimensionMismatch, "query dimension does not match table",
			goerr.V("table", ns.String()),
			goerr.V("expected", dim),
			goerr.V("actual", len(embedding)))
	}

	query := s.recordsRef(ns).FindNearest(
		embeddingField,
		firestore.Vector32(embedding),
		limit,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField},
	)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var records []model.ScoredRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "vector query failed", goerr.V("table", ns.String()))
		}

		var doc firestoreSearchDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode record", goerr.V("id", snap.Ref.ID))
		}

		records = append(records, model.ScoredRecord{
			Record: model.MemoryRecord{
				ID:        model.RecordID(snap.Ref.ID),
				Speaker:   doc.Speaker,
				Content:   doc.Content,
				Timestamp: doc.Timestamp,
				Embedding: []float32(doc.Embedding),
			},
			// Cosine distance is 1 - similarity.
			Score: float32(1 - doc.Distance),
		})
	}

	if records == nil {
		records = []model.ScoredRecord{}
	}

	sortByScore(records)
	return records, nil
}

func (s *FirestoreStore) Dimension(ctx context.Context, ns model.Namespace) (int, error) {
	snap, err := s.tableRef(ns).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return 0, goerr.Wrap(model.ErrTableNotFound, "table has no records", goerr.V("table", ns.String()))
	}
	if err != nil {
		return 0, goerr.Wrap(err, "failed to read table schema", goerr.V("table", ns.String()))
	}

	var table firestoreTableDoc
	if err := snap.DataTo(&table); err != nil {
		return 0, goerr.Wrap(err, "failed to decode table schema", goerr.V("table", ns.String()))
	}

	return table.Dimension, nil
}

func (s *FirestoreStore) Stats(ctx context.Context, ns model.Namespace) (*model.TableStats, error) {
	snap, err := s.tableRef(ns).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, goerr.Wrap(model.ErrTableNotFound, "table has no records", goerr.V("table", ns.String()))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read table schema", goerr.V("table", ns.String()))
	}

	var table firestoreTableDoc
	if err := snap.DataTo(&table); err != nil {
		return nil, goerr.Wrap(err, "failed to decode table schema", goerr.V("table", ns.String()))
	}

	count := 0
	iter := s.recordsRef(ns).Select().Documents(ctx)
	defer iter.Stop()
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to count records", goerr.V("table", ns.String()))
		}
		count++
	}

	return &model.TableStats{
		RecordCount: count,
		Dimension:   table.Dimension,
		Oldest:      table.Oldest,
		Newest:      table.Newest,
	}, nil
}

func (s *FirestoreStore) Clear(ctx context.Context, ns model.Namespace) error {
	_, err := s.tableRef(ns).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return goerr.Wrap(err, "failed to read table schema", goerr.V("table", ns.String()))
	}

	bw := s.client.BulkWriter(ctx)

	iter := s.recordsRef(ns).Select().Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to list records", goerr.V("table", ns.String()))
		}
		if _, err := bw.Delete(snap.Ref); err != nil {
			return goerr.Wrap(err, "failed to queue record delete", goerr.V("id", snap.Ref.ID))
		}
	}

	if _, err := bw.Delete(s.tableRef(ns)); err != nil {
		return goerr.Wrap(err, "failed to queue table delete", goerr.V("table", ns.String()))
	}

	bw.End()
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
