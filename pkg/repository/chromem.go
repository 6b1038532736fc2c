package repository

import (
	"archive/tar"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	chromem "github.com/philippgille/chromem-go"

	"github.com/m-mizutani/simplemem/pkg/model"
)

const (
	schemaFileName = "schema.json"

	metaKeySpeaker   = "speaker"
	metaKeyTimestamp = "timestamp"
)

// tableSchema records what chromem itself cannot tell us back: the
// embedding dimension fixed by the first write, and the timestamp range
// of the stored records.
type tableSchema struct {
	Dimension int       `json:"dimension"`
	Oldest    time.Time `json:"oldest"`
	Newest    time.Time `json:"newest"`
}

// ChromemStore implements Store on an embedded chromem-go database
// persisted under a local directory. Each namespace maps to one chromem
// collection; table schemas live in a sidecar schema.json next to the
// collection data.
type ChromemStore struct {
	db     *chromem.DB
	path   string
	mu     sync.Mutex
	tables map[string]*tableSchema
}

// NewChromem opens (or creates) a persistent store at path.
func NewChromem(path string) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open chromem database", goerr.V("path", path))
	}

	s := &ChromemStore{
		db:     db,
		path:   path,
		tables: map[string]*tableSchema{},
	}

	if err := s.loadSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *ChromemStore) schemaPath() string {
	return filepath.Join(s.path, schemaFileName)
}

func (s *ChromemStore) loadSchema() error {
	raw, err := os.ReadFile(s.schemaPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return goerr.Wrap(err, "failed to read table schema")
	}

	if err := json.Unmarshal(raw, &s.tables); err != nil {
		return goerr.Wrap(err, "failed to parse table schema", goerr.V("path", s.schemaPath()))
	}

	return nil
}

// persistSchema rewrites schema.json atomically. Caller must hold s.mu.
func (s *ChromemStore) persistSchema() error {
	raw, err := json.MarshalIndent(s.tables, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode table schema")
	}

	tmp := s.schemaPath() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return goerr.Wrap(err, "failed to write table schema")
	}
	if err := os.Rename(tmp, s.schemaPath()); err != nil {
		return goerr.Wrap(err, "failed to replace table schema")
	}

	return nil
}

func (s *ChromemStore) Append(ctx context.Context, ns model.Namespace, rec *model.MemoryRecord) error {
	if len(rec.Embedding) == 0 {
		return goerr.Wrap(model.ErrValidation, "record has no embedding", goerr.V("id", rec.ID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := ns.Collection()
	schema, ok := s.tables[name]
	if ok && schema.Dimension != len(rec.Embedding) {
		return goerr.Wrap(model.ErrDimensionMismatch, "embedding dimension does not match table",
			goerr.V("table", ns.String()),
			goerr.V("expected", schema.Dimension),
			goerr.V("actual", len(rec.Embedding)))
	}

	col, err := s.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to open collection", goerr.V("table", ns.String()))
	}

	err = col.AddDocument(ctx, chromem.Document{
		ID:        string(rec.ID),
		Content:   rec.Content,
		Embedding: rec.Embedding,
		Metadata: map[string]string{
			metaKeySpeaker:   rec.Speaker,
			metaKeyTimestamp: rec.Timestamp.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to store record", goerr.V("id", rec.ID))
	}

	if !ok {
		schema = &tableSchema{
			Dimension: len(rec.Embedding),
			Oldest:    rec.Timestamp,
			Newest:    rec.Timestamp,
		}
		s.tables[name] = schema
	} else {
		if rec.Timestamp.Before(schema.Oldest) {
			schema.Oldest = rec.Timestamp
		}
		if rec.Timestamp.After(schema.Newest) {
			schema.Newest = rec.Timestamp
		}
	}

	return s.persistSchema()
}

func (s *ChromemStore) Search(ctx context.Context, ns model.Namespace, embedding []float32, limit int) ([]model.ScoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := ns.Collection()
	schema, ok := s.tables[name]
	if !ok {
		return nil, goerr.Wrap(model.ErrTableNotFound, "table has no records", goerr.V("table", ns.String()))
	}

	if len(embedding) != schema.Dimension {
		return nil, goerr.Wrap(model.ErrDimensionMismatch, "query dimension does not match table",
			goerr.V("table", ns.String()),
			goerr.V("expected", schema.Dimension),
			goerr.V("actual", len(embedding)))
	}

	col := s.db.GetCollection(name, nil)
	if col == nil {
		return nil, goerr.Wrap(model.ErrTableNotFound, "collection missing", goerr.V("table", ns.String()))
	}

	// chromem rejects nResults larger than the collection size.
	n := limit
	if count := col.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return []model.ScoredRecord{}, nil
	}

	results, err := col.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "vector query failed", goerr.V("table", ns.String()))
	}

	records := make([]model.ScoredRecord, 0, len(results))
	for _, res := range results {
		rec := model.MemoryRecord{
			ID:        model.RecordID(res.ID),
			Speaker:   res.Metadata[metaKeySpeaker],
			Content:   res.Content,
			Embedding: res.Embedding,
		}
		if ts, err := time.Parse(time.RFC3339Nano, res.Metadata[metaKeyTimestamp]); err == nil {
			rec.Timestamp = ts
		}
		records = append(records, model.ScoredRecord{
			Record: rec,
			Score:  res.Similarity,
		})
	}

	sortByScore(records)
	return records, nil
}

func (s *ChromemStore) Dimension(ctx context.Context, ns model.Namespace) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, ok := s.tables[ns.Collection()]
	if !ok {
		return 0, goerr.Wrap(model.ErrTableNotFound, "table has no records", goerr.V("table", ns.String()))
	}

	return schema.Dimension, nil
}

func (s *ChromemStore) Stats(ctx context.Context, ns model.Namespace) (*model.TableStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, ok := s.tables[ns.Collection()]
	if !ok {
		return nil, goerr.Wrap(model.ErrTableNotFound, "table has no records", goerr.V("table", ns.String()))
	}

	stats := &model.TableStats{
		Dimension: schema.Dimension,
		Oldest:    schema.Oldest,
		Newest:    schema.Newest,
	}
	if col := s.db.GetCollection(ns.Collection(), nil); col != nil {
		stats.RecordCount = col.Count()
	}

	return stats, nil
}

func (s *ChromemStore) Clear(ctx context.Context, ns model.Namespace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := ns.Collection()
	if _, ok := s.tables[name]; !ok {
		return nil
	}

	if err := s.db.DeleteCollection(name); err != nil {
		return goerr.Wrap(err, "failed to drop collection", goerr.V("table", ns.String()))
	}

	delete(s.tables, name)
	return s.persistSchema()
}

func (s *ChromemStore) Close() error {
	return nil
}

// Export writes a tar archive containing the chromem database snapshot
// and the table schema.
func (s *ChromemStore) Export(ctx context.Context, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpDir, err := os.MkdirTemp("", "simplemem-export-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create export scratch dir")
	}
	defer os.RemoveAll(tmpDir)

	dbFile := filepath.Join(tmpDir, "db.gob")
	if err := s.db.ExportToFile(dbFile, false, ""); err != nil {
		return goerr.Wrap(err, "failed to export database")
	}

	schemaRaw, err := json.Marshal(s.tables)
	if err != nil {
		return goerr.Wrap(err, "failed to encode table schema")
	}

	tw := tar.NewWriter(w)
	if err := addTarFile(tw, "db.gob", dbFile); err != nil {
		return err
	}
	if err := tw.WriteHeader(&tar.Header{
		Name: schemaFileName,
		Mode: 0600,
		Size: int64(len(schemaRaw)),
	}); err != nil {
		return goerr.Wrap(err, "failed to write archive header")
	}
	if _, err := tw.Write(schemaRaw); err != nil {
		return goerr.Wrap(err, "failed to write table schema to archive")
	}

	if err := tw.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize archive")
	}

	return nil
}

// Import restores a snapshot produced by Export into this store.
func (s *ChromemStore) Import(ctx context.Context, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpDir, err := os.MkdirTemp("", "simplemem-import-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create import scratch dir")
	}
	defer os.RemoveAll(tmpDir)

	var dbFile string
	tables := map[string]*tableSchema{}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to read archive")
		}

		switch hdr.Name {
		case "db.gob":
			dbFile = filepath.Join(tmpDir, "db.gob")
			f, err := os.Create(dbFile)
			if err != nil {
				return goerr.Wrap(err, "failed to create scratch file")
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return goerr.Wrap(err, "failed to extract database snapshot")
			}
			if err := f.Close(); err != nil {
				return goerr.Wrap(err, "failed to close scratch file")
			}

		case schemaFileName:
			if err := json.NewDecoder(tr).Decode(&tables); err != nil {
				return goerr.Wrap(err, "failed to parse table schema in archive")
			}
		}
	}

	if dbFile == "" {
		return goerr.New("archive has no database snapshot")
	}

	if err := s.db.ImportFromFile(dbFile, ""); err != nil {
		return goerr.Wrap(err, "failed to import database snapshot")
	}

	s.tables = tables
	return s.persistSchema()
}

func addTarFile(tw *tar.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return goerr.Wrap(err, "failed to open export file", goerr.V("path", path))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return goerr.Wrap(err, "failed to stat export file", goerr.V("path", path))
	}

	if err := tw.WriteHeader(&tar.Header{
		Name: name,
		Mode: 0600,
		Size: info.Size(),
	}); err != nil {
		return goerr.Wrap(err, "failed to write archive header")
	}
	if _, err := io.Copy(tw, f); err != nil {
		return goerr.Wrap(err, "failed to write archive entry")
	}

	return nil
}
