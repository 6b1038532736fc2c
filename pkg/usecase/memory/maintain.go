package memory

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/simplemem/pkg/adapter"
	"github.com/m-mizutani/simplemem/pkg/model"
	"github.com/m-mizutani/simplemem/pkg/repository"
	"github.com/m-mizutani/simplemem/pkg/utils/logging"
)

// Stats reports record count, dimension and timestamp range of a table.
// A table that was never written to (or was cleared) reports zero
// records rather than an error, matching Retrieve's empty-result view.
func (u *UseCase) Stats(ctx context.Context, ns model.Namespace) (*model.TableStats, error) {
	stats, err := u.store.Stats(ctx, ns)
	if err != nil {
		if errors.Is(err, model.ErrTableNotFound) {
			return &model.TableStats{}, nil
		}
		return nil, err
	}
	return stats, nil
}

// Clear drops a table and all its records. Clearing a table that does
// not exist is a no-op.
func (u *UseCase) Clear(ctx context.Context, ns model.Namespace) error {
	if err := u.store.Clear(ctx, ns); err != nil {
		return err
	}

	logging.From(ctx).Info("cleared memory table", "table", ns.String())
	return nil
}

// Backup streams a snapshot of the whole store to remote storage.
// Only exportable stores (the embedded backend) support this.
func (u *UseCase) Backup(ctx context.Context, storage adapter.Storage, key string) error {
	exporter, ok := u.store.(repository.Exporter)
	if !ok {
		return goerr.New("store backend does not support backup")
	}

	w, err := storage.Put(ctx, key)
	if err != nil {
		return err
	}

	if err := exporter.Export(ctx, w); err != nil {
		w.Close()
		return err
	}

	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize backup upload", goerr.V("key", key))
	}

	logging.From(ctx).Info("backup completed", "key", key)
	return nil
}

// Restore imports a snapshot previously written by Backup.
func (u *UseCase) Restore(ctx context.Context, storage adapter.Storage, key string) error {
	importer, ok := u.store.(repository.Exporter)
	if !ok {
		return goerr.New("store backend does not support restore")
	}

	r, err := storage.Get(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := importer.Import(ctx, r); err != nil {
		return err
	}

	logging.From(ctx).Info("restore completed", "key", key)
	return nil
}
