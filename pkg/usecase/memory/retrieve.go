package memory

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/simplemem/pkg/model"
)

// Retrieve embeds the query and returns the most similar records,
// ordered by similarity. limit <= 0 falls back to the configured top-k.
// A namespace that was never written to yields an empty result, not an
// error: an agent asking about an unknown user simply knows nothing yet.
func (u *UseCase) Retrieve(ctx context.Context, ns model.Namespace, query string, limit int) ([]model.ScoredRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, goerr.Wrap(model.ErrEmptyInput, "query is empty")
	}
	if limit <= 0 {
		limit = u.topK
	}

	dim, err := u.store.Dimension(ctx, ns)
	if err != nil {
		if errors.Is(err, model.ErrTableNotFound) {
			return []model.ScoredRecord{}, nil
		}
		return nil, err
	}

	// Fail before spending an embedding call when the providers can
	// never line up.
	if u.embedder.Dimensions() != dim {
		return nil, goerr.Wrap(model.ErrDimensionMismatch, "embedder does not match table dimension",
			goerr.V("table", ns.String()),
			goerr.V("table_dimension", dim),
			goerr.V("embedder_dimension", u.embedder.Dimensions()))
	}

	embedding, err := u.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	return u.store.Search(ctx, ns, embedding, limit)
}
