package memory

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/simplemem/pkg/model"
	"github.com/m-mizutani/simplemem/pkg/utils/logging"
)

// Add embeds one dialogue turn and appends it to the namespace's table.
// Only the content is embedded; speaker and timestamp travel as metadata.
func (u *UseCase) Add(ctx context.Context, ns model.Namespace, turn model.DialogueTurn) (*model.MemoryRecord, error) {
	if strings.TrimSpace(turn.Content) == "" {
		return nil, goerr.Wrap(model.ErrEmptyInput, "turn content is empty")
	}
	if strings.TrimSpace(turn.Speaker) == "" {
		return nil, goerr.Wrap(model.ErrValidation, "turn speaker is required")
	}

	ts := time.Now().UTC()
	if turn.Timestamp != "" {
		parsed, err := model.ParseTimestamp(turn.Timestamp)
		if err != nil {
			return nil, err
		}
		ts = parsed
	}

	embedding, err := u.embedder.Embed(ctx, turn.Content)
	if err != nil {
		return nil, err
	}

	rec := &model.MemoryRecord{
		ID:        model.NewRecordID(),
		Speaker:   turn.Speaker,
		Content:   turn.Content,
		Timestamp: ts,
		Embedding: embedding,
	}

	if err := u.store.Append(ctx, ns, rec); err != nil {
		return nil, err
	}

	logging.From(ctx).Debug("stored memory record",
		"table", ns.String(),
		"id", rec.ID,
		"speaker", rec.Speaker)

	return rec, nil
}

// Import stores a batch of turns. Each turn succeeds or fails on its
// own; the returned outcomes keep the input order.
func (u *UseCase) Import(ctx context.Context, ns model.Namespace, turns []model.DialogueTurn) []model.ImportOutcome {
	outcomes := make([]model.ImportOutcome, 0, len(turns))

	for i, turn := range turns {
		outcome := model.ImportOutcome{Index: i}

		rec, err := u.Add(ctx, ns, turn)
		if err != nil {
			outcome.Err = err
			logging.From(ctx).Warn("skipped turn during import",
				"table", ns.String(),
				"index", i,
				"error", err)
		} else {
			outcome.RecordID = rec.ID
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}
