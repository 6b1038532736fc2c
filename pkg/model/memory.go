package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type RecordID string

// NewRecordID generates a new unique RecordID
func NewRecordID() RecordID {
	return RecordID(uuid.New().String())
}

// MemoryRecord is one stored dialogue turn. Records are immutable after
// write; deletion happens only through a whole-table Clear.
type MemoryRecord struct {
	ID        RecordID
	Speaker   string
	Content   string
	Timestamp time.Time
	Embedding []float32
}

// ScoredRecord pairs a retrieved record with its similarity score.
// It is ephemeral and never persisted.
type ScoredRecord struct {
	Record MemoryRecord
	Score  float32
}

// TableStats summarizes one namespace's table.
type TableStats struct {
	RecordCount int
	Dimension   int
	Oldest      time.Time
	Newest      time.Time
}

// Answer is the result of the question-answering path: a synthesized
// answer plus the records it was grounded on.
type Answer struct {
	Text       string
	Supporting []ScoredRecord
}

// timestampLayouts are the accepted ISO-8601 shapes. SimpleMem transcripts
// commonly carry naive stamps without a zone; those are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses an ISO-8601 datetime string.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, goerr.Wrap(ErrValidation, "malformed timestamp", goerr.V("timestamp", s))
}
