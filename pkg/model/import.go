package model

// DialogueTurn is one raw item of a batch import, e.g. a line of an
// external transcript. Timestamp is optional and parsed on write.
type DialogueTurn struct {
	Speaker   string `json:"speaker" yaml:"speaker"`
	Content   string `json:"content" yaml:"content"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// ImportOutcome reports the result of one turn in a batch import.
// Outcomes are returned in input order; a failed turn never aborts the
// rest of the batch.
type ImportOutcome struct {
	Index    int
	RecordID RecordID
	Err      error
}

// Failed reports whether this turn was rejected.
func (o ImportOutcome) Failed() bool {
	return o.Err != nil
}
