package memory

import (
	"io"
	"os"

	"github.com/m-mizutani/simplemem/pkg/adapter"
	"github.com/m-mizutani/simplemem/pkg/repository"
)

const defaultTopK = 5

// UseCase provides memory write, retrieval and maintenance operations.
type UseCase struct {
	store    repository.Store
	embedder adapter.Embedder
	llm      adapter.LLM
	topK     int
	output   io.Writer
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithOutput sets the output writer
func WithOutput(w io.Writer) Option {
	return func(uc *UseCase) {
		uc.output = w
	}
}

// WithLLM sets the language model used by Ask. Without it, Ask fails
// but all other operations work.
func WithLLM(llm adapter.LLM) Option {
	return func(uc *UseCase) {
		uc.llm = llm
	}
}

// WithTopK sets the default number of records retrieved per query.
func WithTopK(k int) Option {
	return func(uc *UseCase) {
		if k > 0 {
			uc.topK = k
		}
	}
}

// New creates a new memory UseCase instance
func New(
	store repository.Store,
	embedder adapter.Embedder,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		store:    store,
		embedder: embedder,
		topK:     defaultTopK,
		output:   os.Stdout,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
