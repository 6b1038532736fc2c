package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/simplemem/pkg/model"
	"github.com/m-mizutani/simplemem/pkg/repository"
	"github.com/m-mizutani/simplemem/pkg/usecase/memory"
)

// mockEmbedder maps text to a bag-of-words vector over a fixed
// vocabulary. Deterministic, so similarity ordering in tests is stable.
type mockEmbedder struct {
	vocab []string
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vocab: []string{"tea", "coffee", "cat", "dog", "paris", "tokyo", "alice", "bob"},
	}
}

func (m *mockEmbedder) Dimensions() int {
	// One extra bias component keeps vectors off the zero point even
	// when no vocabulary word matches.
	return len(m.vocab) + 1
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, m.Dimensions())
	words := strings.Fields(strings.ToLower(text))
	for i, v := range m.vocab {
		for _, w := range words {
			if strings.Trim(w, ".,!?") == v {
				vec[i]++
			}
		}
	}
	vec[len(m.vocab)] = 0.1
	return vec, nil
}

type mockLLM struct {
	prompts    []string
	completeFn func(system, prompt string) (string, error)
}

func (m *mockLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.completeFn(system, prompt)
}

func setup(t *testing.T, opts ...memory.Option) (*memory.UseCase, model.Namespace) {
	t.Helper()

	store, err := repository.NewChromem(t.TempDir())
	gt.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ns, err := model.NewNamespace("acme", "")
	gt.NoError(t, err)

	return memory.New(store, newMockEmbedder(), opts...), ns
}

func TestAddAndRetrieve(t *testing.T) {
	ctx := context.Background()
	uc, ns := setup(t)

	turns := []model.DialogueTurn{
		{Speaker: "alice", Content: "I always drink tea in the morning"},
		{Speaker: "alice", Content: "my cat is named Whiskers"},
		{Speaker: "bob", Content: "I moved to tokyo last year"},
	}
	for _, turn := range turns {
		_, err := uc.Add(ctx, ns, turn)
		gt.NoError(t, err)
	}

	results, err := uc.Retrieve(ctx, ns, "what does alice like to drink, tea or coffee?", 2)
	gt.NoError(t, err)
	gt.A(t, results).Length(2)
	gt.S(t, results[0].Record.Content).Contains("tea")
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	uc, ns := setup(t)

	t.Run("empty content", func(t *testing.T) {
		_, err := uc.Add(ctx, ns, model.DialogueTurn{Speaker: "alice", Content: "   "})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrEmptyInput))
	})

	t.Run("missing speaker", func(t *testing.T) {
		_, err := uc.Add(ctx, ns, model.DialogueTurn{Content: "hello"})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrValidation))
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		_, err := uc.Add(ctx, ns, model.DialogueTurn{
			Speaker:   "alice",
			Content:   "hello",
			Timestamp: "yesterday",
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrValidation))
	})
}

func TestRetrieveUnknownTableIsEmpty(t *testing.T) {
	ctx := context.Background()
	uc, ns := setup(t)

	results, err := uc.Retrieve(ctx, ns, "anything at all", 5)
	gt.NoError(t, err)
	gt.A(t, results).Length(0)
}

func TestRetrieveEmptyQuery(t *testing.T) {
	ctx := context.Background()
	uc, ns := setup(t)

	_, err := uc.Retrieve(ctx, ns, " \t", 5)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrEmptyInput))
}

func TestRetrieveDefaultLimit(t *testing.T) {
	ctx := context.Background()
	uc, ns := setup(t, memory.WithTopK(3))

	contents := []string{
		"tea one", "tea two", "tea three", "tea four", "tea five",
	}
	for _, c := range contents {
		_, err := uc.Add(ctx, ns, model.DialogueTurn{Speaker: "alice", Content: c})
		gt.NoError(t, err)
	}

	results, err := uc.Retrieve(ctx, ns, "tea", 0)
	gt.NoError(t, err)
	gt.A(t, results).Length(3)
}

func TestImportPartialFailure(t *testing.T) {
	ctx := context.Background()
	uc, ns := setup(t)

	turns := []model.DialogueTurn{
		{Speaker: "alice", Content: "I drink tea"},
		{Speaker: "bob", Content: ""},
		{Speaker: "alice", Content: "my dog barks", Timestamp: "not-a-time"},
		{Speaker: "bob", Content: "I live in paris", Timestamp: "2025-03-01T09:00:00"},
	}

	outcomes := uc.Import(ctx, ns, turns)
	gt.A(t, outcomes).Length(4)

	gt.False(t, outcomes[0].Failed())
	gt.NotEqual(t, outcomes[0].RecordID, model.RecordID(""))

	gt.True(t, outcomes[1].Failed())
	gt.True(t, errors.Is(outcomes[1].Err, model.ErrEmptyInput))

	gt.True(t, outcomes[2].Failed())
	gt.True(t, errors.Is(outcomes[2].Err, model.ErrValidation))

	gt.False(t, outcomes[3].Failed())

	// Order of outcomes matches input order.
	for i, o := range outcomes {
		gt.Equal(t, o.Index, i)
	}

	stats, err := uc.Stats(ctx, ns)
	gt.NoError(t, err)
	gt.Equal(t, stats.RecordCount, 2)
}

func TestAsk(t *testing.T) {
	ctx := context.Background()
	llm := &mockLLM{
		completeFn: func(system, prompt string) (string, error) {
			return "Alice drinks tea.", nil
		},
	}
	uc, ns := setup(t, memory.WithLLM(llm))

	_, err := uc.Add(ctx, ns, model.DialogueTurn{Speaker: "alice", Content: "I always drink tea"})
	gt.NoError(t, err)

	answer, err := uc.Ask(ctx, ns, "what does alice drink? tea?", memory.AskOptions{})
	gt.NoError(t, err)
	gt.Equal(t, answer.Text, "Alice drinks tea.")
	gt.A(t, answer.Supporting).Length(1)

	// The retrieved evidence made it into the prompt.
	gt.A(t, llm.prompts).Length(1)
	gt.S(t, llm.prompts[0]).Contains("I always drink tea")
}

func TestAskWithoutEvidence(t *testing.T) {
	ctx := context.Background()
	llm := &mockLLM{
		completeFn: func(system, prompt string) (string, error) {
			t.Fatal("LLM must not be called without evidence")
			return "", nil
		},
	}
	uc, ns := setup(t, memory.WithLLM(llm))

	answer, err := uc.Ask(ctx, ns, "who is alice?", memory.AskOptions{})
	gt.NoError(t, err)
	gt.S(t, answer.Text).Contains("enough stored context")
	gt.A(t, answer.Supporting).Length(0)
}

func TestAskDegradesOnProviderFailure(t *testing.T) {
	ctx := context.Background()
	overloaded := errors.New("model overloaded")
	llm := &mockLLM{
		completeFn: func(system, prompt string) (string, error) {
			return "", overloaded
		},
	}
	uc, ns := setup(t, memory.WithLLM(llm))

	_, err := uc.Add(ctx, ns, model.DialogueTurn{Speaker: "alice", Content: "I drink tea"})
	gt.NoError(t, err)

	answer, err := uc.Ask(ctx, ns, "does alice drink tea?", memory.AskOptions{})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrProvider))
	// The original failure stays inspectable behind the sentinel.
	gt.True(t, errors.Is(err, overloaded))

	// Evidence survives even when synthesis fails.
	gt.NotNil(t, answer)
	gt.A(t, answer.Supporting).Length(1)
}

func TestAskReflection(t *testing.T) {
	ctx := context.Background()
	llm := &mockLLM{}
	llm.completeFn = func(system, prompt string) (string, error) {
		if len(llm.prompts) == 1 {
			return "draft answer", nil
		}
		gt.S(t, prompt).Contains("draft answer")
		return "refined answer", nil
	}
	uc, ns := setup(t, memory.WithLLM(llm))

	_, err := uc.Add(ctx, ns, model.DialogueTurn{Speaker: "alice", Content: "I drink tea"})
	gt.NoError(t, err)

	answer, err := uc.Ask(ctx, ns, "does alice drink tea?", memory.AskOptions{Reflect: true})
	gt.NoError(t, err)
	gt.Equal(t, answer.Text, "refined answer")
	gt.A(t, llm.prompts).Length(2)
}

func TestAskReflectionFallsBackToDraft(t *testing.T) {
	ctx := context.Background()
	llm := &mockLLM{}
	llm.completeFn = func(system, prompt string) (string, error) {
		if len(llm.prompts) == 1 {
			return "draft answer", nil
		}
		return "", errors.New("model overloaded")
	}
	uc, ns := setup(t, memory.WithLLM(llm))

	_, err := uc.Add(ctx, ns, model.DialogueTurn{Speaker: "alice", Content: "I drink tea"})
	gt.NoError(t, err)

	answer, err := uc.Ask(ctx, ns, "does alice drink tea?", memory.AskOptions{Reflect: true})
	gt.NoError(t, err)
	gt.Equal(t, answer.Text, "draft answer")
}

func TestAskWithoutLLM(t *testing.T) {
	ctx := context.Background()
	uc, ns := setup(t)

	_, err := uc.Ask(ctx, ns, "anything", memory.AskOptions{})
	gt.Error(t, err)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	uc, ns := setup(t)

	_, err := uc.Add(ctx, ns, model.DialogueTurn{Speaker: "alice", Content: "I drink tea"})
	gt.NoError(t, err)

	gt.NoError(t, uc.Clear(ctx, ns))
	gt.NoError(t, uc.Clear(ctx, ns))

	stats, err := uc.Stats(ctx, ns)
	gt.NoError(t, err)
	gt.Equal(t, stats.RecordCount, 0)

	results, err := uc.Retrieve(ctx, ns, "tea", 5)
	gt.NoError(t, err)
	gt.A(t, results).Length(0)
}
