package memory

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/simplemem/pkg/model"
	"github.com/m-mizutani/simplemem/pkg/utils/logging"
)

//go:embed prompt/answer.md
var answerPromptRaw string

//go:embed prompt/reflect.md
var reflectPromptRaw string

var (
	answerPromptTmpl  = template.Must(template.New("answer").Parse(answerPromptRaw))
	reflectPromptTmpl = template.Must(template.New("reflect").Parse(reflectPromptRaw))
)

const askSystemPrompt = "You are a memory assistant for a conversational agent. " +
	"You answer questions strictly from the dialogue memory you are given, never from outside knowledge."

// insufficientContextAnswer is returned without an LLM call when
// retrieval finds nothing to ground an answer on.
const insufficientContextAnswer = "I don't have enough stored context to answer that."

// AskOptions controls the question-answering path.
type AskOptions struct {
	// Reflect enables a second LLM pass that checks the draft answer
	// against the evidence before returning it.
	Reflect bool

	// Limit overrides the number of records retrieved as evidence.
	Limit int
}

type promptData struct {
	Question string
	Records  []model.ScoredRecord
	Draft    string
}

// Ask retrieves evidence for the question and synthesizes an answer
// with the configured LLM. When the LLM fails, the retrieved evidence
// is still returned alongside the error so the caller can degrade to
// raw search results.
func (u *UseCase) Ask(ctx context.Context, ns model.Namespace, question string, opts AskOptions) (*model.Answer, error) {
	if u.llm == nil {
		return nil, goerr.New("no language model configured")
	}

	records, err := u.Retrieve(ctx, ns, question, opts.Limit)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return &model.Answer{Text: insufficientContextAnswer}, nil
	}

	prompt, err := renderPrompt(answerPromptTmpl, promptData{
		Question: question,
		Records:  records,
	})
	if err != nil {
		return nil, err
	}

	draft, err := u.llm.Complete(ctx, askSystemPrompt, prompt)
	if err != nil {
		return &model.Answer{Supporting: records},
			goerr.Wrap(errors.Join(model.ErrProvider, err), "answer synthesis failed")
	}
	draft = strings.TrimSpace(draft)

	answer := &model.Answer{Text: draft, Supporting: records}
	if !opts.Reflect {
		return answer, nil
	}

	refined, err := u.reflect(ctx, question, draft, records)
	if err != nil {
		// The draft is still a usable answer; reflection is best-effort.
		logging.From(ctx).Warn("reflection pass failed, keeping draft answer", "error", err)
		return answer, nil
	}

	answer.Text = refined
	return answer, nil
}

func (u *UseCase) reflect(ctx context.Context, question, draft string, records []model.ScoredRecord) (string, error) {
	prompt, err := renderPrompt(reflectPromptTmpl, promptData{
		Question: question,
		Records:  records,
		Draft:    draft,
	})
	if err != nil {
		return "", err
	}

	refined, err := u.llm.Complete(ctx, askSystemPrompt, prompt)
	if err != nil {
		return "", goerr.Wrap(errors.Join(model.ErrProvider, err), "reflection pass failed")
	}

	return strings.TrimSpace(refined), nil
}

func renderPrompt(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render prompt template")
	}
	return buf.String(), nil
}
