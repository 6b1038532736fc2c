package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/simplemem/pkg/model"
	"github.com/m-mizutani/simplemem/pkg/usecase/memory"
)

func askCommand() *cli.Command {
	var (
		cfg     config
		reflect bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "reflect",
			Aliases:     []string{"r"},
			Usage:       "Verify the answer against the evidence with a second LLM pass",
			Sources:     cli.EnvVars("SIMPLEMEM_REFLECT"),
			Destination: &reflect,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, embedderFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, retrievalFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a question from stored memory",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupContext(ctx)

			question := c.Args().First()
			if question == "" {
				return goerr.New("question argument is required")
			}

			ns, err := cfg.namespace()
			if err != nil {
				return err
			}

			uc, store, err := cfg.newUseCase(ctx, true)
			if err != nil {
				return err
			}
			defer store.Close()

			answer, err := uc.Ask(ctx, ns, question, memory.AskOptions{
				Reflect: reflect,
				Limit:   int(cfg.topK),
			})
			if err != nil {
				// Synthesis failed but retrieval worked: show the raw
				// evidence instead of nothing.
				if errors.Is(err, model.ErrProvider) && answer != nil && len(answer.Supporting) > 0 {
					fmt.Fprintf(c.Root().Writer, "Answer synthesis unavailable; matching records:\n")
					for _, r := range answer.Supporting {
						fmt.Fprintf(c.Root().Writer, "- %s: %s\n", r.Record.Speaker, r.Record.Content)
					}
				}
				return err
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", answer.Text)
			return nil
		},
	}
}
