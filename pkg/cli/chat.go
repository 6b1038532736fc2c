package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/simplemem/pkg/usecase/memory"
)

func chatCommand() *cli.Command {
	var (
		cfg     config
		reflect bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "reflect",
			Aliases:     []string{"r"},
			Usage:       "Verify each answer against the evidence with a second LLM pass",
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
		Name:  "chat",
		Usage: "Interactive question answering over stored memory",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupContext(ctx)

			ns, err := cfg.namespace()
			if err != nil {
				return err
			}

			uc, store, err := cfg.newUseCase(ctx, true)
			if err != nil {
				return err
			}
			defer store.Close()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Chatting with memory %s. Type 'exit' to quit.\n", ns.String())

			for {
				line, err := rl.Readline()
				if err == readline.ErrInterrupt {
					continue
				}
				if err == io.EOF {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				sp.Suffix = " recalling..."
				sp.Start()

				answer, err := uc.Ask(ctx, ns, line, memory.AskOptions{
					Reflect: reflect,
					Limit:   int(cfg.topK),
				})
				sp.Stop()

				if err != nil {
					if answer != nil && len(answer.Supporting) > 0 {
						fmt.Fprintf(c.Root().Writer, "(synthesis unavailable, showing matches)\n")
						for _, r := range answer.Supporting {
							fmt.Fprintf(c.Root().Writer, "- %s: %s\n", r.Record.Speaker, r.Record.Content)
						}
						continue
					}
					fmt.Fprintf(c.Root().Writer, "error: %s\n", err)
					continue
				}

				fmt.Fprintf(c.Root().Writer, "%s\n", answer.Text)
			}

			fmt.Fprintf(c.Root().Writer, "\nChat session completed\n")
			return nil
		},
	}
}
