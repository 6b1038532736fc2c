package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/m-mizutani/simplemem/pkg/model"
)

func importCommand() *cli.Command {
	var (
		cfg   config
		input string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Path to a YAML or JSON transcript of dialogue turns",
			Destination: &input,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, embedderFlags(&cfg)...)

	return &cli.Command{
		Name:  "import",
		Usage: "Store a batch of dialogue turns from a transcript file",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupContext(ctx)

			raw, err := os.ReadFile(input)
			if err != nil {
				return goerr.Wrap(err, "failed to read transcript", goerr.V("path", input))
			}

			// YAML is a superset of JSON, so one decoder covers both.
			var turns []model.DialogueTurn
			if err := yaml.Unmarshal(raw, &turns); err != nil {
				return goerr.Wrap(err, "failed to parse transcript", goerr.V("path", input))
			}

			ns, err := cfg.namespace()
			if err != nil {
				return err
			}

			uc, store, err := cfg.newUseCase(ctx, false)
			if err != nil {
				return err
			}
			defer store.Close()

			outcomes := uc.Import(ctx, ns, turns)

			stored := 0
			for _, o := range outcomes {
				if o.Failed() {
					fmt.Fprintf(c.Root().Writer, "turn %d skipped: %s\n", o.Index, o.Err)
				} else {
					stored++
				}
			}
			fmt.Fprintf(c.Root().Writer, "Imported %d/%d turns into %s\n", stored, len(turns), ns.String())

			return nil
		},
	}
}
