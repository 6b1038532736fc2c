package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/simplemem/pkg/model"
)

func addCommand() *cli.Command {
	var (
		cfg       config
		speaker   string
		timestamp string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "speaker",
			Aliases:     []string{"s"},
			Usage:       "Speaker of the dialogue turn",
			Sources:     cli.EnvVars("SIMPLEMEM_SPEAKER"),
			Destination: &speaker,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "timestamp",
			Usage:       "ISO-8601 timestamp of the turn (defaults to now)",
			Destination: &timestamp,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, embedderFlags(&cfg)...)

	return &cli.Command{
		Name:      "add",
		Usage:     "Store one dialogue turn in memory",
		ArgsUsage: "<content>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupContext(ctx)

			content := c.Args().First()
			if content == "" {
				return goerr.New("content argument is required")
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

			rec, err := uc.Add(ctx, ns, model.DialogueTurn{
				Speaker:   speaker,
				Content:   content,
				Timestamp: timestamp,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Stored record %s in %s\n", rec.ID, ns.String())
			return nil
		},
	}
}
