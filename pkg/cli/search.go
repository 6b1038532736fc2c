package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, embedderFlags(&cfg)...)
	flags = append(flags, retrievalFlags(&cfg)...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Retrieve memory records by semantic similarity",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupContext(ctx)

			query := c.Args().First()
			if query == "" {
				return goerr.New("query argument is required")
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

			results, err := uc.Retrieve(ctx, ns, query, int(cfg.topK))
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintf(c.Root().Writer, "No matching records in %s\n", ns.String())
				return nil
			}

			for i, r := range results {
				fmt.Fprintf(c.Root().Writer, "%2d. [%.3f] %s %s: %s\n",
					i+1,
					r.Score,
					r.Record.Timestamp.Format("2006-01-02 15:04"),
					r.Record.Speaker,
					r.Record.Content)
			}

			return nil
		},
	}
}
