package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/simplemem/pkg/model"
)

func statsCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "stats",
		Usage: "Show record count and timestamp range of a memory table",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupContext(ctx)

			ns, err := cfg.namespace()
			if err != nil {
				return err
			}

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(ctx, ns)
			if errors.Is(err, model.ErrTableNotFound) {
				fmt.Fprintf(c.Root().Writer, "Table %s has no records\n", ns.String())
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Table:     %s\n", ns.String())
			fmt.Fprintf(c.Root().Writer, "Records:   %d\n", stats.RecordCount)
			fmt.Fprintf(c.Root().Writer, "Dimension: %d\n", stats.Dimension)
			fmt.Fprintf(c.Root().Writer, "Oldest:    %s\n", stats.Oldest.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(c.Root().Writer, "Newest:    %s\n", stats.Newest.Format("2006-01-02 15:04:05 MST"))

			return nil
		},
	}
}
