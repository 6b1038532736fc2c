package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func clearCommand() *cli.Command {
	var (
		cfg   config
		force bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Skip the confirmation check",
			Destination: &force,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "clear",
		Usage: "Drop a memory table and all its records",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupContext(ctx)

			if !force {
				return goerr.New("clear is destructive, pass --force to proceed")
			}

			ns, err := cfg.namespace()
			if err != nil {
				return err
			}

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(ctx, ns); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Cleared table %s\n", ns.String())
			return nil
		},
	}
}
