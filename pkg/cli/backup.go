package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/simplemem/pkg/usecase/memory"
)

func backupCommand() *cli.Command {
	var (
		cfg    config
		bucket string
		key    string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for the backup archive",
			Sources:     cli.EnvVars("SIMPLEMEM_BACKUP_BUCKET"),
			Destination: &bucket,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "key",
			Usage:       "Object key of the backup archive",
			Value:       "simplemem-backup.tar",
			Sources:     cli.EnvVars("SIMPLEMEM_BACKUP_KEY"),
			Destination: &key,
		},
	}
	flags = append(flags, logFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "backup",
		Usage: "Upload a snapshot of the embedded store to Cloud Storage",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupContext(ctx)

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			// Backup does not embed anything, so no provider is wired.
			uc := memory.New(store, nil)

			storage, err := cfg.newStorage(ctx, bucket)
			if err != nil {
				return err
			}

			if err := uc.Backup(ctx, storage, key); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Backup uploaded to gs://%s/%s\n", bucket, key)
			return nil
		},
	}
}

func restoreCommand() *cli.Command {
	var (
		cfg    config
		bucket string
		key    string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket holding the backup archive",
			Sources:     cli.EnvVars("SIMPLEMEM_BACKUP_BUCKET"),
			Destination: &bucket,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "key",
			Usage:       "Object key of the backup archive",
			Value:       "simplemem-backup.tar",
			Sources:     cli.EnvVars("SIMPLEMEM_BACKUP_KEY"),
			Destination: &key,
		},
	}
	flags = append(flags, logFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "restore",
		Usage: "Restore the embedded store from a Cloud Storage snapshot",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupContext(ctx)

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			uc := memory.New(store, nil)

			storage, err := cfg.newStorage(ctx, bucket)
			if err != nil {
				return err
			}

			if err := uc.Restore(ctx, storage, key); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Restore completed from gs://%s/%s\n", bucket, key)
			return nil
		},
	}
}
