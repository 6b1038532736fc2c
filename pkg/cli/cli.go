package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "simplemem",
		Usage: "Semantic dialogue memory for conversational agents",
		Commands: []*cli.Command{
			addCommand(),
			importCommand(),
			searchCommand(),
			askCommand(),
			chatCommand(),
			statsCommand(),
			clearCommand(),
			backupCommand(),
			restoreCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
