package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ffff/internal/version"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the tool version",
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx
			fmt.Println(version.String())
			return nil
		},
	}
}
