package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ffff/internal/romimage"
)

func explodeCmd() *cli.Command {
	var outPrefix string

	return &cli.Command{
		Name:      "explode",
		Usage:     "Write each element's payload to its own file",
		ArgsUsage: "<image>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "out-prefix",
				Aliases:     []string{"o"},
				Usage:       "filename prefix for the extracted payloads",
				Destination: &outPrefix,
				Required:    true,
			},
		}, loggingFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx
			log := newLogger()

			path := c.Args().First()
			if path == "" {
				return errors.New("explode: image path required")
			}

			im, err := romimage.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = im.Close() }()

			h := im.Header()
			if h == nil {
				return romimage.ErrNoHeader
			}

			for i, e := range h.Elements() {
				data := h.ElementData(e)
				if data == nil {
					return fmt.Errorf("element %d span [%#x, %#x) outside image", i, e.Location, uint64(e.Location)+uint64(e.Length))
				}
				name := fmt.Sprintf("%s_element_%d", outPrefix, i)
				if err := os.WriteFile(name, data, 0o644); err != nil {
					return err
				}
				log.Info("wrote element", "path", name, "type", e.Type.String(), "length", e.Length)
			}
			return nil
		},
	}
}
