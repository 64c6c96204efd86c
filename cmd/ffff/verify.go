package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ffff/internal/logger"
	"github.com/samcharles93/ffff/internal/romimage"
	"github.com/samcharles93/ffff/pkg/ffff"
)

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Validate both header copies of a flash image",
		ArgsUsage: "<image>",
		Flags:     loggingFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx
			log := newLogger()

			path := c.Args().First()
			if path == "" {
				return errors.New("verify: image path required")
			}

			im, err := romimage.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = im.Close() }()

			failed := false
			for i, h := range im.Headers() {
				if h == nil {
					log.Error("header missing", "copy", i)
					failed = true
					continue
				}
				if h.Verdict() != ffff.HeaderValid {
					failed = true
					log.Error("header failed validation", "copy", i, "verdict", h.Verdict().String())
					logReport(log, h.Report())
					continue
				}
				log.Info("header valid", "copy", i, "generation", h.Generation, "elements", len(h.Elements()))
			}
			if !im.Consistent() {
				failed = true
				log.Error("header copies do not match")
			}

			if failed {
				return fmt.Errorf("verify: %s is not a consistent FFFF image", path)
			}
			log.Info("image verified", "path", path)
			return nil
		},
	}
}

func logReport(log logger.Logger, report *ffff.TableReport) {
	if report == nil {
		return
	}
	for i, c := range report.Collisions {
		if len(c) > 0 {
			log.Error("element collides", "index", i, "with", c)
		}
	}
	for i, d := range report.Duplicates {
		if len(d) > 0 {
			log.Error("element duplicated", "index", i, "of", d)
		}
	}
	for _, i := range report.Invalid {
		log.Error("element invalid", "index", i)
	}
}
