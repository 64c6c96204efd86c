package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ffff/internal/romimage"
	"github.com/samcharles93/ffff/pkg/ffff"
)

func createCmd() *cli.Command {
	var (
		manifestPath string
		outPath      string
	)

	return &cli.Command{
		Name:  "create",
		Usage: "Create a flash image from a YAML manifest",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "manifest",
				Aliases:     []string{"f"},
				Usage:       "path to the image manifest",
				Destination: &manifestPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "path of the image to write",
				Destination: &outPath,
				Required:    true,
			},
		}, loggingFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx
			log := newLogger()

			m, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}

			im, err := romimage.New(m.Name, m.FlashCapacity, m.EraseBlockSize, m.ImageLength, m.Generation)
			if err != nil {
				return err
			}

			for i, me := range m.Elements {
				var payload []byte
				length := me.Length
				if me.File != "" {
					path := me.File
					if !filepath.IsAbs(path) {
						path = filepath.Join(filepath.Dir(manifestPath), path)
					}
					payload, err = os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("element %d: %w", i, err)
					}
					length = uint32(len(payload))
				}
				err = im.AddElement(ffff.ElementType(me.Type), me.ID, me.Generation, me.Location, length, payload)
				if err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
			}

			if err := im.Finalize(); err != nil {
				return err
			}
			for i, h := range im.Headers() {
				if h.Verdict() != ffff.HeaderValid {
					return fmt.Errorf("created header[%d] failed validation: %s", i, h.Verdict())
				}
			}
			for _, e := range im.Header().Elements() {
				log.Debug("placed element",
					"index", e.Index,
					"type", e.Type.String(),
					"location", fmt.Sprintf("%#x", e.Location),
					"length", e.Length,
				)
			}

			if err := im.WriteFile(outPath); err != nil {
				return err
			}
			log.Info("wrote image",
				"path", outPath,
				"elements", len(im.Header().Elements()),
				"length", im.Header().FlashImageLength,
			)
			return nil
		},
	}
}
