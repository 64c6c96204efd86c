package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ffff/internal/romimage"
	"github.com/samcharles93/ffff/pkg/ffff"
)

type jsonElement struct {
	Index      int    `json:"index"`
	Type       uint32 `json:"type"`
	TypeName   string `json:"type_name"`
	ID         uint32 `json:"id"`
	Generation uint32 `json:"generation"`
	Location   uint32 `json:"location"`
	Length     uint32 `json:"length"`
	Collisions []int  `json:"collisions,omitempty"`
	Duplicates []int  `json:"duplicates,omitempty"`
}

type jsonHeader struct {
	Verdict        string        `json:"verdict"`
	Timestamp      string        `json:"timestamp"`
	FlashImageName string        `json:"flash_image_name"`
	FlashCapacity  uint32        `json:"flash_capacity"`
	EraseBlockSize uint32        `json:"erase_block_size"`
	HeaderSize     uint32        `json:"header_size"`
	ImageLength    uint32        `json:"image_length"`
	Generation     uint32        `json:"generation"`
	Elements       []jsonElement `json:"elements"`
}

type jsonImage struct {
	Path       string       `json:"path"`
	Consistent bool         `json:"headers_consistent"`
	Headers    []jsonHeader `json:"headers"`
}

func displayCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "display",
		Usage:     "Display the headers of a flash image",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit a machine-readable summary",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx
			path := c.Args().First()
			if path == "" {
				return errors.New("display: image path required")
			}

			im, err := romimage.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = im.Close() }()

			if asJSON {
				return displayJSON(path, im)
			}
			for i, h := range im.Headers() {
				if h == nil {
					fmt.Printf("FFFF Header[%d]: missing\n\n", i)
					continue
				}
				displayHeader(i, path, h)
			}
			if im.Consistent() {
				fmt.Println("The two headers match")
			} else {
				fmt.Println("The two headers DIFFER")
			}
			return nil
		},
	}
}

// cString renders a fixed-width header string field, stopping at the first
// NUL.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func displayHeader(index int, path string, h *ffff.Header) {
	fmt.Printf("FFFF Header[%d] for: %s (%s)\n", index, path, h.Verdict())
	fmt.Printf("  Sentinel:             '%s'\n", cString(h.Sentinel[:]))
	fmt.Printf("  Timestamp:            '%s'\n", cString(h.Timestamp[:]))
	fmt.Printf("  Flash image name:     '%s'\n", cString(h.FlashImageName[:]))
	fmt.Printf("  Flash capacity:       0x%08x\n", h.FlashCapacity)
	fmt.Printf("  Erase block size:     0x%08x\n", h.EraseBlockSize)
	fmt.Printf("  Header size:          0x%08x\n", h.HeaderSize)
	fmt.Printf("  Flash image length:   0x%08x\n", h.FlashImageLength)
	fmt.Printf("  Header generation:    0x%08x (%d)\n", h.Generation, h.Generation)

	fmt.Println("  Element Table:")
	fmt.Println("     Type       ID         Generation Location   Length")
	report := h.Report()
	for i, e := range h.Elements() {
		fmt.Printf("  %2d 0x%08x 0x%08x 0x%08x 0x%08x 0x%08x (%s)\n",
			i, uint32(e.Type), e.ID, e.Generation, e.Location, e.Length, e.Type)
		if report == nil || i >= len(report.Collisions) {
			continue
		}
		if len(report.Collisions[i]) > 0 {
			fmt.Printf("           Collides with element(s): %v\n", report.Collisions[i])
		}
		if len(report.Duplicates[i]) > 0 {
			fmt.Printf("           Duplicates element(s): %v\n", report.Duplicates[i])
		}
	}
	if unused := ffff.MaxElements - len(h.Elements()); unused > 0 {
		fmt.Printf("  %2d (unused)\n", len(h.Elements()))
		if unused > 1 {
			fmt.Println("   :    :")
			fmt.Printf("  %2d (unused)\n", ffff.MaxElements-1)
		}
	}
	fmt.Printf("  Sentinel:             '%s'\n", cString(h.TailSentinel[:]))
	fmt.Println()
}

func displayJSON(path string, im *romimage.Image) error {
	out := jsonImage{Path: path, Consistent: im.Consistent()}
	for _, h := range im.Headers() {
		if h == nil {
			continue
		}
		jh := jsonHeader{
			Verdict:        h.Verdict().String(),
			Timestamp:      cString(h.Timestamp[:]),
			FlashImageName: cString(h.FlashImageName[:]),
			FlashCapacity:  h.FlashCapacity,
			EraseBlockSize: h.EraseBlockSize,
			HeaderSize:     h.HeaderSize,
			ImageLength:    h.FlashImageLength,
			Generation:     h.Generation,
		}
		report := h.Report()
		for i, e := range h.Elements() {
			je := jsonElement{
				Index:      e.Index,
				Type:       uint32(e.Type),
				TypeName:   e.Type.String(),
				ID:         e.ID,
				Generation: e.Generation,
				Location:   e.Location,
				Length:     e.Length,
			}
			if report != nil && i < len(report.Collisions) {
				je.Collisions = report.Collisions[i]
				je.Duplicates = report.Duplicates[i]
			}
			jh.Elements = append(jh.Elements, je)
		}
		out.Headers = append(out.Headers, jh)
	}

	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(enc, '\n'))
	return err
}
