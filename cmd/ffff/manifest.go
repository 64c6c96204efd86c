package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/ffff/pkg/ffff"
)

// Manifest is the YAML description of a flash image to create.
type Manifest struct {
	Name           string            `yaml:"name"`
	FlashCapacity  uint32            `yaml:"flash_capacity"`
	EraseBlockSize uint32            `yaml:"erase_block_size"`
	ImageLength    uint32            `yaml:"image_length"`
	Generation     uint32            `yaml:"generation"`
	Elements       []ManifestElement `yaml:"elements"`
}

type ManifestElement struct {
	Type       elementTypeValue `yaml:"type"`
	ID         uint32           `yaml:"id"`
	Generation uint32           `yaml:"generation"`
	Location   uint32           `yaml:"location"`
	Length     uint32           `yaml:"length"`
	File       string           `yaml:"file"`
}

// elementTypeValue accepts an element type as either a number or one of
// the well-known names.
type elementTypeValue ffff.ElementType

func (t *elementTypeValue) UnmarshalYAML(value *yaml.Node) error {
	var raw uint32
	if err := value.Decode(&raw); err == nil {
		*t = elementTypeValue(raw)
		return nil
	}

	var name string
	if err := value.Decode(&name); err != nil {
		return fmt.Errorf("element type must be a number or a name: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "stage2", "stage2-firmware", "s2fw":
		*t = elementTypeValue(ffff.ElementTypeStage2Firmware)
	case "stage3", "stage3-firmware", "s3fw":
		*t = elementTypeValue(ffff.ElementTypeStage3Firmware)
	case "ims", "ims-certificate":
		*t = elementTypeValue(ffff.ElementTypeIMSCertificate)
	case "cms", "cms-certificate":
		*t = elementTypeValue(ffff.ElementTypeCMSCertificate)
	case "data":
		*t = elementTypeValue(ffff.ElementTypeData)
	default:
		return fmt.Errorf("unknown element type %q", name)
	}
	return nil
}

func parseManifest(raw []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.FlashCapacity == 0 {
		return Manifest{}, errors.New("manifest: flash_capacity is required")
	}
	if m.EraseBlockSize == 0 {
		return Manifest{}, errors.New("manifest: erase_block_size is required")
	}
	for i, e := range m.Elements {
		if ffff.ElementType(e.Type) == ffff.ElementTypeEnd {
			return Manifest{}, fmt.Errorf("manifest: element %d has no type", i)
		}
		if e.File == "" && e.Length == 0 {
			return Manifest{}, fmt.Errorf("manifest: element %d needs a file or a length", i)
		}
	}
	return m, nil
}

func loadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	return parseManifest(raw)
}
