// Package bootinfo supplies the graphics mode information recorded by the
// boot firmware.
package bootinfo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
)

const module = "bootinfo"

// GraphicsDescriptor describes the linear framebuffer set up by the boot
// firmware. A zero PhysicalAddress means no graphics mode is available.
type GraphicsDescriptor struct {
	Width           uint32 `yaml:"width" toml:"width" json:"width"`
	Height          uint32 `yaml:"height" toml:"height" json:"height"`
	PhysicalAddress uint64 `yaml:"physical_address" toml:"physical_address" json:"physical_address"`
}

// String returns the descriptor in log-friendly form.
func (d GraphicsDescriptor) String() string {
	return fmt.Sprintf("%d x %d at paddr %#X", d.Width, d.Height, d.PhysicalAddress)
}

// Source yields the descriptor consumed once per boot attempt.
type Source interface {
	Descriptor(ctx context.Context) (GraphicsDescriptor, error)
}

// Static is a Source returning a fixed descriptor.
type Static GraphicsDescriptor

// Descriptor implements Source.
func (s Static) Descriptor(ctx context.Context) (GraphicsDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return GraphicsDescriptor{}, err
	}
	return GraphicsDescriptor(s), nil
}

// File reads the descriptor from a YAML (.yaml, .yml) or TOML (.toml) file.
type File struct {
	Path string
}

// Descriptor implements Source.
func (f File) Descriptor(ctx context.Context) (GraphicsDescriptor, error) {
	var desc GraphicsDescriptor
	if err := ctx.Err(); err != nil {
		return desc, err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return desc, fmt.Errorf("failed to read boot info: %w", err)
	}

	if err := Decode(filepath.Ext(f.Path), data, &desc); err != nil {
		return desc, err
	}
	return desc, nil
}

// Decode parses data in the format implied by ext. A descriptor that cannot
// be decoded is malformed and reported as InvalidGeometry.
func Decode(ext string, data []byte, desc *GraphicsDescriptor) error {
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.UnmarshalWithOptions(data, desc, yaml.Strict())
	case ".toml":
		err = toml.NewDecoder(strings.NewReader(string(data))).DisallowUnknownFields().Decode(desc)
	default:
		return kerr.New(kerr.InvalidGeometry, module, "unsupported boot info format %q", ext)
	}
	if err != nil {
		return kerr.Wrap(kerr.InvalidGeometry, module, err, "malformed boot info")
	}
	return nil
}
