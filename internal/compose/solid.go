package compose

import (
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"brand-dna-studio/internal/brand"
)

// SolidGenerator stands in for the image model: every prompt yields a
// Size x Size canvas filled with Color.
type SolidGenerator struct {
	Color string
	Size  int
}

func (g SolidGenerator) GenerateImage(ctx context.Context, _ string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := brand.ParseHex(g.Color)
	if err != nil {
		return nil, fmt.Errorf("solid generator: %w", err)
	}
	size := g.Size
	if size <= 0 {
		size = 1024
	}
	data, _, err := Encode(imaging.New(size, size, c), "png")
	return data, err
}
