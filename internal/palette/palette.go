package palette

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/capability"
)

const (
	sampleSize   = 200
	minChannels  = 30
	maxChannels  = 700
	minSurvivors = 10
	clusters     = 5
	seed         = 42
	inits        = 10
	maxIter      = 300
)

func DefaultPalette() brand.ChromaticVector {
	return brand.ChromaticVector{
		Primary:       "#1a365d",
		Secondary:     "#4a5568",
		Accent:        "#38b2ac",
		Background:    "#ffffff",
		TextOnPrimary: "#ffffff",
	}
}

type Options struct {
	Logger *slog.Logger
}

type Extractor struct {
	logger *slog.Logger
	km     kmeans
}

func New(opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{
		logger: logger,
		km:     kmeans{k: clusters, seed: seed, inits: inits, maxIter: maxIter, tol: 1e-4},
	}
}

// Extract clusters the first screenshot into a palette. Every failure path
// returns the default palette with the reason attached.
func (e *Extractor) Extract(screenshots [][]byte) brand.Result[brand.ChromaticVector] {
	if len(screenshots) == 0 {
		return brand.Recover(DefaultPalette(), fmt.Errorf("%w: no screenshots", capability.ErrSignalUnavailable))
	}

	img, _, err := image.Decode(bytes.NewReader(screenshots[0]))
	if err != nil {
		return e.recover(fmt.Errorf("%w: decode screenshot: %v", capability.ErrClusteringDegenerate, err))
	}
	return e.FromImage(img)
}

func (e *Extractor) FromImage(img image.Image) brand.Result[brand.ChromaticVector] {
	points := samplePixels(img)
	if len(points) == 0 {
		return e.recover(fmt.Errorf("%w: empty image", capability.ErrClusteringDegenerate))
	}
	if countDistinct(points, 2) < 2 {
		return e.recover(fmt.Errorf("%w: fewer than 2 distinct colors", capability.ErrClusteringDegenerate))
	}

	found := e.km.fit(points)
	if len(found) == 0 {
		return e.recover(fmt.Errorf("%w: no clusters", capability.ErrClusteringDegenerate))
	}

	out := DefaultPalette()
	out.Primary = hexOf(found[0].center)
	if len(found) >= 3 {
		out.Secondary = hexOf(found[1].center)
		out.Accent = hexOf(found[2].center)
	}
	return brand.OK(out)
}

func (e *Extractor) recover(reason error) brand.Result[brand.ChromaticVector] {
	e.logger.Warn("palette extraction fell back to defaults", "reason", reason)
	return brand.Recover(DefaultPalette(), reason)
}

// samplePixels downsamples to a fixed grid and drops near-black and
// near-white pixels, unless too few would remain.
func samplePixels(img image.Image) []rgb {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}
	small := imaging.Resize(img, sampleSize, sampleSize, imaging.NearestNeighbor)

	all := make([]rgb, 0, len(small.Pix)/4)
	filtered := make([]rgb, 0, len(small.Pix)/4)
	for i := 0; i+3 < len(small.Pix); i += 4 {
		r, g, bl := int(small.Pix[i]), int(small.Pix[i+1]), int(small.Pix[i+2])
		p := rgb{float64(r), float64(g), float64(bl)}
		all = append(all, p)
		if sum := r + g + bl; sum > minChannels && sum < maxChannels {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) < minSurvivors {
		return all
	}
	return filtered
}

func hexOf(c rgb) string {
	return fmt.Sprintf("#%02x%02x%02x", clamp(c[0]), clamp(c[1]), clamp(c[2]))
}

func clamp(v float64) int {
	n := int(v)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return n
}
