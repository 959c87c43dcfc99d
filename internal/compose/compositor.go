package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/capability"
	"brand-dna-studio/internal/platform"
)

const (
	StageBaseImage = "base_image"
	StageText      = "text_overlay"
	StageLogo      = "logo_overlay"
	StageResize    = "platform_resize"
	StageEncode    = "encode"
)

type Options struct {
	Generator capability.ImageGenerator
	Logos     LogoFetcher
	Text      *TextRenderer
	Logger    *slog.Logger
}

type Compositor struct {
	generator capability.ImageGenerator
	logos     LogoFetcher
	text      *TextRenderer
	logger    *slog.Logger
}

func New(opts Options) (*Compositor, error) {
	text := opts.Text
	if text == nil {
		var err error
		text, err = NewTextRenderer(DefaultFontSize)
		if err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Compositor{
		generator: opts.Generator,
		logos:     opts.Logos,
		text:      text,
		logger:    logger,
	}, nil
}

type Request struct {
	Prompt   string
	DNA      brand.DNA
	Platform string
	Overlay  string
}

// Asset is a finished image. Degraded is set when the logo could not be
// applied; Warnings says why.
type Asset struct {
	Data     []byte
	Image    *image.NRGBA
	Width    int
	Height   int
	Format   string
	Platform platform.Spec
	HasLogo  bool
	Degraded bool
	Warnings []string
}

func (a Asset) MimeType() string {
	return MimeType(a.Format)
}

// EnhancePrompt appends the brand style and main colors to prompt.
func EnhancePrompt(prompt string, dna brand.DNA) string {
	return fmt.Sprintf("%s. Style: %s. Color palette: %s, %s.",
		strings.TrimSpace(prompt), dna.Visual.EstiloFotografico, dna.Chromatic.Primary, dna.Chromatic.Secondary)
}

// Generate runs base image, text overlay, logo overlay and platform resize.
// Errors are *capability.StageError and never come with asset bytes.
func (c *Compositor) Generate(ctx context.Context, req Request) (Asset, error) {
	spec, err := platform.Lookup(req.Platform)
	if err != nil {
		return Asset{}, capability.Fatal("platform", "", capability.ErrInvalidPlatform, err)
	}

	base, err := c.BaseImage(ctx, req.Prompt, req.DNA)
	if err != nil {
		return Asset{}, err
	}
	return c.Compose(ctx, base, req.DNA, spec, req.Overlay)
}

// BaseImage runs the generation stage alone.
func (c *Compositor) BaseImage(ctx context.Context, prompt string, dna brand.DNA) (image.Image, error) {
	if c.generator == nil {
		return nil, capability.Fatal(StageBaseImage, "image_generator", capability.ErrGenerationUnavailable, errors.New("no image generator configured"))
	}
	enhanced := EnhancePrompt(prompt, dna)
	c.logger.Debug("requesting base image", "brand", dna.BrandName, "prompt_len", len(enhanced))

	data, err := c.generator.GenerateImage(ctx, enhanced)
	if err != nil {
		return nil, capability.Fatal(StageBaseImage, "image_generator", capability.ErrGenerationUnavailable, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, capability.Fatal(StageBaseImage, "image_generator", capability.ErrGenerationUnavailable, fmt.Errorf("decode base image: %w", err))
	}
	return img, nil
}

// Compose applies stages two to four to an existing base image.
func (c *Compositor) Compose(ctx context.Context, base image.Image, dna brand.DNA, spec platform.Spec, overlay string) (Asset, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return Asset{}, capability.Fatal("platform", "", capability.ErrInvalidPlatform, fmt.Errorf("bad dimensions for %q", spec.Key))
	}
	canvas := imaging.Clone(base)

	if text := strings.TrimSpace(overlay); text != "" {
		fill, err := brand.ParseHex(dna.Chromatic.TextOnPrimary)
		if err != nil {
			return Asset{}, &capability.StageError{Stage: StageText, Err: err}
		}
		if err := c.text.Draw(canvas, text, fill); err != nil {
			return Asset{}, &capability.StageError{Stage: StageText, Err: err}
		}
	}

	asset := Asset{Platform: spec}
	canvas, asset.HasLogo, asset.Warnings = c.applyLogo(ctx, canvas, dna)
	asset.Degraded = !asset.HasLogo

	final := Cover(canvas, spec.Width, spec.Height)
	data, format, err := Encode(final, spec.Format)
	if err != nil {
		return Asset{}, &capability.StageError{Stage: StageEncode, Err: err}
	}

	asset.Data = data
	asset.Image = final
	asset.Width = final.Bounds().Dx()
	asset.Height = final.Bounds().Dy()
	asset.Format = format
	return asset, nil
}

// applyLogo never fails the request: a missing or broken logo leaves the
// canvas unchanged and reports a warning.
func (c *Compositor) applyLogo(ctx context.Context, canvas *image.NRGBA, dna brand.DNA) (*image.NRGBA, bool, []string) {
	if !dna.Logo.Configured() {
		c.logger.Warn("no logo configured for brand, asset is degraded", "stage", StageLogo, "brand", dna.BrandName)
		return canvas, false, []string{"no logo configured for brand"}
	}
	if c.logos == nil {
		c.logger.Warn("no logo source configured, asset is degraded", "stage", StageLogo, "brand", dna.BrandName)
		return canvas, false, []string{"logo source unavailable"}
	}

	logo, err := c.logos.FetchLogo(ctx, dna.Logo.LogoURL)
	if err != nil {
		c.logger.Warn("logo unavailable, asset is degraded", "stage", StageLogo, "brand", dna.BrandName, "error", err)
		return canvas, false, []string{fmt.Sprintf("logo unavailable: %v", err)}
	}
	out, ok := OverlayLogo(canvas, logo, dna.Logo)
	if !ok {
		c.logger.Warn("logo too small to place, asset is degraded", "stage", StageLogo, "brand", dna.BrandName)
		return canvas, false, []string{"logo could not be placed"}
	}
	return out, true, nil
}
