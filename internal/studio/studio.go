package studio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/compose"
	"brand-dna-studio/internal/extract"
	"brand-dna-studio/internal/platform"
	"brand-dna-studio/internal/registry"
	"brand-dna-studio/internal/storage"
	"brand-dna-studio/internal/video"
)

var (
	ErrInvalidLogo   = errors.New("invalid logo")
	ErrInvalidUpdate = errors.New("invalid brand update")
)

type Options struct {
	Extractor  *extract.Aggregator
	Registry   *registry.Registry
	Compositor *compose.Compositor
	Video      *video.Pipeline
	Store      *storage.Local
	Logger     *slog.Logger
}

// Service is the surface shared by the bot, the web API and the CLI: it
// extracts brands, keeps them in the registry and stores what it generates.
type Service struct {
	extractor  *extract.Aggregator
	registry   *registry.Registry
	compositor *compose.Compositor
	video      *video.Pipeline
	store      *storage.Local
	logger     *slog.Logger
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	reg := opts.Registry
	if reg == nil {
		reg = registry.New(registry.Options{})
	}
	return &Service{
		extractor:  opts.Extractor,
		registry:   reg,
		compositor: opts.Compositor,
		video:      opts.Video,
		store:      opts.Store,
		logger:     logger,
	}
}

func (s *Service) ExtractBrand(ctx context.Context, url, name string) (extract.Extraction, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return extract.Extraction{}, errors.New("url is empty")
	}
	ex, err := s.extractor.Extract(ctx, url, name)
	if err != nil {
		return extract.Extraction{}, err
	}
	s.registry.Put(ex.DNA)
	return ex, nil
}

// ExtractScreenshots builds a brand from caller-provided screenshots,
// skipping the crawl.
func (s *Service) ExtractScreenshots(ctx context.Context, screenshots [][]byte, name string) (extract.Extraction, error) {
	if len(screenshots) == 0 {
		return extract.Extraction{}, errors.New("no screenshots")
	}
	ex, err := s.extractor.ExtractFromSignals(ctx, extract.Signals{Screenshots: screenshots}, "", name)
	if err != nil {
		return extract.Extraction{}, err
	}
	s.registry.Put(ex.DNA)
	return ex, nil
}

func (s *Service) Brand(id string) (brand.DNA, error) {
	return s.registry.Get(id)
}

func (s *Service) Import(dna brand.DNA) error {
	if err := dna.Validate(); err != nil {
		return err
	}
	s.registry.Put(dna)
	return nil
}

// UpdateBrand replaces the sub-vectors set in u. Validation failures leave
// the stored brand untouched and wrap ErrInvalidUpdate.
func (s *Service) UpdateBrand(id string, u brand.Update) (brand.DNA, error) {
	if u.Empty() {
		return brand.DNA{}, fmt.Errorf("%w: nothing to update", ErrInvalidUpdate)
	}
	if u.LogoPosition != nil {
		if err := checkAnchor(*u.LogoPosition); err != nil {
			return brand.DNA{}, fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
		}
	}
	dna, err := s.registry.Update(id, u)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return brand.DNA{}, err
		}
		return brand.DNA{}, fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
	}
	s.logger.Info("brand updated", "brand_id", id, "verified", dna.Verified)
	return dna, nil
}

// VerifyBrand marks the brand as reviewed by its owner.
func (s *Service) VerifyBrand(id string) (brand.DNA, error) {
	verified := true
	return s.UpdateBrand(id, brand.Update{Verified: &verified})
}

func checkAnchor(a brand.Anchor) error {
	if !slices.Contains(brand.Anchors(), a) {
		return fmt.Errorf("unknown position %q", a)
	}
	return nil
}

// SetLogo stores the logo and replaces the brand's LogoAsset. An empty
// position keeps the current one.
func (s *Service) SetLogo(ctx context.Context, brandID string, data []byte, position brand.Anchor) (brand.DNA, error) {
	dna, err := s.registry.Get(brandID)
	if err != nil {
		return brand.DNA{}, err
	}
	if position != "" {
		if err := checkAnchor(position); err != nil {
			return brand.DNA{}, fmt.Errorf("%w: %w", ErrInvalidLogo, err)
		}
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return brand.DNA{}, fmt.Errorf("%w: %w", ErrInvalidLogo, err)
	}
	ext := logoExt(format)

	url, err := s.store.Upload(ctx, data, storage.LogoPath(brandID, ext))
	if err != nil {
		return brand.DNA{}, fmt.Errorf("upload logo: %w", err)
	}

	logo := dna.Logo
	logo.LogoURL = url
	logo.Format = ext
	logo.HasTransparency = ext == "png" || ext == "webp"
	if position != "" {
		logo.PreferredPosition = position
	}

	updated, err := s.registry.Update(brandID, brand.Update{Logo: &logo})
	if err != nil {
		return brand.DNA{}, err
	}
	s.logger.Info("logo updated", "brand_id", brandID, "format", ext, "position", logo.PreferredPosition)
	return updated, nil
}

func logoExt(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	case "":
		return "png"
	default:
		return format
	}
}

type ImageOutput struct {
	Asset compose.Asset
	URL   string
	// LogoPosition is the anchor the logo was placed at.
	LogoPosition brand.Anchor
}

// ImageRequest asks for one branded image. LogoPosition overrides the
// brand's preferred anchor for this request only.
type ImageRequest struct {
	BrandID      string
	Platform     string
	Prompt       string
	Overlay      string
	LogoPosition brand.Anchor
}

func (s *Service) GenerateImage(ctx context.Context, req ImageRequest) (ImageOutput, error) {
	dna, err := s.brandFor(req.BrandID, req.LogoPosition)
	if err != nil {
		return ImageOutput{}, err
	}
	asset, err := s.compositor.Generate(ctx, compose.Request{
		Prompt:   req.Prompt,
		DNA:      dna,
		Platform: req.Platform,
		Overlay:  req.Overlay,
	})
	if err != nil {
		return ImageOutput{}, err
	}

	url, err := s.store.Upload(ctx, asset.Data, storage.ImagePath(dna.ID, asset.Format))
	if err != nil {
		return ImageOutput{}, fmt.Errorf("upload image: %w", err)
	}
	return ImageOutput{Asset: asset, URL: url, LogoPosition: dna.Logo.PreferredPosition}, nil
}

// brandFor loads a brand and applies a per-request logo position without
// storing it.
func (s *Service) brandFor(id string, position brand.Anchor) (brand.DNA, error) {
	dna, err := s.registry.Get(id)
	if err != nil {
		return brand.DNA{}, err
	}
	if position == "" {
		return dna, nil
	}
	if err := checkAnchor(position); err != nil {
		return brand.DNA{}, fmt.Errorf("%w: %w", ErrInvalidLogo, err)
	}
	dna.Logo.PreferredPosition = position
	return dna, nil
}

type VideoOutput struct {
	Result video.Result
	URL    string
}

type VideoRequest struct {
	BrandID      string
	Platform     string
	Prompt       string
	Duration     time.Duration
	Voiceover    string
	LogoPosition brand.Anchor
}

func (s *Service) GenerateVideo(ctx context.Context, req VideoRequest) (VideoOutput, error) {
	dna, err := s.brandFor(req.BrandID, req.LogoPosition)
	if err != nil {
		return VideoOutput{}, err
	}
	platformKey := req.Platform
	if platformKey == "" {
		platformKey = platform.InstagramReel
	}
	res, err := s.video.Generate(ctx, video.Request{
		Prompt:    req.Prompt,
		DNA:       dna,
		Platform:  platformKey,
		Duration:  req.Duration,
		Voiceover: req.Voiceover,
	})
	if err != nil {
		return VideoOutput{}, err
	}
	return s.storeVideo(ctx, dna, res)
}

// AnimateImage turns an uploaded still into a short watermarked clip.
func (s *Service) AnimateImage(ctx context.Context, brandID string, data []byte) (VideoOutput, error) {
	dna, err := s.registry.Get(brandID)
	if err != nil {
		return VideoOutput{}, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return VideoOutput{}, fmt.Errorf("decode image: %w", err)
	}
	res, err := s.video.AnimateImage(ctx, img, dna)
	if err != nil {
		return VideoOutput{}, err
	}
	return s.storeVideo(ctx, dna, res)
}

func (s *Service) storeVideo(ctx context.Context, dna brand.DNA, res video.Result) (VideoOutput, error) {
	url, err := s.store.Upload(ctx, res.Media.Data, storage.VideoPath(dna.ID, res.Media.Format))
	if err != nil {
		return VideoOutput{}, fmt.Errorf("upload video: %w", err)
	}
	return VideoOutput{Result: res, URL: url}, nil
}

// StorageRoot is the directory generated files and logos are written under.
func (s *Service) StorageRoot() string {
	return s.store.Root()
}
