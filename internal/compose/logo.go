package compose

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
	"github.com/patrickmn/go-cache"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/capability"
)

type LogoFetcher interface {
	FetchLogo(ctx context.Context, url string) (image.Image, error)
}

type LogoSourceOptions struct {
	Store    capability.Store
	Timeout  time.Duration
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// LogoSource fetches and decodes logos with a bounded timeout. Decoded logos
// are cached and concurrent fetches of one URL share a single request.
type LogoSource struct {
	store   capability.Store
	timeout time.Duration
	cache   *cache.Cache
	group   singleflight.Group
	logger  *slog.Logger
}

func NewLogoSource(opts LogoSourceOptions) *LogoSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogoSource{
		store:   opts.Store,
		timeout: timeout,
		cache:   cache.New(ttl, ttl*2),
		logger:  logger,
	}
}

// FetchLogo errors wrap capability.ErrLogoUnavailable.
func (s *LogoSource) FetchLogo(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: no logo url configured", capability.ErrLogoUnavailable)
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: no store configured", capability.ErrLogoUnavailable)
	}
	if v, ok := s.cache.Get(url); ok {
		return v.(image.Image), nil
	}

	v, err, _ := s.group.Do(url, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		data, err := s.store.Fetch(fetchCtx, url)
		if err != nil {
			return nil, fmt.Errorf("%w: fetch: %w", capability.ErrLogoUnavailable, err)
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decode: %w", capability.ErrLogoUnavailable, err)
		}
		s.cache.SetDefault(url, img)
		s.logger.Debug("logo fetched", "url", url, "bytes", len(data))
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

// OverlayLogo scales logo to the asset's max size, places it at the
// preferred anchor and composites it onto a copy of dst. It reports false
// when the logo scales to nothing and dst is returned unchanged.
func OverlayLogo(dst image.Image, logo image.Image, asset brand.LogoAsset) (*image.NRGBA, bool) {
	b := dst.Bounds()
	lb := logo.Bounds()
	w, h := LogoSize(b.Dx(), lb.Dx(), lb.Dy(), asset.MaxSizePercent)
	if w <= 0 || h <= 0 {
		return imaging.Clone(dst), false
	}
	scaled := imaging.Resize(logo, w, h, imaging.Lanczos)
	x, y := Place(b.Dx(), b.Dy(), w, h, asset.PreferredPosition, Padding(b.Dx(), asset.PaddingPercent))

	if hasAlpha(logo) {
		return imaging.Overlay(dst, scaled, image.Pt(x, y), 1.0), true
	}
	return imaging.Paste(dst, scaled, image.Pt(x, y)), true
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}
