package studio

import (
	"fmt"
	"log/slog"
	"net/http"

	"brand-dna-studio/internal/analysis"
	"brand-dna-studio/internal/compose"
	"brand-dna-studio/internal/config"
	"brand-dna-studio/internal/crawler"
	"brand-dna-studio/internal/extract"
	"brand-dna-studio/internal/gemini"
	"brand-dna-studio/internal/palette"
	"brand-dna-studio/internal/registry"
	"brand-dna-studio/internal/storage"
	"brand-dna-studio/internal/video"
)

// FromConfig wires the Gemini client, the Chrome crawler, local storage and
// every pipeline into a Service.
func FromConfig(cfg config.Config, httpClient *http.Client, logger *slog.Logger) (*Service, error) {
	gem := gemini.New(gemini.Options{
		APIKey:             cfg.GeminiAPIKey,
		BaseURL:            cfg.GeminiBaseURL,
		APIVersion:         cfg.GeminiAPIVersion,
		TextModel:          cfg.GeminiTextModel,
		ImageModel:         cfg.GeminiImageModel,
		GenerationInterval: cfg.GenerationInterval,
		HTTPClient:         httpClient,
		Logger:             logger,
	})

	store, err := storage.New(storage.Options{
		Root:       cfg.StorageDir,
		BaseURL:    cfg.StorageBaseURL,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	visualOpts := analysis.VisualOptions{Analyzer: gem, Logger: logger}
	if cfg.PixelVision() {
		visualOpts.Vision = gem
		visualOpts.Store = store
	}

	extractor := extract.New(extract.Options{
		Source: crawler.New(crawler.Options{
			Headless:  cfg.ChromeHeadless,
			UserAgent: cfg.ChromeUserAgent,
			Logger:    logger,
		}),
		Palette:       palette.New(palette.Options{Logger: logger}),
		Tone:          analysis.NewTone(analysis.ToneOptions{Analyzer: gem, Logger: logger}),
		Visual:        analysis.NewVisual(visualOpts),
		CrawlTimeout:  cfg.CrawlTimeout,
		BranchTimeout: cfg.BranchTimeout,
		Logger:        logger,
	})

	logos := compose.NewLogoSource(compose.LogoSourceOptions{
		Store:   store,
		Timeout: cfg.LogoFetchTimeout,
		Logger:  logger,
	})

	text, err := compose.NewTextRenderer(cfg.FontSize)
	if err != nil {
		return nil, err
	}
	compositor, err := compose.New(compose.Options{
		Generator: gem,
		Logos:     logos,
		Text:      text,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	pipeline := video.New(video.Options{
		Keyframes: video.GeneratedKeyframes{Compositor: compositor},
		Animator:  video.FrameHoldAnimator{},
		Voices:    video.VoiceCatalogue{},
		Music:     video.MoodLibrary{},
		Renderer:  video.GIFRenderer{},
		Logos:     logos,
		Logger:    logger,
	})

	return New(Options{
		Extractor:  extractor,
		Registry:   registry.New(registry.Options{TTL: cfg.BrandTTL}),
		Compositor: compositor,
		Video:      pipeline,
		Store:      store,
		Logger:     logger,
	}), nil
}
