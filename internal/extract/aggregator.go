package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"brand-dna-studio/internal/analysis"
	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/capability"
	"brand-dna-studio/internal/palette"
	"brand-dna-studio/internal/typography"
)

const (
	StageCrawl      = "crawl"
	StagePalette    = "palette"
	StageTypography = "typography"
	StageTone       = "tone"
	StageVisual     = "visual"
)

type Options struct {
	Source        SignalSource
	Palette       *palette.Extractor
	Tone          *analysis.ToneAnalyzer
	Visual        *analysis.VisualStyleAnalyzer
	CrawlTimeout  time.Duration
	BranchTimeout time.Duration
	Logger        *slog.Logger
}

// Aggregator turns crawl signals into a brand.DNA, running the four
// extraction branches concurrently.
type Aggregator struct {
	source        SignalSource
	palette       *palette.Extractor
	tone          *analysis.ToneAnalyzer
	visual        *analysis.VisualStyleAnalyzer
	crawlTimeout  time.Duration
	branchTimeout time.Duration
	logger        *slog.Logger
}

func New(opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pal := opts.Palette
	if pal == nil {
		pal = palette.New(palette.Options{Logger: logger})
	}
	tone := opts.Tone
	if tone == nil {
		tone = analysis.NewTone(analysis.ToneOptions{Logger: logger})
	}
	visual := opts.Visual
	if visual == nil {
		visual = analysis.NewVisual(analysis.VisualOptions{Logger: logger})
	}
	crawlTimeout := opts.CrawlTimeout
	if crawlTimeout <= 0 {
		crawlTimeout = 60 * time.Second
	}
	branchTimeout := opts.BranchTimeout
	if branchTimeout <= 0 {
		branchTimeout = 45 * time.Second
	}
	return &Aggregator{
		source:        opts.Source,
		palette:       pal,
		tone:          tone,
		visual:        visual,
		crawlTimeout:  crawlTimeout,
		branchTimeout: branchTimeout,
		logger:        logger,
	}
}

// Extraction is a built DNA plus the branches that fell back to defaults.
type Extraction struct {
	DNA       brand.DNA
	Recovered map[string]error
}

func (e Extraction) Degraded() bool {
	return len(e.Recovered) > 0
}

// Extract crawls url and builds its DNA. A failed crawl falls back to
// DemoSignals and is reported under StageCrawl.
func (a *Aggregator) Extract(ctx context.Context, url, brandName string) (Extraction, error) {
	sig, crawlErr := a.crawl(ctx, url)
	ex, err := a.ExtractFromSignals(ctx, sig, url, brandName)
	if err != nil {
		return Extraction{}, err
	}
	if crawlErr != nil {
		ex.Recovered[StageCrawl] = crawlErr
	}
	return ex, nil
}

func (a *Aggregator) crawl(ctx context.Context, url string) (Signals, error) {
	if a.source == nil {
		err := fmt.Errorf("%w: no crawler configured", capability.ErrSignalUnavailable)
		a.logger.Warn("using demo signals", "stage", StageCrawl, "url", url, "reason", err)
		return DemoSignals(), err
	}

	crawlCtx, cancel := context.WithTimeout(ctx, a.crawlTimeout)
	defer cancel()

	sig, err := a.source.Crawl(crawlCtx, url)
	if err != nil {
		err = fmt.Errorf("%w: crawl %s: %w", capability.ErrSignalUnavailable, url, err)
		a.logger.Warn("crawl failed, using demo signals", "stage", StageCrawl, "url", url, "error", err)
		return DemoSignals(), err
	}
	return sig, nil
}

// ExtractFromSignals runs the branches over caller-provided signals.
func (a *Aggregator) ExtractFromSignals(ctx context.Context, sig Signals, url, brandName string) (Extraction, error) {
	var (
		colors brand.Result[brand.ChromaticVector]
		fonts  brand.Result[brand.TypographicVector]
		tone   brand.Result[brand.SemanticVector]
		visual brand.Result[brand.VisualVector]
	)

	var g errgroup.Group
	g.Go(func() error {
		colors = runBranch(ctx, a.logger, StagePalette, a.branchTimeout, palette.DefaultPalette(), func(context.Context) brand.Result[brand.ChromaticVector] {
			return a.palette.Extract(sig.Screenshots)
		})
		return nil
	})
	g.Go(func() error {
		fonts = runBranch(ctx, a.logger, StageTypography, a.branchTimeout, typography.Normalize("", ""), func(context.Context) brand.Result[brand.TypographicVector] {
			return brand.OK(typography.Normalize(sig.CSS.HeadingFont, sig.CSS.BodyFont))
		})
		return nil
	})
	g.Go(func() error {
		tone = runBranch(ctx, a.logger, StageTone, a.branchTimeout, analysis.DefaultSemantic(), func(bctx context.Context) brand.Result[brand.SemanticVector] {
			return a.tone.Analyze(bctx, sig.TextContent)
		})
		return nil
	})
	g.Go(func() error {
		visual = runBranch(ctx, a.logger, StageVisual, a.branchTimeout, analysis.DefaultVisual(sig.Images), func(bctx context.Context) brand.Result[brand.VisualVector] {
			return a.visual.Analyze(bctx, sig.Images)
		})
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Extraction{}, fmt.Errorf("extract brand: %w", err)
	}

	recovered := make(map[string]error)
	note := func(stage string, ok bool, reason error) {
		if ok {
			recovered[stage] = reason
		}
	}
	note(StagePalette, colors.Recovered, colors.Reason)
	note(StageTypography, fonts.Recovered, fonts.Reason)
	note(StageTone, tone.Recovered, tone.Reason)
	note(StageVisual, visual.Recovered, visual.Reason)

	dna, err := brand.New(brand.Params{
		BrandName:   resolveName(brandName, sig.Title),
		WebsiteURL:  url,
		Chromatic:   colors.Value,
		Typographic: fonts.Value,
		Semantic:    tone.Value,
		Visual:      visual.Value,
	})
	if err != nil {
		return Extraction{}, fmt.Errorf("build brand dna: %w", err)
	}

	a.logger.Info("brand extracted",
		"brand", dna.BrandName,
		"id", dna.ID,
		"url", url,
		"recovered", len(recovered),
	)
	return Extraction{DNA: dna, Recovered: recovered}, nil
}

// runBranch bounds fn by timeout. On expiry the fallback is returned and fn
// is left to finish on its own; its result is discarded.
func runBranch[T any](ctx context.Context, logger *slog.Logger, stage string, timeout time.Duration, fallback T, fn func(context.Context) brand.Result[T]) brand.Result[T] {
	bctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan brand.Result[T], 1)
	go func() {
		done <- fn(bctx)
	}()

	select {
	case res := <-done:
		return res
	case <-bctx.Done():
		err := fmt.Errorf("%w: %s branch: %w", capability.ErrCapabilityUnavailable, stage, bctx.Err())
		logger.Warn("extraction branch timed out, using defaults", "stage", stage, "timeout", timeout)
		return brand.Recover(fallback, err)
	}
}

func resolveName(explicit, title string) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}
	if name := strings.TrimSpace(title); name != "" {
		return name
	}
	return "Unknown"
}
