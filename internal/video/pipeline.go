package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"time"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/capability"
	"brand-dna-studio/internal/compose"
	"brand-dna-studio/internal/platform"
)

const (
	StageKeyframes = "keyframes"
	StageAnimate   = "animate"
	StageAudio     = "audio"
	StageWatermark = "watermark"
	StageRender    = "render"
)

const (
	DefaultDuration    = 15 * time.Second
	AnimateImageLength = 5 * time.Second
	DefaultKeyframes   = 3
)

type KeyframeSource interface {
	Keyframes(ctx context.Context, prompt string, dna brand.DNA, n int) ([]image.Image, error)
}

type Clip struct {
	Frames   []image.Image
	Duration time.Duration
	FPS      int
}

// Animator is the motion capability.
type Animator interface {
	Animate(ctx context.Context, keyframes []image.Image, duration time.Duration) (Clip, error)
}

type VoiceSelector interface {
	Voiceover(ctx context.Context, text string, tone brand.Emotion) (Audio, error)
}

type MusicSelector interface {
	Music(ctx context.Context, mood brand.Emotion) (Audio, error)
}

// Renderer turns a finished state into encoded media.
type Renderer interface {
	Render(ctx context.Context, state CompositionState, spec platform.Spec) (Media, error)
}

type Media struct {
	Data     []byte
	Format   string
	MimeType string
}

type Options struct {
	Keyframes KeyframeSource
	Animator  Animator
	Voices    VoiceSelector
	Music     MusicSelector
	Renderer  Renderer
	Logos     compose.LogoFetcher
	Logger    *slog.Logger
}

type Pipeline struct {
	keyframes KeyframeSource
	animator  Animator
	voices    VoiceSelector
	music     MusicSelector
	renderer  Renderer
	logos     compose.LogoFetcher
	logger    *slog.Logger
}

func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	keyframes := opts.Keyframes
	if keyframes == nil {
		keyframes = PlaceholderKeyframes{}
	}
	return &Pipeline{
		keyframes: keyframes,
		animator:  opts.Animator,
		voices:    opts.Voices,
		music:     opts.Music,
		renderer:  opts.Renderer,
		logos:     opts.Logos,
		logger:    logger,
	}
}

type Request struct {
	Prompt   string
	DNA      brand.DNA
	Platform string
	Duration time.Duration
	// Voiceover selects a voice-over track; empty means background music.
	Voiceover string
	Keyframes int
}

// Result is a rendered video. Degraded is set when no watermark could be
// attached.
type Result struct {
	Media    Media
	State    CompositionState
	Platform platform.Spec
	Degraded bool
	Warnings []string
}

// Generate runs keyframes, animation, audio, watermark and render. Errors are
// *capability.StageError and never come with media bytes.
func (p *Pipeline) Generate(ctx context.Context, req Request) (Result, error) {
	spec, err := videoSpec(req.Platform)
	if err != nil {
		return Result{}, err
	}

	var state CompositionState
	duration := p.clampDuration(req.Duration, spec, &state)

	n := req.Keyframes
	if n <= 0 {
		n = DefaultKeyframes
	}
	state, err = p.KeyframeStage(ctx, state, req.Prompt, req.DNA, n)
	if err != nil {
		return Result{}, err
	}
	return p.finish(ctx, state, req.DNA, spec, duration, req.Voiceover)
}

// AnimateImage turns a still into a short watermarked clip for the reel
// format.
func (p *Pipeline) AnimateImage(ctx context.Context, img image.Image, dna brand.DNA) (Result, error) {
	if img == nil {
		return Result{}, &capability.StageError{Stage: StageKeyframes, Err: errors.New("no image supplied")}
	}
	spec, err := videoSpec(platform.InstagramReel)
	if err != nil {
		return Result{}, err
	}
	state := CompositionState{}.WithFrames([]image.Image{img})
	p.logger.Debug("animating still image", "brand", dna.BrandName)
	return p.finish(ctx, state, dna, spec, AnimateImageLength, "")
}

func (p *Pipeline) finish(ctx context.Context, state CompositionState, dna brand.DNA, spec platform.Spec, duration time.Duration, voiceover string) (Result, error) {
	state, err := p.AnimateStage(ctx, state, duration)
	if err != nil {
		return Result{}, err
	}
	state = p.AudioStage(ctx, state, dna, voiceover)
	state = p.WatermarkStage(ctx, state, dna)

	media, err := p.RenderStage(ctx, state, spec)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Media:    media,
		State:    state,
		Platform: spec,
		Degraded: !state.HasLogo(),
		Warnings: state.Warnings(),
	}, nil
}

func videoSpec(key string) (platform.Spec, error) {
	spec, err := platform.Lookup(key)
	if err != nil {
		return platform.Spec{}, capability.Fatal("platform", "", capability.ErrInvalidPlatform, err)
	}
	if !spec.IsVideo() {
		return platform.Spec{}, capability.Fatal("platform", "", capability.ErrInvalidPlatform,
			fmt.Errorf("%s outputs %s, not video", spec.Key, spec.Format))
	}
	return spec, nil
}

func (p *Pipeline) clampDuration(d time.Duration, spec platform.Spec, state *CompositionState) time.Duration {
	if d <= 0 {
		d = DefaultDuration
	}
	limit := time.Duration(spec.MaxDurationSeconds) * time.Second
	if limit > 0 && d > limit {
		msg := fmt.Sprintf("duration %s exceeds %s limit of %s, clamped", d, spec.Key, limit)
		p.logger.Warn(msg, "stage", "platform")
		*state = state.WithWarning(msg)
		d = limit
	}
	return d
}

func (p *Pipeline) KeyframeStage(ctx context.Context, state CompositionState, prompt string, dna brand.DNA, n int) (CompositionState, error) {
	frames, err := p.keyframes.Keyframes(ctx, prompt, dna, n)
	if err != nil {
		var stageErr *capability.StageError
		if errors.As(err, &stageErr) {
			return state, &capability.StageError{Stage: StageKeyframes, Capability: stageErr.Capability, Err: stageErr.Err}
		}
		return state, capability.Fatal(StageKeyframes, "image_generator", capability.ErrGenerationUnavailable, err)
	}
	if len(frames) == 0 {
		return state, capability.Fatal(StageKeyframes, "image_generator", capability.ErrGenerationUnavailable, errors.New("no keyframes produced"))
	}
	return state.WithFrames(frames), nil
}

func (p *Pipeline) AnimateStage(ctx context.Context, state CompositionState, duration time.Duration) (CompositionState, error) {
	if p.animator == nil {
		return state, capability.Fatal(StageAnimate, "animator", capability.ErrGenerationUnavailable, errors.New("no animator configured"))
	}
	clip, err := p.animator.Animate(ctx, state.Frames(), duration)
	if err != nil {
		return state, capability.Fatal(StageAnimate, "animator", capability.ErrGenerationUnavailable, err)
	}
	if len(clip.Frames) == 0 {
		return state, capability.Fatal(StageAnimate, "animator", capability.ErrGenerationUnavailable, errors.New("empty clip"))
	}
	return state.WithFrames(clip.Frames).WithTiming(clip.Duration, clip.FPS), nil
}

// AudioStage attaches a voice-over when text is given, otherwise music for
// the brand mood. Selector failures leave the state silent with a warning.
func (p *Pipeline) AudioStage(ctx context.Context, state CompositionState, dna brand.DNA, voiceover string) CompositionState {
	emotion := dna.Semantic.Emocion
	if emotion == "" {
		emotion = brand.EmotionProfesional
	}

	var (
		audio Audio
		err   error
	)
	if text := strings.TrimSpace(voiceover); text != "" {
		if p.voices == nil {
			err = errors.New("no voice selector configured")
		} else {
			audio, err = p.voices.Voiceover(ctx, text, emotion)
		}
	} else {
		if p.music == nil {
			err = errors.New("no music selector configured")
		} else {
			audio, err = p.music.Music(ctx, emotion)
		}
	}
	if err != nil {
		p.logger.Warn("audio unavailable, continuing without audio", "stage", StageAudio, "error", err)
		return state.WithWarning(fmt.Sprintf("audio unavailable: %v", err))
	}
	return state.WithAudio(audio)
}

// WatermarkStage always runs. Without a usable logo the state keeps
// has_logo false and records a warning instead of failing.
func (p *Pipeline) WatermarkStage(ctx context.Context, state CompositionState, dna brand.DNA) CompositionState {
	if !dna.Logo.Configured() {
		p.logger.Warn("no logo configured for brand, video has no watermark", "stage", StageWatermark, "brand", dna.BrandName)
		return state.WithWarning("no logo configured for brand")
	}
	if p.logos == nil {
		p.logger.Warn("no logo source configured, video has no watermark", "stage", StageWatermark, "brand", dna.BrandName)
		return state.WithWarning("logo source unavailable")
	}
	logo, err := p.logos.FetchLogo(ctx, dna.Logo.LogoURL)
	if err != nil {
		p.logger.Warn("logo unavailable, video has no watermark", "stage", StageWatermark, "brand", dna.BrandName, "error", err)
		return state.WithWarning(fmt.Sprintf("logo unavailable: %v", err))
	}
	if !placeable(logo, state.Frames(), dna.Logo.MaxSizePercent) {
		p.logger.Warn("logo too small to place, video has no watermark", "stage", StageWatermark, "brand", dna.BrandName)
		return state.WithWarning("logo could not be placed")
	}

	return state.WithWatermark(Watermark{
		LogoURL:        dna.Logo.LogoURL,
		Position:       dna.Logo.PreferredPosition,
		Opacity:        WatermarkOpacity,
		SizePercent:    dna.Logo.MaxSizePercent,
		PaddingPercent: dna.Logo.PaddingPercent,
		FadeIn:         true,
		FadeInDuration: WatermarkFadeIn,
		logo:           logo,
	})
}

// placeable reports whether logo scales to at least one pixel on the first
// frame.
func placeable(logo image.Image, frames []image.Image, maxPct float64) bool {
	if logo == nil || logo.Bounds().Empty() {
		return false
	}
	if len(frames) == 0 {
		return true
	}
	lb := logo.Bounds()
	w, h := compose.LogoSize(frames[0].Bounds().Dx(), lb.Dx(), lb.Dy(), maxPct)
	return w > 0 && h > 0
}

func (p *Pipeline) RenderStage(ctx context.Context, state CompositionState, spec platform.Spec) (Media, error) {
	if p.renderer == nil {
		return Media{}, capability.Fatal(StageRender, "renderer", capability.ErrGenerationUnavailable, errors.New("no renderer configured"))
	}
	media, err := p.renderer.Render(ctx, state, spec)
	if err != nil {
		return Media{}, capability.Fatal(StageRender, "renderer", capability.ErrGenerationUnavailable, err)
	}
	return media, nil
}
