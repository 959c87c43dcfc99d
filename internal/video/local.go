package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/compose"
)

// PlaceholderKeyframes fills every keyframe with the brand primary color.
type PlaceholderKeyframes struct {
	Width  int
	Height int
}

func (k PlaceholderKeyframes) Keyframes(ctx context.Context, _ string, dna brand.DNA, n int) ([]image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := k.Width, k.Height
	if w <= 0 || h <= 0 {
		w, h = 1920, 1080
	}
	c, err := brand.ParseHex(dna.Chromatic.Primary)
	if err != nil {
		c, _ = brand.ParseHex("#1a365d")
	}
	frames := make([]image.Image, n)
	for i := range frames {
		frames[i] = imaging.New(w, h, c)
	}
	return frames, nil
}

// GeneratedKeyframes requests each keyframe as a base image from the
// compositor. The logo is left to the watermark stage.
type GeneratedKeyframes struct {
	Compositor *compose.Compositor
}

func (k GeneratedKeyframes) Keyframes(ctx context.Context, prompt string, dna brand.DNA, n int) ([]image.Image, error) {
	if k.Compositor == nil {
		return nil, errors.New("no compositor configured")
	}
	frames := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		framePrompt := fmt.Sprintf("%s (keyframe %d of %d)", strings.TrimSpace(prompt), i+1, n)
		img, err := k.Compositor.BaseImage(ctx, framePrompt, dna)
		if err != nil {
			return nil, err
		}
		frames = append(frames, img)
	}
	return frames, nil
}

// FrameHoldAnimator holds each keyframe for an equal share of the clip.
type FrameHoldAnimator struct {
	FPS int
}

func (a FrameHoldAnimator) Animate(ctx context.Context, keyframes []image.Image, duration time.Duration) (Clip, error) {
	if err := ctx.Err(); err != nil {
		return Clip{}, err
	}
	if len(keyframes) == 0 {
		return Clip{}, errors.New("no keyframes to animate")
	}
	fps := a.FPS
	if fps <= 0 {
		fps = 30
	}
	return Clip{
		Frames:   append([]image.Image(nil), keyframes...),
		Duration: duration,
		FPS:      fps,
	}, nil
}

var moodTracks = map[brand.Emotion]string{
	brand.EmotionProfesional:  "corporate-ambient",
	brand.EmotionAmigable:     "acoustic-warm",
	brand.EmotionAutoritativo: "orchestral-steady",
	brand.EmotionEmpatico:     "piano-soft",
	brand.EmotionEntusiasta:   "upbeat-pop",
	brand.EmotionSerio:        "minimal-strings",
	brand.EmotionJugueton:     "ukulele-bounce",
}

// MoodLibrary picks a stock track for the brand emotion.
type MoodLibrary struct{}

func (MoodLibrary) Music(_ context.Context, mood brand.Emotion) (Audio, error) {
	track, ok := moodTracks[mood]
	if !ok {
		track = moodTracks[brand.EmotionProfesional]
	}
	return Audio{Kind: AudioMusic, Mood: mood, Track: track}, nil
}

var voices = map[brand.Emotion]string{
	brand.EmotionProfesional:  "voice_professional",
	brand.EmotionAmigable:     "voice_friendly",
	brand.EmotionAutoritativo: "voice_authoritative",
	brand.EmotionEmpatico:     "voice_warm",
	brand.EmotionEntusiasta:   "voice_energetic",
	brand.EmotionSerio:        "voice_calm",
	brand.EmotionJugueton:     "voice_playful",
}

// VoiceCatalogue maps the brand tone to a voice id.
type VoiceCatalogue struct{}

func (VoiceCatalogue) Voiceover(_ context.Context, text string, tone brand.Emotion) (Audio, error) {
	if strings.TrimSpace(text) == "" {
		return Audio{}, errors.New("voice-over text is empty")
	}
	id, ok := voices[tone]
	if !ok {
		id = voices[brand.EmotionProfesional]
	}
	return Audio{Kind: AudioVoiceover, Text: text, Tone: tone, VoiceID: id}, nil
}
