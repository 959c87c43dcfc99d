package video

import (
	"image"
	"time"

	"brand-dna-studio/internal/brand"
)

type AudioKind string

const (
	AudioVoiceover AudioKind = "voiceover"
	AudioMusic     AudioKind = "music"
)

type Audio struct {
	Kind    AudioKind     `json:"type"`
	Text    string        `json:"text,omitempty"`
	Tone    brand.Emotion `json:"tone,omitempty"`
	Mood    brand.Emotion `json:"mood,omitempty"`
	VoiceID string        `json:"voice_id,omitempty"`
	Track   string        `json:"track,omitempty"`
}

const (
	WatermarkOpacity = 0.85
	WatermarkFadeIn  = 500 * time.Millisecond
)

type Watermark struct {
	LogoURL        string        `json:"logo_url"`
	Position       brand.Anchor  `json:"position"`
	Opacity        float64       `json:"opacity"`
	SizePercent    float64       `json:"size_percent"`
	PaddingPercent float64       `json:"padding_percent"`
	FadeIn         bool          `json:"fade_in"`
	FadeInDuration time.Duration `json:"fade_in_duration"`

	logo image.Image
}

// Logo is the decoded watermark image fetched by the watermark stage.
func (w Watermark) Logo() image.Image {
	return w.logo
}

// CompositionState is threaded through the video stages. It is a value:
// every With method returns a new state and leaves the receiver unchanged.
type CompositionState struct {
	frames    []image.Image
	duration  time.Duration
	fps       int
	audio     *Audio
	watermark *Watermark
	hasLogo   bool
	warnings  []string
}

func (s CompositionState) Frames() []image.Image {
	return append([]image.Image(nil), s.frames...)
}

func (s CompositionState) Duration() time.Duration { return s.duration }
func (s CompositionState) FPS() int { return s.fps }
func (s CompositionState) HasLogo() bool { return s.hasLogo }

func (s CompositionState) Audio() (Audio, bool) {
	if s.audio == nil {
		return Audio{}, false
	}
	return *s.audio, true
}

func (s CompositionState) Watermark() (Watermark, bool) {
	if s.watermark == nil {
		return Watermark{}, false
	}
	return *s.watermark, true
}

func (s CompositionState) Warnings() []string {
	return append([]string(nil), s.warnings...)
}

func (s CompositionState) WithFrames(frames []image.Image) CompositionState {
	s.frames = append([]image.Image(nil), frames...)
	return s
}

func (s CompositionState) WithTiming(duration time.Duration, fps int) CompositionState {
	s.duration = duration
	s.fps = fps
	return s
}

func (s CompositionState) WithAudio(a Audio) CompositionState {
	s.audio = &a
	return s
}

// WithWatermark attaches w and marks the state as carrying the logo.
func (s CompositionState) WithWatermark(w Watermark) CompositionState {
	s.watermark = &w
	s.hasLogo = true
	return s
}

func (s CompositionState) WithWarning(msg string) CompositionState {
	s.warnings = append(append([]string(nil), s.warnings...), msg)
	return s
}
