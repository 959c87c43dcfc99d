package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"time"

	"github.com/disintegration/imaging"

	"brand-dna-studio/internal/compose"
	"brand-dna-studio/internal/platform"
)

// GIFRenderer renders a low-resolution animated GIF preview of a state. The
// watermark is drawn on every frame and fades in over its fade duration.
type GIFRenderer struct {
	// MaxSide bounds the longer output side. Defaults to 480.
	MaxSide int
	// FPS of the preview. Defaults to 5.
	FPS int
}

func (r GIFRenderer) Render(ctx context.Context, state CompositionState, spec platform.Spec) (Media, error) {
	frames := state.Frames()
	if len(frames) == 0 {
		return Media{}, errors.New("nothing to render")
	}
	w, h := previewSize(spec.Width, spec.Height, r.maxSide())
	fps := r.fps()

	total := int(state.Duration().Seconds() * float64(fps))
	if total < 1 {
		total = 1
	}

	scaled := make([]*image.NRGBA, len(frames))
	for i, f := range frames {
		scaled[i] = compose.Cover(f, w, h)
	}
	wm, hasWM := state.Watermark()
	var mark *placedLogo
	if state.HasLogo() {
		if !hasWM || wm.Logo() == nil {
			return Media{}, errors.New("watermark has no logo image")
		}
		if mark = placeWatermark(wm, w, h); mark == nil {
			return Media{}, fmt.Errorf("watermark cannot be placed on a %dx%d preview", w, h)
		}
	}

	anim := &gif.GIF{}
	delay := 100 / fps
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return Media{}, err
		}
		frame := scaled[i*len(scaled)/total]
		if mark != nil {
			at := time.Duration(i) * time.Second / time.Duration(fps)
			if opacity := WatermarkOpacityAt(wm, at); opacity > 0 {
				frame = imaging.Overlay(frame, mark.img, mark.at, opacity)
			}
		}
		paletted := image.NewPaletted(frame.Bounds(), palette.Plan9)
		draw.Draw(paletted, paletted.Bounds(), frame, image.Point{}, draw.Src)
		anim.Image = append(anim.Image, paletted)
		anim.Delay = append(anim.Delay, delay)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return Media{}, fmt.Errorf("encode gif: %w", err)
	}
	return Media{Data: buf.Bytes(), Format: "gif", MimeType: "image/gif"}, nil
}

// WatermarkOpacityAt is the watermark opacity at offset t into the clip.
func WatermarkOpacityAt(wm Watermark, t time.Duration) float64 {
	if !wm.FadeIn || wm.FadeInDuration <= 0 || t >= wm.FadeInDuration {
		return wm.Opacity
	}
	if t <= 0 {
		return 0
	}
	return wm.Opacity * float64(t) / float64(wm.FadeInDuration)
}

type placedLogo struct {
	img *image.NRGBA
	at  image.Point
}

func placeWatermark(wm Watermark, w, h int) *placedLogo {
	logo := wm.Logo()
	lw, lh := compose.LogoSize(w, logo.Bounds().Dx(), logo.Bounds().Dy(), wm.SizePercent)
	if lw <= 0 || lh <= 0 {
		return nil
	}
	x, y := compose.Place(w, h, lw, lh, wm.Position, compose.Padding(w, wm.PaddingPercent))
	return &placedLogo{
		img: imaging.Resize(logo, lw, lh, imaging.Lanczos),
		at:  image.Pt(x, y),
	}
}

func previewSize(w, h, maxSide int) (int, int) {
	if w <= 0 || h <= 0 {
		return maxSide, maxSide
	}
	if w >= h {
		return maxSide, max(1, h*maxSide/w)
	}
	return max(1, w*maxSide/h), maxSide
}

func (r GIFRenderer) maxSide() int {
	if r.MaxSide > 0 {
		return r.MaxSide
	}
	return 480
}

func (r GIFRenderer) fps() int {
	if r.FPS > 0 && r.FPS <= 50 {
		return r.FPS
	}
	return 5
}
