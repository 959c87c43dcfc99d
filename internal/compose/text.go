package compose

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const DefaultFontSize = 48

// TextRenderer draws overlay captions. Faces are not safe for concurrent
// use, so each call opens its own.
type TextRenderer struct {
	font *opentype.Font
	size float64
}

func NewTextRenderer(size float64) (*TextRenderer, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse overlay font: %w", err)
	}
	if size <= 0 {
		size = DefaultFontSize
	}
	return &TextRenderer{font: f, size: size}, nil
}

// Draw writes text centered horizontally with its top edge at
// H - textHeight - 15% of H, over a black shadow offset by 2px.
func (r *TextRenderer) Draw(dst *image.NRGBA, text string, fill color.Color) error {
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    r.size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("create font face: %w", err)
	}
	defer face.Close()

	bounds, _ := font.BoundString(face, text)
	textW := (bounds.Max.X - bounds.Min.X).Ceil()
	textH := (bounds.Max.Y - bounds.Min.Y).Ceil()

	b := dst.Bounds()
	x, y := TextOrigin(b.Dx(), b.Dy(), textW, textH)
	originX := b.Min.X + x - bounds.Min.X.Floor()
	originY := b.Min.Y + y - bounds.Min.Y.Floor()

	shadow := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(originX+2, originY+2),
	}
	shadow.DrawString(text)

	fg := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fill),
		Face: face,
		Dot:  fixed.P(originX, originY),
	}
	fg.DrawString(text)
	return nil
}

// TextOrigin is the top-left corner of a textW x textH caption.
func TextOrigin(imgW, imgH, textW, textH int) (x, y int) {
	return floorDiv(imgW-textW, 2), imgH - textH - int(float64(imgH)*0.15)
}
