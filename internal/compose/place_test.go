package compose

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/platform"
)

func TestPlace(t *testing.T) {
	cases := []struct {
		anchor brand.Anchor
		x, y   int
	}{
		{brand.AnchorBottomRight, 870, 890},
		{brand.AnchorCenter, 450, 460},
		{brand.AnchorTopLeft, 30, 30},
		{brand.AnchorTopRight, 870, 30},
		{brand.AnchorTopCenter, 450, 30},
		{brand.AnchorBottomLeft, 30, 890},
		{brand.AnchorBottomCenter, 450, 890},
		{brand.Anchor("middle-ish"), 870, 890},
		{brand.Anchor(""), 870, 890},
	}
	for _, tc := range cases {
		x, y := Place(1000, 1000, 100, 80, tc.anchor, 30)
		assert.Equal(t, [2]int{tc.x, tc.y}, [2]int{x, y}, "anchor %q", tc.anchor)
	}
}

func TestPlaceOversizedLogoFloorsCenter(t *testing.T) {
	x, y := Place(100, 100, 111, 111, brand.AnchorCenter, 0)
	assert.Equal(t, -6, x)
	assert.Equal(t, -6, y)
}

func TestLogoSize(t *testing.T) {
	w, h := LogoSize(1000, 400, 200, 0.15)
	assert.Equal(t, 150, w)
	assert.Equal(t, 75, h)

	w, h = LogoSize(1000, 200, 400, 0.15)
	assert.Equal(t, 75, w)
	assert.Equal(t, 150, h)

	w, h = LogoSize(1000, 300, 300, 0.1)
	assert.Equal(t, 100, w)
	assert.Equal(t, 100, h)

	w, h = LogoSize(1000, 0, 10, 0.1)
	assert.Zero(t, w)
	assert.Zero(t, h)

	w, h = LogoSize(1024, 2000, 10, 0.15)
	assert.Equal(t, 153, w)
	assert.Equal(t, 1, h)

	w, h = LogoSize(1024, 10, 2000, 0.15)
	assert.Equal(t, 1, w)
	assert.Equal(t, 153, h)

	w, h = LogoSize(5, 100, 100, 0.15)
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestCoverSize(t *testing.T) {
	w, h := CoverSize(800, 600, 1080, 1080)
	assert.Equal(t, 1440, w)
	assert.Equal(t, 1080, h)

	w, h = CoverSize(600, 800, 1080, 1080)
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1440, h)

	w, h = CoverSize(1000, 1000, 1200, 628)
	assert.Equal(t, 1200, w)
	assert.Equal(t, 1200, h)
}

func TestCoverScalesUniformlyBeforeCrop(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}
	src := imaging.New(800, 600, blue)
	for y := 0; y < 600; y++ {
		for x := 0; x < 200; x++ {
			src.SetNRGBA(x, y, red)
		}
	}

	out := Cover(src, 1080, 1080)
	assert.Equal(t, image.Rect(0, 0, 1080, 1080), out.Bounds())

	// 800x600 scales by 1.8 to 1440x1080 and loses 180px on each side, so
	// the red/blue edge at x=200 lands at x=180.
	assert.Equal(t, red, out.NRGBAAt(160, 540))
	assert.Equal(t, blue, out.NRGBAAt(200, 540))
	assert.Equal(t, blue, out.NRGBAAt(1070, 10))
}

func testSpec(w, h int, format string) platform.Spec {
	return platform.Spec{Key: "test", Width: w, Height: h, Format: format}
}
