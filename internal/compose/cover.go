package compose

import (
	"image"

	"github.com/disintegration/imaging"
)

// CoverSize scales srcW x srcH uniformly so it covers dstW x dstH.
func CoverSize(srcW, srcH, dstW, dstH int) (w, h int) {
	srcRatio := float64(srcW) / float64(srcH)
	dstRatio := float64(dstW) / float64(dstH)
	if srcRatio > dstRatio {
		return int(float64(dstH) * srcRatio), dstH
	}
	return dstW, int(float64(dstW) / srcRatio)
}

// Cover resizes img to cover the target box and crops the center to exactly
// width x height.
func Cover(img image.Image, width, height int) *image.NRGBA {
	b := img.Bounds()
	w, h := CoverSize(b.Dx(), b.Dy(), width, height)
	if w < width {
		w = width
	}
	if h < height {
		h = height
	}
	resized := imaging.Resize(img, w, h, imaging.Lanczos)
	return imaging.CropCenter(resized, width, height)
}
