package compose

import "brand-dna-studio/internal/brand"

// Place returns the top-left corner for a logoW x logoH logo inside an
// imgW x imgH image. Unknown anchors behave like bottom-right.
func Place(imgW, imgH, logoW, logoH int, anchor brand.Anchor, padding int) (x, y int) {
	right := imgW - logoW - padding
	bottom := imgH - logoH - padding
	midX := floorDiv(imgW-logoW, 2)
	midY := floorDiv(imgH-logoH, 2)

	switch anchor {
	case brand.AnchorTopLeft:
		return padding, padding
	case brand.AnchorTopRight:
		return right, padding
	case brand.AnchorTopCenter:
		return midX, padding
	case brand.AnchorBottomLeft:
		return padding, bottom
	case brand.AnchorBottomCenter:
		return midX, bottom
	case brand.AnchorCenter:
		return midX, midY
	default:
		return right, bottom
	}
}

// LogoSize scales a logo so its longer side is maxPct of the image width.
// The shorter side never drops below one pixel.
func LogoSize(imgW, logoW, logoH int, maxPct float64) (w, h int) {
	if logoW <= 0 || logoH <= 0 {
		return 0, 0
	}
	target := int(float64(imgW) * maxPct)
	if target <= 0 {
		return 0, 0
	}
	aspect := float64(logoW) / float64(logoH)
	if aspect > 1 {
		return target, max(1, int(float64(target)/aspect))
	}
	return max(1, int(float64(target)*aspect)), target
}

func Padding(imgW int, pct float64) int {
	return int(float64(imgW) * pct)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
