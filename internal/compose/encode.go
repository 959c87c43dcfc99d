package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
)

const jpegQuality = 95

// Encode writes img as PNG for "png" and as JPEG for anything else. The
// returned format is the one actually written.
func Encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), "png", nil
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), "jpg", nil
	}
}

func MimeType(format string) string {
	if format == "png" {
		return "image/png"
	}
	return "image/jpeg"
}
