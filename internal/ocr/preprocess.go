package ocr

import (
	"bytes"
	"image"
	"image/png"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/transform"
)

const (
	contrastBoost     = 0.3
	medianFilterSize  = 3.0
	minDimensionPixel = 1000
)

// Preprocess prepares a page image for recognition: grayscale, moderate
// contrast and sharpness boosts, a median denoise pass, and upscaling so the
// smaller dimension reaches at least 1000px.
func Preprocess(img image.Image) image.Image {
	gray := effect.Grayscale(img)
	contrasted := adjust.Contrast(gray, contrastBoost)
	sharpened := effect.Sharpen(contrasted)
	denoised := effect.Median(sharpened, medianFilterSize)
	return upscale(denoised)
}

func upscale(img image.Image) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	smaller := width
	if height < smaller {
		smaller = height
	}
	if smaller <= 0 || smaller >= minDimensionPixel {
		return img
	}

	scale := float64(minDimensionPixel) / float64(smaller)
	newWidth := int(float64(width)*scale + 0.5)
	newHeight := int(float64(height)*scale + 0.5)

	return transform.Resize(img, newWidth, newHeight, transform.Lanczos)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
