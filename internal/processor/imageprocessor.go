// imageprocessor.go - crop, rotate and illumination-normalize the image
// slices the ROI executor and golden store operate on.

package processor

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/bosocmputer/visual-inspector/internal/roi"
)

// Crop extracts the exact sub-image a ROI's coords describe. An
// out-of-bounds rectangle is reported as an error so the executor can
// record error:"out_of_bounds" without aborting the rest of the
// inspection (§4.4 step 1).
func Crop(img image.Image, c roi.Coords) (image.Image, error) {
	bounds := img.Bounds()
	if c.X1 < bounds.Min.X || c.Y1 < bounds.Min.Y || c.X2 > bounds.Max.X || c.Y2 > bounds.Max.Y {
		return nil, fmt.Errorf("out_of_bounds")
	}
	rect := image.Rect(c.X1, c.Y1, c.X2, c.Y2)
	return imaging.Clone(imaging.Crop(img, rect)), nil
}

// RotateExpand rotates by one of the four axis-aligned angles with
// expand=true (no cropping of corners) — mandatory ahead of OCR and for
// any ROI with a non-zero rotation field (§4.4 step 2).
func RotateExpand(img image.Image, r roi.Rotation) image.Image {
	switch r {
	case roi.Rotate90:
		return imaging.Rotate90(img)
	case roi.Rotate180:
		return imaging.Rotate180(img)
	case roi.Rotate270:
		return imaging.Rotate270(img)
	default:
		return img
	}
}

// ConvertColorOrderForRotation exists to document §4.2.3's "convert to the
// rotation library's expected color order before rotating" requirement.
// Go's image.Image values here are always RGB-native (decoded by
// image/jpeg or image/png), so there is no BGR buffer to swap — this is a
// deliberate no-op that keeps the pipeline step explicit at the call site
// rather than silently skipping it.
func ConvertColorOrderForRotation(img image.Image) image.Image {
	return img
}

// ResizeTo resizes src to exactly target's dimensions using bilinear
// interpolation — used by the golden store to resize a stored golden to
// the crop's exact shape before scoring (§4.2.2).
func ResizeTo(src image.Image, target image.Rectangle) image.Image {
	w, h := target.Dx(), target.Dy()
	return imaging.Resize(src, w, h, imaging.Linear)
}

// NormalizeIllumination pre-normalizes brightness/contrast before a Compare
// score (§4.2.2, §4.4 step 3). The adjustment strength adapts to the
// crop's own quality score, the same light/standard/aggressive tiering the
// OCR preprocessing pipeline this was grounded on used for receipt scans.
func NormalizeIllumination(img image.Image) image.Image {
	score := analyzeImageQuality(img)
	switch {
	case score >= 75:
		return lightIlluminationPass(img)
	case score >= 50:
		return standardIlluminationPass(img)
	default:
		return aggressiveIlluminationPass(img)
	}
}

// analyzeImageQuality scores an image 0-100 from sampled brightness and
// contrast; a low score means the crop is dark, washed out, or flat.
func analyzeImageQuality(img image.Image) float64 {
	bounds := img.Bounds()

	var totalBrightness float64
	minBrightness := 255.0
	maxBrightness := 0.0
	pixelCount := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y += 10 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 10 {
			r, g, b, _ := img.At(x, y).RGBA()
			brightness := (float64(r>>8) + float64(g>>8) + float64(b>>8)) / 3.0
			totalBrightness += brightness
			if brightness < minBrightness {
				minBrightness = brightness
			}
			if brightness > maxBrightness {
				maxBrightness = brightness
			}
			pixelCount++
		}
	}
	if pixelCount == 0 {
		return 100
	}

	avgBrightness := totalBrightness / float64(pixelCount)
	contrast := maxBrightness - minBrightness

	brightnessScore := 100.0 - math.Abs(avgBrightness-128.0)/1.28
	contrastScore := math.Min(contrast/2.0, 100.0)

	return (brightnessScore * 0.4) + (contrastScore * 0.6)
}

func lightIlluminationPass(img image.Image) image.Image {
	result := imaging.Sharpen(img, 1.5)
	result = imaging.AdjustContrast(result, 20)
	result = imaging.AdjustGamma(result, 1.05)
	return result
}

func standardIlluminationPass(img image.Image) image.Image {
	result := imaging.Sharpen(img, 2.5)
	result = imaging.AdjustContrast(result, 35)
	result = imaging.AdjustBrightness(result, 10)
	result = imaging.AdjustGamma(result, 1.15)
	return result
}

func aggressiveIlluminationPass(img image.Image) image.Image {
	result := imaging.Sharpen(img, 3.5)
	result = imaging.AdjustContrast(result, 45)
	result = imaging.AdjustBrightness(result, 20)
	result = imaging.AdjustGamma(result, 1.25)
	result = imaging.Blur(result, 0.5)
	result = imaging.Sharpen(result, 2.0)
	return result
}
