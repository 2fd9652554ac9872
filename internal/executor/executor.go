// Package executor runs the per-ROI pipeline: clamp & crop, rotate,
// normalize illumination, dispatch to the matching capability, classify
// pass/fail, and persist the artifacts used for scoring (§4.4).
package executor

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/bosocmputer/visual-inspector/internal/capability"
	"github.com/bosocmputer/visual-inspector/internal/inspection"
	"github.com/bosocmputer/visual-inspector/internal/processor"
	"github.com/bosocmputer/visual-inspector/internal/roi"
)

// Capabilities resolves the backend for each ROI type. A nil entry
// degrades to capability_unavailable (§4.4, §9).
type Capabilities struct {
	Barcode capability.Capability
	Compare capability.Capability
	OCR     capability.Capability
	Color   capability.Capability
}

func (c Capabilities) forType(t roi.Type) capability.Capability {
	switch t {
	case roi.Barcode:
		return c.Barcode
	case roi.Compare:
		return c.Compare
	case roi.OCR:
		return c.OCR
	case roi.Color:
		return c.Color
	}
	return nil
}

// Workspace is the subset of the session workspace the executor writes
// artifacts into.
type Workspace struct {
	OutputDir          string // absolute path, server-internal
	ClientMountPrefix  string // rewrites OutputDir for the path returned to clients
}

func (w Workspace) clientPath(filename string) string {
	return filepath.Join(w.ClientMountPrefix, filename)
}

// Input bundles everything one ROI execution needs.
type Input struct {
	ROI         roi.ROI
	Image       image.Image // the full captured image for this ROI's capture group
	ProductName string
	Workspace   Workspace
	ColorRanges []capability.ColorRange // only meaningful for Color ROIs
}

// Run executes §4.4 for a single ROI. It never returns an error itself —
// every failure is folded into the returned ROIResult so the dispatcher
// can fan out without special-casing failures.
func Run(ctx context.Context, caps Capabilities, in Input) inspection.ROIResult {
	r := in.ROI
	result := inspection.ROIResult{
		RoiID:       r.Idx,
		DeviceID:    r.DeviceLocation,
		RoiTypeName: r.Type.Name(),
		Coordinates: r.Coords.Slice(),
	}

	cropped, err := processor.Crop(in.Image, r.Coords)
	if err != nil {
		result.Passed = false
		result.Error = "out_of_bounds"
		return result
	}

	if r.Type == roi.OCR || r.Rotation != roi.Rotate0 {
		cropped = processor.ConvertColorOrderForRotation(cropped)
		cropped = processor.RotateExpand(cropped, r.Rotation)
	}

	backend := caps.forType(r.Type)
	if backend == nil {
		result.Passed = false
		result.Error = capability.ErrCapabilityUnavailable
		writeCrop(in.Workspace, r.Idx, cropped, &result)
		return result
	}

	params := capability.Params{
		ROIIdx:        r.Idx,
		ProductName:   in.ProductName,
		FeatureMethod: r.FeatureMethod,
		Rotation:      r.Rotation,
		ExpectedText:  r.ExpectedText,
		ColorRanges:   in.ColorRanges,
	}
	if r.AIThreshold != nil {
		params.Threshold = *r.AIThreshold
	}

	capResult, err := runWithRecover(ctx, backend, cropped, params)
	if err != nil {
		result.Passed = false
		result.Error = err.Error()
		writeCrop(in.Workspace, r.Idx, cropped, &result)
		return result
	}

	result.Passed = capResult.Passed
	if capResult.Error != "" {
		result.Error = capResult.Error
	}

	switch r.Type {
	case roi.Barcode:
		result.BarcodeValues = capResult.BarcodeValues
	case roi.Compare:
		if capResult.Passed {
			result.MatchResult = "Match"
		} else {
			result.MatchResult = "Different"
		}
		sim := capResult.Similarity
		result.AISimilarity = &sim
		threshold := capResult.Threshold
		result.Threshold = &threshold
	case roi.OCR:
		result.OCRText = capResult.Text
	case roi.Color:
		result.DetectedColor = capResult.DetectedColor
		pct := capResult.MatchPercentage
		result.MatchPercentage = &pct
		raw := capResult.MatchPercentageRaw
		result.MatchPercentageRaw = &raw
		dominant := [3]int{int(capResult.DominantColor[0]), int(capResult.DominantColor[1]), int(capResult.DominantColor[2])}
		result.DominantColor = &dominant
		threshold := capResult.ColorThreshold
		result.Threshold = &threshold
	}

	writeCrop(in.Workspace, r.Idx, cropped, &result)
	if r.Type == roi.Compare && capResult.GoldenImage != nil {
		writeGolden(in.Workspace, r.Idx, capResult.GoldenImage, &result)
	}

	return result
}

// runWithRecover converts a capability panic into an ROI-local failure
// rather than letting it propagate and take down the worker pool (§4.5,
// §9 "error propagation").
func runWithRecover(ctx context.Context, backend capability.Capability, cropped image.Image, params capability.Params) (result capability.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("capability panic: %v", rec)
		}
	}()
	return backend.Run(ctx, cropped, params)
}

// writeCrop persists the exact crop used for scoring and records its
// client-visible path. Position discipline: RoiImagePath is always set
// before GoldenImagePath (§4.4 "return tuple positional discipline").
func writeCrop(ws Workspace, idx int, img image.Image, result *inspection.ROIResult) {
	filename := fmt.Sprintf("roi_%d.jpg", idx)
	if err := writeJPEG(filepath.Join(ws.OutputDir, filename), img); err != nil {
		if result.Error == "" {
			result.Error = fmt.Sprintf("failed writing roi artifact: %v", err)
		}
		return
	}
	path := ws.clientPath(filename)
	result.RoiImagePath = &path
}

func writeGolden(ws Workspace, idx int, img image.Image, result *inspection.ROIResult) {
	filename := fmt.Sprintf("golden_%d.jpg", idx)
	if err := writeJPEG(filepath.Join(ws.OutputDir, filename), img); err != nil {
		return
	}
	path := ws.clientPath(filename)
	result.GoldenImagePath = &path
}

func writeJPEG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
}
