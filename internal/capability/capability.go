// Package capability implements the four pluggable ROI backends (barcode,
// compare, OCR, color) behind a single run(cropped_image, params) contract,
// matching the narrow-interface / no-op-fallback design called for by the
// inspection engine (see internal/roi for the ROI model these backends
// consume).
package capability

import (
	"context"
	"image"

	"github.com/bosocmputer/visual-inspector/internal/roi"
)

// Params carries everything a backend needs to evaluate one cropped ROI.
// Only the fields relevant to the ROI's type are populated by the executor;
// backends must not assume the others are present.
type Params struct {
	ROIIdx        int
	ProductName   string
	Threshold     float64
	FeatureMethod roi.FeatureMethod
	Rotation      roi.Rotation
	ExpectedText  *string
	ColorRanges   []ColorRange
}

// Result is a tagged variant matching the ROI type that produced it. Only
// the fields relevant to that type are meaningful; the executor reads the
// ones it needs by ROI type and ignores the rest.
type Result struct {
	Passed bool
	Error  string

	// barcode
	BarcodeValues []string

	// compare
	Similarity  float64
	MatchedFile string
	Threshold   float64
	GoldenImage image.Image // the resized golden actually used for scoring

	// ocr
	Text string

	// color
	DetectedColor       string
	MatchPercentage     float64
	MatchPercentageRaw  float64
	DominantColor       [3]uint8
	ColorThreshold      float64
}

// Capability is the common contract every backend implements.
type Capability interface {
	Run(ctx context.Context, cropped image.Image, params Params) (Result, error)
}

// BackendError is a categorized capability failure, generalizing the
// teacher's GeminiError: some failures are worth retrying (rate limits,
// transient server errors, timeouts), others are not (bad input,
// unauthorized).
type BackendError struct {
	Category  string
	Retryable bool
	Err       error
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return e.Category
	}
	return e.Category + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error { return e.Err }

// ErrCapabilityUnavailable is returned by the no-op backends so the
// executor can record error:"capability_unavailable" per §4.4.
const ErrCapabilityUnavailable = "capability_unavailable"
