// Package roi defines the canonical Region-of-Interest record and the
// normalizer that upgrades legacy variable-width rows to it.
package roi

import "fmt"

// Type enumerates the four capability dispatch kinds.
type Type int

const (
	Barcode Type = 1
	Compare Type = 2
	OCR     Type = 3
	Color   Type = 4
)

func (t Type) Valid() bool {
	switch t {
	case Barcode, Compare, OCR, Color:
		return true
	}
	return false
}

// Name returns the canonical lowercase roi_type_name used on the wire.
func (t Type) Name() string {
	switch t {
	case Barcode:
		return "barcode"
	case Compare:
		return "compare"
	case OCR:
		return "ocr"
	case Color:
		return "color"
	}
	return "unknown"
}

// FeatureMethod selects the capability variant used to evaluate a ROI.
type FeatureMethod string

const (
	DeepCNN        FeatureMethod = "deep_cnn"
	KeypointLocal  FeatureMethod = "keypoint_local"
	KeypointBinary FeatureMethod = "keypoint_binary"
	Generic        FeatureMethod = "generic"
	MethodBarcode  FeatureMethod = "barcode"
	MethodOCR      FeatureMethod = "ocr"
	MethodNone     FeatureMethod = "none"
)

// Rotation is one of the four axis-aligned rotations, applied with
// expand=true before the capability runs.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

func (r Rotation) Valid() bool {
	switch r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return true
	}
	return false
}

// Coords is a pixel rectangle (x1,y1,x2,y2) with x1<x2, y1<y2, all
// non-negative.
type Coords struct {
	X1, Y1, X2, Y2 int
}

func (c Coords) valid() bool {
	return c.X1 >= 0 && c.Y1 >= 0 && c.X1 < c.X2 && c.Y1 < c.Y2
}

// Slice returns the [x1,y1,x2,y2] form used on the wire.
func (c Coords) Slice() [4]int {
	return [4]int{c.X1, c.Y1, c.X2, c.Y2}
}

// ROI is the canonical 11-field record (§3 of the ROI data model).
type ROI struct {
	Idx              int
	Type             Type
	Coords           Coords
	Focus            int
	Exposure         int
	AIThreshold      *float64
	FeatureMethod    FeatureMethod
	Rotation         Rotation
	DeviceLocation   int
	ExpectedText     *string
	IsDeviceBarcode  *bool
}

// CaptureGroup identifies the (focus, exposure) pair a ROI is evaluated
// under; ROIs sharing a capture group are inspected against the same
// captured image (§4.8(ii)).
type CaptureGroup struct {
	Focus    int
	Exposure int
}

func (r ROI) CaptureGroup() CaptureGroup {
	return CaptureGroup{Focus: r.Focus, Exposure: r.Exposure}
}

// InvalidROI is returned by Normalize when a single row is malformed.
type InvalidROI struct {
	Reason string
}

func (e *InvalidROI) Error() string {
	return fmt.Sprintf("invalid roi: %s", e.Reason)
}

// InvalidConfig is returned by ValidateSet when a ROI set violates a
// cross-row invariant.
type InvalidConfig struct {
	Reason string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("invalid roi config: %s", e.Reason)
}

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }
func strPtr(s string) *string     { return &s }
